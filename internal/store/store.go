// Package store persists visibility runs and their phases.
package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rotisserie/eris"

	"github.com/sells-group/visibility-cli/internal/model"
)

// ErrNotFound is returned when a run or phase does not exist.
var ErrNotFound = eris.New("not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	StoryID      string          `json:"story_id,omitempty"`
	Provider     string          `json:"provider,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for visibility runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, req model.RunRequest) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	FailRun(ctx context.Context, runID string, reason string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Phases
	CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error)
	CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error
	ListPhases(ctx context.Context, runID string) ([]model.RunPhase, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

var runColumns = []string{
	"id", "request", "status", "result", "error", "created_at", "updated_at",
}

// listRunsQuery builds the ListRuns SELECT for the given placeholder style.
func listRunsQuery(filter RunFilter, format sq.PlaceholderFormat) (string, []any, error) {
	q := sq.Select(runColumns...).
		From("runs").
		OrderBy("created_at DESC").
		PlaceholderFormat(format)

	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.StoryID != "" {
		q = q.Where(sq.Eq{"story_id": filter.StoryID})
	}
	if filter.Provider != "" {
		q = q.Where(sq.Eq{"provider": filter.Provider})
	}
	if !filter.CreatedAfter.IsZero() {
		q = q.Where(sq.Gt{"created_at": filter.CreatedAfter.UTC()})
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	q = q.Limit(uint64(limit))
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q.ToSql()
}
