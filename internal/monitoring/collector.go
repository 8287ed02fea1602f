// Package monitoring summarizes run history and raises alerts on it.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/store"
)

// RunLister is the subset of store.Store the collector needs.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// MetricsSnapshot holds a point-in-time view of run health.
type MetricsSnapshot struct {
	RunsTotal     int     `json:"runs_total"`
	RunsComplete  int     `json:"runs_complete"`
	RunsFailed    int     `json:"runs_failed"`
	RunsActive    int     `json:"runs_active"`
	FailRate      float64 `json:"fail_rate"`
	CostUSD       float64 `json:"cost_usd"`
	Tokens        int     `json:"tokens"`
	AvgCoverage   float64 `json:"avg_coverage"`
	AvgConfidence float64 `json:"avg_confidence"`

	// ByStatus counts every status seen in the window.
	ByStatus map[model.RunStatus]int `json:"by_status"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the run store.
type Collector struct {
	store RunLister
	now   func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(st RunLister) *Collector {
	return &Collector{store: st, now: time.Now}
}

const collectLimit = 10000

// Collect gathers a snapshot of run metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		ByStatus:      map[model.RunStatus]int{},
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)
	runs, err := c.store.ListRuns(ctx, store.RunFilter{
		CreatedAfter: cutoff,
		Limit:        collectLimit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var coverage, confidence float64
	var scored int
	for _, r := range runs {
		snap.ByStatus[r.Status]++
		switch {
		case r.Status == model.RunStatusComplete:
			snap.RunsComplete++
		case r.Status == model.RunStatusFailed:
			snap.RunsFailed++
		default:
			snap.RunsActive++
		}
		if r.Result == nil {
			continue
		}
		snap.CostUSD += r.Result.TotalCost
		snap.Tokens += r.Result.TotalTokens
		if r.Status == model.RunStatusComplete {
			coverage += r.Result.Coverage
			confidence += r.Result.Confidence
			scored++
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if scored > 0 {
		snap.AvgCoverage = coverage / float64(scored)
		snap.AvgConfidence = confidence / float64(scored)
	}
	return snap, nil
}
