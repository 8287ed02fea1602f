package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/visibility-cli/internal/answer"
	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/planner"
	"github.com/sells-group/visibility-cli/internal/store"
)

const sampleTranscript = "OpenAI powered the BlueJ pilot expansion to three campuses, accelerating adoption momentum.\n\n" +
	"Feedback loops capture every bug report, enabling trust through quality improvements.\n\n" +
	"A 350 prompt evaluation suite benchmarks accuracy across jurisdictions."

// mockSource is a testify mock of answer.Source.
type mockSource struct {
	mock.Mock
}

func (m *mockSource) Answer(ctx context.Context, modelName string, questions []model.ClarifyingQuestion, transcript string) ([]model.QuestionAnswer, error) {
	args := m.Called(ctx, modelName, questions, transcript)
	if v := args.Get(0); v != nil {
		return v.([]model.QuestionAnswer), args.Error(1)
	}
	return nil, args.Error(1)
}

var fixedNow = time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Model.Name = "gpt-5"
	cfg.Model.Mode = "stub"
	cfg.Model.ComparisonModels = []string{"gpt-4o"}
	cfg.Provider.Name = "OpenAI"
	cfg.Provider.Aliases = []string{"OpenAI", "ChatGPT"}
	cfg.Pillars.TargetCount = 3
	return cfg
}

// sourceBackends returns a factory that always serves src with the heuristic planner.
func sourceBackends(src answer.Source) BackendFactory {
	return func(_ model.Mode, targetCount int) (*Backend, error) {
		return &Backend{
			Source:  src,
			Planner: planner.NewHeuristicPlanner(nil, targetCount),
			Usage: func() (model.TokenUsage, int) {
				return model.TokenUsage{InputTokens: 10, OutputTokens: 5, Cost: 0.001}, 2
			},
			BudgetRemaining: func() int { return 18 },
		}, nil
	}
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func storeFilterFailed() store.RunFilter {
	return store.RunFilter{Status: model.RunStatusFailed}
}
