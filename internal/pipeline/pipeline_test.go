package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/visibility-cli/internal/answer"
	"github.com/sells-group/visibility-cli/internal/ingest"
	"github.com/sells-group/visibility-cli/internal/metrics"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/report"
)

func TestPipeline_Run_StubWithStore(t *testing.T) {
	st := newTestStore(t)
	m := metrics.New()
	p := New(testConfig(), sourceBackends(answer.StubSource{}),
		WithStore(st), WithMetrics(m), WithClock(fixedClock))

	out, err := p.Run(context.Background(), Request{
		Text:       sampleTranscript,
		StoryID:    "sample-story",
		ClientName: "BlueJ",
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.RunID)

	assert.Equal(t, "sample-story", out.Payload.StoryID)
	assert.Equal(t, []string{"gpt-5", "gpt-4o"}, out.Result.ModelsRun)
	assert.Equal(t, model.ModeStub, out.Result.Mode)
	assert.Len(t, out.Payload.SellingPoints, 3)
	assert.InDelta(t, 1.0, out.Payload.Scores.Coverage, 1e-9)
	assert.Equal(t, 15, out.Usage.Total())
	assert.Equal(t, 2, out.Calls)

	require.Len(t, out.Phases, 4)
	for i, name := range []string{PhaseIngest, PhasePlan, PhaseAnswer, PhaseScore} {
		assert.Equal(t, name, out.Phases[i].Name)
		assert.Equal(t, model.PhaseStatusComplete, out.Phases[i].Status)
	}
	assert.Equal(t, 1, out.Phases[0].Metadata["masked_terms"])
	assert.Equal(t, 18, out.Phases[2].Metadata["budget_remaining"])

	run, err := st.GetRun(context.Background(), out.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, "sample-story", run.Request.StoryID)
	assert.Equal(t, []string{"OpenAI", "ChatGPT"}, run.Request.Aliases)
	require.NotNil(t, run.Result)
	assert.InDelta(t, 0.9, run.Result.Confidence, 1e-9)
	assert.InDelta(t, 0.001, run.Result.TotalCost, 1e-12)

	var stored report.Payload
	require.NoError(t, json.Unmarshal(run.Result.Payload, &stored))
	assert.Equal(t, out.Payload.Summary, stored.Summary)
	require.NotNil(t, stored.Metadata.ClientName)
	assert.Equal(t, "BlueJ", *stored.Metadata.ClientName)

	phases, err := st.ListPhases(context.Background(), out.RunID)
	require.NoError(t, err)
	assert.Len(t, phases, 4)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("complete", "stub")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MaskedTerms))
}

func TestPipeline_Run_WithoutStore(t *testing.T) {
	p := New(testConfig(), sourceBackends(answer.StubSource{}), WithClock(fixedClock))

	out, err := p.Run(context.Background(), Request{Text: sampleTranscript})
	require.NoError(t, err)
	assert.Empty(t, out.RunID)
	assert.Equal(t, StoryID(sampleTranscript), out.Result.StoryID)
	assert.Equal(t, fixedNow.Format(time.RFC3339), out.Payload.Metadata.GeneratedAt)
}

func TestPipeline_Run_RequestOverrides(t *testing.T) {
	src := &mockSource{}
	src.On("Answer", mock.Anything, "claude-haiku-4-5", mock.Anything, mock.Anything).
		Return([]model.QuestionAnswer{{QuestionID: "sp1_q1_masked_client", Model: "claude-haiku-4-5", Answer: "Probably Anthropic."}}, nil).Once()

	p := New(testConfig(), sourceBackends(src))
	out, err := p.Run(context.Background(), Request{
		Text:            "Anthropic helped BlueJ ship faster. Claude drafted every brief.",
		ProviderName:    "Anthropic",
		ProviderAliases: []string{"Claude", "Claude", " "},
		Models:          []string{"claude-haiku-4-5", "claude-haiku-4-5"},
		Mode:            model.ModeLive,
		TargetCount:     1,
	})
	require.NoError(t, err)
	src.AssertExpectations(t)

	assert.Equal(t, []string{"claude-haiku-4-5"}, out.Result.ModelsRun)
	assert.Equal(t, model.ModeLive, out.Result.Mode)
	assert.Len(t, out.Result.Pillars, 1)
	assert.Equal(t, "Anthropic", out.Payload.Metadata.ProviderName)
	assert.Equal(t, 1, out.Result.Summary.AIProviderRecognizedIn)
	assert.True(t, out.Result.Answers[0].AIProviderInferred)
}

func TestPipeline_Run_SourceFailureFailsRun(t *testing.T) {
	st := newTestStore(t)
	m := metrics.New()
	src := &mockSource{}
	src.On("Answer", mock.Anything, "gpt-5", mock.Anything, mock.Anything).
		Return([]model.QuestionAnswer{}, nil).Maybe()
	src.On("Answer", mock.Anything, "gpt-4o", mock.Anything, mock.Anything).
		Return(nil, errors.New("rate limited"))

	p := New(testConfig(), sourceBackends(src), WithStore(st), WithMetrics(m))
	_, err := p.Run(context.Background(), Request{Text: sampleTranscript})

	var srcErr *answer.SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, "gpt-4o", srcErr.Model)

	runs, listErr := st.ListRuns(context.Background(), storeFilterFailed())
	require.NoError(t, listErr)
	require.Len(t, runs, 1)
	assert.Contains(t, runs[0].Error, "answer source failed for model gpt-4o")

	phases, listErr := st.ListPhases(context.Background(), runs[0].ID)
	require.NoError(t, listErr)
	require.Len(t, phases, 3)
	assert.Equal(t, model.PhaseStatusFailed, phases[2].Status)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("failed", "stub")))
}

func TestPipeline_Run_MaskIntegrity(t *testing.T) {
	cfg := testConfig()
	cfg.Provider.Name = "Mask"
	cfg.Provider.Aliases = []string{"mask"}
	p := New(cfg, sourceBackends(answer.StubSource{}))

	_, err := p.Run(context.Background(), Request{Text: "The mask team shipped."})
	var maskErr *ingest.MaskIntegrityError
	require.ErrorAs(t, err, &maskErr)
	assert.NotEmpty(t, maskErr.Issues)

	out, err := p.Run(context.Background(), Request{Text: "The mask team shipped.", SkipMaskCheck: true})
	require.NoError(t, err)
	assert.NotNil(t, out)
}

func TestPipeline_Run_InvalidMode(t *testing.T) {
	p := New(testConfig(), sourceBackends(answer.StubSource{}))
	_, err := p.Run(context.Background(), Request{Text: sampleTranscript, Mode: "turbo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mode must be 'stub' or 'live'")
}

func TestPipeline_Run_BackendError(t *testing.T) {
	p := New(testConfig(), func(model.Mode, int) (*Backend, error) {
		return nil, errors.New("no credentials")
	})
	_, err := p.Run(context.Background(), Request{Text: sampleTranscript})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build backend")
}
