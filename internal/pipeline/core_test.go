package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/visibility-cli/internal/answer"
	"github.com/sells-group/visibility-cli/internal/ingest"
	"github.com/sells-group/visibility-cli/internal/model"
)

func TestStoryID(t *testing.T) {
	id := StoryID("hello world")
	assert.Equal(t, "story-2aae6c35c9", id)
	assert.Equal(t, id, StoryID("hello world"))
	assert.NotEqual(t, id, StoryID("hello world!"))
}

func TestRunCore_Stub(t *testing.T) {
	result, err := RunCore(context.Background(), CoreInput{
		Transcript:      sampleTranscript,
		ProviderName:    "OpenAI",
		ProviderAliases: []string{"OpenAI"},
		Models:          []string{"gpt-5", "gpt-4o"},
		Source:          answer.StubSource{},
		Metadata:        model.StoryMetadata{StoryID: "story-1"},
		Mode:            model.ModeStub,
		Now:             fixedClock,
	})
	require.NoError(t, err)

	assert.True(t, result.Scored)
	assert.Equal(t, "story-1", result.StoryID)
	assert.Equal(t, fixedNow, result.GeneratedAt)
	require.Len(t, result.Pillars, 3)
	require.Len(t, result.Questions, 6)
	require.Len(t, result.Answers, 12)
	assert.Equal(t, "gpt-5", result.Answers[0].Model)
	assert.Equal(t, "gpt-4o", result.Answers[6].Model)

	assert.Equal(t, 6, result.Summary.TotalQuestions)
	assert.Equal(t, 6, result.Summary.AIProviderRecognizedIn)
	assert.InDelta(t, 1.0, result.Scores.Coverage, 1e-9)
	assert.InDelta(t, 0.9, result.Scores.Confidence, 1e-9)

	for _, p := range result.Pillars {
		assert.NotContains(t, p.Summary, "OpenAI")
	}
}

func TestRunCore_DedupesModels(t *testing.T) {
	result, err := RunCore(context.Background(), CoreInput{
		Transcript:      sampleTranscript,
		ProviderName:    "OpenAI",
		ProviderAliases: []string{"OpenAI"},
		Models:          []string{"gpt-5", " gpt-5 ", "gpt-5"},
		Source:          answer.StubSource{},
		Now:             fixedClock,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"gpt-5"}, result.ModelsRun)
	assert.Len(t, result.Answers, 6)
	assert.Equal(t, StoryID(sampleTranscript), result.StoryID)
}

func TestRunCore_NoAliases(t *testing.T) {
	src := &mockSource{}
	_, err := RunCore(context.Background(), CoreInput{
		Transcript: sampleTranscript,
		Models:     []string{"gpt-5"},
		Source:     src,
	})

	var cfgErr *ingest.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	src.AssertNotCalled(t, "Answer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunCore_SourceFailureAborts(t *testing.T) {
	src := &mockSource{}
	src.On("Answer", mock.Anything, "gpt-5", mock.Anything, mock.Anything).
		Return(nil, errors.New("upstream unavailable"))

	_, err := RunCore(context.Background(), CoreInput{
		Transcript:   sampleTranscript,
		ProviderName: "OpenAI",
		Models:       []string{"gpt-5", "gpt-4o"},
		Source:       src,
	})

	var srcErr *answer.SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, "gpt-5", srcErr.Model)
	// Sequential: the second model is never asked.
	src.AssertNotCalled(t, "Answer", mock.Anything, "gpt-4o", mock.Anything, mock.Anything)
}

func TestRunCore_MaskedTranscriptReachesSource(t *testing.T) {
	src := &mockSource{}
	src.On("Answer", mock.Anything, "gpt-5", mock.Anything, mock.MatchedBy(func(text string) bool {
		return !containsFold(text, "openai") && containsFold(text, ingest.MaskToken)
	})).Return([]model.QuestionAnswer{}, nil)

	result, err := RunCore(context.Background(), CoreInput{
		Transcript:   sampleTranscript,
		ProviderName: "OpenAI",
		Models:       []string{"gpt-5"},
		Source:       src,
	})
	require.NoError(t, err)
	src.AssertExpectations(t)

	// No answers: every question counts toward the total.
	assert.Equal(t, 6, result.Summary.TotalQuestions)
	assert.Zero(t, result.Scores.Coverage)
}

func TestAnswerModels_OrderPreserved(t *testing.T) {
	models := []string{"a", "b", "c"}
	src := answer.SourceFunc(func(_ context.Context, m string, _ []model.ClarifyingQuestion, _ string) ([]model.QuestionAnswer, error) {
		return []model.QuestionAnswer{{Model: m, QuestionID: m + "-1"}, {Model: m, QuestionID: m + "-2"}}, nil
	})

	answers, err := answerModels(context.Background(), src, models, nil, "", len(models))
	require.NoError(t, err)
	require.Len(t, answers, 6)
	for i, a := range answers {
		assert.Equal(t, models[i/2], a.Model)
	}
}
