package answer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/visibility-cli/internal/model"
)

func TestStubSource_Answers(t *testing.T) {
	answers, err := StubSource{}.Answer(context.Background(), "gpt-5", sampleQuestions(), "ignored")
	require.NoError(t, err)
	require.Len(t, answers, 2)

	assert.Equal(t, "sp1_q1_masked_client", answers[0].QuestionID)
	assert.Equal(t, "gpt-5", answers[0].Model)
	assert.Equal(t, StubMaskedAnswer, answers[0].Answer)
	assert.Equal(t, model.KindMaskedClient, answers[0].Kind)
	assert.False(t, answers[0].AIProviderInferred)

	assert.Equal(t, "sp1_q2_industry_general", answers[1].QuestionID)
	assert.Equal(t, StubIndustryAnswer, answers[1].Answer)
}

func TestStubSource_FallbackQuestion(t *testing.T) {
	q := model.ClarifyingQuestion{
		Prompt:   "What outcomes does the story highlight?",
		Category: model.CategoryDiscovery,
		Kind:     model.KindDiscoveryBaseline,
	}
	answers, err := StubSource{}.Answer(context.Background(), "gpt-4o", []model.ClarifyingQuestion{q}, "")
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "q1_discovery_baseline", answers[0].QuestionID)
	assert.Equal(t, StubUnknownAnswer, answers[0].Answer)
}

func TestStubSource_Empty(t *testing.T) {
	answers, err := StubSource{}.Answer(context.Background(), "gpt-5", nil, "")
	require.NoError(t, err)
	assert.Empty(t, answers)
}

func TestSourceFunc(t *testing.T) {
	var gotModel string
	src := SourceFunc(func(_ context.Context, m string, qs []model.ClarifyingQuestion, _ string) ([]model.QuestionAnswer, error) {
		gotModel = m
		return []model.QuestionAnswer{{QuestionID: qs[0].Identifier, Model: m}}, nil
	})
	answers, err := src.Answer(context.Background(), "claude-sonnet-4-5", sampleQuestions(), "")
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", gotModel)
	assert.Equal(t, "sp1_q1_masked_client", answers[0].QuestionID)
}

func TestWrapSourceError(t *testing.T) {
	assert.Nil(t, WrapSourceError("gpt-5", nil))

	err := WrapSourceError("gpt-5", assert.AnError)
	var se *SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "gpt-5", se.Model)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "model gpt-5")

	again := WrapSourceError("gpt-4o", err)
	require.ErrorAs(t, again, &se)
	assert.Equal(t, "gpt-5", se.Model)
}

func TestProviderFor(t *testing.T) {
	tests := map[string]string{
		"gpt-5":             ProviderOpenAI,
		"gpt-4o":            ProviderOpenAI,
		"o3":                ProviderOpenAI,
		"o4-mini":           ProviderOpenAI,
		"claude-sonnet-4-5": ProviderAnthropic,
		"Claude-Haiku":      ProviderAnthropic,
		"opus-latest":       ProviderAnthropic,
		"sonar":             ProviderPerplexity,
		"sonar-pro":         ProviderPerplexity,
		"perplexity-online": ProviderPerplexity,
		"mistral-large":     ProviderOpenAI,
	}
	for m, want := range tests {
		assert.Equal(t, want, ProviderFor(m), m)
	}
}
