package answer

import (
	"context"
	"strings"

	"github.com/sells-group/visibility-cli/internal/model"
)

// Canned stub answers.
const (
	StubMaskedAnswer   = "OpenAI is the likely provider powering this outcome."
	StubIndustryAnswer = "OpenAI and similar vendors deliver this capability."
	StubUnknownAnswer  = "The transcript lacks enough detail to determine the provider."
)

// StubSource fabricates deterministic answers without any network call.
type StubSource struct{}

// Answer returns one canned answer per question.
func (StubSource) Answer(_ context.Context, modelName string, questions []model.ClarifyingQuestion, _ string) ([]model.QuestionAnswer, error) {
	answers := make([]model.QuestionAnswer, 0, len(questions))
	for i, q := range questions {
		answers = append(answers, model.QuestionAnswer{
			QuestionID: questionID(i, q),
			Model:      modelName,
			Prompt:     q.Prompt,
			Answer:     stubAnswer(q),
			Kind:       q.Kind,
		})
	}
	return answers, nil
}

func stubAnswer(q model.ClarifyingQuestion) string {
	switch {
	case q.Kind == model.KindMaskedClient:
		return StubMaskedAnswer
	case strings.Contains(strings.ToLower(q.Prompt), "which ai providers"):
		return StubIndustryAnswer
	default:
		return StubUnknownAnswer
	}
}
