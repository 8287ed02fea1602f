package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/textutil"
)

// DefaultSystemPrompt frames every live question.
const DefaultSystemPrompt = `You are an industry analyst. You read anonymized customer stories in which the ` +
	`technology vendor's name has been replaced by [MASK]. Answer the question directly in two or ` +
	`three sentences and name specific AI providers when you can.`

const maxContextRunes = 6000

// LiveSettings tunes live calls.
type LiveSettings struct {
	SystemPrompt    string
	Temperature     float64
	MaxTokens       int
	ReasoningEffort string
}

// LiveSource answers each question with one completion.
type LiveSource struct {
	completer Completer
	settings  LiveSettings
}

// NewLiveSource creates a LiveSource over c (typically a *Router).
func NewLiveSource(c Completer, settings LiveSettings) *LiveSource {
	if settings.SystemPrompt == "" {
		settings.SystemPrompt = DefaultSystemPrompt
	}
	return &LiveSource{completer: c, settings: settings}
}

// Answer asks modelName every question in order and stops at the first error.
func (s *LiveSource) Answer(ctx context.Context, modelName string, questions []model.ClarifyingQuestion, transcript string) ([]model.QuestionAnswer, error) {
	story := textutil.Truncate(transcript, maxContextRunes)

	answers := make([]model.QuestionAnswer, 0, len(questions))
	for i, q := range questions {
		temp := s.settings.Temperature
		resp, err := s.completer.Complete(ctx, CompletionRequest{
			Model:           modelName,
			System:          s.settings.SystemPrompt,
			User:            questionPrompt(story, q.Prompt),
			Temperature:     &temp,
			MaxTokens:       s.settings.MaxTokens,
			ReasoningEffort: s.settings.ReasoningEffort,
		})
		if err != nil {
			return nil, WrapSourceError(modelName, err)
		}
		answers = append(answers, model.QuestionAnswer{
			QuestionID: questionID(i, q),
			Model:      modelName,
			Prompt:     q.Prompt,
			Answer:     strings.TrimSpace(resp.Text),
			Kind:       q.Kind,
		})
	}
	return answers, nil
}

func questionPrompt(transcript, question string) string {
	if strings.TrimSpace(transcript) == "" {
		return question
	}
	return fmt.Sprintf("Story context:\n%s\n\nQuestion: %s", transcript, question)
}
