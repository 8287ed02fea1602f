// Package answer provides the Answer Source collaborator: given a model and
// a batch of questions it returns one answer per question, either from a
// deterministic stub or from live provider calls.
package answer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sells-group/visibility-cli/internal/model"
)

// Source answers a batch of questions with one model.
type Source interface {
	Answer(ctx context.Context, modelName string, questions []model.ClarifyingQuestion, transcript string) ([]model.QuestionAnswer, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, modelName string, questions []model.ClarifyingQuestion, transcript string) ([]model.QuestionAnswer, error)

// Answer calls f.
func (f SourceFunc) Answer(ctx context.Context, modelName string, questions []model.ClarifyingQuestion, transcript string) ([]model.QuestionAnswer, error) {
	return f(ctx, modelName, questions, transcript)
}

// SourceError reports that the answer source failed for a model.
type SourceError struct {
	Model string
	Err   error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("answer source failed for model %s: %v", e.Model, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// WrapSourceError wraps err for modelName unless it already is a SourceError.
func WrapSourceError(modelName string, err error) error {
	if err == nil {
		return nil
	}
	var se *SourceError
	if errors.As(err, &se) {
		return err
	}
	return &SourceError{Model: modelName, Err: err}
}

// questionID returns the question's identifier or q<index>_<kind> (1-based).
func questionID(index int, q model.ClarifyingQuestion) string {
	if q.Identifier != "" {
		return q.Identifier
	}
	return fmt.Sprintf("q%d_%s", index+1, q.Kind)
}
