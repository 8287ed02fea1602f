// Package evaluate detects provider leakage in model answers and scores a
// VisibilityResult. Every function returns a new result; inputs are not mutated.
package evaluate

import (
	"math"

	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/textutil"
)

const confidenceStep = 0.1

// ProviderInferred reports whether answer names any provider alias.
func ProviderInferred(answer model.QuestionAnswer, aliases []string) bool {
	return textutil.ContainsAny(answer.Answer, aliases)
}

// EvaluateAnswers annotates every answer with AIProviderInferred and rebuilds
// the summary. A question counts as recognized when any model's answer to it
// leaked the provider. With no answers, TotalQuestions is the question count.
func EvaluateAnswers(result model.VisibilityResult, aliases []string) model.VisibilityResult {
	out := result.Clone()

	recognized := make(map[string]bool, len(out.Answers))
	for i := range out.Answers {
		seen := ProviderInferred(out.Answers[i], aliases)
		out.Answers[i].AIProviderInferred = seen
		recognized[out.Answers[i].QuestionID] = recognized[out.Answers[i].QuestionID] || seen
	}

	total := len(recognized)
	if len(out.Answers) == 0 {
		total = len(out.Questions)
	}
	hits := 0
	for _, ok := range recognized {
		if ok {
			hits++
		}
	}

	out.Summary = model.VisibilitySummary{
		TotalQuestions:         total,
		AIProviderRecognizedIn: hits,
	}
	return out
}

// Score evaluates answers and computes the scorecard:
// coverage = recognized / max(1, total) and
// confidence = min(1, 0.1 * (pillars + recognized)).
func Score(result model.VisibilityResult, aliases []string) model.VisibilityResult {
	out := EvaluateAnswers(result, aliases)
	out.Scores = Scorecard(out.Summary, len(out.Pillars))
	out.Scored = true
	return out
}

// Scorecard derives coverage and confidence from a summary and pillar count.
func Scorecard(summary model.VisibilitySummary, pillarCount int) model.VisibilityScorecard {
	total := max(1, summary.TotalQuestions)
	coverage := float64(summary.AIProviderRecognizedIn) / float64(total)
	confidence := math.Min(1.0, confidenceStep*float64(pillarCount+summary.AIProviderRecognizedIn))
	return model.VisibilityScorecard{
		Coverage:   coverage,
		Confidence: confidence,
	}
}
