// Package questions synthesizes the clarifying questions asked of each model.
package questions

import (
	"fmt"
	"strings"

	"github.com/sells-group/visibility-cli/internal/ingest"
	"github.com/sells-group/visibility-cli/internal/model"
)

// FallbackPrompt is asked when a transcript yields no pillars.
const FallbackPrompt = "What visibility signals are missing from the transcript?"

// Generate returns a masked_client and an industry_general question for every
// pillar, in pillar order. With no pillars it returns the single fallback question.
func Generate(pillars []model.NarrativePillar) []model.ClarifyingQuestion {
	if len(pillars) == 0 {
		return []model.ClarifyingQuestion{Fallback()}
	}

	out := make([]model.ClarifyingQuestion, 0, 2*len(pillars))
	for i, p := range pillars {
		index := i + 1
		out = append(out, maskedQuestion(p, index), industryQuestion(p, index))
	}
	return out
}

// Fallback returns the discovery question used when no pillars exist.
func Fallback() model.ClarifyingQuestion {
	return model.ClarifyingQuestion{
		Prompt:      FallbackPrompt,
		Category:    model.CategoryDiscovery,
		Kind:        model.KindDiscoveryBaseline,
		Identifier:  model.FallbackQuestionID,
		Assumptions: []string{},
	}
}

func maskedQuestion(p model.NarrativePillar, index int) model.ClarifyingQuestion {
	assumptions := []string{}
	if strings.TrimSpace(p.Summary) != "" {
		assumptions = append(assumptions, p.Summary)
	}
	return model.ClarifyingQuestion{
		Prompt: fmt.Sprintf("%s reports that %s. Which AI provider would most likely enable this outcome?",
			ingest.MaskToken, descriptor(p)),
		Category:    model.CategoryValidation,
		Kind:        model.KindMaskedClient,
		Identifier:  model.QuestionID(index, model.KindMaskedClient),
		Assumptions: assumptions,
	}
}

func industryQuestion(p model.NarrativePillar, index int) model.ClarifyingQuestion {
	return model.ClarifyingQuestion{
		Prompt: fmt.Sprintf("Across the market, which AI providers are recognized for supporting %s?",
			strings.ToLower(descriptor(p))),
		Category:    model.CategoryDiscovery,
		Kind:        model.KindIndustryGeneral,
		Identifier:  model.QuestionID(index, model.KindIndustryGeneral),
		Assumptions: []string{p.Title},
	}
}

// descriptor is the pillar summary (or title when blank), trimmed, without one
// trailing period.
func descriptor(p model.NarrativePillar) string {
	d := p.Summary
	if strings.TrimSpace(d) == "" {
		d = p.Title
	}
	d = strings.TrimSpace(d)
	return strings.TrimSuffix(d, ".")
}
