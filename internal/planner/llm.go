package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/answer"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/pillars"
	"github.com/sells-group/visibility-cli/internal/questions"
)

const systemPrompt = `You analyze anonymized customer success stories. The technology vendor's ` +
	`name has been replaced by [MASK]. Never guess or reveal the vendor. Respond with JSON only.`

const pillarsPrompt = `Identify up to %d narrative pillars in the transcript below. A pillar is a ` +
	`distinct outcome or theme the customer emphasizes. Give each a short title, a one-sentence ` +
	`summary, verbatim evidence sentences and a priority (1 = most important).

Transcript:
%s`

const questionsPrompt = `For each pillar below write exactly two questions:
1. kind "masked_client", category "validation": restate the outcome with [MASK] and ask which AI provider most likely enabled it.
2. kind "industry_general", category "discovery": ask which AI providers the market recognizes for that capability.
Use identifier sp<pillar_index>_q1_masked_client and sp<pillar_index>_q2_industry_general.

Pillars:
%s`

// LLMSettings tunes planner calls.
type LLMSettings struct {
	Model           string
	TargetCount     int
	Temperature     float64
	MaxTokens       int
	ReasoningEffort string
}

// LLMPlanner asks a model for pillars and questions using structured output.
// Empty or invalid output, or a failed call, falls back to the heuristic
// planner for that step.
type LLMPlanner struct {
	completer answer.Completer
	settings  LLMSettings
	fallback  *HeuristicPlanner
}

// NewLLMPlanner creates an LLMPlanner.
func NewLLMPlanner(c answer.Completer, settings LLMSettings, fallback *HeuristicPlanner) *LLMPlanner {
	if settings.TargetCount <= 0 {
		settings.TargetCount = pillars.DefaultTargetCount
	}
	if fallback == nil {
		fallback = NewHeuristicPlanner(nil, settings.TargetCount)
	}
	return &LLMPlanner{completer: c, settings: settings, fallback: fallback}
}

// Plan implements Planner. Context cancellation is returned as an error;
// every other failure falls back.
func (p *LLMPlanner) Plan(ctx context.Context, maskedText string) (Plan, error) {
	ps, err := p.extractPillars(ctx, maskedText)
	if err != nil {
		if ctx.Err() != nil {
			return Plan{}, eris.Wrap(ctx.Err(), "planner: extract pillars")
		}
		zap.L().Warn("planner: pillar extraction fell back to heuristics", zap.Error(err))
		ps = p.fallback.Extractor.Extract(maskedText, p.settings.TargetCount)
	}

	qs, err := p.generateQuestions(ctx, ps)
	if err != nil {
		if ctx.Err() != nil {
			return Plan{}, eris.Wrap(ctx.Err(), "planner: generate questions")
		}
		zap.L().Warn("planner: question generation fell back to templates", zap.Error(err))
		qs = questions.Generate(ps)
	}

	return Plan{Pillars: ps, Questions: qs}, nil
}

func (p *LLMPlanner) extractPillars(ctx context.Context, maskedText string) ([]model.NarrativePillar, error) {
	var resp pillarsResponse
	err := p.completeJSON(ctx, fmt.Sprintf(pillarsPrompt, p.settings.TargetCount, maskedText), &answer.Schema{
		Name:        "narrative_pillars",
		Description: "Narrative pillars extracted from a masked customer story",
		Definition:  pillarsSchema,
	}, &resp)
	if err != nil {
		return nil, err
	}

	out := make([]model.NarrativePillar, 0, len(resp.Pillars))
	for i, item := range resp.Pillars {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = fmt.Sprintf("Signal %d", i+1)
		}
		priority := item.Priority
		if priority <= 0 {
			priority = i + 1
		}
		evidence := item.Evidence
		if evidence == nil {
			evidence = []string{}
		}
		out = append(out, model.NarrativePillar{
			Title:    title,
			Summary:  strings.TrimSpace(item.Summary),
			Evidence: evidence,
			Priority: model.IntPtr(priority),
		})
	}

	out = pillars.Merge(out)
	if len(out) == 0 {
		return nil, eris.New("planner: model returned no pillars")
	}
	if len(out) > p.settings.TargetCount {
		out = out[:p.settings.TargetCount]
	}
	return out, nil
}

func (p *LLMPlanner) generateQuestions(ctx context.Context, ps []model.NarrativePillar) ([]model.ClarifyingQuestion, error) {
	if len(ps) == 0 {
		return nil, eris.New("planner: no pillars to question")
	}

	type pillarInput struct {
		Index    int      `json:"index"`
		Title    string   `json:"title"`
		Summary  string   `json:"summary"`
		Evidence []string `json:"evidence"`
	}
	inputs := make([]pillarInput, len(ps))
	for i, pl := range ps {
		inputs[i] = pillarInput{Index: i + 1, Title: pl.Title, Summary: pl.Summary, Evidence: pl.Evidence}
	}
	pillarsJSON, err := json.MarshalIndent(inputs, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "planner: marshal pillars")
	}

	var resp questionsResponse
	err = p.completeJSON(ctx, fmt.Sprintf(questionsPrompt, pillarsJSON), &answer.Schema{
		Name:        "clarifying_questions",
		Description: "Two visibility questions per narrative pillar",
		Definition:  questionsSchema,
	}, &resp)
	if err != nil {
		return nil, err
	}

	out := make([]model.ClarifyingQuestion, 0, len(resp.Questions))
	seen := make(map[string]bool, len(resp.Questions))
	for i, item := range resp.Questions {
		prompt := strings.TrimSpace(item.Prompt)
		if prompt == "" {
			continue
		}
		idx := item.PillarIndex
		if idx < 1 || idx > len(ps) {
			idx = i/2 + 1
		}
		kind := normalizeKind(item.Kind)
		id := model.QuestionID(idx, kind)
		if seen[id] {
			continue
		}
		seen[id] = true
		assumptions := item.Assumptions
		if assumptions == nil {
			assumptions = []string{}
		}
		out = append(out, model.ClarifyingQuestion{
			Prompt:      prompt,
			Category:    normalizeCategory(item.Category, kind),
			Kind:        kind,
			Identifier:  id,
			Assumptions: assumptions,
		})
	}
	if len(out) == 0 {
		return nil, eris.New("planner: model returned no questions")
	}
	return out, nil
}

func (p *LLMPlanner) completeJSON(ctx context.Context, user string, schema *answer.Schema, dst any) error {
	temp := p.settings.Temperature
	resp, err := p.completer.Complete(ctx, answer.CompletionRequest{
		Model:           p.settings.Model,
		System:          systemPrompt,
		User:            user,
		Temperature:     &temp,
		MaxTokens:       p.settings.MaxTokens,
		ReasoningEffort: p.settings.ReasoningEffort,
		Schema:          schema,
	})
	if err != nil {
		return err
	}
	raw := cleanJSON(resp.Text)
	if raw == "" {
		return eris.New("planner: empty response")
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return eris.Wrap(err, "planner: parse response")
	}
	return nil
}

// normalizeKind maps any kind mentioning "masked" to the masked-client slot
// and everything else to the industry slot.
func normalizeKind(kind string) model.QuestionKind {
	if strings.Contains(strings.ToLower(kind), "masked") {
		return model.KindMaskedClient
	}
	return model.KindIndustryGeneral
}

func normalizeCategory(category string, kind model.QuestionKind) model.QuestionCategory {
	switch c := model.QuestionCategory(strings.ToLower(strings.TrimSpace(category))); c {
	case model.CategoryDiscovery, model.CategoryValidation:
		return c
	}
	if kind == model.KindMaskedClient {
		return model.CategoryValidation
	}
	return model.CategoryDiscovery
}

// cleanJSON extracts a JSON object from text that may carry markdown fences
// or surrounding prose.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}
