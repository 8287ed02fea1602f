// Package pipeline runs a transcript through masking, planning, answering
// and scoring.
package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/visibility-cli/internal/answer"
	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/internal/evaluate"
	"github.com/sells-group/visibility-cli/internal/ingest"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/planner"
)

// CoreInput is everything RunCore needs for one synchronous run.
type CoreInput struct {
	Transcript      string
	ProviderName    string
	ProviderAliases []string
	Models          []string
	Source          answer.Source

	// Optional.
	Metadata    model.StoryMetadata
	Mode        model.Mode
	Planner     planner.Planner
	TargetCount int
	Now         func() time.Time
}

// RunCore ingests, plans, answers with every distinct model in order and
// scores. A blank story id is derived from the transcript. Any ingestion or
// Answer Source failure aborts the run.
func RunCore(ctx context.Context, in CoreInput) (model.VisibilityResult, error) {
	meta := in.Metadata
	meta.ProviderName = in.ProviderName
	if meta.StoryID == "" {
		meta.StoryID = StoryID(in.Transcript)
	}
	models := config.Dedupe(in.Models)

	doc, err := ingest.LoadStoryDocumentFromText(in.Transcript, meta, in.ProviderAliases)
	if err != nil {
		return model.VisibilityResult{}, err
	}

	pl := in.Planner
	if pl == nil {
		pl = planner.NewHeuristicPlanner(nil, in.TargetCount)
	}
	plan, err := pl.Plan(ctx, doc.MaskedText)
	if err != nil {
		return model.VisibilityResult{}, err
	}

	answers, err := answerModels(ctx, in.Source, models, plan.Questions, doc.MaskedText, 1)
	if err != nil {
		return model.VisibilityResult{}, err
	}

	now := time.Now
	if in.Now != nil {
		now = in.Now
	}
	result := model.VisibilityResult{
		StoryID:     meta.StoryID,
		Pillars:     plan.Pillars,
		Questions:   plan.Questions,
		Answers:     answers,
		GeneratedAt: now().UTC(),
		ModelsRun:   models,
		Metadata:    doc.Metadata,
		Mode:        in.Mode,
	}
	return evaluate.Score(result, ingest.CoalesceAliases(in.ProviderAliases, in.ProviderName)), nil
}

// answerModels asks src for every model, at most limit at a time, and
// concatenates the answers in model order.
func answerModels(ctx context.Context, src answer.Source, models []string, questions []model.ClarifyingQuestion, transcript string, limit int) ([]model.QuestionAnswer, error) {
	slots := make([][]model.QuestionAnswer, len(models))

	g, gCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, m := range models {
		g.Go(func() error {
			answers, err := src.Answer(gCtx, m, questions, transcript)
			if err != nil {
				return answer.WrapSourceError(m, err)
			}
			slots[i] = answers
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int
	for _, s := range slots {
		total += len(s)
	}
	out := make([]model.QuestionAnswer, 0, total)
	for _, s := range slots {
		out = append(out, s...)
	}
	return out, nil
}
