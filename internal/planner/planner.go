// Package planner turns a masked transcript into narrative pillars and the
// questions asked about them.
package planner

import (
	"context"

	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/pillars"
	"github.com/sells-group/visibility-cli/internal/questions"
)

// Plan is the pillar and question set for one story.
type Plan struct {
	Pillars   []model.NarrativePillar
	Questions []model.ClarifyingQuestion
}

// Planner builds a Plan from masked text.
type Planner interface {
	Plan(ctx context.Context, maskedText string) (Plan, error)
}

// HeuristicPlanner extracts pillars with keyword heuristics and generates
// two templated questions per pillar. It never fails.
type HeuristicPlanner struct {
	Extractor   *pillars.Extractor
	TargetCount int
}

// NewHeuristicPlanner creates a HeuristicPlanner. A nil extractor uses the
// default taxonomy and strategies.
func NewHeuristicPlanner(extractor *pillars.Extractor, targetCount int) *HeuristicPlanner {
	if extractor == nil {
		extractor = pillars.NewExtractor()
	}
	if targetCount <= 0 {
		targetCount = pillars.DefaultTargetCount
	}
	return &HeuristicPlanner{Extractor: extractor, TargetCount: targetCount}
}

// Plan implements Planner.
func (p *HeuristicPlanner) Plan(_ context.Context, maskedText string) (Plan, error) {
	ps := p.Extractor.Extract(maskedText, p.TargetCount)
	return Plan{Pillars: ps, Questions: questions.Generate(ps)}, nil
}
