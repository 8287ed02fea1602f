package model

import (
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Mode selects how answers are produced.
type Mode string

const (
	ModeStub Mode = "stub"
	ModeLive Mode = "live"
)

// ParseMode validates a mode string. An empty string is rejected; callers
// that accept a default should check for it first.
func ParseMode(s string) (Mode, error) {
	m := Mode(NormalizeMode(s))
	switch m {
	case ModeStub, ModeLive:
		return m, nil
	default:
		return "", eris.Errorf("mode must be 'stub' or 'live'")
	}
}

// NormalizeMode trims and lowercases a mode string.
func NormalizeMode(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// VisibilitySummary counts distinct questions and those where the provider leaked.
type VisibilitySummary struct {
	TotalQuestions         int `json:"total_questions"`
	AIProviderRecognizedIn int `json:"ai_provider_recognized_in"`
}

// VisibilityScorecard holds coverage and confidence, both in [0,1].
type VisibilityScorecard struct {
	Coverage   float64 `json:"coverage"`
	Confidence float64 `json:"confidence"`
}

// VisibilityResult is the aggregate produced by a run. The evaluate package
// derives Summary and Scores from Answers and returns a new value; a result
// is never scored in place.
type VisibilityResult struct {
	StoryID     string               `json:"story_id"`
	Pillars     []NarrativePillar    `json:"pillars"`
	Questions   []ClarifyingQuestion `json:"questions"`
	Answers     []QuestionAnswer     `json:"answers"`
	Scores      VisibilityScorecard  `json:"scores"`
	Summary     VisibilitySummary    `json:"summary"`
	GeneratedAt time.Time            `json:"generated_at"`
	ModelsRun   []string             `json:"models_run"`
	Metadata    StoryMetadata        `json:"metadata"`
	Mode        Mode                 `json:"mode,omitempty"`
	Scored      bool                 `json:"scored"`
}

// Clone returns a copy whose slices do not alias r's.
func (r VisibilityResult) Clone() VisibilityResult {
	out := r
	out.Pillars = make([]NarrativePillar, len(r.Pillars))
	for i, p := range r.Pillars {
		p.Evidence = slices.Clone(p.Evidence)
		if p.Priority != nil {
			p.Priority = IntPtr(*p.Priority)
		}
		out.Pillars[i] = p
	}
	out.Questions = make([]ClarifyingQuestion, len(r.Questions))
	for i, q := range r.Questions {
		q.Assumptions = slices.Clone(q.Assumptions)
		out.Questions[i] = q
	}
	out.Answers = slices.Clone(r.Answers)
	out.ModelsRun = slices.Clone(r.ModelsRun)
	return out
}
