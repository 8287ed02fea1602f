// Package pillars derives ranked narrative pillars from masked transcripts
// using keyword classification and length-based ranking.
package pillars

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/textutil"
)

const (
	// DefaultTargetCount is the number of pillars extracted when unspecified.
	DefaultTargetCount = 3

	maxSummaryLen   = 200
	fallbackTitleWd = 3
)

// Extractor extracts pillars with an injected taxonomy and candidate policy.
type Extractor struct {
	taxonomy   Taxonomy
	strategies []CandidateStrategy
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTaxonomy replaces the default keyword table.
func WithTaxonomy(t Taxonomy) Option {
	return func(e *Extractor) {
		e.taxonomy = t
	}
}

// WithStrategies replaces the candidate generation policy.
func WithStrategies(s ...CandidateStrategy) Option {
	return func(e *Extractor) {
		e.strategies = s
	}
}

// NewExtractor creates an Extractor using DefaultTaxonomy and DefaultStrategies
// unless overridden.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		taxonomy:   DefaultTaxonomy(),
		strategies: DefaultStrategies(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract returns at most targetCount pillars ordered by priority. A blank
// transcript yields no pillars. Titles are unique ignoring case.
func (e *Extractor) Extract(transcript string, targetCount int) []model.NarrativePillar {
	if strings.TrimSpace(transcript) == "" {
		return nil
	}
	if targetCount < 1 {
		targetCount = 1
	}

	_, pool := firstPool(e.strategies, transcript, targetCount)

	ranked := slices.Clone(pool)
	slices.SortStableFunc(ranked, func(a, b string) int {
		return utf8.RuneCountInString(b) - utf8.RuneCountInString(a)
	})

	selected := ranked[:min(targetCount, len(ranked))]
	if len(selected) == 0 {
		selected = pool[:min(targetCount, len(pool))]
	}

	out := make([]model.NarrativePillar, 0, len(selected))
	used := make(map[string]bool, len(selected))
	for i, passage := range selected {
		index := i + 1
		title := e.uniqueTitle(e.inferTitle(passage, index), index, used)
		out = append(out, model.NarrativePillar{
			Title:    title,
			Summary:  summarize(passage),
			Evidence: []string{strings.TrimSpace(passage)},
			Priority: model.IntPtr(index),
		})
	}
	return out
}

func (e *Extractor) inferTitle(passage string, index int) string {
	if title, ok := e.taxonomy.Match(passage); ok {
		return title
	}
	words := strings.Fields(passage)
	if len(words) == 0 {
		return fmt.Sprintf("Signal %d", index)
	}
	// cases.Caser is stateful, so one is built per call.
	return cases.Title(language.Und).String(strings.Join(words[:min(fallbackTitleWd, len(words))], " "))
}

// uniqueTitle suffixes the pillar index onto a title already used in this call.
func (e *Extractor) uniqueTitle(title string, index int, used map[string]bool) string {
	candidate := title
	for n := 0; used[strings.ToLower(candidate)]; n++ {
		if n == 0 {
			candidate = fmt.Sprintf("%s %d", title, index)
		} else {
			candidate = fmt.Sprintf("%s %d.%d", title, index, n)
		}
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func summarize(passage string) string {
	if first := textutil.FirstSentence(passage); first != "" {
		return textutil.Truncate(first, maxSummaryLen)
	}
	return textutil.Truncate(passage, maxSummaryLen)
}

// Extract runs a default Extractor.
func Extract(transcript string, targetCount int) []model.NarrativePillar {
	return NewExtractor().Extract(transcript, targetCount)
}
