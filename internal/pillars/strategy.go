package pillars

import (
	"strings"

	"github.com/sells-group/visibility-cli/internal/textutil"
)

// CandidateStrategy produces a pool of candidate passages from a transcript.
// An empty pool means the strategy does not apply.
type CandidateStrategy struct {
	Name     string
	Generate func(transcript string, targetCount int) []string
}

// DefaultStrategies returns the candidate policy: paragraphs when there are
// enough of them, otherwise sentences, otherwise whatever paragraphs exist,
// otherwise the whole transcript.
func DefaultStrategies() []CandidateStrategy {
	return []CandidateStrategy{
		{Name: "paragraphs", Generate: func(t string, n int) []string {
			if p := textutil.SplitParagraphs(t); len(p) >= n {
				return p
			}
			return nil
		}},
		{Name: "sentences", Generate: func(t string, _ int) []string {
			return textutil.SplitSentences(t)
		}},
		{Name: "short_paragraphs", Generate: func(t string, _ int) []string {
			return textutil.SplitParagraphs(t)
		}},
		{Name: "raw", Generate: func(t string, _ int) []string {
			if s := strings.TrimSpace(t); s != "" {
				return []string{s}
			}
			return nil
		}},
	}
}

func firstPool(strategies []CandidateStrategy, transcript string, targetCount int) (string, []string) {
	for _, s := range strategies {
		if pool := s.Generate(transcript, targetCount); len(pool) > 0 {
			return s.Name, pool
		}
	}
	return "", nil
}
