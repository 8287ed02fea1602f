package pillars

import (
	"slices"
	"strings"

	"github.com/sells-group/visibility-cli/internal/model"
)

const unsetPriorityRank = 99

// Merge deduplicates pillars by case-insensitive title, keeping the one with
// the lower priority. A set priority replaces an unset one, never the reverse.
// The result is sorted by priority with unset priorities ranked as 99.
func Merge(pillars []model.NarrativePillar) []model.NarrativePillar {
	var order []string
	unique := make(map[string]model.NarrativePillar, len(pillars))
	for _, p := range pillars {
		key := strings.ToLower(p.Title)
		existing, ok := unique[key]
		if !ok {
			order = append(order, key)
			unique[key] = p
			continue
		}
		if p.Priority != nil && (existing.Priority == nil || *p.Priority < *existing.Priority) {
			unique[key] = p
		}
	}

	out := make([]model.NarrativePillar, 0, len(order))
	for _, key := range order {
		out = append(out, unique[key])
	}
	slices.SortStableFunc(out, func(a, b model.NarrativePillar) int {
		return a.PriorityOr(unsetPriorityRank) - b.PriorityOr(unsetPriorityRank)
	})
	return out
}
