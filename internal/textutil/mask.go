package textutil

import (
	"fmt"
	"regexp"
	"strings"
)

// MaskTerms replaces every case-insensitive literal occurrence of each
// non-blank term with token. Terms are applied in order, each over the
// result of the previous one.
func MaskTerms(text string, terms []string, token string) string {
	masked := text
	for _, term := range terms {
		if strings.TrimSpace(term) == "" {
			continue
		}
		re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(term))
		masked = re.ReplaceAllLiteralString(masked, token)
	}
	return masked
}

// KeywordHits counts case-insensitive occurrences of each trimmed, non-blank
// term. Terms with no hits are omitted.
func KeywordHits(text string, terms []string) map[string]int {
	lowered := strings.ToLower(text)
	hits := make(map[string]int)
	for _, term := range terms {
		t := strings.TrimSpace(term)
		if t == "" {
			continue
		}
		if n := strings.Count(lowered, strings.ToLower(t)); n > 0 {
			hits[t] = n
		}
	}
	return hits
}

// ContainsAny reports whether text contains any non-blank term, ignoring case.
func ContainsAny(text string, terms []string) bool {
	return len(KeywordHits(text, terms)) > 0
}

// AuditMaskIntegrity reports each term still present in text, in term order.
func AuditMaskIntegrity(text string, terms []string) []string {
	hits := KeywordHits(text, terms)
	var issues []string
	seen := make(map[string]bool, len(hits))
	for _, term := range terms {
		t := strings.TrimSpace(term)
		count, ok := hits[t]
		if !ok || seen[t] {
			continue
		}
		seen[t] = true
		issues = append(issues, fmt.Sprintf("Unmasked term '%s' found %d time(s).", t, count))
	}
	return issues
}
