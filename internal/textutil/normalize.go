// Package textutil holds the pure text helpers shared by ingestion and pillar
// extraction: markup stripping, whitespace normalization, segmentation and
// case-insensitive term masking.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	markupRe     = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// StripMarkup replaces every tag-like <...> span with a single space.
func StripMarkup(text string) string {
	return markupRe.ReplaceAllString(text, " ")
}

// NormalizeWhitespace collapses runs of whitespace to one space and trims the ends.
func NormalizeWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// SplitParagraphs splits on line breaks, trimming each line and dropping blanks.
// Single newlines separate paragraphs.
func SplitParagraphs(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// SplitSentences splits after '.', '!' or '?' when followed by whitespace.
// Sentences are trimmed and blanks dropped.
func SplitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// FirstSentence returns the first sentence of text, or "" when there is none.
func FirstSentence(text string) string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return ""
	}
	return sentences[0]
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
