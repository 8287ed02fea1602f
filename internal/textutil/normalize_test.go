package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple tag", "<p>Hello</p>", " Hello "},
		{"attributes", `<a href="x">link</a> text`, " link  text"},
		{"unclosed tag", "a < b and c", "a < b and c"},
		{"first close wins", "x <b>> y", "x  > y"},
		{"no markup", "plain", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMarkup(tt.in))
		})
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeWhitespace("  a \n\t b\r\n  c  "))
	assert.Equal(t, "", NormalizeWhitespace(" \n "))
}

func TestSplitParagraphs(t *testing.T) {
	got := SplitParagraphs("First line.\n\n  Second line.  \r\n\t\nThird")
	assert.Equal(t, []string{"First line.", "Second line.", "Third"}, got)
	assert.Nil(t, SplitParagraphs("   \n  "))
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"basic", "One. Two! Three? Four", []string{"One.", "Two!", "Three?", "Four"}},
		{"no trailing space", "Version 1.5 shipped.", []string{"Version 1.5 shipped."}},
		{"newline separator", "Alpha.\nBeta.", []string{"Alpha.", "Beta."}},
		{"multiple spaces", "A.   B.", []string{"A.", "B."}},
		{"blank", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.in))
		})
	}
}

func TestFirstSentence(t *testing.T) {
	assert.Equal(t, "Hello there.", FirstSentence("Hello there. More text."))
	assert.Equal(t, "", FirstSentence(""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "ab", Truncate("ab", 3))
	assert.Equal(t, "DA", Truncate("DALL·E", 2))
}
