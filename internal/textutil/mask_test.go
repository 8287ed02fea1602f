package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskTerms(t *testing.T) {
	got := MaskTerms("OpenAI delivered enterprise tooling for BlueJ.", []string{"OpenAI"}, "[MASK]")
	assert.Equal(t, "[MASK] delivered enterprise tooling for BlueJ.", got)
}

func TestMaskTerms_CaseInsensitiveLiteral(t *testing.T) {
	got := MaskTerms("openai and OPENAI and gpt-4o (GPT-4o)", []string{"OpenAI", "GPT-4o"}, "[MASK]")
	assert.Equal(t, "[MASK] and [MASK] and [MASK] ([MASK])", got)

	// Regex metacharacters are matched literally.
	got = MaskTerms("a.b and axb", []string{"a.b"}, "#")
	assert.Equal(t, "# and axb", got)
}

func TestMaskTerms_SkipsBlankTerms(t *testing.T) {
	assert.Equal(t, "keep", MaskTerms("keep", []string{"", "   "}, "[MASK]"))
}

func TestMaskTerms_OrderMatters(t *testing.T) {
	got := MaskTerms("OpenAI, Inc. built it", []string{"OpenAI, Inc.", "OpenAI"}, "[MASK]")
	assert.Equal(t, "[MASK] built it", got)
}

func TestKeywordHits(t *testing.T) {
	hits := KeywordHits("OpenAI and openai, but not Anthropic", []string{" OpenAI ", "Google", ""})
	assert.Equal(t, map[string]int{"OpenAI": 2}, hits)
}

func TestContainsAny(t *testing.T) {
	assert.True(t, ContainsAny("powered by ChatGPT", []string{"chatgpt"}))
	assert.False(t, ContainsAny("nothing here", []string{"chatgpt"}))
	assert.False(t, ContainsAny("anything", nil))
}

func TestAuditMaskIntegrity(t *testing.T) {
	issues := AuditMaskIntegrity("OpenAI and ChatGPT and chatgpt", []string{"ChatGPT", "OpenAI", "Sora", "ChatGPT"})
	assert.Equal(t, []string{
		"Unmasked term 'ChatGPT' found 2 time(s).",
		"Unmasked term 'OpenAI' found 1 time(s).",
	}, issues)
}

func TestMaskingCompleteness(t *testing.T) {
	texts := []string{
		"OpenAI partnered with Open AI via ChatGPT and GPT-4o.",
		"openai OPENAI oPeNaI",
		"DALL·E and Sora were used by OpenAI, Inc. staff.",
		"No provider mentioned at all.",
	}
	aliases := []string{"OpenAI", "Open AI", "OpenAI, Inc.", "ChatGPT", "GPT-4o", "GPT-5", "Sora", "DALL·E"}
	for _, text := range texts {
		masked := MaskTerms(text, aliases, "[MASK]")
		assert.Empty(t, AuditMaskIntegrity(masked, aliases), text)
	}
}
