package pillars

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTaxonomy_Match(t *testing.T) {
	tax := DefaultTaxonomy()

	title, ok := tax.Match("We cut LATENCY in half")
	require.True(t, ok)
	assert.Equal(t, "Operational Efficiency", title)

	// Earlier groups win.
	title, ok = tax.Match("pricing feedback from the pilot")
	require.True(t, ok)
	assert.Equal(t, "Adoption Momentum", title)

	_, ok = tax.Match("nothing relevant")
	assert.False(t, ok)
}

func TestTaxonomy_GroupsIsCopy(t *testing.T) {
	tax := DefaultTaxonomy()
	groups := tax.Groups()
	groups[0].Keywords[0] = "mutated"

	title, ok := tax.Match("adoption")
	require.True(t, ok)
	assert.Equal(t, "Adoption Momentum", title)
}

func TestNewTaxonomy_Validation(t *testing.T) {
	_, err := NewTaxonomy([]TitleGroup{{Title: " ", Keywords: []string{"x"}}})
	assert.Error(t, err)

	_, err = NewTaxonomy([]TitleGroup{{Title: "T", Keywords: []string{" "}}})
	assert.Error(t, err)
}

func TestLoadTaxonomy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	content := `
groups:
  - title: Support Automation
    keywords: [ticket, helpdesk]
  - title: Search Quality
    keywords: [Search]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tax, err := LoadTaxonomy(path)
	require.NoError(t, err)
	require.Len(t, tax.Groups(), 2)

	title, ok := tax.Match("improved SEARCH relevance")
	require.True(t, ok)
	assert.Equal(t, "Search Quality", title)
}

func TestLoadTaxonomy_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadTaxonomy(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read taxonomy")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("groups: [unclosed"), 0o644))
	_, err = LoadTaxonomy(bad)
	assert.ErrorContains(t, err, "parse taxonomy")

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("groups: []"), 0o644))
	_, err = LoadTaxonomy(empty)
	assert.ErrorContains(t, err, "no groups")
}
