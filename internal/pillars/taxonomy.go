package pillars

import (
	"os"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// TitleGroup maps a set of keywords to a pillar title.
type TitleGroup struct {
	Title    string   `yaml:"title"`
	Keywords []string `yaml:"keywords"`
}

// Taxonomy is an ordered, immutable keyword-to-title table. The first group
// with a keyword contained in the text wins.
type Taxonomy struct {
	groups []TitleGroup
}

// NewTaxonomy builds a taxonomy from groups. Keywords are lower-cased and blank
// keywords dropped; groups without a title or keywords are rejected.
func NewTaxonomy(groups []TitleGroup) (Taxonomy, error) {
	out := make([]TitleGroup, 0, len(groups))
	for i, g := range groups {
		title := strings.TrimSpace(g.Title)
		if title == "" {
			return Taxonomy{}, eris.Errorf("pillars: taxonomy group %d has no title", i)
		}
		var kws []string
		for _, kw := range g.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		if len(kws) == 0 {
			return Taxonomy{}, eris.Errorf("pillars: taxonomy group %q has no keywords", title)
		}
		out = append(out, TitleGroup{Title: title, Keywords: kws})
	}
	return Taxonomy{groups: out}, nil
}

// DefaultTaxonomy returns the built-in six-group table.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{groups: []TitleGroup{
		{Title: "Adoption Momentum", Keywords: []string{"adoption", "expansion", "pilot"}},
		{Title: "Content Engagement", Keywords: []string{"engagement", "usage", "retention"}},
		{Title: "Monetization Blockers", Keywords: []string{"revenue", "monetization", "pricing"}},
		{Title: "Trust Through Feedback", Keywords: []string{"feedback", "trust", "quality"}},
		{Title: "Rigorous Evaluations", Keywords: []string{"evaluation", "benchmark", "metrics"}},
		{Title: "Operational Efficiency", Keywords: []string{"latency", "speed", "efficiency"}},
	}}
}

// Groups returns a copy of the taxonomy's groups.
func (t Taxonomy) Groups() []TitleGroup {
	out := make([]TitleGroup, len(t.groups))
	for i, g := range t.groups {
		out[i] = TitleGroup{Title: g.Title, Keywords: slices.Clone(g.Keywords)}
	}
	return out
}

// Match returns the title of the first group with a keyword in text.
func (t Taxonomy) Match(text string) (string, bool) {
	lowered := strings.ToLower(text)
	for _, g := range t.groups {
		for _, kw := range g.Keywords {
			if strings.Contains(lowered, kw) {
				return g.Title, true
			}
		}
	}
	return "", false
}

type taxonomyFile struct {
	Groups []TitleGroup `yaml:"groups"`
}

// LoadTaxonomy reads a YAML taxonomy of the form:
//
//	groups:
//	  - title: Adoption Momentum
//	    keywords: [adoption, pilot]
func LoadTaxonomy(path string) (Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Taxonomy{}, eris.Wrapf(err, "pillars: read taxonomy %s", path)
	}
	var f taxonomyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Taxonomy{}, eris.Wrapf(err, "pillars: parse taxonomy %s", path)
	}
	if len(f.Groups) == 0 {
		return Taxonomy{}, eris.Errorf("pillars: taxonomy %s has no groups", path)
	}
	return NewTaxonomy(f.Groups)
}
