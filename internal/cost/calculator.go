package cost

import (
	"sort"
	"strings"
)

// Provider names used for pricing lookups.
const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderPerplexity = "perplexity"
)

// Rates holds per-provider pricing configuration.
type Rates struct {
	OpenAI     map[string]ModelRate `yaml:"openai" mapstructure:"openai"`
	Anthropic  map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity map[string]ModelRate `yaml:"perplexity" mapstructure:"perplexity"`
}

// ModelRate holds per-model token pricing (per million tokens) and an
// optional flat per-request fee.
type ModelRate struct {
	Input      float64 `yaml:"input" mapstructure:"input"`
	Output     float64 `yaml:"output" mapstructure:"output"`
	PerRequest float64 `yaml:"per_request" mapstructure:"per_request"`
}

// Calculator computes costs for model calls.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Rate finds the rate for a model. An exact key wins, then the longest key
// that prefixes the model name, so dated snapshots such as
// "gpt-4o-2024-08-06" price as "gpt-4o".
func (c *Calculator) Rate(provider, model string) (ModelRate, bool) {
	table := c.table(provider)
	if len(table) == 0 {
		return ModelRate{}, false
	}
	if r, ok := table[model]; ok {
		return r, true
	}

	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	for _, k := range keys {
		if strings.HasPrefix(model, k) {
			return table[k], true
		}
	}
	return ModelRate{}, false
}

// Call returns the cost of one call. Unknown models cost zero.
func (c *Calculator) Call(provider, model string, input, output int) float64 {
	rate, ok := c.Rate(provider, model)
	if !ok {
		return 0
	}
	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	return inCost + outCost + rate.PerRequest
}

func (c *Calculator) table(provider string) map[string]ModelRate {
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		return c.rates.OpenAI
	case ProviderAnthropic:
		return c.rates.Anthropic
	case ProviderPerplexity:
		return c.rates.Perplexity
	default:
		return nil
	}
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		OpenAI: map[string]ModelRate{
			"gpt-5":       {Input: 1.25, Output: 10.00},
			"gpt-5-mini":  {Input: 0.25, Output: 2.00},
			"gpt-4o":      {Input: 2.50, Output: 10.00},
			"gpt-4o-mini": {Input: 0.15, Output: 0.60},
			"o3":          {Input: 2.00, Output: 8.00},
			"o4-mini":     {Input: 1.10, Output: 4.40},
		},
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5":  {Input: 1.00, Output: 5.00},
			"claude-sonnet-4-5": {Input: 3.00, Output: 15.00},
			"claude-opus-4":     {Input: 15.00, Output: 75.00},
		},
		Perplexity: map[string]ModelRate{
			"sonar":     {Input: 1.00, Output: 1.00, PerRequest: 0.005},
			"sonar-pro": {Input: 3.00, Output: 15.00, PerRequest: 0.005},
		},
	}
}
