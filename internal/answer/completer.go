package answer

import (
	"context"
	"strings"

	"github.com/sells-group/visibility-cli/internal/model"
)

// Provider names used for routing, pricing and metrics.
const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderPerplexity = "perplexity"
)

// Completer is a provider-neutral single-turn chat call.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// CompletionRequest is one chat call.
type CompletionRequest struct {
	Model           string
	System          string
	User            string
	Temperature     *float64
	MaxTokens       int
	ReasoningEffort string
	Schema          *Schema
}

// Schema asks for strict JSON output matching Definition. Providers without
// structured output ignore it and rely on the prompt.
type Schema struct {
	Name        string
	Description string
	Definition  any
}

// Completion is the result of a chat call.
type Completion struct {
	Provider string
	Model    string
	Text     string
	Usage    model.TokenUsage
}

// ProviderFor maps a model name to the provider that serves it.
func ProviderFor(modelName string) string {
	m := strings.ToLower(strings.TrimSpace(modelName))
	switch {
	case strings.HasPrefix(m, "claude"),
		strings.Contains(m, "sonnet"),
		strings.Contains(m, "opus"),
		strings.Contains(m, "haiku"):
		return ProviderAnthropic
	case strings.HasPrefix(m, "sonar"), strings.Contains(m, "perplexity"):
		return ProviderPerplexity
	default:
		return ProviderOpenAI
	}
}
