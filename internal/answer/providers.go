package answer

import (
	"context"
	"errors"

	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/resilience"
	"github.com/sells-group/visibility-cli/pkg/anthropic"
	"github.com/sells-group/visibility-cli/pkg/openai"
	"github.com/sells-group/visibility-cli/pkg/perplexity"
)

const defaultMaxTokens = 1024

// OpenAICompleter adapts pkg/openai to Completer.
type OpenAICompleter struct {
	Client openai.Client
}

// Complete runs a chat completion, with structured output when requested.
func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	oreq := openai.ChatRequest{
		Model:           req.Model,
		System:          req.System,
		User:            req.User,
		Temperature:     req.Temperature,
		MaxTokens:       int64(req.MaxTokens),
		ReasoningEffort: req.ReasoningEffort,
	}
	if req.Schema != nil {
		oreq.Schema = &openai.Schema{
			Name:        req.Schema.Name,
			Description: req.Schema.Description,
			Definition:  req.Schema.Definition,
		}
	}

	resp, err := c.Client.ChatCompletion(ctx, oreq)
	if err != nil {
		return nil, resilience.FromStatus(err, openai.StatusCode(err))
	}
	return &Completion{
		Provider: ProviderOpenAI,
		Model:    req.Model,
		Text:     resp.Content,
		Usage: model.TokenUsage{
			InputTokens:  int(resp.InputTokens),
			OutputTokens: int(resp.OutputTokens),
		},
	}, nil
}

// AnthropicCompleter adapts pkg/anthropic to Completer.
type AnthropicCompleter struct {
	Client anthropic.Client
}

// Complete sends a single user message.
func (c *AnthropicCompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	resp, err := c.Client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       req.Model,
		MaxTokens:   int64(maxTokens),
		System:      req.System,
		Messages:    []anthropic.Message{{Role: "user", Content: req.User}},
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, resilience.FromStatus(err, anthropic.StatusCode(err))
	}
	return &Completion{
		Provider: ProviderAnthropic,
		Model:    req.Model,
		Text:     resp.Text(),
		Usage: model.TokenUsage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}

// PerplexityCompleter adapts pkg/perplexity to Completer.
type PerplexityCompleter struct {
	Client        perplexity.Client
	SearchRecency string
}

// Complete sends a system and user message.
func (c *PerplexityCompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	var msgs []perplexity.Message
	if req.System != "" {
		msgs = append(msgs, perplexity.Message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, perplexity.Message{Role: "user", Content: req.User})

	preq := perplexity.ChatCompletionRequest{
		Model:               req.Model,
		Messages:            msgs,
		Temperature:         req.Temperature,
		SearchRecencyFilter: c.SearchRecency,
	}
	if req.MaxTokens > 0 {
		n := req.MaxTokens
		preq.MaxTokens = &n
	}

	resp, err := c.Client.ChatCompletion(ctx, preq)
	if err != nil {
		var se *perplexity.StatusError
		if errors.As(err, &se) {
			return nil, resilience.FromStatus(err, se.StatusCode)
		}
		return nil, err
	}
	return &Completion{
		Provider: ProviderPerplexity,
		Model:    req.Model,
		Text:     resp.Text(),
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
