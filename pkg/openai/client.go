// Package openai wraps the OpenAI chat completions API, including strict
// JSON-schema structured output.
package openai

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rotisserie/eris"
)

// Client defines the OpenAI operations used by the answer source and planner.
type Client interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is a single-turn chat completion.
type ChatRequest struct {
	Model           string
	System          string
	User            string
	Temperature     *float64
	MaxTokens       int64
	ReasoningEffort string
	Schema          *Schema
}

// Schema requests strict structured output.
type Schema struct {
	Name        string
	Description string
	Definition  any
}

// ChatResponse is our own response type.
type ChatResponse struct {
	ID           string
	Model        string
	Content      string
	FinishReason string
	InputTokens  int64
	OutputTokens int64
}

// Config holds connection settings.
type Config struct {
	APIKey       string
	Organization string
	BaseURL      string
}

type sdkClient struct {
	client sdk.Client
}

// NewClient creates an OpenAI client. SDK retries are disabled; callers own
// the retry policy.
func NewClient(cfg Config) Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.Organization != "" {
		opts = append(opts, option.WithOrganization(cfg.Organization))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &sdkClient{client: sdk.NewClient(opts...)}
}

// IsReasoningModel reports whether model rejects a custom temperature.
func IsReasoningModel(model string) bool {
	m := strings.ToLower(model)
	return strings.HasPrefix(m, "gpt-5") ||
		strings.HasPrefix(m, "o1") ||
		strings.HasPrefix(m, "o3") ||
		strings.HasPrefix(m, "o4")
}

func (c *sdkClient) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	params := buildParams(req)

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "openai: chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("openai: no choices returned")
	}

	return &ChatResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      strings.TrimSpace(resp.Choices[0].Message.Content),
		FinishReason: resp.Choices[0].FinishReason,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func buildParams(req ChatRequest) sdk.ChatCompletionNewParams {
	var messages []sdk.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, sdk.SystemMessage(req.System))
	}
	messages = append(messages, sdk.UserMessage(req.User))

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(req.Model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(req.MaxTokens)
	}

	if IsReasoningModel(req.Model) {
		if req.ReasoningEffort != "" {
			params.ReasoningEffort = shared.ReasoningEffort(req.ReasoningEffort)
		}
	} else if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	if req.Schema != nil {
		schemaParam := sdk.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   req.Schema.Name,
			Schema: req.Schema.Definition,
			Strict: sdk.Bool(true),
		}
		if req.Schema.Description != "" {
			schemaParam.Description = sdk.String(req.Schema.Description)
		}
		params.ResponseFormat = sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &sdk.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		}
	}
	return params
}

// StatusCode extracts the HTTP status from an API error, or 0.
func StatusCode(err error) int {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
