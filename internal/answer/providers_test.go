package answer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/visibility-cli/internal/resilience"
	"github.com/sells-group/visibility-cli/pkg/anthropic"
	"github.com/sells-group/visibility-cli/pkg/openai"
	"github.com/sells-group/visibility-cli/pkg/perplexity"
)

func jsonServer(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body) //nolint:errcheck
	}))
}

func TestOpenAICompleter(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, map[string]any{
		"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o",
		"choices": []map[string]any{{
			"index": 0, "finish_reason": "stop",
			"message": map[string]any{"role": "assistant", "content": "OpenAI"},
		}},
		"usage": map[string]any{"prompt_tokens": 30, "completion_tokens": 3, "total_tokens": 33},
	})
	defer srv.Close()

	c := &OpenAICompleter{Client: openai.NewClient(openai.Config{APIKey: "k", BaseURL: srv.URL})}
	got, err := c.Complete(context.Background(), CompletionRequest{Model: "gpt-4o", User: "q"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, got.Provider)
	assert.Equal(t, "OpenAI", got.Text)
	assert.Equal(t, 30, got.Usage.InputTokens)
	assert.Equal(t, 3, got.Usage.OutputTokens)
}

func TestOpenAICompleter_TransientStatus(t *testing.T) {
	srv := jsonServer(t, http.StatusServiceUnavailable, map[string]any{
		"error": map[string]any{"message": "overloaded"},
	})
	defer srv.Close()

	c := &OpenAICompleter{Client: openai.NewClient(openai.Config{APIKey: "k", BaseURL: srv.URL})}
	_, err := c.Complete(context.Background(), CompletionRequest{Model: "gpt-4o", User: "q"})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestAnthropicCompleter(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, map[string]any{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-sonnet-4-5",
		"content":     []map[string]any{{"type": "text", "text": "Probably OpenAI."}},
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 40, "output_tokens": 6},
	})
	defer srv.Close()

	c := &AnthropicCompleter{Client: anthropic.NewClient("k", anthropic.WithBaseURL(srv.URL))}
	got, err := c.Complete(context.Background(), CompletionRequest{Model: "claude-sonnet-4-5", User: "q"})
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, got.Provider)
	assert.Equal(t, "Probably OpenAI.", got.Text)
	assert.Equal(t, 40, got.Usage.InputTokens)
}

func TestPerplexityCompleter(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, map[string]any{
		"id":      "cmpl-1",
		"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": "Anthropic and OpenAI."}}},
		"usage":   map[string]any{"prompt_tokens": 12, "completion_tokens": 4},
	})
	defer srv.Close()

	c := &PerplexityCompleter{Client: perplexity.NewClient("k", perplexity.WithBaseURL(srv.URL))}
	got, err := c.Complete(context.Background(), CompletionRequest{Model: "sonar", System: "s", User: "q", MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, ProviderPerplexity, got.Provider)
	assert.Equal(t, "Anthropic and OpenAI.", got.Text)
	assert.Equal(t, 4, got.Usage.OutputTokens)
}

func TestPerplexityCompleter_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		srv := jsonServer(t, tt.status, map[string]any{"error": "x"})
		c := &PerplexityCompleter{Client: perplexity.NewClient("k", perplexity.WithBaseURL(srv.URL))}
		_, err := c.Complete(context.Background(), CompletionRequest{Model: "sonar", User: "q"})
		srv.Close()
		require.Error(t, err)
		assert.Equal(t, tt.transient, resilience.IsTransient(err), "status %d", tt.status)
	}
}
