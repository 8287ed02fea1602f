package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionBody(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{
			"prompt_tokens":     20,
			"completion_tokens": 8,
			"total_tokens":      28,
		},
	}
}

func newServer(t *testing.T, check func(payload map[string]any), status int, body any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/chat/completions")
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(raw, &payload))
		if check != nil {
			check(payload)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body) //nolint:errcheck
	}))
}

func TestChatCompletion(t *testing.T) {
	srv := newServer(t, func(p map[string]any) {
		assert.Equal(t, "gpt-4o", p["model"])
		assert.Equal(t, 0.7, p["temperature"])
		msgs, ok := p["messages"].([]any)
		require.True(t, ok)
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
		assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
	}, http.StatusOK, completionBody("  Most teams choose OpenAI.  "))
	defer srv.Close()

	temp := 0.7
	client := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	resp, err := client.ChatCompletion(context.Background(), ChatRequest{
		Model:       "gpt-4o",
		System:      "Be concise.",
		User:        "Which provider?",
		Temperature: &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, "chatcmpl-1", resp.ID)
	assert.Equal(t, "Most teams choose OpenAI.", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, int64(20), resp.InputTokens)
	assert.Equal(t, int64(8), resp.OutputTokens)
}

func TestChatCompletion_ReasoningModelSkipsTemperature(t *testing.T) {
	srv := newServer(t, func(p map[string]any) {
		assert.NotContains(t, p, "temperature")
		assert.Equal(t, "low", p["reasoning_effort"])
		assert.Equal(t, float64(1024), p["max_completion_tokens"])
	}, http.StatusOK, completionBody("ok"))
	defer srv.Close()

	temp := 1.0
	client := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	_, err := client.ChatCompletion(context.Background(), ChatRequest{
		Model:           "gpt-5",
		User:            "Hi",
		Temperature:     &temp,
		MaxTokens:       1024,
		ReasoningEffort: "low",
	})
	require.NoError(t, err)
}

func TestChatCompletion_StructuredOutput(t *testing.T) {
	srv := newServer(t, func(p map[string]any) {
		rf, ok := p["response_format"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "json_schema", rf["type"])
		js := rf["json_schema"].(map[string]any)
		assert.Equal(t, "pillars", js["name"])
		assert.Equal(t, true, js["strict"])
		assert.Equal(t, "object", js["schema"].(map[string]any)["type"])
	}, http.StatusOK, completionBody(`{"pillars":[]}`))
	defer srv.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	resp, err := client.ChatCompletion(context.Background(), ChatRequest{
		Model: "gpt-4o",
		User:  "Extract",
		Schema: &Schema{
			Name:        "pillars",
			Description: "Narrative pillars",
			Definition:  map[string]any{"type": "object"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"pillars":[]}`, resp.Content)
}

func TestChatCompletion_ErrorStatus(t *testing.T) {
	srv := newServer(t, nil, http.StatusTooManyRequests, map[string]any{
		"error": map[string]any{"message": "Rate limit reached", "type": "requests"},
	})
	defer srv.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	_, err := client.ChatCompletion(context.Background(), ChatRequest{Model: "gpt-4o", User: "Hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai: chat completion")
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(err))
}

func TestChatCompletion_NoChoices(t *testing.T) {
	body := completionBody("")
	body["choices"] = []map[string]any{}
	srv := newServer(t, nil, http.StatusOK, body)
	defer srv.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	_, err := client.ChatCompletion(context.Background(), ChatRequest{Model: "gpt-4o", User: "Hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestIsReasoningModel(t *testing.T) {
	for _, m := range []string{"gpt-5", "gpt-5-mini", "o1-preview", "o3", "o4-mini", "GPT-5"} {
		assert.True(t, IsReasoningModel(m), m)
	}
	for _, m := range []string{"gpt-4o", "gpt-4.1-mini", "claude-sonnet-4-5"} {
		assert.False(t, IsReasoningModel(m), m)
	}
}
