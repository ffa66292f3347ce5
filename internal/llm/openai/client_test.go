package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/bookscan/internal/llm"
)

func chatResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func TestComplete_SendsStrictSchemaAndImage(t *testing.T) {
	t.Parallel()

	var payload map[string]any
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		auth = r.Header.Get("Authorization")
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &payload))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatResponse(`{"page_number": 7, "text": "hello", "life_stage_flag": "both"}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: server.URL}, nil)
	raw, err := client.Complete(context.Background(), llm.Request{
		Name:         llm.PageSchemaName,
		Instructions: llm.BuildPageInstructions(),
		Schema:       llm.BuildPageJSONSchema(),
		Images:       []llm.Image{{MIME: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}},
	})
	require.NoError(t, err)

	fields, err := llm.ValidatePage(raw, nil)
	require.NoError(t, err)
	require.NotNil(t, fields.PageNumber)
	assert.Equal(t, 7, *fields.PageNumber)

	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, "gpt-4o-mini", payload["model"])
	assert.NotContains(t, payload, "temperature")

	rf, _ := payload["response_format"].(map[string]any)
	require.NotNil(t, rf)
	assert.Equal(t, "json_schema", rf["type"])
	js, _ := rf["json_schema"].(map[string]any)
	require.NotNil(t, js)
	assert.Equal(t, llm.PageSchemaName, js["name"])
	assert.Equal(t, true, js["strict"])

	msgs, _ := payload["messages"].([]any)
	require.Len(t, msgs, 1)
	content, _ := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	img, _ := content[1].(map[string]any)["image_url"].(map[string]any)
	require.NotNil(t, img)
	assert.Equal(t, "data:image/jpeg;base64,/9j/", img["url"])
}

func TestComplete_RateLimited(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error": {"message": "slow down", "type": "rate_limit"}}`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, MaxRetries: 0}, nil)
	_, err := client.Complete(context.Background(), llm.Request{Name: "x", Schema: llm.BuildPageNumberJSONSchema()})
	require.Error(t, err)

	var rl *RateLimitError
	require.True(t, errors.As(err, &rl), "got %v", err)
	assert.Equal(t, "3s", rl.RetryAfter.String())
}

func TestComplete_EmptyChoicesIsAnError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id": "x", "object": "chat.completion", "created": 1, "model": "m", "choices": []}`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL}, nil)
	_, err := client.Complete(context.Background(), llm.Request{Name: "x", Schema: llm.BuildPageNumberJSONSchema()})
	assert.Error(t, err)
}

func TestComplete_ServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error": {"message": "bad schema"}}`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL}, nil)
	_, err := client.Complete(context.Background(), llm.Request{Name: "x", Schema: llm.BuildPageNumberJSONSchema()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestNewClient_DefaultModel(t *testing.T) {
	assert.Equal(t, "gpt-4o-mini", NewClient(Config{APIKey: "k"}, nil).Model())
	assert.Equal(t, "gpt-4o", NewClient(Config{APIKey: "k", Model: "gpt-4o"}, nil).Model())
}
