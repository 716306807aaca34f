package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docparser/internal/llm"
)

func chatResponse(content string) []byte {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": content}}},
	})
	return b
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1", Model: "test-model"}, nil)
}

func TestExtractToCanonical(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write(chatResponse(` {"totals": {"total_amount": 10}} `))
	})

	out, err := c.ExtractToCanonical(context.Background(), llm.Evidence{Filename: "r.png", Text: "TOTAL 10.00"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"totals": {"total_amount": 10}}`, string(out))

	assert.Equal(t, "test-model", got["model"])
	assert.InDelta(t, 0.1, got["temperature"], 1e-6)
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 3)
	assert.Equal(t, llm.SystemExtract, msgs[0].(map[string]any)["content"])
	assert.Contains(t, msgs[1].(map[string]any)["content"], "=== Document Text ===\nTOTAL 10.00")
}

func TestRevalidateSendsErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, llm.SystemRevalidate, body.Messages[0].Content)
		assert.Contains(t, body.Messages[1].Content, "- Grand total mismatch")
		_, _ = w.Write(chatResponse(`{"notes": "fixed"}`))
	})

	out, err := c.Revalidate(context.Background(), []byte(`{}`), []string{"Grand total mismatch"}, llm.Evidence{Text: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"notes": "fixed"}`, string(out))
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   []byte
	}{
		{"server error", http.StatusInternalServerError, []byte(`{"error": "boom"}`)},
		{"garbage envelope", http.StatusOK, []byte(`<html>`)},
		{"no choices", http.StatusOK, []byte(`{"choices": []}`)},
		{"content not json", http.StatusOK, chatResponse("Sure! Here is the JSON: {")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write(tt.body)
			})
			_, err := c.ExtractToCanonical(context.Background(), llm.Evidence{Text: "x"})
			assert.Error(t, err)
		})
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.ExtractToCanonical(context.Background(), llm.Evidence{Text: "x"})
	var httpErr *llm.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.Status)
}

func TestRateLimiterHonoursContext(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write(chatResponse(`{}`))
	}))
	t.Cleanup(srv.Close)
	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, RequestsPerSecond: 0.001}, nil)

	_, err := c.ExtractToCanonical(context.Background(), llm.Evidence{Text: "x"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.ExtractToCanonical(ctx, llm.Evidence{Text: "x"})
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
