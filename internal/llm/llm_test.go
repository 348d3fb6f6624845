package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Heading\nBody"}}]}`)
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", srv.URL+"/v1", "gpt-4o-mini", 5*time.Second)
	out, err := c.Complete(context.Background(), "summarize", 2000, 0.7)
	require.NoError(t, err)
	assert.Equal(t, "Heading\nBody", out)
	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.EqualValues(t, 2000, got["max_tokens"])
	assert.EqualValues(t, 0.7, got["temperature"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
}

func TestOpenAIServerErrorIsSingleAttempt(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"upstream exploded","type":"server_error"}}`)
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", srv.URL+"/v1", "gpt-4o-mini", 5*time.Second)
	_, err := c.Complete(context.Background(), "p", 10, 0)
	require.Error(t, err)

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusInternalServerError, be.StatusCode)
	assert.Equal(t, "openai", be.Provider)
	assert.Equal(t, 1, hits)
}

func TestOpenAINoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	}))
	defer srv.Close()

	c := NewOpenAI("sk-test", srv.URL+"/v1", "m", 5*time.Second)
	_, err := c.Complete(context.Background(), "p", 10, 0)
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("x-api-key"))
		var req messagesRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 500, req.MaxTokens)
		assert.Equal(t, "claude-test", req.Model)
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"one "},{"type":"text","text":"two"}]}`)
	}))
	defer srv.Close()

	c := NewAnthropic("ak-test", "claude-test", srv.URL, 5*time.Second)
	defer c.Close()
	out, err := c.Complete(context.Background(), "p", 500, 0.2)
	require.NoError(t, err)
	assert.Equal(t, "one two", out)
}

func TestAnthropicErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"status", http.StatusTooManyRequests, `{"error":"slow down"}`, func(t *testing.T, err error) {
			var be *BackendError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, http.StatusTooManyRequests, be.StatusCode)
		}},
		{"empty", http.StatusOK, `{"content":[]}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrNoContent)
		}},
		{"bad json", http.StatusOK, `not json`, func(t *testing.T, err error) {
			assert.ErrorContains(t, err, "decode response")
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()
			_, err := NewAnthropic("k", "m", srv.URL, time.Second).Complete(context.Background(), "p", 1, 0)
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestLimitedHonorsContext(t *testing.T) {
	inner := CompleterFunc(func(context.Context, string, int, float64) (string, error) { return "ok", nil })
	_, passthrough := Limited(inner, 0).(CompleterFunc)
	assert.True(t, passthrough)

	c := Limited(inner, 0.001)
	out, err := c.Complete(context.Background(), "p", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	// The single burst token is spent; the next wait exceeds the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.Complete(ctx, "p", 1, 0)
	require.Error(t, err)
}

func TestBackendErrorTruncates(t *testing.T) {
	err := &BackendError{Provider: "openai", StatusCode: 500, Message: strings.Repeat("x", 300)}
	assert.True(t, strings.HasSuffix(err.Error(), "..."))
	assert.True(t, errors.As(error(err), new(*BackendError)))
}
