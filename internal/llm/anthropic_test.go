package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Veraticus/tableside/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnthropicClient(t *testing.T) {
	_, err := newAnthropicClient(Config{})
	require.Error(t, err)

	client, err := newAnthropicClient(Config{APIKey: "key"})
	require.NoError(t, err)
	assert.Equal(t, defaultAnthropicBaseURL, client.baseURL)
}

func TestAnthropicClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "be terse", body["system"])

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ORDER"}],"stop_reason":"end_turn"}`))
	}))
	defer server.Close()

	client, err := newAnthropicClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	got, err := client.Complete(context.Background(), "be terse", "I want ramen")
	require.NoError(t, err)
	assert.Equal(t, "ORDER", got)
}

func TestAnthropicClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{name: "overloaded", status: 529, payload: `{"type":"error"}`},
		{name: "rate limited", status: http.StatusTooManyRequests, payload: `{"type":"rate_limit_error"}`},
		{name: "empty content", status: http.StatusOK, payload: `{"content":[]}`},
		{name: "bad json", status: http.StatusOK, payload: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.payload))
			}))
			defer server.Close()

			client, err := newAnthropicClient(Config{APIKey: "test-key", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = client.Complete(context.Background(), "s", "p")
			assert.ErrorIs(t, err, common.ErrProviderUnavailable)
			assert.Equal(t, tt.status == http.StatusTooManyRequests, errors.Is(err, common.ErrRateLimit))
		})
	}
}
