package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Veraticus/tableside/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAICompatibleServer(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			_, _ = w.Write([]byte(`{
				"id": "chatcmpl-1",
				"object": "chat.completion",
				"model": "gpt-4o-mini",
				"choices": [{"index": 0, "message": {"role": "assistant", "content": "Try the Gyoza."}, "finish_reason": "stop"}],
				"usage": {"prompt_tokens": 5, "completion_tokens": 4, "total_tokens": 9}
			}`))
		case strings.HasSuffix(r.URL.Path, "/embeddings"):
			_, _ = w.Write([]byte(`{
				"object": "list",
				"model": "text-embedding-3-small",
				"data": [{"object": "embedding", "index": 0, "embedding": [0.5, 0.25]}],
				"usage": {"prompt_tokens": 2, "total_tokens": 2}
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestLangchainClient(t *testing.T) {
	server := newOpenAICompatibleServer(t)
	defer server.Close()

	client, err := newLangchainClient(Config{
		APIKey:         "test-key",
		BaseURL:        server.URL,
		Model:          "gpt-4o-mini",
		EmbeddingModel: "text-embedding-3-small",
	})
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "You recommend food.", "what's good?")
	require.NoError(t, err)
	assert.Equal(t, "Try the Gyoza.", text)

	vector, err := client.Embed(context.Background(), "gyoza")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vector)
}

func TestLangchainClient_ProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client, err := newLangchainClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "gpt-4o-mini"})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "p")
	assert.ErrorIs(t, err, common.ErrProviderUnavailable)
}

func TestNewLangchainClient_RequiresKey(t *testing.T) {
	_, err := newLangchainClient(Config{})
	assert.Error(t, err)
}
