package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Veraticus/tableside/internal/common"
)

// Client defines the interface for chat-completion providers.
type Client interface {
	// Complete sends a system prompt and a user prompt and returns the raw reply text.
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config holds configuration for a provider client.
type Config struct {
	Provider       string
	APIKey         string
	Model          string
	EmbeddingModel string
	BaseURL        string
	Temperature    float64
	MaxTokens      int
	RateLimit      int
	Timeout        time.Duration
}

// unavailable tags a technical provider failure. The cause stays in the chain so
// callers can still tell a deadline from an auth error.
func unavailable(provider string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrProviderUnavailable, provider, err)
}

// statusError reports a non-200 provider reply. A 429 also wraps
// common.ErrRateLimit so batch callers can back off.
func statusError(provider string, status int, body []byte) error {
	if status == http.StatusTooManyRequests {
		return unavailable(provider, fmt.Errorf("%w: status %d: %s", common.ErrRateLimit, status, body))
	}
	return unavailable(provider, fmt.Errorf("API error (status %d): %s", status, body))
}
