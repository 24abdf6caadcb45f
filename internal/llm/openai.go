package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// openAIClient implements Client and Embedder against the OpenAI REST API or any
// server that speaks the same protocol.
type openAIClient struct {
	httpClient     *http.Client
	limiter        *rateLimiter
	apiKey         string
	baseURL        string
	model          string
	embeddingModel string
	temperature    float64
	maxTokens      int
}

// newOpenAIClient creates a new OpenAI API client.
func newOpenAIClient(cfg Config) (*openAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 512
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &openAIClient{
		apiKey:         cfg.APIKey,
		baseURL:        baseURL,
		model:          model,
		embeddingModel: embeddingModel,
		temperature:    cfg.Temperature,
		maxTokens:      maxTokens,
		limiter:        newRateLimiter(cfg.RateLimit),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// openAIResponse keeps only the parts of a chat completion the client reads.
type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// openAIEmbeddingResponse represents the embeddings response structure.
type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// Complete sends a chat completion request to OpenAI.
func (c *openAIClient) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	requestBody := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{
				"role":    "system",
				"content": systemPrompt,
			},
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
	}

	var response openAIResponse
	if err := c.post(ctx, "/chat/completions", requestBody, &response); err != nil {
		return "", err
	}

	if len(response.Choices) == 0 {
		return "", unavailable("openai", fmt.Errorf("no completion choices returned"))
	}

	return response.Choices[0].Message.Content, nil
}

// Embed requests a vector for text.
func (c *openAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	requestBody := map[string]any{
		"model": c.embeddingModel,
		"input": text,
	}

	var response openAIEmbeddingResponse
	if err := c.post(ctx, "/embeddings", requestBody, &response); err != nil {
		return nil, err
	}

	if len(response.Data) == 0 || len(response.Data[0].Embedding) == 0 {
		return nil, unavailable("openai", fmt.Errorf("no embedding returned"))
	}

	return response.Data[0].Embedding, nil
}

// post sends one JSON request and decodes the JSON reply into out.
func (c *openAIClient) post(ctx context.Context, path string, requestBody any, out any) error {
	if err := c.limiter.wait(ctx); err != nil {
		return unavailable("openai", err)
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return unavailable("openai", fmt.Errorf("request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return unavailable("openai", fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return statusError("openai", resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return unavailable("openai", fmt.Errorf("failed to parse response: %w", err))
	}

	return nil
}
