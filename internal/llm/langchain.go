package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// langchainClient reaches any OpenAI-compatible endpoint (OpenAI, Azure, GitHub
// Models, Ollama, vLLM) through langchaingo.
type langchainClient struct {
	llm         *openai.LLM
	model       string
	temperature float64
	maxTokens   int
}

// newLangchainClient creates a langchaingo-backed client.
func newLangchainClient(cfg Config) (*langchainClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for the langchain provider")
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	if cfg.EmbeddingModel != "" {
		opts = append(opts, openai.WithEmbeddingModel(cfg.EmbeddingModel))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create langchain client: %w", err)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 512
	}

	return &langchainClient{
		llm:         client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Complete generates a chat completion.
func (c *langchainClient) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	opts := []llms.CallOption{
		llms.WithMaxTokens(c.maxTokens),
		llms.WithTemperature(c.temperature),
	}
	if c.model != "" {
		opts = append(opts, llms.WithModel(c.model))
	}

	response, err := c.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, opts...)
	if err != nil {
		return "", unavailable("langchain", fmt.Errorf("failed to generate completion: %w", err))
	}

	if response == nil || len(response.Choices) == 0 {
		return "", unavailable("langchain", fmt.Errorf("empty response"))
	}

	return response.Choices[0].Content, nil
}

// Embed generates a vector for text.
func (c *langchainClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.llm.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, unavailable("langchain", fmt.Errorf("failed to create embedding: %w", err))
	}

	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, unavailable("langchain", fmt.Errorf("no embedding returned"))
	}

	return vectors[0], nil
}
