// Package llm provides the language-model and embedding clients used to read guest
// utterances. It supports OpenAI and Anthropic over plain HTTP and any
// OpenAI-compatible endpoint through langchaingo, with rate limiting and a TTL cache
// for query vectors. Every provider failure wraps common.ErrProviderUnavailable.
package llm
