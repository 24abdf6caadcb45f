package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/tableside/internal/common"
	"github.com/spf13/viper"
)

// Recommendation policies.
const (
	PolicyStatic     = "static"
	PolicyGenerative = "generative"
)

// Config is the fully resolved application configuration.
type Config struct {
	Logging    LoggingConfig
	Database   DatabaseConfig
	Restaurant RestaurantConfig
	Server     ServerConfig
	Recommend  RecommendConfig
	LLM        LLMConfig
	Embedding  EmbeddingConfig
	Matching   MatchingConfig
	Timeouts   TimeoutConfig
	Dialog     DialogConfig
}

// LoggingConfig controls the global slog handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string
}

// LLMConfig selects and tunes the language model provider.
type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	RateLimit   int
}

// EmbeddingConfig tunes the embedding provider.
type EmbeddingConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	CacheTTL time.Duration
}

// MatchingConfig holds the catalog matcher policy.
type MatchingConfig struct {
	HighThreshold   float64
	LowThreshold    float64
	TieEpsilon      float64
	RefreshInterval time.Duration
}

// TimeoutConfig bounds every blocking step of a turn.
type TimeoutConfig struct {
	Turn       time.Duration
	Extraction time.Duration
	MatchItem  time.Duration
	Provider   time.Duration
}

// DialogConfig tunes the conversation flow.
type DialogConfig struct {
	MaxConfirmRetries int
	IdleTimeout       time.Duration
	ClarifyAmbiguous  bool
}

// RecommendConfig selects the recommendation policy.
type RecommendConfig struct {
	Policy string
	TopN   int
}

// ServerConfig configures the HTTP channel adapter.
type ServerConfig struct {
	Addr        string
	MetricsPath string
}

// RestaurantConfig is the static venue information used when answering questions.
type RestaurantConfig struct {
	Name string
	Info string
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.path", "~/.local/share/tableside/tableside.db")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 512)
	v.SetDefault("llm.rate_limit", 600)

	v.SetDefault("embedding.provider", "")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.cache_ttl", 15*time.Minute)

	v.SetDefault("matching.high_threshold", 0.85)
	v.SetDefault("matching.low_threshold", 0.60)
	v.SetDefault("matching.tie_epsilon", 1e-4)
	v.SetDefault("matching.refresh_interval", time.Hour)

	v.SetDefault("timeouts.turn", 10*time.Second)
	v.SetDefault("timeouts.extraction", 5*time.Second)
	v.SetDefault("timeouts.match_item", 3*time.Second)
	v.SetDefault("timeouts.provider", 5*time.Second)

	v.SetDefault("dialog.max_confirm_retries", 2)
	v.SetDefault("dialog.idle_timeout", 30*time.Minute)
	v.SetDefault("dialog.clarify_ambiguous", true)

	v.SetDefault("recommend.policy", PolicyStatic)
	v.SetDefault("recommend.top_n", 3)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics_path", "/metrics")

	v.SetDefault("restaurant.name", "the restaurant")
	v.SetDefault("restaurant.info", "")
}

// Load reads a Config out of v. Call SetDefaults first.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Database: DatabaseConfig{
			Path: ExpandPath(v.GetString("database.path")),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(v.GetString("llm.provider")),
			Model:       v.GetString("llm.model"),
			APIKey:      v.GetString("llm.api_key"),
			BaseURL:     v.GetString("llm.base_url"),
			Temperature: v.GetFloat64("llm.temperature"),
			MaxTokens:   v.GetInt("llm.max_tokens"),
			RateLimit:   v.GetInt("llm.rate_limit"),
		},
		Embedding: EmbeddingConfig{
			Provider: strings.ToLower(v.GetString("embedding.provider")),
			Model:    v.GetString("embedding.model"),
			APIKey:   v.GetString("embedding.api_key"),
			BaseURL:  v.GetString("embedding.base_url"),
			CacheTTL: v.GetDuration("embedding.cache_ttl"),
		},
		Matching: MatchingConfig{
			HighThreshold:   v.GetFloat64("matching.high_threshold"),
			LowThreshold:    v.GetFloat64("matching.low_threshold"),
			TieEpsilon:      v.GetFloat64("matching.tie_epsilon"),
			RefreshInterval: v.GetDuration("matching.refresh_interval"),
		},
		Timeouts: TimeoutConfig{
			Turn:       v.GetDuration("timeouts.turn"),
			Extraction: v.GetDuration("timeouts.extraction"),
			MatchItem:  v.GetDuration("timeouts.match_item"),
			Provider:   v.GetDuration("timeouts.provider"),
		},
		Dialog: DialogConfig{
			MaxConfirmRetries: v.GetInt("dialog.max_confirm_retries"),
			IdleTimeout:       v.GetDuration("dialog.idle_timeout"),
			ClarifyAmbiguous:  v.GetBool("dialog.clarify_ambiguous"),
		},
		Recommend: RecommendConfig{
			Policy: strings.ToLower(v.GetString("recommend.policy")),
			TopN:   v.GetInt("recommend.top_n"),
		},
		Server: ServerConfig{
			Addr:        v.GetString("server.addr"),
			MetricsPath: v.GetString("server.metrics_path"),
		},
		Restaurant: RestaurantConfig{
			Name: v.GetString("restaurant.name"),
			Info: v.GetString("restaurant.info"),
		},
	}

	// Fall back to the conventional environment variable
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	// Anthropic has no embeddings endpoint, so vectors come from OpenAI
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = cfg.LLM.Provider
		if cfg.Embedding.Provider == "anthropic" {
			cfg.Embedding.Provider = "openai"
		}
	}
	if cfg.Embedding.APIKey == "" {
		if cfg.Embedding.Provider == cfg.LLM.Provider {
			cfg.Embedding.APIKey = cfg.LLM.APIKey
		} else {
			cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if cfg.Embedding.BaseURL == "" && cfg.Embedding.Provider == cfg.LLM.Provider {
		cfg.Embedding.BaseURL = cfg.LLM.BaseURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the orchestrator cannot run with.
func (c *Config) Validate() error {
	m := c.Matching
	if m.LowThreshold <= 0 || m.HighThreshold > 1 || m.LowThreshold > m.HighThreshold {
		return fmt.Errorf("%w: thresholds must satisfy 0 < low (%.2f) <= high (%.2f) <= 1",
			common.ErrInvalidConfig, m.LowThreshold, m.HighThreshold)
	}
	if m.TieEpsilon < 0 {
		return fmt.Errorf("%w: tie epsilon must not be negative", common.ErrInvalidConfig)
	}

	t := c.Timeouts
	for name, d := range map[string]time.Duration{
		"turn":       t.Turn,
		"extraction": t.Extraction,
		"match_item": t.MatchItem,
		"provider":   t.Provider,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: timeouts.%s must be positive", common.ErrInvalidConfig, name)
		}
	}
	if t.MatchItem > t.Turn {
		return fmt.Errorf("%w: timeouts.match_item (%s) must not exceed timeouts.turn (%s)",
			common.ErrInvalidConfig, t.MatchItem, t.Turn)
	}

	switch c.LLM.Provider {
	case "openai", "anthropic", "langchain":
	default:
		return fmt.Errorf("%w: unsupported LLM provider %q", common.ErrInvalidConfig, c.LLM.Provider)
	}

	switch c.Embedding.Provider {
	case "openai", "langchain":
	default:
		return fmt.Errorf("%w: unsupported embedding provider %q", common.ErrInvalidConfig, c.Embedding.Provider)
	}

	switch c.Recommend.Policy {
	case PolicyStatic, PolicyGenerative:
	default:
		return fmt.Errorf("%w: unknown recommendation policy %q", common.ErrInvalidConfig, c.Recommend.Policy)
	}
	if c.Recommend.TopN <= 0 {
		return fmt.Errorf("%w: recommend.top_n must be positive", common.ErrInvalidConfig)
	}

	if c.Dialog.MaxConfirmRetries < 0 {
		return fmt.Errorf("%w: dialog.max_confirm_retries must not be negative", common.ErrInvalidConfig)
	}

	return nil
}
