package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/tableside/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.InDelta(t, 0.85, cfg.Matching.HighThreshold, 1e-9)
	assert.InDelta(t, 0.60, cfg.Matching.LowThreshold, 1e-9)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Turn)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Extraction)
	assert.Equal(t, 3*time.Second, cfg.Timeouts.MatchItem)
	assert.Equal(t, 2, cfg.Dialog.MaxConfirmRetries)
	assert.Equal(t, 30*time.Minute, cfg.Dialog.IdleTimeout)
	assert.True(t, cfg.Dialog.ClarifyAmbiguous)
	assert.Equal(t, PolicyStatic, cfg.Recommend.Policy)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadAPIKeyFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	cfg, err := Load(newViper())
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.LLM.APIKey)

	v := newViper()
	v.Set("llm.api_key", "sk-from-config")
	cfg, err = Load(v)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-config", cfg.LLM.APIKey)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]any
	}{
		{name: "low above high", set: map[string]any{"matching.low_threshold": 0.9, "matching.high_threshold": 0.8}},
		{name: "zero low", set: map[string]any{"matching.low_threshold": 0.0}},
		{name: "high above one", set: map[string]any{"matching.high_threshold": 1.5}},
		{name: "negative epsilon", set: map[string]any{"matching.tie_epsilon": -0.1}},
		{name: "zero turn timeout", set: map[string]any{"timeouts.turn": 0}},
		{name: "match timeout above turn", set: map[string]any{"timeouts.match_item": 20 * time.Second}},
		{name: "unknown provider", set: map[string]any{"llm.provider": "parrot"}},
		{name: "unknown policy", set: map[string]any{"recommend.policy": "chef"}},
		{name: "zero top n", set: map[string]any{"recommend.top_n": 0}},
		{name: "negative retries", set: map[string]any{"dialog.max_confirm_retries": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := Load(v)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("TABLESIDE_TEST_DIR", "/srv/data")

	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"~", home},
		{"~/db/tableside.db", filepath.Join(home, "db/tableside.db")},
		{"$TABLESIDE_TEST_DIR/tableside.db", "/srv/data/tableside.db"},
		{"/abs/path.db", "/abs/path.db"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.input))
		})
	}
}

func TestEnsureParentDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "tableside.db")

	require.NoError(t, EnsureParentDir(path))
	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.NoError(t, EnsureParentDir(":memory:"))
}

func TestLoadEmbeddingProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	v := newViper()
	v.Set("llm.provider", "anthropic")
	v.Set("llm.api_key", "sk-ant")
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "sk-openai", cfg.Embedding.APIKey)

	v = newViper()
	v.Set("llm.provider", "langchain")
	v.Set("llm.api_key", "sk-lc")
	v.Set("llm.base_url", "http://localhost:11434/v1")
	cfg, err = Load(v)
	require.NoError(t, err)
	assert.Equal(t, "langchain", cfg.Embedding.Provider)
	assert.Equal(t, "sk-lc", cfg.Embedding.APIKey)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Embedding.BaseURL)

	v = newViper()
	v.Set("embedding.provider", "anthropic")
	_, err = Load(v)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}
