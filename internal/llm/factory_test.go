package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		provider string
		wantErr  bool
	}{
		{provider: "openai"},
		{provider: "OpenAI"},
		{provider: "anthropic"},
		{provider: "langchain"},
		{provider: "claudecode", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			client, err := NewClient(Config{Provider: tt.provider, APIKey: "key"})
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestNewEmbedder(t *testing.T) {
	embedder, err := NewEmbedder(Config{Provider: "openai", APIKey: "key"})
	require.NoError(t, err)
	assert.NotNil(t, embedder)

	embedder, err = NewEmbedder(Config{Provider: "langchain", APIKey: "key"})
	require.NoError(t, err)
	assert.NotNil(t, embedder)

	_, err = NewEmbedder(Config{Provider: "anthropic", APIKey: "key"})
	assert.Error(t, err)

	embedder, err = NewEmbedder(Config{Provider: "openai"})
	require.Error(t, err)
	assert.Nil(t, embedder)
}
