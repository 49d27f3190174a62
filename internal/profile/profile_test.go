package profile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("NEWSTROVE_OPENAI_API_KEY", "")
	t.Setenv("NEWSTROVE_OPENAI_BASE_URL", "")
	t.Setenv("NEWSTROVE_EMBEDDING_MODEL", "")
	t.Setenv("NEWSTROVE_EMBEDDING_DIMENSIONS", "")

	p := &Profile{}
	p.FromEnv()

	require.Equal(t, "https://api.openai.com/v1", p.OpenAIBaseURL)
	require.Equal(t, "text-embedding-3-small", p.EmbeddingModel)
	require.Equal(t, 1536, p.EmbeddingDimensions)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("NEWSTROVE_OPENAI_API_KEY", "test-key")
	t.Setenv("NEWSTROVE_OPENAI_BASE_URL", "https://proxy.internal/v1")
	t.Setenv("NEWSTROVE_EMBEDDING_MODEL", "text-embedding-3-large")
	t.Setenv("NEWSTROVE_EMBEDDING_DIMENSIONS", "3072")

	p := &Profile{}
	p.FromEnv()

	require.Equal(t, "test-key", p.OpenAIAPIKey)
	require.Equal(t, "https://proxy.internal/v1", p.OpenAIBaseURL)
	require.Equal(t, "text-embedding-3-large", p.EmbeddingModel)
	require.Equal(t, 3072, p.EmbeddingDimensions)
}

func TestValidate(t *testing.T) {
	t.Run("unknown driver rejected", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "mysql"}
		require.Error(t, p.Validate())
	})

	t.Run("postgres requires DSN", func(t *testing.T) {
		p := &Profile{Mode: "prod", Driver: "postgres"}
		require.Error(t, p.Validate())
	})

	t.Run("sqlite derives DSN from data dir", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "sqlite", Data: t.TempDir()}
		require.NoError(t, p.Validate())
		require.Contains(t, p.DSN, "newstrove_dev.db")
	})

	t.Run("invalid mode falls back to dev", func(t *testing.T) {
		p := &Profile{Mode: "staging", Driver: "sqlite", Data: t.TempDir()}
		require.NoError(t, p.Validate())
		require.Equal(t, "dev", p.Mode)
	})
}
