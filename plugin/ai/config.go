package ai

import (
	"errors"

	"github.com/newstrove/newstrove/internal/profile"
)

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Model      string // text-embedding-3-small
	Dimensions int    // 1536
	APIKey     string
	BaseURL    string
	MaxRetries int // default: 3
}

// NewEmbeddingConfigFromProfile creates embedding config from profile.
func NewEmbeddingConfigFromProfile(p *profile.Profile) *EmbeddingConfig {
	return &EmbeddingConfig{
		Model:      p.EmbeddingModel,
		Dimensions: p.EmbeddingDimensions,
		APIKey:     p.OpenAIAPIKey,
		BaseURL:    p.OpenAIBaseURL,
		MaxRetries: 3,
	}
}

// Validate validates the configuration.
func (c *EmbeddingConfig) Validate() error {
	if c.Model == "" {
		return errors.New("embedding model is required")
	}
	if c.APIKey == "" {
		return errors.New("embedding API key is required")
	}
	if c.Dimensions <= 0 {
		return errors.New("embedding dimensions must be positive")
	}
	return nil
}
