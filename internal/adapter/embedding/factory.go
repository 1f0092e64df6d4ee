package embedding

import (
	"fmt"

	"qrmatch/config"
	"qrmatch/internal/port"
)

// New builds the embedder selected by cfg.Provider.
func New(cfg config.EmbeddingConfig) (port.Embedder, error) {
	opts := Options{
		BaseURL:   cfg.BaseURL,
		Dimension: cfg.Dimension,
		BatchSize: cfg.BatchSize,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		Burst:     cfg.Burst,
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIEmbedder(cfg.APIKeyEnv, cfg.Model, opts)
	case "jina":
		return NewJinaEmbedder(cfg.APIKeyEnv, cfg.Model, opts)
	case "openai-compatible":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("embedding.base_url is required for openai-compatible provider")
		}
		return NewOpenAICompatibleEmbedder(cfg.APIKeyEnv, cfg.Model, opts)
	case "ollama":
		return NewOllamaEmbedder(cfg.Model, opts), nil
	case "mock":
		return NewMockEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
