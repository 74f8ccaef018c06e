package driven

import "github.com/custodia-labs/hsnlens/internal/core/domain"

// AIConfigValidator checks AI provider settings by pinging the provider.
type AIConfigValidator interface {
	// ValidateEmbedding validates an embedding configuration.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM validates an LLM configuration.
	ValidateLLM(config *domain.LLMSettings) error
}
