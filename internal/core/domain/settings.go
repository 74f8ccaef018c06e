package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API or any compatible endpoint.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint. Empty uses the provider default.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector size the model must produce. A model that
	// returns anything else is a configuration error.
	Dimensions int

	// MaxAttempts bounds embedding retries.
	MaxAttempts int

	// RetryBase is the backoff unit; attempt n waits RetryBase * 2^n.
	RetryBase time.Duration
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint. Empty uses the provider default.
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Temperature is the sampling temperature for analysis requests.
	Temperature float64

	// MaxTokens bounds the long-form analysis response.
	MaxTokens int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// AnalysisSettings holds pipeline behaviour configuration.
type AnalysisSettings struct {
	// Mode is the default analysis mode.
	Mode AnalysisMode

	// SimilarLimit caps each similarity list.
	SimilarLimit int

	// MatchThreshold is the minimum raw similarity for nearest-neighbour candidates.
	MatchThreshold float64

	// DefaultCurrency is used for prices stored without one.
	DefaultCurrency string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Analysis holds pipeline settings.
	Analysis AnalysisSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings
}

// Embedding retry defaults.
const (
	DefaultEmbeddingDimensions = 384
	DefaultEmbeddingAttempts   = 3
	DefaultEmbeddingRetryBase  = time.Second
)

// LLM request defaults.
const (
	DefaultLLMTemperature = 0.3
	DefaultLLMMaxTokens   = 1500
)

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured; local analysis works without them
// once an embedding provider is set.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Analysis: AnalysisSettings{
			Mode:            AnalysisModeLocal,
			SimilarLimit:    DefaultSimilarLimit,
			MatchThreshold:  DefaultMatchThreshold,
			DefaultCurrency: DefaultCurrency,
		},
		Embedding: EmbeddingSettings{
			Dimensions:  DefaultEmbeddingDimensions,
			MaxAttempts: DefaultEmbeddingAttempts,
			RetryBase:   DefaultEmbeddingRetryBase,
		},
		LLM: LLMSettings{
			Temperature: DefaultLLMTemperature,
			MaxTokens:   DefaultLLMMaxTokens,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "all-minilm",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the native vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
