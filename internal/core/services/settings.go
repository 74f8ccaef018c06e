package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
	"github.com/custodia-labs/hsnlens/internal/core/ports/driven"
	"github.com/custodia-labs/hsnlens/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyAnalysisMode      = "analysis.mode"
	keySimilarLimit      = "analysis.similar_limit"
	keyMatchThreshold    = "analysis.match_threshold"
	keyDefaultCurrency   = "analysis.default_currency"
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyEmbedDimensions   = "embedding.dimensions"
	keyEmbedMaxAttempts  = "embedding.max_attempts"
	keyEmbedRetryBase    = "embedding.retry_base"
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyLLMTemperature    = "llm.temperature"
	keyLLMMaxTokens      = "llm.max_tokens"
	defaultOllamaBaseURL = "http://localhost:11434"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Analysis: domain.AnalysisSettings{
			Mode:            s.getAnalysisMode(defaults.Analysis.Mode),
			SimilarLimit:    s.getInt(keySimilarLimit, defaults.Analysis.SimilarLimit),
			MatchThreshold:  s.getFloat(keyMatchThreshold, defaults.Analysis.MatchThreshold),
			DefaultCurrency: s.getString(keyDefaultCurrency, defaults.Analysis.DefaultCurrency),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:    s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:       s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:     s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:      s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:  s.getInt(keyEmbedDimensions, defaults.Embedding.Dimensions),
			MaxAttempts: s.getInt(keyEmbedMaxAttempts, defaults.Embedding.MaxAttempts),
			RetryBase:   s.getDuration(keyEmbedRetryBase, defaults.Embedding.RetryBase),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:       s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL), // No default - empty is valid for cloud providers
			APIKey:      s.configStore.GetString(keyLLMAPIKey),
			Temperature: s.getFloat(keyLLMTemperature, defaults.LLM.Temperature),
			MaxTokens:   s.getInt(keyLLMMaxTokens, defaults.LLM.MaxTokens),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyAnalysisMode, settings.Analysis.Mode.String()},
		{keySimilarLimit, settings.Analysis.SimilarLimit},
		{keyMatchThreshold, settings.Analysis.MatchThreshold},
		{keyDefaultCurrency, settings.Analysis.DefaultCurrency},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDimensions, settings.Embedding.Dimensions},
		{keyEmbedMaxAttempts, settings.Embedding.MaxAttempts},
		{keyEmbedRetryBase, settings.Embedding.RetryBase.String()},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// API keys are only written when set, so env-provided keys are not persisted as empty.
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	return nil
}

// SetAnalysisMode updates the default analysis mode.
func (s *SettingsService) SetAnalysisMode(mode domain.AnalysisMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("%w: invalid analysis mode: %s", domain.ErrInvalidInput, mode)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Analysis.Mode = mode
	return s.Save(settings)
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}

	valid := false
	for _, p := range domain.AllEmbeddingProviders() {
		if p == provider {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrConfiguration, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaBaseURL
		}
	} else {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.APIKey = apiKey

	// Known models fix the vector size the store is validated against.
	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrConfiguration, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = defaultOllamaBaseURL
		}
	} else {
		settings.LLM.BaseURL = ""
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks if current settings are valid for the configured mode.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Analysis.Mode.IsValid() {
		return fmt.Errorf("%w: invalid analysis mode: %s", domain.ErrConfiguration, settings.Analysis.Mode)
	}
	if settings.Analysis.SimilarLimit <= 0 {
		return fmt.Errorf("%w: similar_limit must be positive", domain.ErrConfiguration)
	}
	if settings.Analysis.MatchThreshold < -1 || settings.Analysis.MatchThreshold > 1 {
		return fmt.Errorf("%w: match_threshold must be within [-1, 1]", domain.ErrConfiguration)
	}

	if settings.Embedding.Provider != "" && !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %s is not fully configured",
			domain.ErrConfiguration, settings.Embedding.Provider)
	}

	if settings.Analysis.Mode.RequiresLLM() && !settings.LLM.IsConfigured() {
		return fmt.Errorf(
			"%w: analysis mode %q requires LLM provider to be configured",
			domain.ErrConfiguration, settings.Analysis.Mode.Description(),
		)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getFloat accepts integer values too, since TOML writes 1.0 as 1 when
// edited by hand.
func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return defaultVal
	}
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getAnalysisMode(defaultVal domain.AnalysisMode) domain.AnalysisMode {
	val := s.configStore.GetString(keyAnalysisMode)
	if val == "" {
		return defaultVal
	}
	mode := domain.AnalysisMode(val)
	if !mode.IsValid() {
		return defaultVal
	}
	return mode
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
