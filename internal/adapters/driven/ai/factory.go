// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/hsnlens/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/hsnlens/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/hsnlens/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/hsnlens/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/hsnlens/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/hsnlens/internal/core/domain"
	"github.com/custodia-labs/hsnlens/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

const fixHint = "Run 'hsnlens settings' to fix"

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	Warnings         []string // Non-fatal issues; the pipeline degrades instead of failing.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Initialise builds the AI services described by settings.
//
// The embedding adapter is constructed but not pinged; the embedder runs its
// own probe on first use. The LLM is pinged only when remote analysis is the
// default, and an unreachable LLM becomes a warning so local analysis keeps
// working. Only construction errors that retrying cannot fix are returned.
func Initialise(ctx context.Context, settings domain.AppSettings) (*InitResult, error) {
	result := &InitResult{}

	embedding, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrConfiguration, err, fixHint)
	}
	result.EmbeddingService = embedding
	if embedding == nil {
		result.Warnings = append(result.Warnings,
			"no embedding provider configured; similar products will be unavailable")
	}

	if !settings.LLM.IsConfigured() {
		if settings.Analysis.Mode == domain.AnalysisModeRemote {
			result.Warnings = append(result.Warnings,
				"remote analysis is the default but no LLM provider is configured")
		}
		return result, nil
	}

	if settings.Analysis.Mode != domain.AnalysisModeRemote {
		llm, err := CreateLLMService(&settings.LLM)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("LLM disabled: %v", err))
			return result, nil
		}
		result.LLMService = llm
		return result, nil
	}

	llm, err := CreateAndValidateLLMService(ctx, &settings.LLM)
	if err != nil {
		if errors.Is(err, domain.ErrConfiguration) {
			result.Close()
			return nil, err
		}
		result.Warnings = append(result.Warnings, err.Error())
		return result, nil
	}
	result.LLMService = llm
	return result, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(
	ctx context.Context,
	settings *domain.EmbeddingSettings,
) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s",
			domain.ErrEmbeddingUnavailable, err, fixHint)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrLLMUnavailable, err, fixHint)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrLLMUnavailable, err, fixHint)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
// The settings command uses this to check credentials before saving them.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
// The settings command uses this to check credentials before saving them.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if no provider is set. A provider with missing credentials is an error.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || settings.Provider == "" {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if no provider is set. A provider with missing credentials is an error.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || settings.Provider == "" {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)

	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// embeddingDimensions prefers the configured size, then the known size of the model.
func embeddingDimensions(settings *domain.EmbeddingSettings) int {
	if settings.Dimensions > 0 {
		return settings.Dimensions
	}
	return domain.EmbeddingDimensions()[settings.Model]
}

func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: embeddingDimensions(settings),
	})
}

func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: embeddingDimensions(settings),
	})
}

func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}
