package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
	"github.com/custodia-labs/hsnlens/internal/core/ports/driven"
	"github.com/custodia-labs/hsnlens/internal/logger"
)

// Ensure Embedder implements the interface.
var _ driven.EmbeddingService = (*Embedder)(nil)

// ProbeText is embedded once to check the model's output size.
const ProbeText = "dimension probe"

// EmbedderConfig configures validation and retry behaviour.
type EmbedderConfig struct {
	// Dimensions is the vector size the model must produce.
	Dimensions int

	// MaxAttempts bounds the number of calls per Embed.
	MaxAttempts int

	// RetryBase is the backoff unit. After failed attempt n (1-based)
	// the embedder waits RetryBase * 2^n.
	RetryBase time.Duration
}

// Embedder wraps an EmbeddingService with a one-time dimension check and
// retry with exponential backoff. It is constructed once at startup and
// shared by every pipeline service.
type Embedder struct {
	svc         driven.EmbeddingService
	dimensions  int
	maxAttempts int
	retryBase   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	attempted bool
	initErr   error
}

// NewEmbedder creates an embedder. Zero config values use the defaults.
func NewEmbedder(svc driven.EmbeddingService, cfg EmbedderConfig) *Embedder {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = domain.DefaultEmbeddingDimensions
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = domain.DefaultEmbeddingAttempts
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = domain.DefaultEmbeddingRetryBase
	}
	return &Embedder{
		svc:         svc,
		dimensions:  cfg.Dimensions,
		maxAttempts: cfg.MaxAttempts,
		retryBase:   cfg.RetryBase,
		sleep:       sleepContext,
	}
}

// Init embeds the probe text and checks its length. The first successful
// Init is permanent. A failed Init is cached and returned by Embed until
// Init is called again.
func (e *Embedder) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.attempted && e.initErr == nil {
		return nil
	}
	e.attempted = true
	e.initErr = e.probe(ctx)
	return e.initErr
}

// ensureInit probes on first use only. Concurrent first callers wait for
// the one probe and share its outcome.
func (e *Embedder) ensureInit(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.attempted {
		e.attempted = true
		e.initErr = e.probe(ctx)
	}
	return e.initErr
}

func (e *Embedder) probe(ctx context.Context) error {
	if e.svc == nil {
		return fmt.Errorf("%w: no embedding provider configured", domain.ErrConfiguration)
	}
	logger.Debug("Probing embedding model %s for %d dimensions", e.svc.ModelName(), e.dimensions)
	if _, err := e.embedWithRetry(ctx, ProbeText); err != nil {
		return err
	}
	return nil
}

// Embed returns the embedding for text, retrying transient failures.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", domain.ErrInvalidInput)
	}
	if err := e.ensureInit(ctx); err != nil {
		return nil, err
	}
	return e.embedWithRetry(ctx, text)
}

func (e *Embedder) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		vec, err := e.svc.Embed(ctx, text)
		if err == nil {
			if len(vec) != e.dimensions {
				return nil, fmt.Errorf("%w: model %s returned %d dimensions, expected %d",
					domain.ErrConfiguration, e.svc.ModelName(), len(vec), e.dimensions)
			}
			return vec, nil
		}
		if errors.Is(err, domain.ErrConfiguration) {
			return nil, err
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
		if attempt == e.maxAttempts {
			break
		}

		delay := e.retryBase << attempt
		logger.Warn("Embedding attempt %d/%d failed: %v (retrying in %s)", attempt, e.maxAttempts, err, delay)
		if err := e.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, lastErr)
}

// Dimensions returns the validated vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the wrapped model name.
func (e *Embedder) ModelName() string {
	if e.svc == nil {
		return ""
	}
	return e.svc.ModelName()
}

// Ping checks the wrapped service is reachable.
func (e *Embedder) Ping(ctx context.Context) error {
	if e.svc == nil {
		return fmt.Errorf("%w: no embedding provider configured", domain.ErrConfiguration)
	}
	return e.svc.Ping(ctx)
}

// Close releases the wrapped service.
func (e *Embedder) Close() error {
	if e.svc == nil {
		return nil
	}
	return e.svc.Close()
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
