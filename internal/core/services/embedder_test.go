package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

func newTestEmbedder(svc *mockEmbeddingService, dims int) (*Embedder, *noSleep) {
	e := NewEmbedder(svc, EmbedderConfig{Dimensions: dims, MaxAttempts: 3, RetryBase: time.Second})
	ns := &noSleep{}
	e.sleep = ns.sleep
	return e, ns
}

func TestNewEmbedder_Defaults(t *testing.T) {
	e := NewEmbedder(newMockEmbedding(4), EmbedderConfig{})

	assert.Equal(t, domain.DefaultEmbeddingDimensions, e.Dimensions())
	assert.Equal(t, domain.DefaultEmbeddingAttempts, e.maxAttempts)
	assert.Equal(t, domain.DefaultEmbeddingRetryBase, e.retryBase)
	assert.Equal(t, "mock-embedding", e.ModelName())
}

func TestEmbedder_Embed_Success(t *testing.T) {
	svc := newMockEmbedding(4)
	e, ns := newTestEmbedder(svc, 4)

	vec, err := e.Embed(context.Background(), "Green tea")

	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.Empty(t, ns.delays)
	// Probe plus the real call.
	assert.Equal(t, []string{ProbeText, "Green tea"}, svc.texts)
}

func TestEmbedder_Embed_EmptyText(t *testing.T) {
	svc := newMockEmbedding(4)
	e, _ := newTestEmbedder(svc, 4)

	_, err := e.Embed(context.Background(), "")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, svc.calls)
}

func TestEmbedder_Embed_RetriesWithBackoff(t *testing.T) {
	svc := newMockEmbedding(4)
	e, ns := newTestEmbedder(svc, 4)
	require.NoError(t, e.Init(context.Background()))

	transient := errors.New("503 service unavailable")
	svc.errs = []error{transient, transient}

	vec, err := e.Embed(context.Background(), "Green tea")

	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, ns.delays)
	assert.Equal(t, 4, svc.calls)
}

func TestEmbedder_Embed_ExhaustsRetries(t *testing.T) {
	svc := newMockEmbedding(4)
	e, ns := newTestEmbedder(svc, 4)
	require.NoError(t, e.Init(context.Background()))

	cause := errors.New("connection refused")
	svc.embedErr = cause

	_, err := e.Embed(context.Background(), "Green tea")

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Len(t, ns.delays, 2)
	// One probe call plus three attempts.
	assert.Equal(t, 4, svc.calls)
}

func TestEmbedder_Embed_DimensionMismatchNotRetried(t *testing.T) {
	svc := newMockEmbedding(3)
	e, ns := newTestEmbedder(svc, 4)

	_, err := e.Embed(context.Background(), "Green tea")

	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Empty(t, ns.delays)
	assert.Equal(t, 1, svc.calls)
}

func TestEmbedder_Embed_RejectedCredentialsNotRetried(t *testing.T) {
	svc := newMockEmbedding(4)
	e, ns := newTestEmbedder(svc, 4)
	require.NoError(t, e.Init(context.Background()))
	svc.embedErr = fmt.Errorf("%w: openai rejected the API key", domain.ErrConfiguration)

	_, err := e.Embed(context.Background(), "Green tea")

	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.NotErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Empty(t, ns.delays)
	assert.Equal(t, 2, svc.calls)
}

func TestEmbedder_Embed_ContextCanceledStopsRetry(t *testing.T) {
	svc := newMockEmbedding(4)
	e, ns := newTestEmbedder(svc, 4)
	require.NoError(t, e.Init(context.Background()))
	svc.embedErr = context.Canceled

	_, err := e.Embed(context.Background(), "Green tea")

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ns.delays)
}

func TestEmbedder_Init_FailureIsCached(t *testing.T) {
	svc := newMockEmbedding(4)
	svc.embedErr = errors.New("down")
	e, _ := newTestEmbedder(svc, 4)

	_, err := e.Embed(context.Background(), "first")
	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	callsAfterInit := svc.calls

	// The service recovers, but the cached failure is returned until Init is re-run.
	svc.embedErr = nil
	_, err = e.Embed(context.Background(), "second")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Equal(t, callsAfterInit, svc.calls)

	require.NoError(t, e.Init(context.Background()))
	vec, err := e.Embed(context.Background(), "third")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
}

func TestEmbedder_Embed_ConcurrentFirstCallersShareFailedInit(t *testing.T) {
	svc := newMockEmbedding(4)
	svc.embedErr = errors.New("down")
	e, _ := newTestEmbedder(svc, 4)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Embed(context.Background(), "Green tea")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	}
	// A single probe with its three attempts.
	assert.Equal(t, 3, svc.calls)
}

func TestEmbedder_Init_SuccessIsPermanent(t *testing.T) {
	svc := newMockEmbedding(4)
	e, _ := newTestEmbedder(svc, 4)

	require.NoError(t, e.Init(context.Background()))
	require.NoError(t, e.Init(context.Background()))

	assert.Equal(t, 1, svc.calls)
}

func TestEmbedder_NilService(t *testing.T) {
	e := NewEmbedder(nil, EmbedderConfig{Dimensions: 4})

	_, err := e.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.ErrorIs(t, e.Ping(context.Background()), domain.ErrConfiguration)
	assert.Empty(t, e.ModelName())
	assert.NoError(t, e.Close())
}

func TestSleepContext_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sleepContext(ctx, time.Hour)

	assert.ErrorIs(t, err, context.Canceled)
}
