package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hsnlens/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

func newTestService(t *testing.T, handler http.HandlerFunc, cfg Config) *EmbeddingService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	if cfg.APIKey == "" {
		cfg.APIKey = "sk-test"
	}
	cfg.BaseURL = srv.URL + "/"
	cfg.Limiter = ratelimit.New(ratelimit.Config{})
	svc, err := NewEmbeddingService(cfg)
	require.NoError(t, err)
	return svc
}

func TestNewEmbeddingService_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})

	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "sk-test"})
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, 1536, svc.Dimensions())
	assert.Equal(t, DefaultBaseURL, svc.baseURL)
	assert.NoError(t, svc.Close())
}

func TestNewEmbeddingService_UnknownModelFallsBack(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "sk-test", Model: "custom-embed"})
	require.NoError(t, err)

	assert.Equal(t, 1536, svc.Dimensions())
}

func TestEmbed_Success(t *testing.T) {
	var got embeddingRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.5,-0.25,1],"index":0}]}`))
	}, Config{Dimensions: 3})

	vec, err := svc.Embed(context.Background(), "Green tea")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.25, 1}, vec)
	assert.Equal(t, []string{"Green tea"}, got.Input)
	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, 3, got.Dimensions)
}

func TestEmbed_NativeSizeOmitsDimensions(t *testing.T) {
	var raw map[string]any
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1],"index":0}]}`))
	}, Config{})

	_, err := svc.Embed(context.Background(), "Green tea")

	require.NoError(t, err)
	assert.NotContains(t, raw, "dimensions")
}

func TestEmbed_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   string
		wantFatal bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key"}}`, "Incorrect API key", true},
		{"forbidden", http.StatusForbidden, `forbidden`, "forbidden", true},
		{"server error", http.StatusInternalServerError, `boom`, "status 500", false},
		{"error payload", http.StatusOK, `{"error":{"message":"bad input"}}`, "bad input", false},
		{"empty data", http.StatusOK, `{"data":[]}`, "no embedding", false},
		{"invalid json", http.StatusOK, `{`, "decode response", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, Config{})

			_, err := svc.Embed(context.Background(), "Green tea")

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.wantFatal, domain.IsFatal(err))
		})
	}
}

func TestEmbed_RateLimitedBacksOff(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: srv.URL, Limiter: limiter})
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "Green tea")

	require.Error(t, err)
	assert.False(t, limiter.Allow())
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}, Config{})

	assert.NoError(t, svc.Ping(context.Background()))
}

func TestPing_Unauthorized(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, Config{})

	err := svc.Ping(context.Background())

	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
