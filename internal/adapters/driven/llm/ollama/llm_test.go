package ollama

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
	"github.com/custodia-labs/hsnlens/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewLLMService(LLMConfig{
		BaseURL: srv.URL,
		Limiter: ratelimit.New(ratelimit.Config{}),
	})
}

func TestNewLLMService_Defaults(t *testing.T) {
	svc := NewLLMService(LLMConfig{})

	assert.Equal(t, DefaultLLMModel, svc.ModelName())
	assert.Equal(t, DefaultBaseURL, svc.baseURL)
	assert.NoError(t, svc.Close())
}

func TestChat_Success(t *testing.T) {
	var got chatRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"Stable demand.\n"},"done":true}`))
	})

	out, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: "You are a trade analyst."},
		{Role: driven.RoleUser, Content: "HSN Code: 0902"},
	}, driven.ChatOptions{MaxTokens: 200, Temperature: 0.1})

	require.NoError(t, err)
	assert.Equal(t, "Stable demand.", out)
	assert.False(t, got.Stream)
	assert.Len(t, got.Messages, 2)
	require.NotNil(t, got.Options)
	assert.Equal(t, 200, got.Options.NumPredict)
	assert.InDelta(t, 0.1, got.Options.Temperature, 1e-9)
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   string
		wantFatal bool
	}{
		{"model missing", http.StatusNotFound, `{"error":"model \"llama3.2\" not found, try pulling it first"}`, "ollama pull llama3.2", true},
		{"server error", http.StatusInternalServerError, `boom`, "status 500: boom", false},
		{"error payload", http.StatusOK, `{"error":"out of memory"}`, "out of memory", false},
		{"invalid json", http.StatusOK, `nope`, "decode response", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := svc.Chat(context.Background(), []driven.ChatMessage{
				{Role: driven.RoleUser, Content: "hi"},
			}, driven.ChatOptions{})

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.wantFatal, domain.IsFatal(err))
		})
	}
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	})
	assert.NoError(t, svc.Ping(context.Background()))

	down := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	assert.ErrorContains(t, down.Ping(context.Background()), "status 502")
}
