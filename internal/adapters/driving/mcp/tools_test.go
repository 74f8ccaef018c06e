package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	if ports.Analysis == nil {
		ports.Analysis = &mockAnalysisService{}
	}
	server, err := NewServer(ports)
	require.NoError(t, err)
	return server
}

func TestHandleAnalyze(t *testing.T) {
	t.Run("passes request through", func(t *testing.T) {
		analysis := &mockAnalysisService{
			result: &domain.AnalysisResult{Code: "0902", Market: "Japan", Analysis: "steady"},
		}
		server := newTestServer(t, &Ports{Analysis: analysis})

		_, out, err := server.handleAnalyze(context.Background(), nil, AnalyzeInput{
			Code:        "0902",
			ProductName: "Green tea",
			Market:      "Japan",
			Mode:        " Remote ",
			Limit:       3,
		})

		require.NoError(t, err)
		assert.Equal(t, "steady", out.Analysis)
		require.Len(t, analysis.requests, 1)
		assert.Equal(t, domain.AnalysisRequest{
			ProductName:  "Green tea",
			Code:         "0902",
			Market:       "Japan",
			Mode:         domain.AnalysisModeRemote,
			SimilarLimit: 3,
		}, analysis.requests[0])
	})

	t.Run("propagates fatal errors", func(t *testing.T) {
		analysis := &mockAnalysisService{err: domain.ErrInvalidInput}
		server := newTestServer(t, &Ports{Analysis: analysis})

		_, out, err := server.handleAnalyze(context.Background(), nil, AnalyzeInput{Market: "Japan"})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Nil(t, out)
	})
}

func TestHandleFindSimilar(t *testing.T) {
	t.Run("uses own records and defaults name", func(t *testing.T) {
		similarity := &mockSimilarityService{result: domain.SimilarityResult{
			Products: []domain.SimilarProduct{{Code: "0901", ProductName: "Coffee", Similarity: 82}},
			Path:     domain.SimilarityPathVector,
		}}
		server := newTestServer(t, &Ports{Similarity: similarity, Historical: teaHistory()})

		_, out, err := server.handleFindSimilar(context.Background(), nil, SimilarInput{
			Code:   "0902",
			Market: "Japan",
		})

		require.NoError(t, err)
		assert.Len(t, out.Products, 1)
		require.Len(t, similarity.queries, 1)
		q := similarity.queries[0]
		assert.Equal(t, "0902", q.ProductName)
		assert.Len(t, q.Records, 2)
	})

	t.Run("history errors are ignored", func(t *testing.T) {
		similarity := &mockSimilarityService{}
		history := &mockHistoricalService{err: errors.New("locked")}
		server := newTestServer(t, &Ports{Similarity: similarity, Historical: history})

		_, _, err := server.handleFindSimilar(context.Background(), nil, SimilarInput{
			Code:        "0902",
			ProductName: "Green tea",
			Market:      "Japan",
		})

		require.NoError(t, err)
		require.Len(t, similarity.queries, 1)
		assert.Empty(t, similarity.queries[0].Records)
	})

	t.Run("requires code and market", func(t *testing.T) {
		server := newTestServer(t, &Ports{Similarity: &mockSimilarityService{}})

		_, _, err := server.handleFindSimilar(context.Background(), nil, SimilarInput{Code: "0902"})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("service not wired", func(t *testing.T) {
		server := newTestServer(t, &Ports{})

		_, _, err := server.handleFindSimilar(context.Background(), nil, SimilarInput{Code: "0902", Market: "Japan"})

		assert.ErrorIs(t, err, errServiceUnavailable)
	})
}

func TestHandleListMarkets(t *testing.T) {
	server := newTestServer(t, &Ports{Historical: teaHistory()})

	_, out, err := server.handleListMarkets(context.Background(), nil, CodeInput{Code: " 0902 "})
	require.NoError(t, err)
	assert.Equal(t, "0902", out.Code)
	assert.Equal(t, []string{"Japan", "United States"}, out.Markets)

	_, out, err = server.handleListMarkets(context.Background(), nil, CodeInput{Code: "9999"})
	require.NoError(t, err)
	assert.NotNil(t, out.Markets)
	assert.Empty(t, out.Markets)

	_, _, err = server.handleListMarkets(context.Background(), nil, CodeInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHandleHistoricalPrices(t *testing.T) {
	t.Run("returns records", func(t *testing.T) {
		server := newTestServer(t, &Ports{Historical: teaHistory()})

		_, out, err := server.handleHistoricalPrices(context.Background(), nil, HistoryInput{
			Code:   "0902",
			Market: "Japan",
		})

		require.NoError(t, err)
		assert.Len(t, out.Records, 2)
		assert.Equal(t, "2023", out.Records[0].Year)
	})

	t.Run("propagates lookup errors", func(t *testing.T) {
		history := &mockHistoricalService{err: domain.ErrInvalidInput}
		server := newTestServer(t, &Ports{Historical: history})

		_, _, err := server.handleHistoricalPrices(context.Background(), nil, HistoryInput{
			Code:   "0902",
			Market: "Japan",
		})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("service not wired", func(t *testing.T) {
		server := newTestServer(t, &Ports{})

		_, _, err := server.handleHistoricalPrices(context.Background(), nil, HistoryInput{
			Code:   "0902",
			Market: "Japan",
		})

		assert.ErrorIs(t, err, errServiceUnavailable)
	})
}

func TestToolError_Classes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			"no data with alternatives",
			&domain.MarketNotFoundError{Code: "0902", Market: "Peru", Available: []string{"japan", "china"}},
			"historical_prices [no_data; markets with data: japan, china]",
		},
		{
			"no data",
			fmt.Errorf("%w: 9999", domain.ErrCodeNotFound),
			"historical_prices [no_data; ask for a different hsn_code or market]",
		},
		{
			"retryable",
			fmt.Errorf("%w: timeout", domain.ErrAnalysisService),
			"historical_prices [retryable; try again later]",
		},
		{
			"fatal wins over retryable",
			fmt.Errorf("%w: %w", domain.ErrConfiguration, domain.ErrLLMUnavailable),
			"historical_prices [fatal; the hsnlens configuration must be fixed by an operator]",
		},
		{
			"unclassified",
			errors.New("boom"),
			"historical_prices: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := &mockHistoricalService{err: tt.err}
			server := newTestServer(t, &Ports{Historical: history})

			_, _, err := server.handleHistoricalPrices(context.Background(), nil, HistoryInput{
				Code:   "0902",
				Market: "Peru",
			})

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestHandleAnalyze_ClassifiesErrors(t *testing.T) {
	analysis := &mockAnalysisService{err: fmt.Errorf("%w: connection refused", domain.ErrEmbeddingUnavailable)}
	server := newTestServer(t, &Ports{Analysis: analysis})

	_, _, err := server.handleAnalyze(context.Background(), nil, AnalyzeInput{Code: "0902", Market: "Japan"})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "analyze_product [retryable; try again later]")
}
