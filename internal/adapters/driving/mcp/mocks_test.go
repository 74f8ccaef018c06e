package mcp

import (
	"context"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

// mockAnalysisService is a mock implementation of driving.AnalysisService.
type mockAnalysisService struct {
	result   *domain.AnalysisResult
	err      error
	requests []domain.AnalysisRequest
}

func (m *mockAnalysisService) Analyze(
	_ context.Context,
	req domain.AnalysisRequest,
) (*domain.AnalysisResult, error) {
	m.requests = append(m.requests, req)
	return m.result, m.err
}

func (m *mockAnalysisService) TestConnections(_ context.Context) (map[string]bool, error) {
	return map[string]bool{}, m.err
}

// mockSimilarityService is a mock implementation of driving.SimilarityService.
type mockSimilarityService struct {
	result  domain.SimilarityResult
	queries []domain.SimilarityQuery
}

func (m *mockSimilarityService) FindSimilar(
	_ context.Context,
	query domain.SimilarityQuery,
) domain.SimilarityResult {
	m.queries = append(m.queries, query)
	return m.result
}

// mockHistoricalService is a mock implementation of driving.HistoricalService.
type mockHistoricalService struct {
	records map[string][]domain.HistoricalRecord
	markets map[string][]string
	err     error
}

func (m *mockHistoricalService) FetchHistoricalData(
	_ context.Context,
	code, market string,
) ([]domain.HistoricalRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.records[code+"/"+market], nil
}

func (m *mockHistoricalService) ListAvailableMarkets(_ context.Context, code string) []string {
	return m.markets[code]
}

func (m *mockHistoricalService) ImportRecords(_ context.Context, seeds []domain.HistoricalSeed) (int, error) {
	return len(seeds), m.err
}

func teaHistory() *mockHistoricalService {
	return &mockHistoricalService{
		records: map[string][]domain.HistoricalRecord{
			"0902/Japan": {
				{Year: "2023", Price: 4.2, Currency: "USD"},
				{Year: "2022", Price: 3.9, Currency: "USD"},
			},
			"0902/United States": {
				{Year: "2023", Price: 3.1, Currency: "USD"},
			},
		},
		markets: map[string][]string{
			"0902": {"Japan", "United States"},
		},
	}
}
