package cli

import (
	"context"
	"errors"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

// setupTestServices swaps in mock services and disables real wiring.
// The returned function restores the previous state.
func setupTestServices() func() {
	origAnalysis := analysisService
	origSimilarity := similarityService
	origHistorical := historicalService
	origSettings := settingsService
	origWire := wire

	analysisService = &mockAnalysisService{}
	similarityService = &mockSimilarityService{}
	historicalService = newMockHistoricalService()
	settingsService = newMockSettingsService()
	wire = func(context.Context, rootOptions, wireScope) (func(), error) {
		return func() {}, nil
	}

	return func() {
		analysisService = origAnalysis
		similarityService = origSimilarity
		historicalService = origHistorical
		settingsService = origSettings
		wire = origWire
	}
}

// mockAnalysisService returns a fixed local result for any request.
type mockAnalysisService struct {
	requests []domain.AnalysisRequest
	err      error
	status   map[string]bool
}

func (m *mockAnalysisService) Analyze(_ context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	mode := req.Mode
	if mode == "" {
		mode = domain.AnalysisModeLocal
	}
	name := req.ProductName
	if name == "" {
		name = req.Code
	}
	result := &domain.AnalysisResult{
		ProductName: name,
		Code:        req.Code,
		Market:      req.Market,
		Mode:        mode,
		Records: []domain.HistoricalRecord{
			{Year: "2023", Price: 4.2, Currency: "USD"},
			{Year: "2022", Price: 3.9, Currency: "USD"},
		},
		SimilarProducts: []domain.SimilarProduct{
			{Code: "0901", ProductName: "Coffee", Similarity: 81.5, Markets: []string{"Japan"}},
		},
		Analysis: "Prices rose 7.7% year on year.",
		Steps: []domain.StepResult{
			{Step: domain.StepHistorical, Status: domain.StepOK},
			{Step: domain.StepSimilarity, Status: domain.StepOK},
			{Step: domain.StepAnalysis, Status: domain.StepOK},
		},
	}
	if mode == domain.AnalysisModeRemote {
		result.Prediction = "Expect 4.4 USD next year."
		result.PredictionAvailable = true
	}
	return result, nil
}

func (m *mockAnalysisService) TestConnections(_ context.Context) (map[string]bool, error) {
	if m.status == nil {
		return map[string]bool{
			domain.ServiceLLM:           true,
			domain.ServiceDocumentStore: true,
			domain.ServiceVectorSearch:  true,
			domain.ServiceEmbedding:     true,
		}, nil
	}
	var err error
	for name, ok := range m.status {
		if !ok {
			err = errors.Join(err, errors.New(name+": unreachable"))
		}
	}
	return m.status, err
}

// mockSimilarityService records queries and returns one match.
type mockSimilarityService struct {
	queries []domain.SimilarityQuery
}

func (m *mockSimilarityService) FindSimilar(_ context.Context, q domain.SimilarityQuery) domain.SimilarityResult {
	m.queries = append(m.queries, q)
	product := domain.SimilarProduct{Code: "0901", ProductName: "Coffee", Similarity: 81.5, Markets: []string{"Japan"}}
	return domain.SimilarityResult{
		Products: []domain.SimilarProduct{product},
		Historical: []domain.SimilarHistoricalRecord{{
			SimilarProduct: product,
			Records:        []domain.HistoricalRecord{{Year: "2023", Price: 6.1, Currency: "USD"}},
		}},
		Path: domain.SimilarityPathVector,
	}
}

// mockHistoricalService serves prices from a map keyed by "code/market".
type mockHistoricalService struct {
	records  map[string][]domain.HistoricalRecord
	markets  map[string][]string
	imported [][]domain.HistoricalSeed
	err      error
}

func newMockHistoricalService() *mockHistoricalService {
	return &mockHistoricalService{
		records: map[string][]domain.HistoricalRecord{
			"0902/Japan": {
				{Year: "2023", Price: 4.2, Currency: "USD"},
				{Year: "2022", Price: 3.9, Currency: "USD"},
			},
		},
		markets: map[string][]string{"0902": {"Japan", "United States"}},
	}
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
	if m.err != nil {
		return 0, m.err
	}
	m.imported = append(m.imported, seeds)
	return len(seeds), nil
}

// mockSettingsService keeps settings in memory.
type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetAnalysisMode(mode domain.AnalysisMode) error {
	m.settings.Analysis.Mode = mode
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.Embedding.Provider = provider
	m.settings.Embedding.Model = model
	m.settings.Embedding.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.LLM.Provider = provider
	m.settings.LLM.Model = model
	m.settings.LLM.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return nil }

func (m *mockSettingsService) ValidateLLMConfig() error { return nil }
