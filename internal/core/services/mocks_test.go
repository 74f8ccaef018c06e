package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
	"github.com/custodia-labs/hsnlens/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Errors in errs are returned in order before falling back to embedding.
type mockEmbeddingService struct {
	mu        sync.Mutex
	embedding []float32
	errs      []error
	embedErr  error
	pingErr   error
	calls     int
	texts     []string
}

func newMockEmbedding(dims int) *mockEmbeddingService {
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = 0.1
	}
	return &mockEmbeddingService{embedding: vec}
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.texts = append(m.texts, text)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.embedding, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return len(m.embedding)
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embedding"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return m.pingErr
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// mockLLMService implements driven.LLMService for testing.
// Responses are returned in order; a nil error slot means success.
type mockLLMService struct {
	responses []string
	errs      []error
	pingErr   error
	calls     [][]driven.ChatMessage
}

func (m *mockLLMService) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	idx := len(m.calls)
	m.calls = append(m.calls, messages)
	if idx < len(m.errs) && m.errs[idx] != nil {
		return "", m.errs[idx]
	}
	if idx < len(m.responses) {
		return m.responses[idx], nil
	}
	return "", nil
}

func (m *mockLLMService) ModelName() string {
	return "mock-llm"
}

func (m *mockLLMService) Ping(_ context.Context) error {
	return m.pingErr
}

func (m *mockLLMService) Close() error {
	return nil
}

// mockSearcher implements driven.NearestNeighborSearcher for testing.
type mockSearcher struct {
	matches   []driven.DocumentMatch
	err       error
	threshold float64
	count     int
}

func (m *mockSearcher) MatchDocuments(_ context.Context, _ []float32, threshold float64, count int) ([]driven.DocumentMatch, error) {
	m.threshold = threshold
	m.count = count
	if m.err != nil {
		return nil, m.err
	}
	if count < len(m.matches) {
		return m.matches[:count], nil
	}
	return m.matches, nil
}

// storeSearcher matches every document held by a mockDocumentStore.
type storeSearcher struct {
	store *mockDocumentStore
}

func (s *storeSearcher) MatchDocuments(_ context.Context, _ []float32, _ float64, count int) ([]driven.DocumentMatch, error) {
	var out []driven.DocumentMatch
	for _, doc := range s.store.docs {
		if len(out) == count {
			break
		}
		out = append(out, driven.DocumentMatch{Document: *doc, Similarity: 1})
	}
	return out, nil
}

// mockDocumentStore implements driven.DocumentStore with injectable errors.
type mockDocumentStore struct {
	docs      map[domain.DocumentKey]*domain.Document
	getErr    error
	insertErr error
	updateErr error
	listErr   error
	countErr  error
}

func newMockDocumentStore() *mockDocumentStore {
	return &mockDocumentStore{docs: make(map[domain.DocumentKey]*domain.Document)}
}

func (m *mockDocumentStore) GetByKey(_ context.Context, key domain.DocumentKey) (*domain.Document, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	doc, ok := m.docs[key.Normalize()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *mockDocumentStore) Insert(_ context.Context, doc *domain.Document) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	cp := *doc
	m.docs[doc.Key()] = &cp
	return nil
}

func (m *mockDocumentStore) Update(_ context.Context, doc *domain.Document) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.docs[doc.Key()]; !ok {
		return domain.ErrNotFound
	}
	cp := *doc
	m.docs[doc.Key()] = &cp
	return nil
}

func (m *mockDocumentStore) ListByType(_ context.Context, docType domain.DocumentType) ([]domain.Document, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Document
	for _, doc := range m.docs {
		if doc.Metadata.Type == docType {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (m *mockDocumentStore) Count(_ context.Context) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return len(m.docs), nil
}

// mockHistoricalStore implements driven.HistoricalStore for testing.
type mockHistoricalStore struct {
	rows   map[string]*domain.HistoricalRow
	getErr error
}

func newMockHistoricalStore() *mockHistoricalStore {
	return &mockHistoricalStore{rows: make(map[string]*domain.HistoricalRow)}
}

func (m *mockHistoricalStore) GetRow(_ context.Context, code string) (*domain.HistoricalRow, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	row, ok := m.rows[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return row, nil
}

func (m *mockHistoricalStore) UpsertCell(_ context.Context, code, productName, market, cell string) error {
	row, ok := m.rows[code]
	if !ok {
		row = &domain.HistoricalRow{Code: code, Markets: make(map[string]string)}
		m.rows[code] = row
	}
	if productName != "" {
		row.ProductName = productName
	}
	row.Markets[domain.MarketColumn(market)] = cell
	return nil
}

func (m *mockHistoricalStore) ListCodes(_ context.Context) ([]string, error) {
	codes := make([]string, 0, len(m.rows))
	for code := range m.rows {
		codes = append(codes, code)
	}
	return codes, nil
}

// historicalDoc builds a stored document for similarity tests.
func historicalDoc(code, name, market string, records ...domain.HistoricalRecord) domain.Document {
	meta := domain.NewDocumentMetadata(name, code, market, records)
	return domain.Document{
		ID:        code + "-" + market,
		Code:      code,
		Market:    market,
		Content:   RenderDocumentText(name, code, market, records),
		Embedding: []float32{0.1, 0.1, 0.1, 0.1},
		Metadata:  meta,
	}
}

// noSleep replaces the embedder's backoff and records requested delays.
type noSleep struct {
	delays []time.Duration
}

func (n *noSleep) sleep(_ context.Context, d time.Duration) error {
	n.delays = append(n.delays, d)
	return nil
}
