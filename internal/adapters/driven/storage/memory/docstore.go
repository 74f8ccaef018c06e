package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
	"github.com/custodia-labs/hsnlens/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interfaces.
var (
	_ driven.DocumentStore           = (*DocumentStore)(nil)
	_ driven.NearestNeighborSearcher = (*DocumentStore)(nil)
)

// DocumentStore is an in-memory implementation of driven.DocumentStore
// with a brute-force nearest-neighbour search. Used for --ephemeral runs
// and tests.
type DocumentStore struct {
	mu    sync.RWMutex
	byID  map[string]*domain.Document
	byKey map[domain.DocumentKey]string
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		byID:  make(map[string]*domain.Document),
		byKey: make(map[domain.DocumentKey]string),
	}
}

// GetByKey retrieves the document for a (code, market) key.
func (s *DocumentStore) GetByKey(_ context.Context, key domain.DocumentKey) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[key.Normalize()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneDocument(s.byID[id]), nil
}

// Insert stores a new document.
func (s *DocumentStore) Insert(_ context.Context, doc *domain.Document) error {
	if doc.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := doc.Key()
	if _, exists := s.byKey[key]; exists {
		return domain.ErrAlreadyExists
	}
	stored := cloneDocument(doc)
	stored.Code, stored.Market = key.Code, key.Market
	s.byID[doc.ID] = stored
	s.byKey[key] = doc.ID
	return nil
}

// Update replaces an existing document's content, embedding and metadata.
func (s *DocumentStore) Update(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[doc.ID]
	if !ok {
		return domain.ErrNotFound
	}
	updated := cloneDocument(doc)
	updated.Code = existing.Code
	updated.Market = existing.Market
	updated.CreatedAt = existing.CreatedAt
	s.byID[doc.ID] = updated
	return nil
}

// ListByType returns documents whose metadata type matches, ordered by key.
func (s *DocumentStore) ListByType(_ context.Context, docType domain.DocumentType) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.byID))
	for _, doc := range s.byID {
		if doc.Metadata.Type == docType {
			docs = append(docs, *cloneDocument(doc))
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Key().String() < docs[j].Key().String()
	})
	return docs, nil
}

// Count returns the number of stored documents.
func (s *DocumentStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

// MatchDocuments ranks every stored document by cosine similarity.
func (s *DocumentStore) MatchDocuments(
	_ context.Context,
	query []float32,
	threshold float64,
	count int,
) ([]driven.DocumentMatch, error) {
	if count <= 0 {
		return []driven.DocumentMatch{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]driven.DocumentMatch, 0, len(s.byID))
	for _, doc := range s.byID {
		sim := domain.CosineSimilarity(query, doc.Embedding)
		if sim < threshold {
			continue
		}
		matches = append(matches, driven.DocumentMatch{Document: *cloneDocument(doc), Similarity: sim})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Document.ID < matches[j].Document.ID
	})
	if len(matches) > count {
		matches = matches[:count]
	}
	return matches, nil
}

func cloneDocument(doc *domain.Document) *domain.Document {
	cp := *doc
	cp.Embedding = append([]float32(nil), doc.Embedding...)
	cp.Metadata.Years = append([]string(nil), doc.Metadata.Years...)
	cp.Metadata.Prices = make(map[string]float64, len(doc.Metadata.Prices))
	for k, v := range doc.Metadata.Prices {
		cp.Metadata.Prices[k] = v
	}
	cp.Metadata.Currencies = make(map[string]string, len(doc.Metadata.Currencies))
	for k, v := range doc.Metadata.Currencies {
		cp.Metadata.Currencies[k] = v
	}
	return &cp
}
