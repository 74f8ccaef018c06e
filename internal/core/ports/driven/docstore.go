package driven

import (
	"context"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

// DocumentStore persists embedded documents, at most one per (code, market).
type DocumentStore interface {
	// GetByKey returns the document for the key.
	// Returns domain.ErrNotFound when none exists.
	GetByKey(ctx context.Context, key domain.DocumentKey) (*domain.Document, error)

	// Insert stores a new document. The ID must be set by the caller.
	Insert(ctx context.Context, doc *domain.Document) error

	// Update replaces content, embedding, metadata and UpdatedAt of the
	// document with doc.ID. Returns domain.ErrNotFound if the ID is unknown.
	Update(ctx context.Context, doc *domain.Document) error

	// ListByType returns every document whose metadata type matches.
	// Documents whose metadata does not decode are skipped.
	ListByType(ctx context.Context, docType domain.DocumentType) ([]domain.Document, error)

	// Count returns the number of stored documents. Used as the basic
	// connectivity probe.
	Count(ctx context.Context) (int, error)
}

// DocumentMatch is one nearest-neighbour candidate.
type DocumentMatch struct {
	// Document is the matched document.
	Document domain.Document

	// Similarity is the raw cosine similarity in [-1, 1].
	Similarity float64
}

// NearestNeighborSearcher ranks stored documents against a query vector.
// This is optional; without it similarity search uses the keyword fallback.
type NearestNeighborSearcher interface {
	// MatchDocuments returns up to count documents whose similarity is at
	// least threshold, ordered by descending similarity.
	MatchDocuments(ctx context.Context, query []float32, threshold float64, count int) ([]DocumentMatch, error)
}
