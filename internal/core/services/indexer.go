package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
	"github.com/custodia-labs/hsnlens/internal/core/ports/driven"
	"github.com/custodia-labs/hsnlens/internal/logger"
)

// DocumentIndexer keeps one embedded document per (code, market column).
type DocumentIndexer struct {
	store    driven.DocumentStore
	embedder driven.EmbeddingService
	now      func() time.Time
	newID    func() string
}

// NewDocumentIndexer creates a document indexer.
func NewDocumentIndexer(store driven.DocumentStore, embedder driven.EmbeddingService) *DocumentIndexer {
	return &DocumentIndexer{
		store:    store,
		embedder: embedder,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// UpsertDocument renders, embeds and stores the product's records. An
// existing document for the same key is updated in place. Empty records
// are a no-op.
func (i *DocumentIndexer) UpsertDocument(
	ctx context.Context,
	productName, code, market string,
	records []domain.HistoricalRecord,
) error {
	if len(records) == 0 {
		logger.Debug("No records for %s/%s, skipping document upsert", code, market)
		return nil
	}

	content := RenderDocumentText(productName, code, market, records)
	embedding, err := i.embedder.Embed(ctx, content)
	if err != nil {
		return err
	}

	key := domain.NewDocumentKey(code, market)
	meta := domain.NewDocumentMetadata(productName, code, market, records)

	existing, err := i.store.GetByKey(ctx, key)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		now := i.now()
		meta.CreatedAt = now
		meta.UpdatedAt = now
		doc := &domain.Document{
			ID:        i.newID(),
			Code:      key.Code,
			Market:    key.Market,
			Content:   content,
			Embedding: embedding,
			Metadata:  meta,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := i.store.Insert(ctx, doc); err != nil {
			return fmt.Errorf("%w: inserting %s: %w", domain.ErrDocumentStore, key, err)
		}
		logger.Debug("Inserted document %s for %s", doc.ID, key)
		return nil

	case err != nil:
		return fmt.Errorf("%w: looking up %s: %w", domain.ErrDocumentStore, key, err)
	}

	now := i.now()
	if !now.After(existing.UpdatedAt) {
		now = existing.UpdatedAt.Add(time.Microsecond)
	}
	meta.CreatedAt = existing.CreatedAt
	meta.UpdatedAt = now

	existing.Content = content
	existing.Embedding = embedding
	existing.Metadata = meta
	existing.UpdatedAt = now
	if err := i.store.Update(ctx, existing); err != nil {
		return fmt.Errorf("%w: updating %s: %w", domain.ErrDocumentStore, key, err)
	}
	logger.Debug("Updated document %s for %s", existing.ID, key)
	return nil
}
