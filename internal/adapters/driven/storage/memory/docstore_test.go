package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

func newDoc(id, code, market string, embedding ...float32) *domain.Document {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []domain.HistoricalRecord{{Year: "2024", Price: 10, Currency: "USD"}}
	return &domain.Document{
		ID:        id,
		Code:      code,
		Market:    market,
		Content:   "Product: " + code,
		Embedding: embedding,
		Metadata:  domain.NewDocumentMetadata(code, code, market, records),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestDocumentStore_InsertAndGetByKey(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newDoc("doc-1", "0902", "Japan", 1, 0)))

	got, err := store.GetByKey(ctx, domain.DocumentKey{Code: "0902", Market: "Japan"})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.ID)
	assert.Equal(t, []float32{1, 0}, got.Embedding)

	_, err = store.GetByKey(ctx, domain.DocumentKey{Code: "0902", Market: "China"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_Insert_DuplicateKey(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, newDoc("doc-1", "0902", "Japan", 1)))

	err := store.Insert(ctx, newDoc("doc-2", "0902", "Japan", 1))

	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestDocumentStore_MarketSpellingsShareKey(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, newDoc("doc-1", "0902", "United States", 1)))

	got, err := store.GetByKey(ctx, domain.DocumentKey{Code: "0902", Market: "united states"})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.ID)
	assert.Equal(t, "united_states", got.Market)

	err = store.Insert(ctx, newDoc("doc-2", "0902", "UNITED-STATES", 1))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestDocumentStore_Insert_RequiresID(t *testing.T) {
	err := NewDocumentStore().Insert(context.Background(), newDoc("", "0902", "Japan", 1))

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentStore_Update(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	original := newDoc("doc-1", "0902", "Japan", 1, 0)
	require.NoError(t, store.Insert(ctx, original))

	changed := newDoc("doc-1", "0902", "Japan", 0, 1)
	changed.Content = "updated"
	changed.CreatedAt = time.Time{}
	changed.UpdatedAt = original.UpdatedAt.Add(time.Hour)
	require.NoError(t, store.Update(ctx, changed))

	got, err := store.GetByKey(ctx, original.Key())
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Content)
	assert.Equal(t, []float32{0, 1}, got.Embedding)
	assert.Equal(t, original.CreatedAt, got.CreatedAt)
	assert.Equal(t, changed.UpdatedAt, got.UpdatedAt)

	assert.ErrorIs(t, store.Update(ctx, newDoc("missing", "1", "x")), domain.ErrNotFound)
}

func TestDocumentStore_StoresCopies(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	doc := newDoc("doc-1", "0902", "Japan", 1, 0)
	require.NoError(t, store.Insert(ctx, doc))

	doc.Embedding[0] = 99
	doc.Metadata.Prices["2024"] = 99

	got, err := store.GetByKey(ctx, doc.Key())
	require.NoError(t, err)
	assert.Equal(t, float32(1), got.Embedding[0])
	assert.Equal(t, 10.0, got.Metadata.Prices["2024"])
}

func TestDocumentStore_ListByTypeAndCount(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, newDoc("b", "0903", "Japan", 1)))
	require.NoError(t, store.Insert(ctx, newDoc("a", "0902", "Japan", 1)))
	other := newDoc("c", "0904", "Japan", 1)
	other.Metadata.Type = "note"
	require.NoError(t, store.Insert(ctx, other))

	docs, err := store.ListByType(ctx, domain.DocumentTypeHistorical)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "0902", docs[0].Code)
	assert.Equal(t, "0903", docs[1].Code)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestDocumentStore_MatchDocuments(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, newDoc("same", "0902", "Japan", 1, 0)))
	require.NoError(t, store.Insert(ctx, newDoc("close", "0903", "Japan", 1, 1)))
	require.NoError(t, store.Insert(ctx, newDoc("orthogonal", "7318", "Japan", 0, 1)))
	require.NoError(t, store.Insert(ctx, newDoc("opposite", "0000", "Japan", -1, 0)))

	matches, err := store.MatchDocuments(ctx, []float32{1, 0}, 0.3, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "same", matches[0].Document.ID)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-9)
	assert.Equal(t, "close", matches[1].Document.ID)
	assert.InDelta(t, 0.7071, matches[1].Similarity, 1e-3)

	matches, err = store.MatchDocuments(ctx, []float32{1, 0}, -1, 1)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	matches, err = store.MatchDocuments(ctx, []float32{1, 0}, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestDocumentStore_Concurrency(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("doc-%d", i)
			_ = store.Insert(ctx, newDoc(id, id, "Japan", 1, float32(i)))
			_, _ = store.MatchDocuments(ctx, []float32{1, 0}, 0, 5)
		}(i)
	}
	wg.Wait()

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, count)
}
