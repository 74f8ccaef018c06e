package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
	"github.com/custodia-labs/hsnlens/internal/core/ports/driven"
	"github.com/custodia-labs/hsnlens/internal/logger"
)

// DocumentStore implements driven.DocumentStore and
// driven.NearestNeighborSearcher over the documents table.
type DocumentStore struct {
	store *Store
}

var (
	_ driven.DocumentStore           = (*DocumentStore)(nil)
	_ driven.NearestNeighborSearcher = (*DocumentStore)(nil)
)

const documentColumns = `id, hsn_code, market, content, embedding, metadata, created_at, updated_at`

// GetByKey retrieves the document for a (code, market) key.
func (s *DocumentStore) GetByKey(ctx context.Context, key domain.DocumentKey) (*domain.Document, error) {
	key = key.Normalize()
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE hsn_code = ? AND market = ?`,
		key.Code, key.Market)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Insert stores a new document.
func (s *DocumentStore) Insert(ctx context.Context, doc *domain.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	key := doc.Key()
	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, hsn_code, market, doc_type, content, embedding, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, key.Code, key.Market, string(doc.Metadata.Type), doc.Content,
		float32SliceToBytes(doc.Embedding), string(metadataJSON), doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	return nil
}

// Update replaces content, embedding, metadata and updated_at by id.
func (s *DocumentStore) Update(ctx context.Context, doc *domain.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents
		SET doc_type = ?, content = ?, embedding = ?, metadata = ?, updated_at = ?
		WHERE id = ?
	`, string(doc.Metadata.Type), doc.Content, float32SliceToBytes(doc.Embedding),
		string(metadataJSON), doc.UpdatedAt, doc.ID)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByType returns documents of the given type, ordered by key.
// Rows whose metadata does not decode are skipped.
func (s *DocumentStore) ListByType(ctx context.Context, docType domain.DocumentType) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE doc_type = ? ORDER BY hsn_code, market`,
		string(docType))
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			logger.Warn("Skipping unreadable document: %v", err)
			continue
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// Count returns the number of stored documents.
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// MatchDocuments ranks every document with an embedding by cosine
// similarity against query.
func (s *DocumentStore) MatchDocuments(
	ctx context.Context,
	query []float32,
	threshold float64,
	count int,
) ([]driven.DocumentMatch, error) {
	if count <= 0 {
		return []driven.DocumentMatch{}, nil
	}

	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	var matches []driven.DocumentMatch
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			logger.Warn("Skipping unreadable document: %v", err)
			continue
		}
		sim := domain.CosineSimilarity(query, doc.Embedding)
		if sim < threshold {
			continue
		}
		matches = append(matches, driven.DocumentMatch{Document: *doc, Similarity: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
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

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument scans one document row and validates its metadata.
func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var embedding []byte
	var metadataJSON string

	if err := row.Scan(&doc.ID, &doc.Code, &doc.Market, &doc.Content, &embedding,
		&metadataJSON, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata of %s: %w", doc.ID, err)
	}
	if err := doc.Metadata.Validate(); err != nil {
		return nil, fmt.Errorf("metadata of %s: %w", doc.ID, err)
	}
	doc.Embedding = bytesToFloat32Slice(embedding)
	return &doc, nil
}
