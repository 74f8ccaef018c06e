package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
	"github.com/custodia-labs/hsnlens/internal/core/ports/driven"
)

// Ensure HistoricalStore implements the interface.
var _ driven.HistoricalStore = (*HistoricalStore)(nil)

// HistoricalStore is an in-memory implementation of driven.HistoricalStore.
type HistoricalStore struct {
	mu   sync.RWMutex
	rows map[string]*domain.HistoricalRow
}

// NewHistoricalStore creates a new in-memory historical store.
func NewHistoricalStore() *HistoricalStore {
	return &HistoricalStore{
		rows: make(map[string]*domain.HistoricalRow),
	}
}

// GetRow returns a copy of the row for code.
func (s *HistoricalStore) GetRow(_ context.Context, code string) (*domain.HistoricalRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *row
	cp.Markets = make(map[string]string, len(row.Markets))
	for market, cell := range row.Markets {
		cp.Markets[market] = cell
	}
	return &cp, nil
}

// UpsertCell writes one market cell, creating the row when needed.
// An empty cell removes the market.
func (s *HistoricalStore) UpsertCell(_ context.Context, code, productName, market, cell string) error {
	column := domain.MarketColumn(market)
	if code == "" || column == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[code]
	if !ok {
		row = &domain.HistoricalRow{Code: code, Markets: make(map[string]string)}
		s.rows[code] = row
	}
	if productName != "" {
		row.ProductName = productName
	}
	if strings.TrimSpace(cell) == "" {
		delete(row.Markets, column)
	} else {
		row.Markets[column] = cell
	}
	row.UpdatedAt = time.Now().UTC()
	return nil
}

// ListCodes returns every stored code, sorted.
func (s *HistoricalStore) ListCodes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]string, 0, len(s.rows))
	for code := range s.rows {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}
