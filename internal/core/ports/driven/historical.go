package driven

import (
	"context"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

// HistoricalStore reads and writes the wide historical-price table.
type HistoricalStore interface {
	// GetRow returns the row for a classification code with every non-null
	// market cell. Returns domain.ErrNotFound when the code has no row.
	GetRow(ctx context.Context, code string) (*domain.HistoricalRow, error)

	// UpsertCell writes one market cell for a code, creating the row or
	// the market column as needed.
	UpsertCell(ctx context.Context, code, productName, market, cell string) error

	// ListCodes returns every stored classification code.
	ListCodes(ctx context.Context) ([]string, error)
}
