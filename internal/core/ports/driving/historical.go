package driving

import (
	"context"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

// HistoricalService resolves classification codes and markets to price records.
type HistoricalService interface {
	// FetchHistoricalData returns at most five records, newest first, all
	// with positive prices.
	FetchHistoricalData(ctx context.Context, code, market string) ([]domain.HistoricalRecord, error)

	// ListAvailableMarkets returns the markets with data for a code.
	// Errors yield an empty list.
	ListAvailableMarkets(ctx context.Context, code string) []string

	// ImportRecords writes seed records into the historical store and
	// returns how many (code, market) cells were written.
	ImportRecords(ctx context.Context, seeds []domain.HistoricalSeed) (int, error)
}
