package driving

import (
	"context"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

// AnalysisService runs the full retrieval and analysis pipeline.
type AnalysisService interface {
	// Analyze fetches historical prices, retrieves similar products and
	// dispatches the assembled context to the configured analyzer.
	// Historical lookup errors (ErrCodeNotFound, ErrMarketNotFound,
	// ErrNoValidRecords) and remote analysis failures are returned.
	// Prediction failures are not: they yield a placeholder.
	Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error)

	// TestConnections probes each external service and reports per-service
	// reachability. Failed probes are also returned as a joined error.
	TestConnections(ctx context.Context) (map[string]bool, error)
}
