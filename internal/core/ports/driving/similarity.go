package driving

import (
	"context"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

// SimilarityService finds products similar to the queried one.
type SimilarityService interface {
	// FindSimilar stores the queried product's document, then returns
	// similar products and similar historical records. It never fails:
	// any internal error yields an empty result.
	FindSimilar(ctx context.Context, query domain.SimilarityQuery) domain.SimilarityResult
}
