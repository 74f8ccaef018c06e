package mcp

import (
	"github.com/custodia-labs/hsnlens/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Analysis runs the full pipeline.
	Analysis driving.AnalysisService

	// Similarity finds similar products on its own. Optional.
	Similarity driving.SimilarityService

	// Historical looks up price records and markets. Optional.
	Historical driving.HistoricalService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Analysis == nil {
		return ErrMissingAnalysisService
	}
	return nil
}
