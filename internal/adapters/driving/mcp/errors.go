// Package mcp provides an MCP (Model Context Protocol) server adapter for hsnlens.
// It lets AI assistants run tariff price analysis and similarity lookups.
package mcp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

// ErrMissingAnalysisService is returned when the analysis service is not provided.
var ErrMissingAnalysisService = errors.New("mcp: analysis service is required")

// errServiceUnavailable is returned by tools whose optional port is not wired.
var errServiceUnavailable = errors.New("mcp: service not available")

// toolError prefixes err with its error class and the next step, so the
// assistant can tell bad input from an outage or a misconfiguration.
// The result still unwraps to err.
func toolError(tool string, err error) error {
	switch class := domain.Classify(err); class {
	case domain.ErrorClassNoData:
		next := "ask for a different hsn_code or market"
		var marketErr *domain.MarketNotFoundError
		if errors.As(err, &marketErr) && len(marketErr.Available) > 0 {
			next = "markets with data: " + strings.Join(marketErr.Available, ", ")
		}
		return fmt.Errorf("%s [%s; %s]: %w", tool, class, next, err)
	case domain.ErrorClassRetryable:
		return fmt.Errorf("%s [%s; try again later]: %w", tool, class, err)
	case domain.ErrorClassFatal:
		return fmt.Errorf("%s [%s; the hsnlens configuration must be fixed by an operator]: %w", tool, class, err)
	default:
		return fmt.Errorf("%s: %w", tool, err)
	}
}
