// Package domain defines the core business entities for hsnlens.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - HistoricalRecord: One (year, price, currency) observation
//   - Document: A searchable embedded rendering of a product's prices
//   - SimilarProduct: A product ranked against the one being analysed
//   - AnalysisContext: Everything assembled for a single analysis
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
