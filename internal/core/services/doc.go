// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The analysis pipeline is assembled from:
//
//   - Embedder: validated, retrying wrapper around an EmbeddingService
//   - DocumentIndexer: upserts one embedded document per (code, market)
//   - HistoricalService: resolves code + market to price records
//   - SimilarityService: nearest-neighbour search with keyword fallback
//   - ContextAssembler: merges records and similarity lists
//   - AnalysisService: local or remote analysis plus prediction
//
// Services depend only on domain, the ports and the logger.
package services
