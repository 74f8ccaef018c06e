// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentStore: Embedded document persistence keyed by (code, market)
//   - HistoricalStore: Wide historical-price table, one column per market
//   - EmbeddingService: Generates vector embeddings
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - NearestNeighborSearcher: Vector ranking over documents. Without it,
//     similarity search uses the keyword fallback.
//   - LLMService: Generative model. Without it, only local analysis works.
//   - PromptStore: Custom prompt templates. Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
