// Package sqlite provides a SQLite-based implementation of the storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - DocumentStore: Embedded document persistence, one document per (code, market)
//   - NearestNeighborSearcher: Cosine ranking over stored embeddings
//   - HistoricalStore: The wide historical-price table, one column per market
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Market columns of the historical table are added at
// runtime as new markets are imported.
//
// # Data Location
//
// By default, the database is stored at ~/.hsnlens/data/hsnlens.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
