package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity with the same identity exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration indicates missing credentials or a model that does not
	// match the configured dimensions. Requires operator intervention.
	ErrConfiguration = errors.New("configuration error")

	// Historical Lookup Errors.

	// ErrCodeNotFound indicates no historical row exists for the classification code.
	ErrCodeNotFound = errors.New("classification code not found")

	// ErrMarketNotFound indicates the code exists but has no data for the market.
	ErrMarketNotFound = errors.New("market not found for classification code")

	// ErrNoValidRecords indicates the market column exists but holds no usable prices.
	ErrNoValidRecords = errors.New("no valid historical records")

	// Service Errors.

	// ErrEmbeddingUnavailable indicates the embedding service could not produce a vector.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrDocumentStore indicates a document upsert or query failed.
	ErrDocumentStore = errors.New("document store error")

	// ErrAnalysisService indicates the remote analysis call failed.
	ErrAnalysisService = errors.New("analysis service error")

	// ErrPredictionUnavailable indicates the remote prediction call failed.
	// Never fatal: callers substitute PredictionPlaceholder.
	ErrPredictionUnavailable = errors.New("prediction unavailable")
)

// MarketNotFoundError carries the markets that do exist for a code so the
// caller can suggest alternatives. It matches ErrMarketNotFound with errors.Is.
type MarketNotFoundError struct {
	Code      string
	Market    string
	Available []string
}

// Error implements the error interface.
func (e *MarketNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("%s: %s has no data for %s", ErrMarketNotFound, e.Code, e.Market)
	}
	return fmt.Sprintf("%s: %s has no data for %s (available: %s)",
		ErrMarketNotFound, e.Code, e.Market, strings.Join(e.Available, ", "))
}

// Unwrap returns the sentinel so errors.Is(err, ErrMarketNotFound) holds.
func (e *MarketNotFoundError) Unwrap() error {
	return ErrMarketNotFound
}

// ErrorClass is the user-visible category of a pipeline failure.
type ErrorClass int

const (
	// ErrorClassUnknown is any error outside the domain taxonomy.
	ErrorClassUnknown ErrorClass = iota

	// ErrorClassNoData means there is no data for this input. The caller
	// should prompt for a different code or market.
	ErrorClassNoData

	// ErrorClassRetryable means a service is temporarily unavailable.
	ErrorClassRetryable

	// ErrorClassFatal is a misconfiguration that needs operator
	// intervention.
	ErrorClassFatal
)

// String returns the class name.
func (c ErrorClass) String() string {
	switch c {
	case ErrorClassNoData:
		return "no_data"
	case ErrorClassRetryable:
		return "retryable"
	case ErrorClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Classify maps err to exactly one class. Misconfiguration wins over the
// other classes, so an error wrapping both ErrConfiguration and a service
// sentinel is fatal.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ErrorClassUnknown
	case errors.Is(err, ErrConfiguration):
		return ErrorClassFatal
	case errors.Is(err, ErrCodeNotFound),
		errors.Is(err, ErrMarketNotFound),
		errors.Is(err, ErrNoValidRecords),
		errors.Is(err, ErrPredictionUnavailable):
		return ErrorClassNoData
	case errors.Is(err, ErrEmbeddingUnavailable),
		errors.Is(err, ErrDocumentStore),
		errors.Is(err, ErrAnalysisService),
		errors.Is(err, ErrLLMUnavailable):
		return ErrorClassRetryable
	default:
		return ErrorClassUnknown
	}
}

// IsRecoverable reports whether err means "no data for this input".
// The caller should prompt for a different code or market.
func IsRecoverable(err error) bool {
	return Classify(err) == ErrorClassNoData
}

// IsRetryable reports whether err means a service is temporarily unavailable.
func IsRetryable(err error) bool {
	return Classify(err) == ErrorClassRetryable
}

// IsFatal reports whether err is a misconfiguration that retrying will not fix.
func IsFatal(err error) bool {
	return Classify(err) == ErrorClassFatal
}
