package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/hsnlens/internal/core/domain"
)

// hintedError prefixes a failure with what was being done and appends the
// next step for the user. It unwraps to the original error.
type hintedError struct {
	action string
	err    error
	hint   string
}

func (e *hintedError) Error() string {
	if e.hint == "" {
		return fmt.Sprintf("%s: %v", e.action, e.err)
	}
	return fmt.Sprintf("%s: %v\nhint: %s", e.action, e.err, e.hint)
}

func (e *hintedError) Unwrap() error {
	return e.err
}

// withHint wraps err with a hint chosen by its error class.
func withHint(action string, err error) error {
	if err == nil {
		return nil
	}
	return &hintedError{action: action, err: err, hint: failureHint(err)}
}

// failureHint tells the user what to do next for each class of failure.
func failureHint(err error) string {
	switch {
	case domain.IsRecoverable(err):
		return noDataHint(err)
	case domain.IsRetryable(err):
		return "a service is temporarily unavailable; try again shortly " +
			"or run 'hsnlens test-connections'"
	case domain.IsFatal(err):
		return "configuration needs fixing before any analysis can run; " +
			"see 'hsnlens settings' and the HSNLENS_* API key variables"
	default:
		return ""
	}
}

func noDataHint(err error) string {
	var marketErr *domain.MarketNotFoundError
	if errors.As(err, &marketErr) {
		if len(marketErr.Available) == 0 {
			return fmt.Sprintf("no markets have prices for %s; import them with 'hsnlens import'", marketErr.Code)
		}
		return fmt.Sprintf("try one of the markets with data for %s: %s",
			marketErr.Code, strings.Join(marketErr.Available, ", "))
	}
	if errors.Is(err, domain.ErrCodeNotFound) {
		return "check the HSN code, or import its prices with 'hsnlens import'"
	}
	return "no usable prices for this input; try another code or market " +
		"('hsnlens markets <hsn-code>' lists them)"
}
