package contracts

import (
	"errors"
	"fmt"
)

// ⭐ SSOT: 수집 파이프라인의 에러 분류는 여기서만

// TransientFetchError means retries were exhausted on a retryable failure
type TransientFetchError struct {
	Operation string
	Symbol    string
	Attempts  int
	Err       error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("%s %s: transient failure after %d attempts: %v", e.Operation, e.Symbol, e.Attempts, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// QuotaExceededError means the provider refused the call for budget reasons.
// Never retried automatically.
type QuotaExceededError struct {
	Operation string
	Symbol    string
	Message   string
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s %s: provider quota exceeded: %s", e.Operation, e.Symbol, e.Message)
}

// ProviderError is a provider-reported failure such as an unknown symbol
type ProviderError struct {
	Operation string
	Symbol    string
	Message   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: provider error: %s", e.Operation, e.Symbol, e.Message)
}

// MalformedBarError reports one bar dropped during normalization
type MalformedBarError struct {
	Symbol string
	Date   string
	Field  string
	Reason string
}

func (e *MalformedBarError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s %s: malformed bar: %s", e.Symbol, e.Date, e.Reason)
	}
	return fmt.Sprintf("%s %s: malformed bar field %q: %s", e.Symbol, e.Date, e.Field, e.Reason)
}

// IsQuotaExceeded reports whether err carries a QuotaExceededError
func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}

// IsTransient reports whether err carries a TransientFetchError
func IsTransient(err error) bool {
	var te *TransientFetchError
	return errors.As(err, &te)
}
