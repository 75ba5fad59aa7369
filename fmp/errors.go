package fmp

import "fmt"

// TransientError marks a symbol whose fetch kept failing on retryable
// conditions (network errors, timeouts, 5xx, 429) until the attempt budget
// ran out.
type TransientError struct {
	Symbol string
	Err    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient fetch error for %s: %v", e.Symbol, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a symbol the provider rejected outright: 4xx,
// authentication failure, unknown symbol or a malformed payload. Never
// retried.
type PermanentError struct {
	Symbol     string
	StatusCode int
	Reason     string
}

func (e *PermanentError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("permanent fetch error for %s (status %d): %s", e.Symbol, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("permanent fetch error for %s: %s", e.Symbol, e.Reason)
}
