package pipeline

import "fmt"

// ConfigurationError is fatal and pre-flight: the run cannot start at all.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// ValidationError rejects a single raw quote during transformation. The row
// is dropped and recorded; the run continues.
type ValidationError struct {
	Symbol string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid quote for %s: %s", e.Symbol, e.Reason)
}

// FatalPersistenceError means the store itself is unreachable, as opposed to
// a per-row constraint failure. It aborts the run.
type FatalPersistenceError struct {
	Err error
}

func (e *FatalPersistenceError) Error() string {
	return "store unreachable: " + e.Err.Error()
}

func (e *FatalPersistenceError) Unwrap() error { return e.Err }

// Error kinds used to tag entries in a run summary.
const (
	KindConfiguration    = "configuration"
	KindTransientFetch   = "transient_fetch"
	KindPermanentFetch   = "permanent_fetch"
	KindValidation       = "validation"
	KindRowPersistence   = "row_persistence"
	KindFatalPersistence = "fatal_persistence"
)
