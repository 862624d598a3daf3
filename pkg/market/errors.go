package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnknownExchange indicates an exchange id with no configured adapter.
	ErrUnknownExchange = errors.New("market: unknown exchange")
	// ErrRegistryClosed is returned by Acquire after the registry shut down.
	ErrRegistryClosed = errors.New("market: registry closed")
	// ErrSymbolNotFound indicates an instrument the exchange does not list.
	ErrSymbolNotFound = errors.New("market: symbol not found")
	// ErrUnsupported is returned by adapters for operations outside their descriptor.
	ErrUnsupported = errors.New("market: operation not supported")
)

// CapabilityError reports a missing required capability. It is never retried.
type CapabilityError struct {
	Exchange   string
	Capability Capability
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("market: exchange %s does not support %s", e.Exchange, e.Capability)
}

// TransientFetchError wraps network, timeout and non-2xx failures of one task.
type TransientFetchError struct {
	Instrument InstrumentID
	Op         string
	Err        error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("market: %s %s: %v", e.Op, e.Instrument, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline.
func (e *TransientFetchError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// StatusError carries the HTTP status of a non-2xx upstream response.
type StatusError struct {
	Status int
	Err    error
}

func (e *StatusError) Error() string { return e.Err.Error() }

func (e *StatusError) Unwrap() error { return e.Err }

// ClientError reports a 4xx response other than 408 and 429. Repeating the
// same request cannot change the answer.
func (e *StatusError) ClientError() bool {
	switch e.Status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return e.Status >= 400 && e.Status < 500
}

// PartialDataWarning reports an optional field that could not be fetched.
// It is logged at warning level and never fails the task.
type PartialDataWarning struct {
	Instrument InstrumentID
	Field      string
	Err        error
}

func (e *PartialDataWarning) Error() string {
	return fmt.Sprintf("market: %s unavailable for %s: %v", e.Field, e.Instrument, e.Err)
}

func (e *PartialDataWarning) Unwrap() error { return e.Err }

// ValidationError is a caller-input error, surfaced as HTTP 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NewValidationError formats a ValidationError.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// InternalError is surfaced as HTTP 500 with Msg; Err is logged server-side only.
type InternalError struct {
	Msg string
	Err error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

// wrapFetch classifies an adapter error for one task.
func wrapFetch(id InstrumentID, op string, err error) error {
	if err == nil {
		return nil
	}
	var capErr *CapabilityError
	if errors.As(err, &capErr) {
		return err
	}
	var fetchErr *TransientFetchError
	if errors.As(err, &fetchErr) {
		return err
	}
	return &TransientFetchError{Instrument: id, Op: op, Err: err}
}
