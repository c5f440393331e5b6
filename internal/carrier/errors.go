package carrier

import (
	"errors"
	"fmt"
)

// ErrCarrierAuth indicates the carrier rejected our API key (HTTP 401/403).
// Never retried: the key will not fix itself between attempts. The gateway
// degrades to a fallback waybill and the condition is logged as a
// configuration alert.
var ErrCarrierAuth = errors.New("carrier authentication failed")

// ValidationError reports a pre-flight request defect caught before any
// network call. Terminal: surfaced to the caller, never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid booking request: %s %s", e.Field, e.Reason)
}

// BadRequestError reports an HTTP 400 from the carrier: the carrier accepted
// the connection but judged our payload malformed. Terminal and surfaced,
// because retrying the same payload cannot succeed.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("carrier rejected request: %s", e.Message)
}

// transientError wraps failures worth retrying: timeouts, 5xx responses,
// malformed response bodies, missing waybill fields.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func transientf(format string, args ...any) error {
	return &transientError{err: fmt.Errorf(format, args...)}
}

// isTerminal reports whether an attempt error must not be retried.
func isTerminal(err error) bool {
	var badReq *BadRequestError
	return errors.Is(err, ErrCarrierAuth) || errors.As(err, &badReq)
}
