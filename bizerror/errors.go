package bizerror

import (
	"errors"
	"fmt"

	"changeportal/domain"
)

var (
	ErrTransient          = errors.New("transient store failure")
	ErrAuthRequired       = errors.New("authentication required")
	ErrValidationRejected = errors.New("request rejected by store")
	ErrNotFound           = errors.New("not found")
	ErrIllegalTransition  = errors.New("illegal transition")
	ErrRetriesExhausted   = errors.New("retries exhausted")

	ErrUnauthenticated = errors.New("unauthenticated")
)

// ErrStoreResponse is a failed store call; Unwrap yields the class sentinel.
type ErrStoreResponse struct {
	Method     string
	Path       string
	StatusCode int
	Body       string

	Cause error
}

func (e *ErrStoreResponse) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("store %s %s failed: %v", e.Method, e.Path, e.Cause)
	}
	return fmt.Sprintf("store %s %s responded %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (e *ErrStoreResponse) Unwrap() error {
	return e.Cause
}

type ErrRetries struct {
	Attempts int
	Last     error
}

func (e *ErrRetries) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ErrRetries) Is(target error) bool {
	return target == ErrRetriesExhausted
}

func (e *ErrRetries) Unwrap() error {
	return e.Last
}

type ErrTransition struct {
	From domain.Status
	To   domain.Status
}

func (e *ErrTransition) Error() string {
	return "transition from " + string(e.From) + " to " + string(e.To) + " is not allowed"
}

func (e *ErrTransition) Unwrap() error {
	return ErrIllegalTransition
}

func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient) && !errors.Is(err, ErrRetriesExhausted)
}

type Reason string

const (
	ReasonAuthRequired       Reason = "auth_required"
	ReasonNotFound           Reason = "not_found"
	ReasonValidationRejected Reason = "validation_rejected"
	ReasonRetriesExhausted   Reason = "retries_exhausted"
	ReasonTransient          Reason = "transient"
	ReasonIllegalTransition  Reason = "illegal_transition"
	ReasonUnknown            Reason = "unknown"
)

// Classify maps an error to the user facing failure reason, most specific class first.
func Classify(err error) Reason {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrIllegalTransition):
		return ReasonIllegalTransition
	case errors.Is(err, ErrAuthRequired):
		return ReasonAuthRequired
	case errors.Is(err, ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, ErrValidationRejected):
		return ReasonValidationRejected
	case errors.Is(err, ErrRetriesExhausted):
		return ReasonRetriesExhausted
	case errors.Is(err, ErrTransient):
		return ReasonTransient
	}
	return ReasonUnknown
}
