package progression

import (
	"errors"
	"net/http"
)

// Kind is the machine-readable error category sent to clients.
type Kind string

const (
	KindUnauthenticated    Kind = "unauthenticated"
	KindInvalidAmount      Kind = "invalid_amount"
	KindInvalidQuestType   Kind = "invalid_quest_type"
	KindAlreadyCompleted   Kind = "already_completed"
	KindTransientFailure   Kind = "transient_failure"
	KindInvariantViolation Kind = "invariant_violation"
)

// Error is a typed progression error. Two errors match under errors.Is when
// their kinds are equal.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

var (
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated, Message: "authentication required"}
	ErrInvalidAmount      = &Error{Kind: KindInvalidAmount, Message: "invalid amount"}
	ErrInvalidQuestType   = &Error{Kind: KindInvalidQuestType, Message: "invalid quest type"}
	ErrAlreadyCompleted   = &Error{Kind: KindAlreadyCompleted, Message: "quest already completed for this period"}
	ErrTransientFailure   = &Error{Kind: KindTransientFailure, Message: "temporary failure, please retry"}
	ErrInvariantViolation = &Error{Kind: KindInvariantViolation, Message: "progression invariant violated"}
)

func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf classifies err. Anything that is not a progression error is
// reported as a transient failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransientFailure
}

// HTTPStatus maps a kind onto the status code used by the API.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindInvalidAmount, KindInvalidQuestType:
		return http.StatusBadRequest
	case KindAlreadyCompleted:
		return http.StatusConflict
	case KindInvariantViolation:
		return http.StatusInternalServerError
	default:
		return http.StatusServiceUnavailable
	}
}

// Retryable reports whether the same request may succeed if sent again.
func (k Kind) Retryable() bool {
	return k == KindTransientFailure
}
