package apifootball

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an apifootball.Error so callers can branch on
// behavior (retry, stop scheduling, alert) without string matching.
type ErrorKind string

const (
	ErrAuth             ErrorKind = "auth"
	ErrRateLimited      ErrorKind = "rate_limited"
	ErrTimeout          ErrorKind = "timeout"
	ErrServer           ErrorKind = "server_error"
	ErrUnexpectedStatus ErrorKind = "unexpected_status"
	ErrTransport        ErrorKind = "transport"
	ErrEmergencyStop    ErrorKind = "emergency_stop"
	ErrDependency       ErrorKind = "dependency"
	ErrTransform        ErrorKind = "transform"
	ErrDatabase         ErrorKind = "database"
)

// Error is the typed error taxonomy surfaced by the client, the
// transformers, and the dependency resolver.
type Error struct {
	Kind     ErrorKind
	Endpoint string
	Status   int
	Err      error
}

func (e *Error) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("apifootball: %s endpoint=%s status=%d: %v", e.Kind, e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("apifootball: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, endpoint string, status int, err error) *Error {
	return &Error{Kind: kind, Endpoint: endpoint, Status: status, Err: err}
}

// Is reports whether err is an *Error of the given kind, unwrapping
// through fmt.Errorf("%w", ...) wrapping along the way.
func Is(err error, kind ErrorKind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
