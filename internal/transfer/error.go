package transfer

import "fmt"

type ErrorKind string

const (
	ErrorKindHTTP    ErrorKind = "http"
	ErrorKindIO      ErrorKind = "io"
	ErrorKindTimeout ErrorKind = "timeout"
)

// Error is the structured failure for a single transfer attempt. StatusCode
// is set only for ErrorKindHTTP; Err carries the underlying cause for the
// other kinds.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrorKindHTTP:
		return fmt.Sprintf("unexpected http status %d", e.StatusCode)
	case ErrorKindTimeout:
		return "transfer timed out"
	default:
		return fmt.Sprintf("io failure: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}
