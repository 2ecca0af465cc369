package fetch

import "fmt"

// Kind classifies a fetch failure.
type Kind string

const (
	// KindNotFound means the resource does not exist at the URL.
	KindNotFound Kind = "not-found"

	// KindTLS means the transport failed TLS/certificate verification.
	KindTLS Kind = "tls"

	// KindIO covers every other transport or read failure.
	KindIO Kind = "io"
)

// Error is a classified fetch failure. Message carries the underlying
// error text, or the error's type name when it has no text of its own.
type Error struct {
	Kind    Kind
	URL     string
	Message string
	Err     error
}

// Error returns the error message
func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s failed (%s): %s", e.URL, e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// newError builds a classified Error, deriving Message from err when no
// explicit message is given.
func newError(kind Kind, url, message string, err error) *Error {
	if message == "" && err != nil {
		message = err.Error()
		if message == "" {
			message = fmt.Sprintf("unknown (%T)", err)
		}
	}
	return &Error{Kind: kind, URL: url, Message: message, Err: err}
}
