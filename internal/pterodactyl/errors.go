package pterodactyl

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport matches every failure to get a successful response from
	// the panel, whether the network call failed or the status was not 2xx.
	ErrTransport = errors.New("pterodactyl: request failed")

	// ErrDecode reports a success response whose body is not valid JSON.
	ErrDecode = errors.New("pterodactyl: malformed response")
)

// TransportError wraps a network-level failure.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("pterodactyl: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// StatusError reports a non-2xx response. Only the status is kept; the panel's
// error body is discarded.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pterodactyl: HTTP error, status: %d %s", e.Status, http.StatusText(e.Status))
}

func (e *StatusError) Is(target error) bool { return target == ErrTransport }

// ModeError is returned when an operation is invoked on a client bound to
// the other namespace. No request is made.
type ModeError struct {
	Operation string
	Required  Mode
}

func (e *ModeError) Error() string {
	return fmt.Sprintf("pterodactyl: %s is only available for the %s API", e.Operation, e.Required)
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
