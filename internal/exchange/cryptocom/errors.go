package cryptocom

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable is returned when the exchange could not be reached after
// all retries. Callers treat it as "skip this cycle", not as a fatal state.
var ErrUnavailable = errors.New("exchange unavailable")

// codeUnknownInstrument is the application error for an instrument name
// the exchange does not recognize. It is the only business error that
// advances the instrument format probe.
const codeUnknownInstrument = 209

// APIError is an application-level rejection from the exchange. These are
// never retried; the request reached the exchange and was refused.
type APIError struct {
	Method  string
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("exchange rejected %s: code %d (%s)", e.Method, e.Code, e.Message)
}

// MalformedResponseError is returned when the exchange answered with a
// body that does not parse as the expected envelope.
type MalformedResponseError struct {
	Method string
	Status int
	Body   []byte
	Err    error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response for %s (status %d, body: %s): %v", e.Method, e.Status, e.Body, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// IsUnknownInstrument reports whether err is the unknown-instrument
// rejection (code 209).
func IsUnknownInstrument(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == codeUnknownInstrument
}

// IsInsufficientBalance reports whether err is a balance rejection. The
// exchange signals this family through the message text rather than a
// single stable code.
func IsInsufficientBalance(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return strings.Contains(strings.ToUpper(apiErr.Message), "INSUFFICIENT")
}
