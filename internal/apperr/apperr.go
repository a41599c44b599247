// Package apperr provides the typed errors raised by the external-service
// clients. Each error carries a user-facing message so the controller can
// surface it directly.
package apperr

import (
	"errors"
	"fmt"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindAddressNotFound indicates the geocoder returned no candidates.
	KindAddressNotFound
	// KindAvailabilityFetch indicates the availability snapshot could not be fetched or parsed.
	KindAvailabilityFetch
	// KindGeocodeFetch indicates a transport failure talking to the geocoder.
	KindGeocodeFetch
	// KindGeolocationDenied indicates the device refused to share its position.
	KindGeolocationDenied
	// KindGeolocationUnavailable indicates the device could not provide a position.
	KindGeolocationUnavailable
	// KindRouteFetch indicates a transport failure talking to the routing service.
	KindRouteFetch
	// KindTimeout indicates an external call exceeded its deadline.
	KindTimeout
)

var kindNames = map[Kind]string{
	KindUnknown:                "unknown",
	KindAddressNotFound:        "address_not_found",
	KindAvailabilityFetch:      "availability_fetch",
	KindGeocodeFetch:           "geocode_fetch",
	KindGeolocationDenied:      "geolocation_denied",
	KindGeolocationUnavailable: "geolocation_unavailable",
	KindRouteFetch:             "route_fetch",
	KindTimeout:                "timeout",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a domain error with a typed Kind and a user-facing Message.
type Error struct {
	Kind    Kind
	Message string
	Op      string // Operation that failed (optional)
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp sets the operation on the error.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetKind extracts the error kind from an error chain.
// Returns KindUnknown if no *Error is present.
func GetKind(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err carries an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// UserMessage returns the user-facing message carried by err, or fallback
// when err carries none.
func UserMessage(err error, fallback string) string {
	if e, ok := As(err); ok && e.Message != "" {
		return e.Message
	}
	return fallback
}
