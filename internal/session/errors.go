package session

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies broker failures. Each kind maps to one HTTP status and one
// client-facing message; details stay in server logs.
type Kind string

const (
	KindBadRequest          Kind = "bad_request"
	KindUnavailable         Kind = "unavailable"
	KindUpstreamRejected    Kind = "upstream_rejected"
	KindUpstreamUnreachable Kind = "upstream_unreachable"
	KindMalformedUpstream   Kind = "malformed_upstream_response"
)

func (k Kind) Status() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindUpstreamRejected, KindMalformedUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message is the generic text returned to the browser.
func (k Kind) Message() string {
	switch k {
	case KindBadRequest:
		return "A device identifier is required."
	case KindUnavailable:
		return "ChatKit session API is not configured."
	case KindUpstreamRejected:
		return "ChatKit session request failed."
	case KindMalformedUpstream:
		return "Invalid response from ChatKit API."
	default:
		return "Unable to reach ChatKit API."
	}
}

// Error is returned by Broker.Mint.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// KindOf returns the kind carried by err, or KindUpstreamUnreachable for
// errors that did not come from the broker.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstreamUnreachable
}
