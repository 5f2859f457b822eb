package auth

import (
	"errors"
	"net/http"
)

// Kind classifies a resolution failure so route handlers can translate it
// into an HTTP status without inspecting message text.
type Kind string

const (
	// KindMalformedHeader marks an Authorization header that does not match
	// the expected scheme tag and payload shape.
	KindMalformedHeader Kind = "malformed_header"
	// KindInvalidIdentifier marks a header payload whose subject ID segment
	// is not a positive integer.
	KindInvalidIdentifier Kind = "invalid_identifier"
	// KindNoSuchSubject marks an identifier that resolves to no subject.
	KindNoSuchSubject Kind = "no_such_subject"
	// KindInvalidSecret marks a presented secret that is unset or does not
	// match the stored one.
	KindInvalidSecret Kind = "invalid_secret"
	// KindInvalidLocalToken marks a local-request credential with no live
	// grant, including one that was already consumed.
	KindInvalidLocalToken Kind = "invalid_local_token"
	// KindAccessRevoked marks a globally banned subject.
	KindAccessRevoked Kind = "access_revoked"
	// KindSessionUnavailable marks a request with no credential carrier and
	// no session context at all; it indicates the calling layer is
	// misconfigured, not that the visitor is merely logged out.
	KindSessionUnavailable Kind = "session_unavailable"
)

// ErrUnknownLevel reports a level name outside the capability table. It is a
// programming error in the caller and deliberately not an *Error: endpoints
// surface it as an internal fault, never as an authentication response.
var ErrUnknownLevel = errors.New("unknown capability level")

// Error is a structured resolution failure.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// HTTPStatus maps the error kind onto the status class handlers surface.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindMalformedHeader, KindInvalidIdentifier, KindNoSuchSubject:
		return http.StatusBadRequest
	case KindInvalidSecret, KindInvalidLocalToken:
		return http.StatusUnauthorized
	case KindAccessRevoked:
		return http.StatusForbidden
	case KindSessionUnavailable:
		// Non-standard "login time-out" used for session-layer faults so
		// clients can tell them apart from ordinary 401s.
		return 440
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// AsError unwraps err into a structured resolution error when it is one.
func AsError(err error) (*Error, bool) {
	var resErr *Error
	if errors.As(err, &resErr) {
		return resErr, true
	}
	return nil, false
}
