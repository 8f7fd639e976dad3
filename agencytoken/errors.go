/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package agencytoken

import (
	"errors"
	"fmt"
)

// ErrUnsupportedCredentials is returned when the Authorization header value
// is present but is not a well-formed bearer credential.
var ErrUnsupportedCredentials = errors.New("unsupported credentials in authorization header")

// ErrTokenExpired is returned when the token behind a principal is expired.
var ErrTokenExpired = errors.New("token is expired")

// ErrClientNotAllowed is returned when the principal's client id is not on
// the configured allow-list.
var ErrClientNotAllowed = errors.New("client id is not on the allow-list")

// ErrTokenNotActive is returned when the authority does not consider the token active.
var ErrTokenNotActive = errors.New("token is not active")

// TransportError represents a failure to obtain a valid introspection
// response: a network-level error, a timeout, or an unexpected HTTP status.
// Callers don't need to distinguish the two kinds; both reject the token.
type TransportError struct {
	StatusCode int
	Inner      error
}

func (e *TransportError) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("introspection request failed: %s", e.Inner.Error())
	}
	return fmt.Sprintf("introspection endpoint responded with unexpected HTTP status %d", e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Inner
}

// FormatError represents an introspection response that cannot be interpreted:
// an unparseable body or missing/malformed mandatory claims.
type FormatError struct {
	Inner error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed introspection response: %s", e.Inner.Error())
}

func (e *FormatError) Unwrap() error {
	return e.Inner
}

// AuthorityError represents an explicit error reported by the introspection
// authority via the top-level "error" field of an otherwise well-formed response.
type AuthorityError struct {
	Value interface{}
}

func (e *AuthorityError) Error() string {
	return fmt.Sprintf("introspection authority reported error: %v", e.Value)
}

// UnsupportedAuthTypeError is returned when the token's classification is
// anything other than the accepted one.
type UnsupportedAuthTypeError struct {
	AuthType string
}

func (e *UnsupportedAuthTypeError) Error() string {
	return fmt.Sprintf("unsupported auth type %q", e.AuthType)
}
