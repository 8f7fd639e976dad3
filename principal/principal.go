/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package principal contains the typed representation of an identity
// derived from a successful token introspection.
package principal

import (
	"fmt"
	"time"
)

// AuthTypeAnonymous is the only token classification accepted for authentication.
const AuthTypeAnonymous = "anonymous"

// RoleAgency is the role granted to every authenticated agency principal.
// Mapping it to a richer authorization role set is up to the consuming service.
const RoleAgency = "openplatform:agency"

// Claim names consumed from the introspection authority's response.
const (
	ClaimExpires  = "expires"
	ClaimClientID = "clientId"
	ClaimAgency   = "agency"
	ClaimType     = "type"
	ClaimActive   = "active"
)

// ExpiresClaimFormatError is returned when the mandatory "expires" claim
// is missing or cannot be parsed as a timestamp.
type ExpiresClaimFormatError struct {
	Inner error
}

func (e *ExpiresClaimFormatError) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("invalid %q claim: %s", ClaimExpires, e.Inner.Error())
	}
	return fmt.Sprintf("missing mandatory %q claim", ClaimExpires)
}

func (e *ExpiresClaimFormatError) Unwrap() error {
	return e.Inner
}

// Principal is the authenticated identity derived from introspection.
// The zero value is inactive and carries no identity.
type Principal struct {
	// Agency is the stable identifier of the acting agency.
	Agency string `json:"agency"`

	// ClientID identifies the client application that obtained the token.
	ClientID string `json:"clientId"`

	// AuthType is the token classification as reported by the authority.
	// Only AuthTypeAnonymous is accepted for authentication.
	AuthType string `json:"authType"`

	// Active reports whether the authority currently considers the token valid.
	// It stays false unless the authority explicitly said otherwise.
	Active bool `json:"active"`

	// ExpiresAt is the absolute instant after which the token must be treated as invalid.
	ExpiresAt time.Time `json:"expiresAt"`

	// token is the raw bearer token. It's held only transiently during
	// principal construction and caching, and it's deliberately unexported
	// so that it never ends up in serialized or logged output.
	token string
}

// FromClaims builds a Principal from the raw introspection claims.
// The "expires" claim is mandatory and must be an RFC 3339 timestamp
// (the authority uses the fractional-second "Z"-suffixed form,
// e.g. "2020-07-04T05:36:24.083Z"); anything else is a hard error.
// All other claims are optional: a missing or wrongly-typed claim leaves
// the corresponding field at its zero value.
func FromClaims(claims map[string]interface{}, token string) (*Principal, error) {
	expiresRaw, ok := claims[ClaimExpires].(string)
	if !ok {
		return nil, &ExpiresClaimFormatError{}
	}
	expiresAt, err := time.Parse(time.RFC3339, expiresRaw)
	if err != nil {
		return nil, &ExpiresClaimFormatError{Inner: err}
	}

	p := &Principal{ExpiresAt: expiresAt.UTC(), token: token}
	if v, ok := claims[ClaimClientID].(string); ok {
		p.ClientID = v
	}
	if v, ok := claims[ClaimAgency].(string); ok {
		p.Agency = v
	}
	if v, ok := claims[ClaimType].(string); ok {
		p.AuthType = v
	}
	if v, ok := claims[ClaimActive].(bool); ok {
		p.Active = v
	}
	return p, nil
}

// Identifier returns the principal's external display identifier (the agency id).
func (p *Principal) Identifier() string {
	return p.Agency
}

// Roles returns the role set granted to the principal.
func (p *Principal) Roles() []string {
	return []string{RoleAgency}
}

// ExpiredAt reports whether the token behind the principal is expired at the given instant.
func (p *Principal) ExpiredAt(now time.Time) bool {
	return p.ExpiresAt.Before(now)
}

// Token returns the raw bearer token the principal was built from.
// It's empty after EraseToken.
func (p *Principal) Token() string {
	return p.token
}

// SetToken attaches the raw bearer token to the principal.
func (p *Principal) SetToken(token string) {
	p.token = token
}

// EraseToken clears the transiently held raw bearer token.
// It must be called before the principal is handed to any downstream consumer.
func (p *Principal) EraseToken() {
	p.token = ""
}

// Clone returns a copy of the principal without the transient raw token.
func (p *Principal) Clone() *Principal {
	cp := *p
	cp.token = ""
	return &cp
}
