/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package agencytoken

import (
	"context"
	"time"

	"github.com/acronis/go-agencyauth/principal"
)

// MaxCacheLifetime bounds how long a principal may live in the cache,
// no matter how far in the future the token's own expiry is.
const MaxCacheLifetime = 24 * time.Hour

// PrincipalCache is a store for principals keyed by the raw token string.
// Implementations own expiry natively: an entry must become a miss once the
// expiresAt passed to Put has elapsed. Get and Put errors are recovered by
// the validator (logged, then treated as a miss / no-op), so an
// implementation should report them rather than retry.
type PrincipalCache interface {
	// Get returns the cached principal for the token, if any.
	Get(ctx context.Context, token string) (*principal.Principal, bool, error)

	// Put stores the principal under the token until expiresAt.
	Put(ctx context.Context, token string, p *principal.Principal, expiresAt time.Time) error
}

// disabledPrincipalCache is used when no cache collaborator is configured.
// Every lookup is a miss and every store is a no-op.
type disabledPrincipalCache struct{}

func (disabledPrincipalCache) Get(_ context.Context, _ string) (*principal.Principal, bool, error) {
	return nil, false, nil
}

func (disabledPrincipalCache) Put(_ context.Context, _ string, _ *principal.Principal, _ time.Time) error {
	return nil
}
