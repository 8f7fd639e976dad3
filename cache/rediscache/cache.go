/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package rediscache provides a Redis-backed principal cache.
// Entry expiry is delegated to Redis key TTLs, so cached principals
// disappear through store-native eviction, never through application code.
package rediscache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acronis/go-agencyauth/agencytoken"
	"github.com/acronis/go-agencyauth/principal"
)

// DefaultKeyPrefix is a default prefix for Redis keys holding principals.
const DefaultKeyPrefix = "agencyauth:principal:"

// minEntryTTL keeps SET happy for principals that are already expired.
// The cache still admits them (freshness is a policy gate, not a cache
// precondition), but Redis rejects non-positive TTLs.
const minEntryTTL = time.Second

// Opts is a set of options for creating PrincipalCache.
type Opts struct {
	// KeyPrefix is prepended to every Redis key. Defaults to DefaultKeyPrefix.
	KeyPrefix string
}

// PrincipalCache is a Redis implementation of agencytoken.PrincipalCache.
// Principals are stored as JSON under the SHA-256 hash of the token, so the
// raw token never reaches the store (neither as key nor as part of the
// serialized value).
type PrincipalCache struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ agencytoken.PrincipalCache = (*PrincipalCache)(nil)

// New creates a new PrincipalCache on top of the given Redis client.
func New(client redis.UniversalClient) *PrincipalCache {
	return NewWithOpts(client, Opts{})
}

// NewWithOpts creates a new PrincipalCache with the given options.
// See Opts for more details.
func NewWithOpts(client redis.UniversalClient, opts Opts) *PrincipalCache {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	return &PrincipalCache{client: client, keyPrefix: opts.KeyPrefix}
}

// Get implements agencytoken.PrincipalCache.
func (c *PrincipalCache) Get(ctx context.Context, token string) (*principal.Principal, bool, error) {
	data, err := c.client.Get(ctx, c.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var p principal.Principal
	if err = json.Unmarshal(data, &p); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached principal: %w", err)
	}
	return &p, true, nil
}

// Put implements agencytoken.PrincipalCache.
func (c *PrincipalCache) Put(ctx context.Context, token string, p *principal.Principal, expiresAt time.Time) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal principal: %w", err)
	}
	ttl := time.Until(expiresAt)
	if ttl < minEntryTTL {
		ttl = minEntryTTL
	}
	if err = c.client.Set(ctx, c.key(token), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *PrincipalCache) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return c.keyPrefix + hex.EncodeToString(sum[:])
}
