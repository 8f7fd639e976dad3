/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package inmem provides an in-process LRU-backed principal cache.
package inmem

import (
	"context"
	"crypto/sha256"
	"time"

	"github.com/acronis/go-appkit/lrucache"

	"github.com/acronis/go-agencyauth/agencytoken"
	"github.com/acronis/go-agencyauth/principal"
)

// DefaultMaxEntries is a default maximum number of entries in the cache.
const DefaultMaxEntries = 1000

type cacheEntry struct {
	principal principal.Principal
	expiresAt time.Time
}

// PrincipalCache is an in-memory implementation of agencytoken.PrincipalCache
// on top of an LRU cache. Tokens are never used as keys verbatim; entries are
// keyed by the token's SHA-256 hash. Expiry is enforced at read time: an
// entry whose deadline has passed reads as a miss.
type PrincipalCache struct {
	cache *lrucache.LRUCache[[sha256.Size]byte, cacheEntry]
}

var _ agencytoken.PrincipalCache = (*PrincipalCache)(nil)

// New creates a new PrincipalCache holding up to maxEntries principals.
// Pass promMetrics to expose the cache's hit/miss counters; it may be nil.
func New(maxEntries int, promMetrics *lrucache.PrometheusMetrics) (*PrincipalCache, error) {
	if maxEntries == 0 {
		maxEntries = DefaultMaxEntries
	}
	// A nil *PrometheusMetrics must stay a nil interface, otherwise the
	// lrucache disabled-metrics fallback never kicks in.
	var collector lrucache.MetricsCollector
	if promMetrics != nil {
		collector = promMetrics
	}
	cache, err := lrucache.New[[sha256.Size]byte, cacheEntry](maxEntries, collector)
	if err != nil {
		return nil, err
	}
	return &PrincipalCache{cache: cache}, nil
}

// Get implements agencytoken.PrincipalCache.
func (c *PrincipalCache) Get(_ context.Context, token string) (*principal.Principal, bool, error) {
	entry, found := c.cache.Get(tokenKey(token))
	if !found {
		return nil, false, nil
	}
	// Expired entries stay until LRU eviction but always read as a miss.
	if !entry.expiresAt.After(time.Now()) {
		return nil, false, nil
	}
	p := entry.principal
	return &p, true, nil
}

// Put implements agencytoken.PrincipalCache. The stored copy never carries
// the principal's transient raw token.
func (c *PrincipalCache) Put(_ context.Context, token string, p *principal.Principal, expiresAt time.Time) error {
	c.cache.Add(tokenKey(token), cacheEntry{principal: *p.Clone(), expiresAt: expiresAt})
	return nil
}

// Purge removes all cached principals.
func (c *PrincipalCache) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached principals, including not-yet-evicted expired ones.
func (c *PrincipalCache) Len() int {
	return c.cache.Len()
}

func tokenKey(token string) [sha256.Size]byte {
	return sha256.Sum256([]byte(token))
}
