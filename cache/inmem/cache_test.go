/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package inmem

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-agencyauth/principal"
)

func makePrincipal(token string, expiresAt time.Time) *principal.Principal {
	p := &principal.Principal{
		Agency:    "123456",
		ClientID:  "client-x",
		AuthType:  principal.AuthTypeAnonymous,
		Active:    true,
		ExpiresAt: expiresAt,
	}
	p.SetToken(token)
	return p
}

func TestPrincipalCache(t *testing.T) {
	ctx := context.Background()

	t.Run("put and get", func(t *testing.T) {
		cache, err := New(0, nil)
		require.NoError(t, err)

		p := makePrincipal("opaque-token", time.Now().Add(time.Hour))
		require.NoError(t, cache.Put(ctx, "opaque-token", p, time.Now().Add(time.Hour)))

		got, found, err := cache.Get(ctx, "opaque-token")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "123456", got.Agency)
		require.Equal(t, "client-x", got.ClientID)
		require.True(t, got.Active)
		require.Empty(t, got.Token(), "the cache must never store the raw token")
	})

	t.Run("miss for unknown token", func(t *testing.T) {
		cache, err := New(0, nil)
		require.NoError(t, err)

		_, found, err := cache.Get(ctx, "unknown-token")
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("expired entry reads as a miss", func(t *testing.T) {
		cache, err := New(0, nil)
		require.NoError(t, err)

		p := makePrincipal("opaque-token", time.Now().Add(time.Hour))
		require.NoError(t, cache.Put(ctx, "opaque-token", p, time.Now().Add(-time.Second)))

		_, found, err := cache.Get(ctx, "opaque-token")
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("entries are keyed by token", func(t *testing.T) {
		cache, err := New(0, nil)
		require.NoError(t, err)

		expiresAt := time.Now().Add(time.Hour)
		pa := makePrincipal("token-a", expiresAt)
		pa.Agency = "100000"
		pb := makePrincipal("token-b", expiresAt)
		pb.Agency = "200000"
		require.NoError(t, cache.Put(ctx, "token-a", pa, expiresAt))
		require.NoError(t, cache.Put(ctx, "token-b", pb, expiresAt))

		got, found, err := cache.Get(ctx, "token-a")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "100000", got.Agency)

		got, found, err = cache.Get(ctx, "token-b")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "200000", got.Agency)
	})

	t.Run("lru eviction keeps the cache bounded", func(t *testing.T) {
		const maxEntries = 10
		cache, err := New(maxEntries, nil)
		require.NoError(t, err)

		expiresAt := time.Now().Add(time.Hour)
		for i := 0; i < maxEntries*2; i++ {
			token := fmt.Sprintf("token-%d", i)
			require.NoError(t, cache.Put(ctx, token, makePrincipal(token, expiresAt), expiresAt))
		}
		require.Equal(t, maxEntries, cache.Len())

		// The most recently added entries survive.
		_, found, err := cache.Get(ctx, fmt.Sprintf("token-%d", maxEntries*2-1))
		require.NoError(t, err)
		require.True(t, found)
		_, found, err = cache.Get(ctx, "token-0")
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("purge", func(t *testing.T) {
		cache, err := New(0, nil)
		require.NoError(t, err)

		expiresAt := time.Now().Add(time.Hour)
		require.NoError(t, cache.Put(ctx, "opaque-token", makePrincipal("opaque-token", expiresAt), expiresAt))
		require.Equal(t, 1, cache.Len())

		cache.Purge()
		require.Equal(t, 0, cache.Len())
		_, found, err := cache.Get(ctx, "opaque-token")
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("returned principal is a copy", func(t *testing.T) {
		cache, err := New(0, nil)
		require.NoError(t, err)

		expiresAt := time.Now().Add(time.Hour)
		require.NoError(t, cache.Put(ctx, "opaque-token", makePrincipal("opaque-token", expiresAt), expiresAt))

		got, _, err := cache.Get(ctx, "opaque-token")
		require.NoError(t, err)
		got.Agency = "mutated"

		got2, _, err := cache.Get(ctx, "opaque-token")
		require.NoError(t, err)
		require.Equal(t, "123456", got2.Agency)
	})
}
