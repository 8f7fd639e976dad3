/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package agencyauth

import (
	"context"
	"testing"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-agencyauth/agencytoken"
	"github.com/acronis/go-agencyauth/authtest"
	"github.com/acronis/go-agencyauth/principal"
)

func TestNewValidator(t *testing.T) {
	const clientID = "agency-service"
	const clientSecret = "agency-service-secret"

	authorityMock := authtest.NewAuthorityMock()
	authorityMock.ExpectedClientID = clientID
	authorityMock.ExpectedClientSecret = clientSecret
	authoritySrv := authtest.NewHTTPServer(authtest.WithAuthorityMock(authorityMock))
	require.NoError(t, authoritySrv.StartAndWaitForReady(time.Second))
	defer func() { _ = authoritySrv.Shutdown(context.Background()) }()

	newCfg := func() *Config {
		cfg := NewDefaultConfig()
		cfg.Introspection.Endpoint = authoritySrv.IntrospectionEndpointURL()
		cfg.Introspection.ClientID = clientID
		cfg.Introspection.ClientSecret = clientSecret
		return cfg
	}
	newActiveToken := func() string {
		token := "tok" + uuid.NewString()[:8]
		authorityMock.SetClaimsForToken(token, map[string]interface{}{
			"active":   true,
			"clientId": "client-x",
			"agency":   "123456",
			"type":     "anonymous",
			"expires":  time.Now().Add(time.Hour).UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
		return token
	}

	t.Run("error, no introspection endpoint", func(t *testing.T) {
		_, err := NewValidator(NewDefaultConfig())
		require.ErrorContains(t, err, "introspection endpoint is not configured")
	})

	t.Run("ok, caching disabled", func(t *testing.T) {
		validator, err := NewValidator(newCfg())
		require.NoError(t, err)

		token := newActiveToken()
		for i := 0; i < 2; i++ {
			p, validateErr := validator.ValidateToken(context.Background(), token)
			require.NoError(t, validateErr)
			require.Equal(t, "123456", p.Agency)
		}
		require.Equal(t, 2, authorityMock.CallsCountForToken(token))
	})

	t.Run("ok, in-memory caching enabled", func(t *testing.T) {
		cfg := newCfg()
		cfg.Cache.Enabled = true
		validator, err := NewValidator(cfg)
		require.NoError(t, err)

		token := newActiveToken()
		for i := 0; i < 2; i++ {
			_, validateErr := validator.ValidateToken(context.Background(), token)
			require.NoError(t, validateErr)
		}
		require.Equal(t, 1, authorityMock.CallsCountForToken(token))
	})

	t.Run("ok, allow-list from configuration", func(t *testing.T) {
		cfg := newCfg()
		cfg.AllowedClients = []string{"client-a"}
		validator, err := NewValidator(cfg)
		require.NoError(t, err)

		_, err = validator.ValidateToken(context.Background(), newActiveToken())
		require.ErrorIs(t, err, agencytoken.ErrClientNotAllowed)
	})

	t.Run("ok, with logger option", func(t *testing.T) {
		logger := log.NewDisabledLogger()
		validator, err := NewValidator(newCfg(), WithValidatorLogger(logger))
		require.NoError(t, err)

		p, err := validator.ValidateToken(context.Background(), newActiveToken())
		require.NoError(t, err)
		require.Equal(t, "123456", p.Agency)
	})

	t.Run("ok, custom cache via option", func(t *testing.T) {
		cache := &countingCache{}
		validator, err := NewValidator(newCfg(), WithValidatorCache(cache))
		require.NoError(t, err)

		_, err = validator.ValidateToken(context.Background(), newActiveToken())
		require.NoError(t, err)
		require.Equal(t, 1, cache.getCalls)
		require.Equal(t, 1, cache.putCalls)
	})
}

type countingCache struct {
	getCalls int
	putCalls int
}

func (c *countingCache) Get(_ context.Context, _ string) (*principal.Principal, bool, error) {
	c.getCalls++
	return nil, false, nil
}

func (c *countingCache) Put(_ context.Context, _ string, _ *principal.Principal, _ time.Time) error {
	c.putCalls++
	return nil
}
