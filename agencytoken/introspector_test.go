/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package agencytoken_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-agencyauth/agencytoken"
	"github.com/acronis/go-agencyauth/authtest"
)

func TestIntrospector_FetchClaims(t *testing.T) {
	const clientID = "agency-service"
	const clientSecret = "agency-service-secret"

	authorityMock := authtest.NewAuthorityMock()
	authorityMock.ExpectedClientID = clientID
	authorityMock.ExpectedClientSecret = clientSecret

	authoritySrv := authtest.NewHTTPServer(authtest.WithAuthorityMock(authorityMock))
	require.NoError(t, authoritySrv.StartAndWaitForReady(time.Second))
	defer func() { _ = authoritySrv.Shutdown(context.Background()) }()

	activeToken := "token" + uuid.NewString()[:8]
	erroredToken := "token" + uuid.NewString()[:8]
	rejectedToken := "token" + uuid.NewString()[:8]
	garbageToken := "token" + uuid.NewString()[:8]

	authorityMock.SetClaimsForToken(activeToken, map[string]interface{}{
		"active":   true,
		"clientId": "client-x",
		"agency":   "123456",
		"type":     "anonymous",
		"expires":  "2030-07-04T05:36:24.083Z",
	})
	authorityMock.SetClaimsForToken(erroredToken, map[string]interface{}{"error": "invalid client"})
	authorityMock.SetStatusForToken(rejectedToken, http.StatusUnauthorized)
	authorityMock.SetRawResponseForToken(garbageToken, http.StatusOK, "{not json")

	introspector := agencytoken.NewIntrospectorWithOpts(
		authoritySrv.IntrospectionEndpointURL(), clientID, clientSecret, agencytoken.IntrospectorOpts{})

	t.Run("ok", func(t *testing.T) {
		claims, err := introspector.FetchClaims(context.Background(), activeToken)
		require.NoError(t, err)
		require.Equal(t, true, claims["active"])
		require.Equal(t, "client-x", claims["clientId"])
		require.Equal(t, "123456", claims["agency"])
		require.Equal(t, activeToken, authorityMock.LastIntrospectedToken())
	})

	t.Run("error, authority reported error field", func(t *testing.T) {
		_, err := introspector.FetchClaims(context.Background(), erroredToken)
		var authorityErr *agencytoken.AuthorityError
		require.ErrorAs(t, err, &authorityErr)
		require.Equal(t, "invalid client", authorityErr.Value)
	})

	t.Run("error, unexpected HTTP status", func(t *testing.T) {
		_, err := introspector.FetchClaims(context.Background(), rejectedToken)
		var transportErr *agencytoken.TransportError
		require.ErrorAs(t, err, &transportErr)
		require.Equal(t, http.StatusUnauthorized, transportErr.StatusCode)
	})

	t.Run("error, unparseable body", func(t *testing.T) {
		_, err := introspector.FetchClaims(context.Background(), garbageToken)
		var formatErr *agencytoken.FormatError
		require.ErrorAs(t, err, &formatErr)
	})

	t.Run("error, wrong basic credentials", func(t *testing.T) {
		badIntrospector := agencytoken.NewIntrospectorWithOpts(
			authoritySrv.IntrospectionEndpointURL(), clientID, "wrong-secret", agencytoken.IntrospectorOpts{})
		_, err := badIntrospector.FetchClaims(context.Background(), activeToken)
		var transportErr *agencytoken.TransportError
		require.ErrorAs(t, err, &transportErr)
		require.Equal(t, http.StatusUnauthorized, transportErr.StatusCode)
	})

	t.Run("error, endpoint unreachable", func(t *testing.T) {
		downIntrospector := agencytoken.NewIntrospectorWithOpts(
			"http://127.0.0.1:1/introspection", clientID, clientSecret, agencytoken.IntrospectorOpts{})
		_, err := downIntrospector.FetchClaims(context.Background(), activeToken)
		var transportErr *agencytoken.TransportError
		require.ErrorAs(t, err, &transportErr)
		require.Error(t, transportErr.Unwrap())
	})
}
