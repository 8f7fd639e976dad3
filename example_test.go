/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package agencyauth

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/acronis/go-agencyauth/authtest"
)

func ExampleAuthNMiddleware() {
	authorityMock := authtest.NewAuthorityMock()
	authorityMock.SetClaimsForToken("opaquetoken123", map[string]interface{}{
		"active":   true,
		"clientId": "client-x",
		"agency":   "123456",
		"type":     "anonymous",
		"expires":  time.Now().Add(time.Hour).UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	authoritySrv := httptest.NewServer(authorityMock)
	defer authoritySrv.Close()

	cfg := NewDefaultConfig()
	cfg.Introspection.Endpoint = authoritySrv.URL
	cfg.Introspection.ClientID = "agency-service"
	cfg.Introspection.ClientSecret = "agency-service-secret"
	cfg.Cache.Enabled = true
	validator, _ := NewValidator(cfg)
	authN := AuthNMiddleware("MyService", validator)

	srv := httptest.NewServer(authN(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		p := GetPrincipalFromContext(r.Context())
		_, _ = rw.Write([]byte("Hello, agency " + p.Identifier() + "!"))
	})))
	defer srv.Close()

	client := &http.Client{Timeout: time.Second * 30}
	doRequest := func(authHeader string) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL, http.NoBody)
		if authHeader != "" {
			req.Header.Set(HeaderAuthorization, authHeader)
		}
		resp, _ := client.Do(req)
		respBody, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		fmt.Println("Status code:", resp.StatusCode)
		fmt.Println("Body:", string(respBody))
	}

	fmt.Println("GET / without token")
	doRequest("")

	fmt.Println("------")
	fmt.Println("GET / with unknown token")
	doRequest("Bearer unknowntoken")

	fmt.Println("------")
	fmt.Println("GET / with valid token")
	doRequest("Bearer opaquetoken123")

	// Output:
	// GET / without token
	// Status code: 401
	// Body: {"error":{"domain":"MyService","code":"authenticationRequired","message":"Authentication is required."}}
	// ------
	// GET / with unknown token
	// Status code: 401
	// Body: {"error":{"domain":"MyService","code":"authenticationFailed","message":"Authentication is failed."}}
	// ------
	// GET / with valid token
	// Status code: 200
	// Body: Hello, agency 123456!
}
