/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package authtest

import (
	"encoding/json"
	"net/http"
	"sync"
)

type mockResponse struct {
	statusCode int
	body       []byte
	claims     map[string]interface{}
}

// AuthorityMock is an http.Handler implementing the introspection authority's
// contract: POST with the token in the access_token query parameter,
// authenticated via HTTP Basic. Responses are configured per token.
// Unknown tokens introspect as inactive.
type AuthorityMock struct {
	// ExpectedClientID and ExpectedClientSecret are the Basic credentials the
	// mock requires. Empty ExpectedClientID disables the credentials check.
	ExpectedClientID     string
	ExpectedClientSecret string

	mu        sync.RWMutex
	responses map[string]mockResponse

	callsCount            int
	callsCountPerToken    map[string]int
	lastIntrospectedToken string
}

// NewAuthorityMock creates a new AuthorityMock.
func NewAuthorityMock() *AuthorityMock {
	return &AuthorityMock{
		responses:          make(map[string]mockResponse),
		callsCountPerToken: make(map[string]int),
	}
}

// SetClaimsForToken makes the mock respond with HTTP 200 and the given
// claims object for the given token.
func (m *AuthorityMock) SetClaimsForToken(token string, claims map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[token] = mockResponse{statusCode: http.StatusOK, claims: claims}
}

// SetStatusForToken makes the mock respond with the given HTTP status and an
// empty body for the given token.
func (m *AuthorityMock) SetStatusForToken(token string, statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[token] = mockResponse{statusCode: statusCode}
}

// SetRawResponseForToken makes the mock respond with the given HTTP status
// and the verbatim body for the given token.
func (m *AuthorityMock) SetRawResponseForToken(token string, statusCode int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[token] = mockResponse{statusCode: statusCode, body: []byte(body)}
}

// ServeHTTP implements http.Handler.
func (m *AuthorityMock) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	token := r.URL.Query().Get("access_token")

	m.mu.Lock()
	m.callsCount++
	m.callsCountPerToken[token]++
	m.lastIntrospectedToken = token
	resp, configured := m.responses[token]
	expectedClientID, expectedClientSecret := m.ExpectedClientID, m.ExpectedClientSecret
	m.mu.Unlock()

	if expectedClientID != "" {
		clientID, clientSecret, ok := r.BasicAuth()
		if !ok || clientID != expectedClientID || clientSecret != expectedClientSecret {
			rw.WriteHeader(http.StatusUnauthorized)
			return
		}
	}

	if !configured {
		resp = mockResponse{statusCode: http.StatusOK, claims: map[string]interface{}{"active": false}}
	}

	if resp.claims != nil {
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(resp.statusCode)
		_ = json.NewEncoder(rw).Encode(resp.claims)
		return
	}
	rw.WriteHeader(resp.statusCode)
	_, _ = rw.Write(resp.body)
}

// CallsCount returns the total number of introspection calls the mock served.
func (m *AuthorityMock) CallsCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callsCount
}

// CallsCountForToken returns the number of introspection calls served for the given token.
func (m *AuthorityMock) CallsCountForToken(token string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callsCountPerToken[token]
}

// LastIntrospectedToken returns the token of the most recent introspection call.
func (m *AuthorityMock) LastIntrospectedToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastIntrospectedToken
}

// ResetCallsInfo resets the recorded call information.
func (m *AuthorityMock) ResetCallsInfo() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callsCount = 0
	m.callsCountPerToken = make(map[string]int)
	m.lastIntrospectedToken = ""
}
