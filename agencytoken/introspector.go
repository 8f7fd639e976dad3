/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package agencytoken

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/acronis/go-appkit/log"

	"github.com/acronis/go-agencyauth/internal/idputil"
	"github.com/acronis/go-agencyauth/internal/metrics"
)

// RawClaims is the parsed JSON object returned by the introspection endpoint.
// Turning it into a typed principal is the validator's job, not the client's.
type RawClaims map[string]interface{}

// IntrospectorOpts is a set of options for creating Introspector.
type IntrospectorOpts struct {
	// HTTPClient is an HTTP client for doing requests to the introspection endpoint.
	HTTPClient *http.Client

	// Logger is a logger for logging errors and debug information.
	Logger log.FieldLogger

	// PrometheusLibInstanceLabel is a label for Prometheus metrics.
	// It allows distinguishing metrics from different instances of the same library.
	PrometheusLibInstanceLabel string
}

// Introspector performs opaque token introspection against the authority's
// HTTP endpoint: one POST per call, authenticated with the configured
// client id/secret pair via HTTP Basic.
type Introspector struct {
	endpoint     string
	clientID     string
	clientSecret string

	httpClient *http.Client
	logger     log.FieldLogger

	promMetrics *metrics.PrometheusMetrics
}

// NewIntrospector creates a new Introspector for the given introspection
// endpoint and client credentials.
func NewIntrospector(endpoint, clientID, clientSecret string) *Introspector {
	return NewIntrospectorWithOpts(endpoint, clientID, clientSecret, IntrospectorOpts{})
}

// NewIntrospectorWithOpts creates a new Introspector with the given options.
// See IntrospectorOpts for more details.
func NewIntrospectorWithOpts(endpoint, clientID, clientSecret string, opts IntrospectorOpts) *Introspector {
	opts.Logger = idputil.PrepareLogger(opts.Logger)
	if opts.HTTPClient == nil {
		opts.HTTPClient = idputil.MakeDefaultHTTPClient(idputil.DefaultHTTPRequestTimeout, opts.Logger)
	}
	return &Introspector{
		endpoint:     endpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   opts.HTTPClient,
		logger:       opts.Logger,
		promMetrics:  metrics.GetPrometheusMetrics(opts.PrometheusLibInstanceLabel, metrics.SourceTokenValidator),
	}
}

// FetchClaims introspects the given token and returns the authority's raw
// claims. Transport failures and unexpected HTTP statuses are both reported
// as *TransportError, an unparseable body as *FormatError, and an explicit
// "error" field in the response as *AuthorityError.
func (i *Introspector) FetchClaims(ctx context.Context, token string) (RawClaims, error) {
	reqURL, err := makeIntrospectionURL(i.endpoint, token)
	if err != nil {
		return nil, fmt.Errorf("build introspection URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(i.clientID, i.clientSecret)

	startTime := time.Now()
	resp, err := i.httpClient.Do(req)
	elapsed := time.Since(startTime)
	if err != nil {
		i.promMetrics.ObserveHTTPClientRequest(http.MethodPost, i.endpoint, 0, elapsed, metrics.HTTPRequestErrorDo)
		return nil, &TransportError{Inner: err}
	}
	defer func() {
		if closeBodyErr := resp.Body.Close(); closeBodyErr != nil {
			i.logger.Error(fmt.Sprintf("closing response body error for POST %s", i.endpoint),
				log.Error(closeBodyErr))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		i.promMetrics.ObserveHTTPClientRequest(
			http.MethodPost, i.endpoint, resp.StatusCode, elapsed, metrics.HTTPRequestErrorUnexpectedStatusCode)
		return nil, &TransportError{StatusCode: resp.StatusCode}
	}

	var claims RawClaims
	if err = json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		i.promMetrics.ObserveHTTPClientRequest(
			http.MethodPost, i.endpoint, resp.StatusCode, elapsed, metrics.HTTPRequestErrorDecodeBody)
		return nil, &FormatError{Inner: fmt.Errorf("decode response body json for POST %s: %w", i.endpoint, err)}
	}
	i.promMetrics.ObserveHTTPClientRequest(http.MethodPost, i.endpoint, resp.StatusCode, elapsed, "")

	if errValue, ok := claims["error"]; ok && isTruthy(errValue) {
		return nil, &AuthorityError{Value: errValue}
	}
	return claims, nil
}

// makeIntrospectionURL appends the token as the access_token query parameter,
// preserving any query parameters the configured endpoint already has.
func makeIntrospectionURL(endpoint, token string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("access_token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func isTruthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	default:
		return true
	}
}
