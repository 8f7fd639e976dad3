/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package agencytoken

import (
	"context"
	"fmt"
	"time"

	"github.com/acronis/go-appkit/log"

	"github.com/acronis/go-agencyauth/internal/idputil"
	"github.com/acronis/go-agencyauth/internal/metrics"
	"github.com/acronis/go-agencyauth/principal"
)

// ClaimsFetcher is an interface for fetching raw introspection claims for a token.
// *Introspector is the production implementation.
type ClaimsFetcher interface {
	FetchClaims(ctx context.Context, token string) (RawClaims, error)
}

// ValidatorOpts is a set of options for creating Validator.
type ValidatorOpts struct {
	// Cache is a store for validated principals keyed by the raw token.
	// When nil, caching is disabled and every validation introspects remotely.
	Cache PrincipalCache

	// AllowedClients is the client-id allow-list. Empty means any client id is allowed.
	AllowedClients []string

	// Logger is a logger for logging errors and debug information.
	Logger log.FieldLogger

	// PrometheusLibInstanceLabel is a label for Prometheus metrics.
	// It allows distinguishing metrics from different instances of the same library.
	PrometheusLibInstanceLabel string
}

// Validator is the token-validation pipeline. It combines the token
// extractor, the introspection client, and the principal cache, and applies
// the policy checks in a fixed order: expiry, allow-list, active flag,
// auth type. The first failing check rejects the token.
type Validator struct {
	claimsFetcher  ClaimsFetcher
	cache          PrincipalCache
	allowedClients map[string]struct{}

	logger      log.FieldLogger
	promMetrics *metrics.PrometheusMetrics

	// nowFn is the time source for the expiry gate and cache TTL bound.
	nowFn func() time.Time
}

// NewValidator creates a new Validator with the given claims fetcher.
func NewValidator(claimsFetcher ClaimsFetcher) *Validator {
	return NewValidatorWithOpts(claimsFetcher, ValidatorOpts{})
}

// NewValidatorWithOpts creates a new Validator with the given claims fetcher and options.
// See ValidatorOpts for more details.
func NewValidatorWithOpts(claimsFetcher ClaimsFetcher, opts ValidatorOpts) *Validator {
	opts.Logger = idputil.PrepareLogger(opts.Logger)
	if opts.Cache == nil {
		opts.Cache = disabledPrincipalCache{}
	}
	var allowedClients map[string]struct{}
	if len(opts.AllowedClients) != 0 {
		allowedClients = make(map[string]struct{}, len(opts.AllowedClients))
		for _, clientID := range opts.AllowedClients {
			allowedClients[clientID] = struct{}{}
		}
	}
	return &Validator{
		claimsFetcher:  claimsFetcher,
		cache:          opts.Cache,
		allowedClients: allowedClients,
		logger:         opts.Logger,
		promMetrics:    metrics.GetPrometheusMetrics(opts.PrometheusLibInstanceLabel, metrics.SourceTokenValidator),
		nowFn:          time.Now,
	}
}

// ValidateHeader validates the bearer token carried by the given
// Authorization header value and returns the accepted principal.
// The caller must have already checked that the header is present;
// a missing header is not a pipeline concern.
func (v *Validator) ValidateHeader(ctx context.Context, authHeader string) (*principal.Principal, error) {
	token, err := ExtractBearerToken(authHeader)
	if err != nil {
		v.reject(metrics.TokenValidationStatusUnsupportedCredentials, "token extraction", err)
		return nil, err
	}
	return v.ValidateToken(ctx, token)
}

// ValidateToken validates a raw bearer token: cache lookup, introspection on
// miss, and the policy checks. On success the returned principal has its
// transient raw token already erased.
func (v *Validator) ValidateToken(ctx context.Context, token string) (*principal.Principal, error) {
	p, found := v.cachedPrincipal(ctx, token)
	if !found {
		var err error
		if p, err = v.introspect(ctx, token); err != nil {
			return nil, err
		}
		v.cachePrincipal(ctx, token, p)
	}

	if err := v.checkPolicy(p); err != nil {
		return nil, err
	}

	v.promMetrics.IncTokenValidationsTotal(metrics.TokenValidationStatusAccepted)
	p.EraseToken()
	return p, nil
}

func (v *Validator) introspect(ctx context.Context, token string) (*principal.Principal, error) {
	claims, err := v.claimsFetcher.FetchClaims(ctx, token)
	if err != nil {
		switch err.(type) {
		case *AuthorityError:
			v.reject(metrics.TokenValidationStatusAuthorityError, "introspection", err)
		case *FormatError:
			v.reject(metrics.TokenValidationStatusFormatError, "introspection", err)
		default:
			v.reject(metrics.TokenValidationStatusTransportError, "introspection", err)
		}
		return nil, err
	}

	p, err := principal.FromClaims(claims, token)
	if err != nil {
		formatErr := &FormatError{Inner: err}
		v.reject(metrics.TokenValidationStatusFormatError, "principal construction", formatErr)
		return nil, formatErr
	}
	return p, nil
}

// checkPolicy applies the policy gates in their fixed order. Expiry goes
// first: a cached entry may have outlived the policy window even though the
// store has not evicted it yet, and the remaining checks are business policy
// that should only ever be evaluated against a non-expired token.
func (v *Validator) checkPolicy(p *principal.Principal) error {
	if p.ExpiredAt(v.nowFn()) {
		v.reject(metrics.TokenValidationStatusExpired, "policy check", ErrTokenExpired)
		return ErrTokenExpired
	}
	if v.allowedClients != nil {
		if _, ok := v.allowedClients[p.ClientID]; !ok {
			v.reject(metrics.TokenValidationStatusClientNotAllowed, "policy check", ErrClientNotAllowed)
			return ErrClientNotAllowed
		}
	}
	if !p.Active {
		v.reject(metrics.TokenValidationStatusNotActive, "policy check", ErrTokenNotActive)
		return ErrTokenNotActive
	}
	if p.AuthType != principal.AuthTypeAnonymous {
		err := &UnsupportedAuthTypeError{AuthType: p.AuthType}
		v.reject(metrics.TokenValidationStatusUnsupportedAuthType, "policy check", err)
		return err
	}
	return nil
}

func (v *Validator) cachedPrincipal(ctx context.Context, token string) (*principal.Principal, bool) {
	p, found, err := v.cache.Get(ctx, token)
	if err != nil {
		// Caching is a performance optimization, never a correctness
		// dependency. A failing store degrades to a miss.
		v.logger.Error("principal cache get failed, falling back to introspection", log.Error(err))
		return nil, false
	}
	return p, found
}

func (v *Validator) cachePrincipal(ctx context.Context, token string, p *principal.Principal) {
	expiresAt := p.ExpiresAt
	if maxExpiresAt := v.nowFn().Add(MaxCacheLifetime); expiresAt.After(maxExpiresAt) {
		expiresAt = maxExpiresAt
	}
	if err := v.cache.Put(ctx, token, p, expiresAt); err != nil {
		v.logger.Error("principal cache put failed", log.Error(err))
	}
}

func (v *Validator) reject(status string, component string, err error) {
	v.promMetrics.IncTokenValidationsTotal(status)
	v.logger.Error(fmt.Sprintf("token validation rejected during %s", component), log.Error(err))
}
