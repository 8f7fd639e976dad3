/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package agencyauth

import (
	"fmt"
	"time"

	"github.com/acronis/go-appkit/log"
	"github.com/redis/go-redis/v9"

	"github.com/acronis/go-agencyauth/agencytoken"
	"github.com/acronis/go-agencyauth/cache/inmem"
	"github.com/acronis/go-agencyauth/cache/rediscache"
	"github.com/acronis/go-agencyauth/internal/idputil"
	"github.com/acronis/go-agencyauth/internal/metrics"
)

// NewValidator creates a new token Validator with the given configuration.
// The principal cache is chosen from the configuration: Redis-backed when
// cfg.Cache.Redis.Addr is set, in-memory otherwise, and fully disabled when
// cfg.Cache.Enabled is false (validation stays correct, every call
// introspects remotely).
func NewValidator(cfg *Config, opts ...ValidatorOption) (*agencytoken.Validator, error) {
	if cfg.Introspection.Endpoint == "" {
		return nil, fmt.Errorf("introspection endpoint is not configured")
	}

	options := validatorOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	introspector := agencytoken.NewIntrospectorWithOpts(
		cfg.Introspection.Endpoint,
		cfg.Introspection.ClientID,
		cfg.Introspection.ClientSecret,
		agencytoken.IntrospectorOpts{
			HTTPClient: idputil.MakeDefaultHTTPClient(
				time.Duration(cfg.HTTPClient.RequestTimeout), options.logger),
			Logger:                     options.logger,
			PrometheusLibInstanceLabel: options.prometheusLibInstanceLabel,
		},
	)

	cache := options.cache
	if cache == nil && cfg.Cache.Enabled {
		var err error
		if cache, err = makePrincipalCache(cfg, options.prometheusLibInstanceLabel); err != nil {
			return nil, err
		}
	}

	return agencytoken.NewValidatorWithOpts(introspector, agencytoken.ValidatorOpts{
		Cache:                      cache,
		AllowedClients:             cfg.AllowedClients,
		Logger:                     options.logger,
		PrometheusLibInstanceLabel: options.prometheusLibInstanceLabel,
	}), nil
}

func makePrincipalCache(cfg *Config, promLibInstanceLabel string) (agencytoken.PrincipalCache, error) {
	if cfg.Cache.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		return rediscache.New(client), nil
	}
	promMetrics := metrics.GetPrometheusMetrics(promLibInstanceLabel, metrics.SourceTokenValidator)
	cache, err := inmem.New(cfg.Cache.MaxEntries, promMetrics.PrincipalCache)
	if err != nil {
		return nil, fmt.Errorf("new in-memory principal cache: %w", err)
	}
	return cache, nil
}

type validatorOptions struct {
	logger                     log.FieldLogger
	prometheusLibInstanceLabel string
	cache                      agencytoken.PrincipalCache
}

// ValidatorOption is an option for creating Validator.
type ValidatorOption func(options *validatorOptions)

// WithValidatorLogger sets the logger for Validator.
func WithValidatorLogger(logger log.FieldLogger) ValidatorOption {
	return func(options *validatorOptions) {
		options.logger = logger
	}
}

// WithValidatorPrometheusLibInstanceLabel sets the Prometheus lib instance label for Validator.
func WithValidatorPrometheusLibInstanceLabel(label string) ValidatorOption {
	return func(options *validatorOptions) {
		options.prometheusLibInstanceLabel = label
	}
}

// WithValidatorCache sets a custom principal cache for Validator,
// overriding the cache configuration.
func WithValidatorCache(cache agencytoken.PrincipalCache) ValidatorOption {
	return func(options *validatorOptions) {
		options.cache = cache
	}
}
