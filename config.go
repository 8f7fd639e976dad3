/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package agencyauth

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/acronis/go-appkit/config"

	"github.com/acronis/go-agencyauth/cache/inmem"
	"github.com/acronis/go-agencyauth/internal/idputil"
)

const cfgDefaultKeyPrefix = "auth"

const (
	cfgKeyHTTPClientRequestTimeout  = "httpClient.requestTimeout"
	cfgKeyIntrospectionEndpoint     = "introspection.endpoint"
	cfgKeyIntrospectionClientID     = "introspection.clientId"
	cfgKeyIntrospectionClientSecret = "introspection.clientSecret" // nolint:gosec // false positive
	cfgKeyAllowedClients            = "allowedClients"
	cfgKeyCacheEnabled              = "cache.enabled"
	cfgKeyCacheMaxEntries           = "cache.maxEntries"
	cfgKeyCacheRedisAddr            = "cache.redis.addr"
	cfgKeyCacheRedisPassword        = "cache.redis.password"
	cfgKeyCacheRedisDB              = "cache.redis.db"
)

// Config represents a set of configuration parameters for token validation.
type Config struct {
	HTTPClient HTTPClientConfig `mapstructure:"httpClient" yaml:"httpClient" json:"httpClient"`

	Introspection IntrospectionConfig `mapstructure:"introspection" yaml:"introspection" json:"introspection"`

	// AllowedClients is the client-id allow-list. Empty means any client id is allowed.
	// A single element may carry several comma-separated ids.
	AllowedClients []string `mapstructure:"allowedClients" yaml:"allowedClients" json:"allowedClients"`

	Cache CacheConfig `mapstructure:"cache" yaml:"cache" json:"cache"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{
		keyPrefix: opts.keyPrefix,
		HTTPClient: HTTPClientConfig{
			RequestTimeout: config.TimeDuration(idputil.DefaultHTTPRequestTimeout),
		},
		Cache: CacheConfig{
			MaxEntries: inmem.DefaultMaxEntries,
		},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for auth in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyHTTPClientRequestTimeout, idputil.DefaultHTTPRequestTimeout.String())
	dp.SetDefault(cfgKeyCacheMaxEntries, inmem.DefaultMaxEntries)
}

// IntrospectionConfig is a configuration of how tokens will be introspected.
type IntrospectionConfig struct {
	// Endpoint is the URL of the authority's introspection endpoint.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`

	// ClientID and ClientSecret are the HTTP Basic credentials for calling the endpoint.
	ClientID     string `mapstructure:"clientId" yaml:"clientId" json:"clientId"`
	ClientSecret string `mapstructure:"clientSecret" yaml:"clientSecret" json:"clientSecret"`
}

// CacheConfig is a configuration of how validated principals will be cached.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// MaxEntries bounds the in-memory cache. It's ignored when Redis is configured.
	MaxEntries int `mapstructure:"maxEntries" yaml:"maxEntries" json:"maxEntries"`

	Redis RedisCacheConfig `mapstructure:"redis" yaml:"redis" json:"redis"`
}

// RedisCacheConfig is a configuration of the Redis-backed principal cache.
// An empty Addr means the in-memory cache is used instead.
type RedisCacheConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr" json:"addr"`
	Password string `mapstructure:"password" yaml:"password" json:"password"`
	DB       int    `mapstructure:"db" yaml:"db" json:"db"`
}

type HTTPClientConfig struct {
	RequestTimeout config.TimeDuration `mapstructure:"requestTimeout" yaml:"requestTimeout" json:"requestTimeout"`
}

// Set sets auth configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	var reqDuration time.Duration
	if reqDuration, err = dp.GetDuration(cfgKeyHTTPClientRequestTimeout); err != nil {
		return err
	}
	c.HTTPClient.RequestTimeout = config.TimeDuration(reqDuration)

	if c.Introspection.Endpoint, err = dp.GetString(cfgKeyIntrospectionEndpoint); err != nil {
		return err
	}
	if _, err = url.Parse(c.Introspection.Endpoint); err != nil {
		return dp.WrapKeyErr(cfgKeyIntrospectionEndpoint, err)
	}
	if c.Introspection.ClientID, err = dp.GetString(cfgKeyIntrospectionClientID); err != nil {
		return err
	}
	if c.Introspection.ClientSecret, err = dp.GetString(cfgKeyIntrospectionClientSecret); err != nil {
		return err
	}

	var allowedClients []string
	if allowedClients, err = dp.GetStringSlice(cfgKeyAllowedClients); err != nil {
		return err
	}
	c.AllowedClients = normalizeAllowedClients(allowedClients)

	if c.Cache.Enabled, err = dp.GetBool(cfgKeyCacheEnabled); err != nil {
		return err
	}
	if c.Cache.MaxEntries, err = dp.GetInt(cfgKeyCacheMaxEntries); err != nil {
		return err
	}
	if c.Cache.MaxEntries < 0 {
		return dp.WrapKeyErr(cfgKeyCacheMaxEntries, fmt.Errorf("max entries should be non-negative"))
	}
	if c.Cache.Redis.Addr, err = dp.GetString(cfgKeyCacheRedisAddr); err != nil {
		return err
	}
	if c.Cache.Redis.Password, err = dp.GetString(cfgKeyCacheRedisPassword); err != nil {
		return err
	}
	if c.Cache.Redis.DB, err = dp.GetInt(cfgKeyCacheRedisDB); err != nil {
		return err
	}

	return nil
}

// normalizeAllowedClients flattens comma-separated allow-list entries and
// trims whitespace. Deployments historically supplied the whole list as one
// comma-separated string.
func normalizeAllowedClients(entries []string) []string {
	var result []string
	for _, entry := range entries {
		for _, clientID := range strings.Split(entry, ",") {
			if clientID = strings.TrimSpace(clientID); clientID != "" {
				result = append(result, clientID)
			}
		}
	}
	return result
}
