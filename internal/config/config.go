// Package config defines the site configuration and loads it from YAML with
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/iwvelando/calculator-hub/pkg/constants"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for calculator-hub.
type Configuration struct {
	Server     ServerConfig             `mapstructure:"server" yaml:"server"`
	Logging    LoggingConfig            `mapstructure:"logging" yaml:"logging,omitempty"`
	Locales    LocalesConfig            `mapstructure:"locales" yaml:"locales"`
	RateLimits map[string]RateLimitRule `mapstructure:"rateLimits" yaml:"rateLimits"`
	// RateLimitPerIP caps one client's requests across every route identifier
	// within a window.
	RateLimitPerIP int             `mapstructure:"rateLimitPerIP" yaml:"rateLimitPerIP"`
	Cache          CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Exchange       ExchangeConfig  `mapstructure:"exchange" yaml:"exchange"`
	Analytics      AnalyticsConfig `mapstructure:"analytics" yaml:"analytics"`
	Webhook        WebhookConfig   `mapstructure:"webhook" yaml:"webhook"`
	Admin          AdminConfig     `mapstructure:"admin" yaml:"admin"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level,omitempty"`           // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format,omitempty"`         // json, console
	OutputFile string `mapstructure:"outputFile" yaml:"outputFile,omitempty"` // optional file output
}

// ServerConfig defines runtime parameters for the HTTP server.
type ServerConfig struct {
	Address         string        `mapstructure:"address" yaml:"address"`
	MaxBodySize     string        `mapstructure:"maxBodySize" yaml:"maxBodySize"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout" yaml:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout" yaml:"writeTimeout"`
	IdleTimeout     time.Duration `mapstructure:"idleTimeout" yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout" yaml:"shutdownTimeout"`
	AllowedOrigins  []string      `mapstructure:"allowedOrigins" yaml:"allowedOrigins"`

	maxBodySizeBytes int64
}

// MaxBodySizeBytes returns the configured request body limit in bytes.
func (s ServerConfig) MaxBodySizeBytes() int64 {
	if s.maxBodySizeBytes <= 0 {
		return constants.DefaultMaxBodySizeBytes
	}
	return s.maxBodySizeBytes
}

// LocalesConfig lists the locales served under /{locale}/.
type LocalesConfig struct {
	Default   string   `mapstructure:"default" yaml:"default"`
	Supported []string `mapstructure:"supported" yaml:"supported"`
}

// RateLimitRule allows Limit requests per Interval for one route identifier.
type RateLimitRule struct {
	Limit    int           `mapstructure:"limit" yaml:"limit"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// CacheConfig selects and tunes the response cache backend.
type CacheConfig struct {
	Backend              string        `mapstructure:"backend" yaml:"backend"` // memory, redis
	RedisAddr            string        `mapstructure:"redisAddr" yaml:"redisAddr"`
	RedisPassword        string        `mapstructure:"redisPassword" yaml:"redisPassword,omitempty"`
	RedisDB              int           `mapstructure:"redisDB" yaml:"redisDB"`
	MaxItems             int           `mapstructure:"maxItems" yaml:"maxItems"`
	DefaultMaxAge        time.Duration `mapstructure:"defaultMaxAge" yaml:"defaultMaxAge"`
	StaleWhileRevalidate time.Duration `mapstructure:"staleWhileRevalidate" yaml:"staleWhileRevalidate"`
}

// ExchangeConfig points at the upstream exchange rate provider.
type ExchangeConfig struct {
	BaseURL        string        `mapstructure:"baseURL" yaml:"baseURL"`
	PairBaseURL    string        `mapstructure:"pairBaseURL" yaml:"pairBaseURL"`
	APIKey         string        `mapstructure:"apiKey" yaml:"apiKey,omitempty"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Retries        int           `mapstructure:"retries" yaml:"retries"`
	CacheTTL       time.Duration `mapstructure:"cacheTTL" yaml:"cacheTTL"`
	StaleTTL       time.Duration `mapstructure:"staleTTL" yaml:"staleTTL"`
	FallbackStatic bool          `mapstructure:"fallbackStatic" yaml:"fallbackStatic"`
}

// AnalyticsConfig controls where analytics beacons are forwarded.
type AnalyticsConfig struct {
	Enabled       bool        `mapstructure:"enabled" yaml:"enabled"`
	Sink          string      `mapstructure:"sink" yaml:"sink"` // log, http, kafka
	Endpoint      string      `mapstructure:"endpoint" yaml:"endpoint"`
	MeasurementID string      `mapstructure:"measurementId" yaml:"measurementId,omitempty"`
	APISecret     string      `mapstructure:"apiSecret" yaml:"apiSecret,omitempty"`
	Kafka         KafkaConfig `mapstructure:"kafka" yaml:"kafka"`
	SampleRate    float64     `mapstructure:"sampleRate" yaml:"sampleRate"`
	ExcludePaths  []string    `mapstructure:"excludePaths" yaml:"excludePaths"`
}

// KafkaConfig names the brokers and topic for the kafka analytics sink.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers" yaml:"brokers"`
	Topic   string   `mapstructure:"topic" yaml:"topic"`
}

// WebhookConfig holds the shared secret used to sign incoming webhooks.
type WebhookConfig struct {
	Secret  string        `mapstructure:"secret" yaml:"secret,omitempty"`
	MaxSkew time.Duration `mapstructure:"maxSkew" yaml:"maxSkew"`
}

// AdminConfig guards the administrative routes.
type AdminConfig struct {
	APIKey string `mapstructure:"apiKey" yaml:"apiKey,omitempty"`
}

// Default rate limits per route identifier.
var defaultRateLimits = map[string]RateLimitRule{
	constants.RateLimitExchange:   {Limit: 10, Interval: time.Minute},
	constants.RateLimitAnalytics:  {Limit: 50, Interval: time.Minute},
	constants.RateLimitWebhook:    {Limit: 20, Interval: time.Minute},
	constants.RateLimitCalculator: {Limit: 60, Interval: time.Minute},
	constants.RateLimitConversion: {Limit: 10, Interval: time.Minute},
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.address", constants.DefaultServerAddress)
	v.SetDefault("server.maxBodySize", "256K")
	v.SetDefault("server.readTimeout", constants.DefaultReadTimeout)
	v.SetDefault("server.writeTimeout", constants.DefaultWriteTimeout)
	v.SetDefault("server.idleTimeout", constants.DefaultIdleTimeout)
	v.SetDefault("server.shutdownTimeout", constants.DefaultShutdownTimeout)
	v.SetDefault("server.allowedOrigins", []string{})

	v.SetDefault("logging.level", "")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.outputFile", "")

	v.SetDefault("locales.default", constants.DefaultLocale)
	v.SetDefault("locales.supported", constants.SupportedLocales)

	for id, rule := range defaultRateLimits {
		v.SetDefault("rateLimits."+id+".limit", rule.Limit)
		v.SetDefault("rateLimits."+id+".interval", rule.Interval)
	}

	v.SetDefault("rateLimitPerIP", constants.DefaultRateLimitPerIP)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redisAddr", "localhost:6379")
	v.SetDefault("cache.redisPassword", "")
	v.SetDefault("cache.redisDB", 0)
	v.SetDefault("cache.maxItems", constants.DefaultCacheMaxItems)
	v.SetDefault("cache.defaultMaxAge", constants.DefaultCacheMaxAge)
	v.SetDefault("cache.staleWhileRevalidate", constants.DefaultCacheStaleWhileRevalidate)

	v.SetDefault("exchange.baseURL", "https://api.exchangerate-api.com/v4/latest")
	v.SetDefault("exchange.pairBaseURL", "https://v6.exchangerate-api.com/v6")
	v.SetDefault("exchange.apiKey", "")
	v.SetDefault("exchange.timeout", 5*time.Second)
	v.SetDefault("exchange.retries", 3)
	v.SetDefault("exchange.cacheTTL", time.Hour)
	v.SetDefault("exchange.staleTTL", 5*time.Minute)
	v.SetDefault("exchange.fallbackStatic", true)

	v.SetDefault("analytics.enabled", false)
	v.SetDefault("analytics.sink", "log")
	v.SetDefault("analytics.endpoint", "https://www.google-analytics.com/mp/collect")
	v.SetDefault("analytics.measurementId", "")
	v.SetDefault("analytics.apiSecret", "")
	v.SetDefault("analytics.kafka.brokers", []string{})
	v.SetDefault("analytics.kafka.topic", "calculator-hub.analytics")
	v.SetDefault("analytics.sampleRate", 100.0)
	v.SetDefault("analytics.excludePaths", []string{})

	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.maxSkew", 5*time.Minute)

	v.SetDefault("admin.apiKey", "")
	return v
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. A missing file yields the defaults.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("error reading config file, %w", err)
		default:
			if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
				return nil, fmt.Errorf("error parsing config file, %w", err)
			}
		}
	}
	return decode(v)
}

// LoadConfigurationFromReader loads YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error parsing config, %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	if err := configuration.normalize(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

func (c *Configuration) normalize() error {
	if c.Server.Address == "" {
		c.Server.Address = constants.DefaultServerAddress
	}
	size, err := ParseSize(c.Server.MaxBodySize)
	if err != nil {
		return err
	}
	if size <= 0 {
		size = constants.DefaultMaxBodySizeBytes
	}
	c.Server.maxBodySizeBytes = size

	// Keys come back lowercased from viper; identifiers are upper case.
	limits := make(map[string]RateLimitRule, len(c.RateLimits))
	for id, rule := range c.RateLimits {
		limits[strings.ToUpper(id)] = rule
	}
	c.RateLimits = limits

	c.Locales.Default = strings.ToLower(strings.TrimSpace(c.Locales.Default))
	if c.Locales.Default == "" {
		c.Locales.Default = constants.DefaultLocale
	}
	if len(c.Locales.Supported) == 0 {
		c.Locales.Supported = append([]string(nil), constants.SupportedLocales...)
	}
	for i, l := range c.Locales.Supported {
		c.Locales.Supported[i] = strings.ToLower(strings.TrimSpace(l))
	}

	c.Cache.Backend = strings.ToLower(c.Cache.Backend)
	c.Analytics.Sink = strings.ToLower(c.Analytics.Sink)
	return nil
}

// RateLimit returns the rule for identifier, falling back to the built-in default.
func (c *Configuration) RateLimit(identifier string) RateLimitRule {
	if rule, ok := c.RateLimits[identifier]; ok && rule.Limit > 0 && rule.Interval > 0 {
		return rule
	}
	if rule, ok := defaultRateLimits[identifier]; ok {
		return rule
	}
	return RateLimitRule{Limit: 60, Interval: time.Minute}
}

// RateLimitRules returns the effective rule for every known identifier plus
// any extra identifiers present in the file.
func (c *Configuration) RateLimitRules() map[string]RateLimitRule {
	rules := make(map[string]RateLimitRule, len(defaultRateLimits))
	for id := range defaultRateLimits {
		rules[id] = c.RateLimit(id)
	}
	for id := range c.RateLimits {
		rules[id] = c.RateLimit(id)
	}
	return rules
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	defaultSupported := false
	for _, l := range c.Locales.Supported {
		if l == c.Locales.Default {
			defaultSupported = true
		}
	}
	if !defaultSupported {
		warnings = append(warnings, fmt.Sprintf("default locale %q is not in the supported list %v",
			c.Locales.Default, c.Locales.Supported))
	}

	for id, rule := range c.RateLimits {
		if rule.Limit <= 0 || rule.Interval <= 0 {
			warnings = append(warnings, fmt.Sprintf("rate limit %s is not positive and will use the default", id))
		}
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			warnings = append(warnings, "redis cache backend selected without cache.redisAddr; falling back to memory")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("unknown cache backend %q; falling back to memory", c.Cache.Backend))
	}

	if c.Exchange.APIKey == "" && !c.Exchange.FallbackStatic {
		warnings = append(warnings, "exchange.apiKey is empty and static fallback is disabled; rate lookups may fail")
	}

	if c.Analytics.Enabled {
		switch c.Analytics.Sink {
		case "log":
		case "http":
			if c.Analytics.MeasurementID == "" || c.Analytics.APISecret == "" {
				warnings = append(warnings, "analytics http sink needs measurementId and apiSecret")
			}
		case "kafka":
			if len(c.Analytics.Kafka.Brokers) == 0 {
				warnings = append(warnings, "analytics kafka sink has no brokers configured")
			}
		default:
			warnings = append(warnings, fmt.Sprintf("unknown analytics sink %q; startup will fail", c.Analytics.Sink))
		}
		if c.Analytics.SampleRate < 0 || c.Analytics.SampleRate > 100 {
			warnings = append(warnings, fmt.Sprintf("analytics sampleRate %.1f outside 0-100", c.Analytics.SampleRate))
		}
	}

	if c.Webhook.Secret == "" {
		warnings = append(warnings, "webhook.secret is empty; all webhooks will be rejected")
	}
	if c.Admin.APIKey == "" {
		warnings = append(warnings, "admin.apiKey is empty; admin routes are disabled")
	}

	return warnings
}
