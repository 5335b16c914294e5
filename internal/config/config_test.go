package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/calculator-hub/pkg/constants"
)

func TestLoadConfigurationDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadConfiguration(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Server.Address != constants.DefaultServerAddress {
		t.Fatalf("expected default address, got %s", cfg.Server.Address)
	}
	if cfg.Server.MaxBodySizeBytes() != 256*1024 {
		t.Fatalf("expected 256K default body limit, got %d", cfg.Server.MaxBodySizeBytes())
	}
	if cfg.RateLimitPerIP != constants.DefaultRateLimitPerIP {
		t.Fatalf("expected default per-IP ceiling, got %d", cfg.RateLimitPerIP)
	}
	if cfg.Server.ReadTimeout != constants.DefaultReadTimeout {
		t.Fatalf("expected default read timeout, got %s", cfg.Server.ReadTimeout)
	}
	if cfg.Logging.Level != "" || cfg.Logging.Format != "" || cfg.Logging.OutputFile != "" {
		t.Fatalf("expected empty logging defaults, got %+v", cfg.Logging)
	}
	if cfg.Locales.Default != "en" || len(cfg.Locales.Supported) != 4 {
		t.Fatalf("unexpected locale defaults %+v", cfg.Locales)
	}
	if cfg.Cache.Backend != "memory" || cfg.Cache.MaxItems != 1000 {
		t.Fatalf("unexpected cache defaults %+v", cfg.Cache)
	}

	rule := cfg.RateLimit(constants.RateLimitExchange)
	if rule.Limit != 10 || rule.Interval != time.Minute {
		t.Fatalf("unexpected exchange rate limit %+v", rule)
	}
	if rule := cfg.RateLimit(constants.RateLimitAnalytics); rule.Limit != 50 {
		t.Fatalf("unexpected analytics rate limit %+v", rule)
	}
}

func TestLoadConfigurationOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calculator-hub.yaml")

	contents := []byte(`server:
  address: 127.0.0.1:9000
  maxBodySize: 2M
  readTimeout: 3s
  allowedOrigins:
    - https://calculators.example.com
logging:
  level: debug
  format: console
  outputFile: /tmp/server.log
locales:
  default: ES
  supported: [en, es]
rateLimits:
  EXCHANGE_API:
    limit: 3
    interval: 30s
cache:
  backend: Redis
  redisAddr: cache:6379
analytics:
  enabled: true
  sink: kafka
  kafka:
    brokers: [kafka-1:9092]
`)
	if err := os.WriteFile(path, contents, 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Server.Address != "127.0.0.1:9000" {
		t.Fatalf("expected address override, got %s", cfg.Server.Address)
	}
	if cfg.Server.MaxBodySizeBytes() != 2*1024*1024 {
		t.Fatalf("expected body limit override, got %d", cfg.Server.MaxBodySizeBytes())
	}
	if cfg.Server.ReadTimeout != 3*time.Second {
		t.Fatalf("expected read timeout 3s, got %s", cfg.Server.ReadTimeout)
	}
	if len(cfg.Server.AllowedOrigins) != 1 {
		t.Fatalf("expected one allowed origin, got %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Fatalf("unexpected logging %+v", cfg.Logging)
	}
	if cfg.Locales.Default != "es" {
		t.Fatalf("expected normalized default locale es, got %s", cfg.Locales.Default)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.RedisAddr != "cache:6379" {
		t.Fatalf("unexpected cache %+v", cfg.Cache)
	}
	if rule := cfg.RateLimit(constants.RateLimitExchange); rule.Limit != 3 || rule.Interval != 30*time.Second {
		t.Fatalf("expected exchange rate limit override, got %+v", rule)
	}
	// Untouched identifiers keep their defaults.
	if rule := cfg.RateLimit(constants.RateLimitWebhook); rule.Limit != 20 {
		t.Fatalf("expected webhook default, got %+v", rule)
	}
	if !cfg.Analytics.Enabled || cfg.Analytics.Kafka.Brokers[0] != "kafka-1:9092" {
		t.Fatalf("unexpected analytics %+v", cfg.Analytics)
	}
}

func TestLoadConfigurationEnvOverride(t *testing.T) {
	t.Setenv("CALCHUB_SERVER_ADDRESS", ":9999")
	t.Setenv("CALCHUB_WEBHOOK_SECRET", "from-env")

	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if cfg.Server.Address != ":9999" {
		t.Fatalf("expected env address override, got %s", cfg.Server.Address)
	}
	if cfg.Webhook.Secret != "from-env" {
		t.Fatalf("expected env webhook secret, got %q", cfg.Webhook.Secret)
	}
}

func TestLoadConfigurationInvalid(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"Invalid body size", "server:\n  maxBodySize: invalid\n"},
		{"Malformed YAML", "server: [unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfigurationFromReader(strings.NewReader(tt.contents)); err == nil {
				t.Fatal("expected error but got nil")
			}
		})
	}
}

func TestValidateConfiguration(t *testing.T) {
	cfg, err := LoadConfigurationFromReader(strings.NewReader(`
locales:
  default: it
webhook:
  secret: s3cret
admin:
  apiKey: k
analytics:
  enabled: true
  sink: kafka
cache:
  backend: memcached
`))
	if err != nil {
		t.Fatalf("LoadConfigurationFromReader() error = %v", err)
	}

	warnings := cfg.ValidateConfiguration()
	expected := []string{
		`default locale "it"`,
		"analytics kafka sink has no brokers",
		`unknown cache backend "memcached"`,
	}
	for _, want := range expected {
		found := false
		for _, w := range warnings {
			if strings.Contains(w, want) {
				found = true
			}
		}
		if !found {
			t.Errorf("expected warning containing %q in %v", want, warnings)
		}
	}
	for _, w := range warnings {
		if strings.Contains(w, "webhook.secret") || strings.Contains(w, "admin.apiKey") {
			t.Errorf("unexpected warning %q", w)
		}
	}
}

func TestValidateConfigurationDefaults(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	warnings := cfg.ValidateConfiguration()
	if len(warnings) != 2 {
		t.Fatalf("expected webhook and admin warnings only, got %v", warnings)
	}
}

func TestParseSize(t *testing.T) {
	tests := map[string]int64{
		"":          constants.DefaultMaxBodySizeBytes,
		"1024":      1024,
		"512b":      512,
		"256K":      256 * 1024,
		"1m":        1024 * 1024,
		"3MB":       3 * 1024 * 1024,
		"2G":        2 * 1024 * 1024 * 1024,
		"  4096   ": 4096,
	}

	for input, expected := range tests {
		got, err := ParseSize(input)
		if err != nil {
			t.Fatalf("ParseSize(%q) returned error: %v", input, err)
		}
		if got != expected {
			t.Fatalf("ParseSize(%q) = %d, expected %d", input, got, expected)
		}
	}

	if _, err := ParseSize("1TB"); err == nil {
		t.Fatal("expected error for unsupported unit")
	}
	if _, err := ParseSize("abc"); err == nil {
		t.Fatal("expected error for invalid number")
	}
}

func TestLoadExampleConfiguration(t *testing.T) {
	cfg, err := LoadConfiguration(filepath.Join("..", "..", "calculator-hub.yaml.example"))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Server.WriteTimeout != 30*time.Second || cfg.Server.MaxBodySizeBytes() != 256*1024 {
		t.Errorf("unexpected server section %+v", cfg.Server)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging section %+v", cfg.Logging)
	}
	if cfg.RateLimitPerIP != 500 {
		t.Errorf("unexpected per-IP ceiling %d", cfg.RateLimitPerIP)
	}
	if rule := cfg.RateLimit(constants.RateLimitCalculator); rule.Limit != 60 || rule.Interval != time.Minute {
		t.Errorf("unexpected calculator rate limit %+v", rule)
	}
	if cfg.Exchange.Retries != 3 || !cfg.Exchange.FallbackStatic {
		t.Errorf("unexpected exchange section %+v", cfg.Exchange)
	}
	if cfg.Analytics.Kafka.Topic != "calculator-hub.analytics" || cfg.Analytics.SampleRate != 100 {
		t.Errorf("unexpected analytics section %+v", cfg.Analytics)
	}

	warnings := cfg.ValidateConfiguration()
	if len(warnings) != 2 {
		t.Errorf("expected webhook and admin warnings only, got %v", warnings)
	}
}
