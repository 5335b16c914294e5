// Package constants provides shared constants for the calculator-hub application.
package constants

import "time"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// MaxInterestRatePercent is the upper bound accepted for an annual interest rate
	MaxInterestRatePercent = 100.0

	// MaxTermYears is the longest loan term accepted
	MaxTermYears = 50

	// MaxCurrencyAmount is the largest amount accepted for a currency conversion
	MaxCurrencyAmount = 999999999.99
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"

	// OutputFormatXLSX is the spreadsheet output format
	OutputFormatXLSX = "xlsx"

	// OutputFormatPDF is the printable output format
	OutputFormatPDF = "pdf"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "calculator-hub.yaml"

	// EnvPrefix prefixes every environment variable override
	EnvPrefix = "CALCHUB"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes is the default maximum request body size (256 KB)
	DefaultMaxBodySizeBytes int64 = 256 * 1024

	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
)

// Locale defaults
const (
	// DefaultLocale is served when no supported locale matches
	DefaultLocale = "en"
)

// SupportedLocales lists the locales served out of the box.
var SupportedLocales = []string{"en", "es", "fr", "de"}

// Rate limit identifiers, one bucket family per API route group.
const (
	RateLimitExchange   = "EXCHANGE_API"
	RateLimitAnalytics  = "ANALYTICS_API"
	RateLimitWebhook    = "WEBHOOK_API"
	RateLimitCalculator = "CALCULATOR_API"
	RateLimitConversion = "CONVERSION_API"

	// DefaultRateLimitPerIP caps the requests a single IP may make across all
	// identifiers within one interval.
	DefaultRateLimitPerIP = 500
)

// Cache defaults
const (
	DefaultCacheMaxItems             = 1000
	DefaultCacheMaxAge               = time.Hour
	DefaultCacheStaleWhileRevalidate = 5 * time.Minute
)

// PercentageMultiplier is used for percentage conversions
const PercentageMultiplier = 100.0
