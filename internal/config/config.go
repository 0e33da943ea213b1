// Package config provides centralized configuration management for the payslip service.
// Settings come from environment variables with defaults and are validated on
// startup so a misconfigured deployment fails before accepting uploads.
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/JonMunkholm/payslips/internal/dispatch"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Dispatch DispatchConfig
	Mail     MailConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Tracing  TracingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout bounds reading the multipart upload (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout must stay 0 so long-running progress streams are not cut off
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is how long shutdown waits for in-flight runs (default: 2m)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"2m"`
}

// UploadConfig bounds what a single request may submit and how many runs
// may execute at once.
type UploadConfig struct {
	// MaxFileSize is the maximum CSV size in bytes (default: 10MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the number of dispatch runs allowed in parallel (default: 2)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long a request waits for a run slot (default: 5s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"5s"`
}

// DispatchConfig selects the pacing profile. Each override is nil when its
// variable is unset; a set value, zero included, replaces the profile field.
type DispatchConfig struct {
	// Profile is default, aggressive or dedicated (default: default)
	Profile string `env:"DISPATCH_PROFILE" default:"default"`

	// BatchSize is the number of payslips sent concurrently (min 1)
	BatchSize *int `env:"DISPATCH_BATCH_SIZE"`

	// InterBatchDelay is the pause between batches; 0s disables it
	InterBatchDelay *time.Duration `env:"DISPATCH_INTER_BATCH_DELAY"`

	// InterItemStagger offsets item k of a batch by k times this value; 0s disables it
	InterItemStagger *time.Duration `env:"DISPATCH_INTER_ITEM_STAGGER"`

	// PerItemTimeout bounds render plus send for one payslip (must be positive)
	PerItemTimeout *time.Duration `env:"DISPATCH_PER_ITEM_TIMEOUT"`

	// NumericMarkers replaces the built-in list of header substrings that
	// mark a column as numeric. Empty keeps the built-in list.
	NumericMarkers []string `env:"DISPATCH_NUMERIC_MARKERS"`
}

// MailConfig selects and configures the outbound mail transport.
type MailConfig struct {
	// Provider is smtp, resend or log (default: smtp)
	Provider string `env:"MAIL_PROVIDER" default:"smtp"`

	// DialTimeout bounds connecting to the SMTP server (default: 10s)
	DialTimeout time.Duration `env:"MAIL_DIAL_TIMEOUT" default:"10s"`

	// ResendAPIKey is required when Provider is resend
	ResendAPIKey string `env:"RESEND_API_KEY"`

	// DefaultFrom is used when the request does not name a sender
	DefaultFrom string `env:"MAIL_DEFAULT_FROM"`

	// DefaultCreditDate fills the body's credit date when a row has none
	DefaultCreditDate string `env:"MAIL_DEFAULT_CREDIT_DATE"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the sustained rate per client IP (default: 30)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"30"`

	// Burst is the number of requests allowed above the sustained rate (default: 5)
	Burst int `env:"RATE_LIMIT_BURST" default:"5"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// TracingConfig controls the Datadog tracer.
type TracingConfig struct {
	Enabled bool   `env:"DD_TRACE_ENABLED" default:"false"`
	Service string `env:"DD_SERVICE" default:"payslip-mailer"`
	Env     string `env:"DD_ENV"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Overrides returns the configured pacing overrides for the selected profile.
func (c DispatchConfig) Overrides() dispatch.Overrides {
	return dispatch.Overrides{
		BatchSize:        c.BatchSize,
		InterBatchDelay:  c.InterBatchDelay,
		InterItemStagger: c.InterItemStagger,
		PerItemTimeout:   c.PerItemTimeout,
	}
}
