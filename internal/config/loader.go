package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/payslips/internal/dispatch"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Load reads configuration from environment variables, applies defaults
// and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := populate(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration and panics on error.
// Only call it from main.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// populate walks the struct and fills every field carrying an env tag.
func populate(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		fv := v.Field(i)

		// Skip unexported fields
		if !fv.CanSet() {
			continue
		}

		// Recurse into nested sections
		if sf.Type.Kind() == reflect.Struct {
			if err := populate(fv); err != nil {
				return err
			}
			continue
		}

		name := sf.Tag.Get("env")
		if name == "" {
			continue
		}

		// Primary name first, then the alternate
		raw, ok := lookup(name, sf.Tag.Get("envAlt"))
		if !ok {
			if sf.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", name)
			}
			raw = sf.Tag.Get("default")
		}

		// Unset with no default: leave the zero value (nil for pointers)
		if raw == "" {
			continue
		}

		if err := assign(fv, raw); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", name, raw, err)
		}
	}

	return nil
}

// lookup returns the first non-empty value among the primary and alternate names.
func lookup(primary, alt string) (string, bool) {
	if v := strings.TrimSpace(os.Getenv(primary)); v != "" {
		return v, true
	}
	if alt != "" {
		if v := strings.TrimSpace(os.Getenv(alt)); v != "" {
			return v, true
		}
	}
	return "", false
}

// assign parses raw into field. Pointer fields are allocated first, so an
// explicit zero ("0", "0s") is distinguishable from an unset variable.
func assign(field reflect.Value, raw string) error {
	if field.Kind() == reflect.Pointer {
		elem := reflect.New(field.Type().Elem())
		if err := assign(elem.Elem(), raw); err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	// time.Duration is an int64 kind; check it before the integer case
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)

	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)

	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		// Only comma-separated string lists are supported
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		field.Set(reflect.ValueOf(splitList(raw)))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// splitList splits a comma-separated value, trimming entries and dropping empties.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the configuration and reports every failure at once.
func (c *Config) Validate() error {
	var errs []string

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Upload
	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, "UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxConcurrent <= 0 {
		errs = append(errs, "UPLOAD_MAX_CONCURRENT must be positive")
	}
	if c.Upload.MaxWaitTime <= 0 {
		errs = append(errs, "UPLOAD_MAX_WAIT_TIME must be positive")
	}

	// Dispatch
	validProfiles := map[string]bool{"default": true, "aggressive": true, "dedicated": true}
	if !validProfiles[strings.ToLower(c.Dispatch.Profile)] {
		errs = append(errs, fmt.Sprintf("DISPATCH_PROFILE (%q) must be one of: default, aggressive, dedicated", c.Dispatch.Profile))
	}

	// Overrides are optional; when set they must satisfy the profile invariants
	if d := c.Dispatch; d.BatchSize != nil && *d.BatchSize < 1 {
		errs = append(errs, "DISPATCH_BATCH_SIZE must be at least 1")
	}
	if d := c.Dispatch; d.InterBatchDelay != nil && *d.InterBatchDelay < 0 {
		errs = append(errs, "DISPATCH_INTER_BATCH_DELAY must be non-negative")
	}
	if d := c.Dispatch; d.InterItemStagger != nil && *d.InterItemStagger < 0 {
		errs = append(errs, "DISPATCH_INTER_ITEM_STAGGER must be non-negative")
	}
	if d := c.Dispatch; d.PerItemTimeout != nil && *d.PerItemTimeout <= 0 {
		errs = append(errs, "DISPATCH_PER_ITEM_TIMEOUT must be positive")
	}

	// Mail
	switch strings.ToLower(c.Mail.Provider) {
	case "smtp", "log":
	case "resend":
		if c.Mail.ResendAPIKey == "" {
			errs = append(errs, "RESEND_API_KEY is required when MAIL_PROVIDER is resend")
		}
	default:
		errs = append(errs, fmt.Sprintf("MAIL_PROVIDER (%q) must be one of: smtp, resend, log", c.Mail.Provider))
	}
	if c.Mail.DialTimeout <= 0 {
		errs = append(errs, "MAIL_DIAL_TIMEOUT must be positive")
	}

	// Rate limiting
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.Burst <= 0 {
		errs = append(errs, "RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}

	// Logging
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a representation safe for logging; secrets are masked.
func (c *Config) String() string {
	resendKey := ""
	if c.Mail.ResendAPIKey != "" {
		resendKey = "[MASKED]"
	}

	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Addr: %q}, ", c.Server.Addr())
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %d, MaxConcurrent: %d}, ", c.Upload.MaxFileSize, c.Upload.MaxConcurrent)
	fmt.Fprintf(&b, "Dispatch: {Profile: %q, Effective: %s}, ", c.Dispatch.Profile, c.effectiveProfile())
	fmt.Fprintf(&b, "Mail: {Provider: %q, ResendAPIKey: %q}, ", c.Mail.Provider, resendKey)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ", c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}

// effectiveProfile describes the selected profile with overrides applied.
func (c *Config) effectiveProfile() string {
	p, err := dispatch.LookupProfile(c.Dispatch.Profile)
	if err != nil {
		return "unknown"
	}
	p = p.WithOverrides(c.Dispatch.Overrides())
	return fmt.Sprintf("{BatchSize: %d, InterBatchDelay: %s, InterItemStagger: %s, PerItemTimeout: %s}",
		p.BatchSize, p.InterBatchDelay, p.InterItemStagger, p.PerItemTimeout)
}
