package mail

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Options configures NewSender.
type Options struct {
	DialTimeout  time.Duration
	ResendAPIKey string
	DefaultFrom  string
	Logger       *slog.Logger
}

// NewSender returns the sender registered under provider: smtp, resend or log.
func NewSender(provider string, opts Options) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "smtp":
		return NewSMTPSender(opts.DialTimeout), nil
	case "resend":
		if opts.ResendAPIKey == "" {
			return nil, fmt.Errorf("resend provider requires an API key")
		}
		return NewResendSender(opts.ResendAPIKey, opts.DefaultFrom), nil
	case "log":
		return NewLogSender(opts.Logger), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", provider)
	}
}
