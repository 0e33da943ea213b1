// Package mail delivers rendered payslips. Senders share one interface so the
// dispatch path does not care whether mail leaves over SMTP, through the
// Resend API, or only into the log.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrInvalidConfig is returned when a ServerConfig lacks required settings.
var ErrInvalidConfig = errors.New("invalid email config")

// ServerConfig is the per-request outbound mail server configuration. The
// JSON names match the emailConfig form part.
type ServerConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"user"`
	Password string `json:"password"`
	From     string `json:"from"`
}

// Validate reports every missing or out-of-range setting.
func (c ServerConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Host) == "" {
		missing = append(missing, "host")
	}
	if c.Port <= 0 || c.Port > 65535 {
		missing = append(missing, "port")
	}
	if strings.TrimSpace(c.Username) == "" {
		missing = append(missing, "user")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if strings.TrimSpace(c.From) == "" {
		missing = append(missing, "from")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing or invalid %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

// LogValue keeps the password out of structured logs.
func (c ServerConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("host", c.Host),
		slog.Int("port", c.Port),
		slog.String("user", c.Username),
		slog.String("from", c.From),
	)
}

// Attachment is a file carried by a Message.
type Attachment struct {
	Filename    string
	Content     []byte
	ContentType string
}

// Message is one outbound email.
type Message struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

//go:generate mockgen -destination=../mocks/mock_sender.go -package=mocks . Sender

// Sender delivers a message. Implementations must be safe for concurrent use
// and should stop work when ctx is done.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message, server ServerConfig) error
}
