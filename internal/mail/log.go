package mail

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogSender records messages in the log instead of sending them. Useful for
// dry runs against real payroll files.
type LogSender struct {
	Logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{Logger: logger}
}

func (l *LogSender) Name() string { return "log" }

func (l *LogSender) Send(ctx context.Context, msg Message, server ServerConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	size := 0
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		size += len(a.Content)
		names = append(names, a.Filename)
	}

	l.Logger.InfoContext(ctx, "mail: payslip logged (not sent)",
		"provider", "log",
		"from", server.From,
		"to", msg.To,
		"subject", msg.Subject,
		"html_length", len(msg.HTML),
		"attachments", names,
		"attachment_bytes", size,
		"fake_message_id", "log-"+uuid.NewString(),
	)
	return nil
}
