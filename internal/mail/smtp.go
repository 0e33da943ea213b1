package mail

import (
	"bytes"
	"context"
	"time"

	"github.com/pkg/errors"
	gomail "github.com/wneessen/go-mail"
)

// implicitTLSPort is the SMTPS port; any other port negotiates STARTTLS when offered.
const implicitTLSPort = 465

// SMTPSender sends through the server named in each request. A fresh client is
// dialed per message so concurrent sends never share a connection.
type SMTPSender struct {
	dialTimeout time.Duration
}

// NewSMTPSender returns an SMTP sender; dialTimeout bounds connect and each
// SMTP command.
func NewSMTPSender(dialTimeout time.Duration) *SMTPSender {
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	return &SMTPSender{dialTimeout: dialTimeout}
}

func (s *SMTPSender) Name() string { return "smtp" }

// Send validates the server config, builds the MIME message and delivers it.
// Cancelling ctx aborts the dial and the SMTP conversation.
func (s *SMTPSender) Send(ctx context.Context, msg Message, server ServerConfig) error {
	if err := server.Validate(); err != nil {
		return err
	}

	m, err := buildMsg(msg, server.From)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(server.Host, s.clientOptions(server)...)
	if err != nil {
		return errors.Wrap(err, "smtp client")
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return errors.Wrapf(err, "smtp send to %s", msg.To)
	}
	return nil
}

func (s *SMTPSender) clientOptions(server ServerConfig) []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(server.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(server.Username),
		gomail.WithPassword(server.Password),
		gomail.WithTimeout(s.dialTimeout),
	}
	if server.Port == implicitTLSPort {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	return opts
}

// buildMsg converts a Message into a go-mail message with an HTML body and
// in-memory attachments.
func buildMsg(msg Message, from string) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, errors.Wrap(err, "invalid from address")
	}
	if err := m.To(msg.To); err != nil {
		return nil, errors.Wrap(err, "invalid recipient address")
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, msg.HTML)

	for _, a := range msg.Attachments {
		var opts []gomail.FileOption
		if a.ContentType != "" {
			opts = append(opts, gomail.WithFileContentType(gomail.ContentType(a.ContentType)))
		}
		m.AttachReadSeeker(a.Filename, bytes.NewReader(a.Content), opts...)
	}
	return m, nil
}
