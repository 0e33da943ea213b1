package mail

import (
	"context"

	"github.com/pkg/errors"
	"github.com/resend/resend-go/v2"
)

// ResendSender delivers through the Resend HTTP API. Only the From address of
// the request's ServerConfig is used; host and credentials belong to SMTP.
type ResendSender struct {
	client      *resend.Client
	defaultFrom string
}

// NewResendSender creates a sender for the given API key. defaultFrom is used
// when the request carries no From address.
func NewResendSender(apiKey, defaultFrom string) *ResendSender {
	return &ResendSender{
		client:      resend.NewClient(apiKey),
		defaultFrom: defaultFrom,
	}
}

func (r *ResendSender) Name() string { return "resend" }

func (r *ResendSender) Send(ctx context.Context, msg Message, server ServerConfig) error {
	from := server.From
	if from == "" {
		from = r.defaultFrom
	}
	if from == "" {
		return errors.Wrap(ErrInvalidConfig, "resend: no from address")
	}

	params := &resend.SendEmailRequest{
		From:    from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	for _, a := range msg.Attachments {
		params.Attachments = append(params.Attachments, &resend.Attachment{
			Content:  a.Content,
			Filename: a.Filename,
		})
	}

	if _, err := r.client.Emails.SendWithContext(ctx, params); err != nil {
		return errors.Wrapf(err, "resend send to %s", msg.To)
	}
	return nil
}
