// Package payslip delivers one employee's payslip: it resolves the recipient
// and display fields from the record, renders the PDF, and mails it.
package payslip

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/JonMunkholm/payslips/internal/mail"
	"github.com/JonMunkholm/payslips/internal/payroll"
)

//go:generate mockgen -destination=../mocks/mock_renderer.go -package=mocks . Renderer

// Renderer produces the PDF for one record.
type Renderer interface {
	Render(ctx context.Context, rec payroll.Record) ([]byte, error)
}

// Service implements dispatch.Processor for one run. It is bound to the
// request's mail server settings and safe for concurrent use.
type Service struct {
	renderer      Renderer
	sender        mail.Sender
	server        mail.ServerConfig
	newID         func() string
	defaultCredit string
	logger        *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithIDFunc replaces the generator used for missing employee IDs.
func WithIDFunc(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// WithDefaultCreditDate sets the credit date used when the record has none.
func WithDefaultCreditDate(date string) Option {
	return func(s *Service) { s.defaultCredit = date }
}

// WithLogger sets the logger for delivery diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(renderer Renderer, sender mail.Sender, server mail.ServerConfig, opts ...Option) *Service {
	s := &Service{
		renderer: renderer,
		sender:   sender,
		server:   server,
		newID:    randomEmployeeID,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Address returns the recipient, trying "Email" then "email".
func (s *Service) Address(rec payroll.Record) (string, bool) {
	return AddressChain.Resolve(rec)
}

// Compose builds the message for rec, rendering the PDF attachment.
func (s *Service) Compose(ctx context.Context, rec payroll.Record, address string) (mail.Message, error) {
	employeeID := EmployeeIDChain.ResolveOr(rec, "")
	if employeeID == "" {
		employeeID = s.newID()
	}
	first := FirstNameChain.ResolveOr(rec, "")
	last := LastNameChain.ResolveOr(rec, "")
	dateFrom := DateFromChain.ResolveOr(rec, "")
	dateTo := DateToChain.ResolveOr(rec, "")
	credit := CreditDateChain.ResolveOr(rec, s.defaultCredit)

	pdf, err := s.renderer.Render(ctx, rec)
	if err != nil {
		return mail.Message{}, fmt.Errorf("render payslip: %w", err)
	}

	data := BodyData{
		FirstName:  first,
		LastName:   last,
		DateFrom:   DisplayDate(dateFrom),
		DateTo:     DisplayDate(dateTo),
		CreditDate: DisplayDate(credit),
	}
	html, err := RenderBody(ctx, data)
	if err != nil {
		return mail.Message{}, err
	}

	return mail.Message{
		To:      address,
		Subject: Subject(first, last, data.DateFrom, data.DateTo),
		HTML:    html,
		Attachments: []mail.Attachment{{
			Filename:    Filename(employeeID, dateFrom),
			Content:     pdf,
			ContentType: "application/pdf",
		}},
	}, nil
}

// Deliver renders and sends rec's payslip to address.
func (s *Service) Deliver(ctx context.Context, rec payroll.Record, address string) (err error) {
	span, ctx := tracer.StartSpanFromContext(ctx, "payslip.deliver",
		tracer.ResourceName("payslip.deliver"),
		tracer.Tag("mail.provider", s.sender.Name()),
	)
	defer func() { span.Finish(tracer.WithError(err)) }()

	msg, err := s.Compose(ctx, rec, address)
	if err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "sending payslip",
		"to", address,
		"attachment", msg.Attachments[0].Filename,
		"bytes", len(msg.Attachments[0].Content),
	)

	return s.sender.Send(ctx, msg, s.server)
}
