package payslip_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/JonMunkholm/payslips/internal/dispatch"
	"github.com/JonMunkholm/payslips/internal/mail"
	"github.com/JonMunkholm/payslips/internal/mocks"
	"github.com/JonMunkholm/payslips/internal/payroll"
	"github.com/JonMunkholm/payslips/internal/payslip"
)

var server = mail.ServerConfig{Host: "smtp.example.com", Port: 465, Username: "u", Password: "p", From: "payroll@example.com"}

func parse(t *testing.T, csv string) []payroll.Record {
	t.Helper()
	recs, err := payroll.Parse(csv)
	require.NoError(t, err)
	return recs
}

func TestService_Deliver(t *testing.T) {
	renderer := mocks.NewMockRendererForTest(t)
	sender := mocks.NewMockSenderForTest(t)
	rec := parse(t, "Employee ID,First Name,Last Name,Email,Date From,Date To,Credit Date,Basic Pay\n"+
		"E-7,Ann,Lee,ann@example.com,01/01/2025,01/15/2025,01/20/2025,1000")[0]

	renderer.EXPECT().Render(gomock.Any(), rec).Return([]byte("%PDF-1.3 fake"), nil)
	sender.EXPECT().Name().Return("smtp").AnyTimes()
	sender.EXPECT().Send(gomock.Any(), gomock.Any(), server).DoAndReturn(
		func(_ context.Context, msg mail.Message, _ mail.ServerConfig) error {
			assert.Equal(t, "ann@example.com", msg.To)
			assert.Equal(t, "Payslip for Ann Lee for the duration from January 1, 2025 to January 15, 2025", msg.Subject)
			require.Len(t, msg.Attachments, 1)
			assert.Equal(t, "Payslip_E-7_01-01-2025.pdf", msg.Attachments[0].Filename)
			assert.Equal(t, "application/pdf", msg.Attachments[0].ContentType)
			assert.Equal(t, []byte("%PDF-1.3 fake"), msg.Attachments[0].Content)
			assert.Contains(t, msg.HTML, "Payslip for Ann Lee")
			assert.Contains(t, msg.HTML, "on January 20, 2025.")
			assert.Contains(t, msg.HTML, "(Please do not reply to this email.)")
			return nil
		})

	svc := payslip.New(renderer, sender, server)
	addr, ok := svc.Address(rec)
	require.True(t, ok)
	require.NoError(t, svc.Deliver(context.Background(), rec, addr))
}

func TestService_MissingEmployeeIDUsesGenerator(t *testing.T) {
	renderer := mocks.NewMockRendererForTest(t)
	rec := parse(t, "email,first name,last name,date from\nbo@example.com,Bo,Chan,2025/02/01")[0]
	renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return([]byte("pdf"), nil)

	svc := payslip.New(renderer, mail.NewLogSender(nil), server, payslip.WithIDFunc(func() string { return "EMP-abc123xyz" }))
	msg, err := svc.Compose(context.Background(), rec, "bo@example.com")
	require.NoError(t, err)

	assert.Equal(t, "Payslip_EMP-abc123xyz_2025-02-01.pdf", msg.Attachments[0].Filename)
	assert.Equal(t, "Payslip for Bo Chan for the duration from February 1, 2025 to ", msg.Subject)
	assert.Contains(t, msg.HTML, "credit to your respective account.")
}

func TestService_DefaultCreditDate(t *testing.T) {
	renderer := mocks.NewMockRendererForTest(t)
	renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return([]byte("pdf"), nil)
	rec := parse(t, "Email,Employee ID\nc@example.com,9")[0]

	svc := payslip.New(renderer, mail.NewLogSender(nil), server, payslip.WithDefaultCreditDate("September 10, 2025"))
	msg, err := svc.Compose(context.Background(), rec, "c@example.com")
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "on September 10, 2025.")
}

func TestService_RenderFailureSkipsSend(t *testing.T) {
	renderer := mocks.NewMockRendererForTest(t)
	sender := mocks.NewMockSenderForTest(t)
	rec := parse(t, "Email\nd@example.com")[0]

	renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return(nil, errors.New("font missing"))
	sender.EXPECT().Name().Return("smtp").AnyTimes()
	sender.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	err := payslip.New(renderer, sender, server).Deliver(context.Background(), rec, "d@example.com")
	assert.ErrorContains(t, err, "font missing")
}

func TestService_EscapesBody(t *testing.T) {
	renderer := mocks.NewMockRendererForTest(t)
	renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return([]byte("pdf"), nil)
	rec := parse(t, "Email,First Name\ne@example.com,<script>x</script>")[0]

	msg, err := payslip.New(renderer, mail.NewLogSender(nil), server).Compose(context.Background(), rec, "e@example.com")
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
}

// instantClock lets the pipeline run without real pauses.
type instantClock struct{}

func (instantClock) Now() time.Time { return time.Time{} }
func (instantClock) Sleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }
func (instantClock) WithTimeout(ctx context.Context, _ time.Duration) (context.Context, context.CancelFunc) {
	return context.WithCancel(ctx)
}

func TestService_WithPipeline(t *testing.T) {
	renderer := mocks.NewMockRendererForTest(t)
	sender := mocks.NewMockSenderForTest(t)
	recs := parse(t, "Email,First Name,Last Name,Date From,Date To,Basic Pay\n"+
		"alice@example.com,Alice,A,01/01/2025,01/15/2025,1000\n"+
		",Bob,B,01/01/2025,01/15/2025,900")

	renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return([]byte("pdf"), nil).Times(1)
	sender.EXPECT().Name().Return("smtp").AnyTimes()
	sender.EXPECT().Send(gomock.Any(), gomock.Any(), server).Return(nil).Times(1)

	svc := payslip.New(renderer, sender, server)
	p, err := dispatch.New(dispatch.DefaultProfile, svc,
		dispatch.WithClock(instantClock{}),
		dispatch.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	res := p.Run(context.Background(), recs, nil)

	assert.Equal(t, 1, res.Summary.Sent)
	assert.Equal(t, 1, res.Summary.Failed)
	assert.Equal(t, "50.0%", res.Summary.SuccessRateString())
	assert.Equal(t, "Processed in 1 batches", res.Summary.ProcessingTime())
	assert.Equal(t, dispatch.NoAddress, res.Outcomes[1].Address)
	assert.Equal(t, dispatch.ReasonMissingAddress, res.Outcomes[1].Reason)
}

func TestDisplayDate(t *testing.T) {
	tests := []struct{ in, want string }{
		{"01/15/2025", "January 15, 2025"},
		{"2025-03-01", "March 1, 2025"},
		{"Sep 10, 2025", "September 10, 2025"},
		{"September 10, 2025", "September 10, 2025"},
		{"end of month", "end of month"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := payslip.DisplayDate(tt.in); got != tt.want {
			t.Errorf("DisplayDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFilename(t *testing.T) {
	got := payslip.Filename("E1", "1/31/2025")
	if got != "Payslip_E1_1-31-2025.pdf" {
		t.Errorf("Filename() = %q", got)
	}
	if strings.Contains(payslip.Filename("E1", "a/b/c"), "/") {
		t.Error("Filename() must not contain slashes")
	}
}
