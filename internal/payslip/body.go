package payslip

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// BodyData is everything the notification email shows.
type BodyData struct {
	FirstName  string
	LastName   string
	DateFrom   string
	DateTo     string
	CreditDate string
}

// Body is the HTML email component. Every interpolated value is escaped.
func Body(d BodyData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		e := templ.EscapeString[string]
		period := e(d.DateFrom) + " to " + e(d.DateTo)

		credit := "This has been approved for credit to your respective account."
		if d.CreditDate != "" {
			credit = "This has been approved for credit to your respective account on " + e(d.CreditDate) + "."
		}

		_, err := fmt.Fprintf(w, `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; line-height: 1.6;">
<h2 style="color: #0097b2; margin-bottom: 5px;">Payslip for %s %s</h2>
<p style="color: #666; margin-top: 0; font-size: 16px;">for the duration from %s</p>
<div style="margin: 25px 0;">
<p style="margin: 15px 0;">Hi,</p>
<p style="margin: 15px 0;">Attached is your payslip for the period covering from %s. %s</p>
<p style="margin: 15px 0;">If you have any questions or issues regarding your payroll or payslip, please get in touch with the payroll accountant.</p>
<p style="margin: 15px 0; color: #666; font-style: italic;">(Please do not reply to this email.)</p>
</div>
</div>`, e(d.FirstName), e(d.LastName), period, period, credit)
		return err
	})
}

// RenderBody renders Body to a string.
func RenderBody(ctx context.Context, d BodyData) (string, error) {
	var buf bytes.Buffer
	if err := Body(d).Render(ctx, &buf); err != nil {
		return "", fmt.Errorf("render email body: %w", err)
	}
	return buf.String(), nil
}
