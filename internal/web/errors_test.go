package web

import (
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/payslips/internal/dispatch"
	"github.com/JonMunkholm/payslips/internal/mail"
	"github.com/JonMunkholm/payslips/internal/payroll"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{"nil error returns empty", nil, "", ""},
		{"missing file", fmt.Errorf("%w: no such file", errMissingFile), "FILE004", "Missing file or email config"},
		{"missing config", errMissingConfig, "CFG001", "Missing file or email config"},
		{"file too large", errFileTooLarge, "FILE001", "CSV file is too large"},
		{"body too large", errors.New("multipart: NextPart: http: request body too large"), "FILE001", "CSV file is too large"},
		{"empty csv", payroll.ErrEmptyInput, "FILE005", "CSV file is empty or invalid"},
		{"bad json", fmt.Errorf("%w: unexpected EOF", errConfigJSON), "CFG002", "Email config is not valid JSON"},
		{"incomplete config", fmt.Errorf("%w: missing or invalid host", mail.ErrInvalidConfig), "CFG002", "Email config is incomplete"},
		{"unknown profile", fmt.Errorf("%w: %q", dispatch.ErrUnknownProfile, "x"), "CFG002", "Unknown dispatch profile"},
		{"busy", dispatch.ErrTooManyRuns, "RUN001", "Another payslip run is in progress"},
		{"shutting down", dispatch.ErrShuttingDown, "RUN002", "Server is shutting down"},
		{"rate limited", errRateLimited, "RATE001", "Too many requests"},
		{"unknown falls back", errors.New("something odd"), "ERR000", "Failed to process payslips"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestMapError_PatternsHaveActions(t *testing.T) {
	for _, ep := range errorPatterns {
		if ep.msg.Action == "" || ep.msg.Code == "" {
			t.Errorf("pattern %q is missing an action or code", ep.pattern)
		}
	}
}
