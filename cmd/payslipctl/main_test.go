package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/payslips/internal/config"
	"github.com/JonMunkholm/payslips/internal/payroll"
)

func testConfig() *config.Config {
	return &config.Config{
		Dispatch: config.DispatchConfig{Profile: "default"},
		Mail:     config.MailConfig{Provider: "log"},
	}
}

func setSMTPEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "587")
	t.Setenv("SMTP_USER", "payroll")
	t.Setenv("SMTP_PASSWORD", "secret")
	t.Setenv("SMTP_FROM", "payroll@example.com")
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payroll.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSend_SetupErrorsEndStreamWithErrorFrame(t *testing.T) {
	tests := []struct {
		name      string
		csv       string
		smtpHost  string
		profile   string
		wantFrame string
	}{
		{
			name:      "empty csv",
			csv:       "",
			smtpHost:  "smtp.example.com",
			profile:   "default",
			wantFrame: `data: {"error":"` + payroll.ErrEmptyInput.Error() + `"}` + "\n\n",
		},
		{
			name:      "missing smtp host",
			csv:       "Email\na@example.com",
			smtpHost:  "",
			profile:   "default",
			wantFrame: `data: {"error":"invalid email config: missing or invalid host"}` + "\n\n",
		},
		{
			name:      "unknown profile",
			csv:       "Email\na@example.com",
			smtpHost:  "smtp.example.com",
			profile:   "turbo",
			wantFrame: `data: {"error":"unknown dispatch profile: \"turbo\""}` + "\n\n",
		},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setSMTPEnv(t)
			t.Setenv("SMTP_HOST", tt.smtpHost)

			var out bytes.Buffer
			err := send(context.Background(), testConfig(), logger, &out, writeCSV(t, tt.csv), tt.profile)

			require.Error(t, err)
			assert.Equal(t, tt.wantFrame, out.String())
		})
	}
}

func TestInspect_WritesRecordsAndColumnKinds(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cfg := testConfig()
	cfg.Dispatch.NumericMarkers = []string{"Pay"}

	var out bytes.Buffer
	err := inspect(cfg, logger, &out, writeCSV(t, "Name,Basic Pay,Bonus\nAnn,1000.5,12\nBo,900,3\n"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		`{"Name":"Ann","Basic Pay":1000.5,"Bonus":"12"}`,
		`{"Name":"Bo","Basic Pay":900,"Bonus":"3"}`,
	}, lines)

	assert.Contains(t, logs.String(), "markers=[Pay]")
	assert.Contains(t, logs.String(), `Name=text "Basic Pay"=number Bonus=text`)
}

func TestInspect_EmptyCSV(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var out bytes.Buffer

	err := inspect(testConfig(), logger, &out, writeCSV(t, "Name\n"))

	require.ErrorIs(t, err, payroll.ErrEmptyInput)
	assert.Empty(t, out.String())
}
