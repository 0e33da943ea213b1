// Command payslipctl runs payslip jobs from the shell.
//
//	payslipctl send -csv payroll.csv [-profile dedicated]
//	payslipctl preview -csv payroll.csv -out ./pdfs
//	payslipctl inspect -csv payroll.csv
//
// send reads the SMTP settings from SMTP_HOST, SMTP_PORT, SMTP_USER,
// SMTP_PASSWORD and SMTP_FROM and writes the progress events to stdout in
// the same format the HTTP endpoint streams. inspect prints every parsed row as
// one JSON object per line, so the numeric column detection can be checked
// before a mailing. Logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/payslips/internal/config"
	"github.com/JonMunkholm/payslips/internal/dispatch"
	"github.com/JonMunkholm/payslips/internal/logging"
	"github.com/JonMunkholm/payslips/internal/mail"
	"github.com/JonMunkholm/payslips/internal/payroll"
	"github.com/JonMunkholm/payslips/internal/payslip"
	"github.com/JonMunkholm/payslips/internal/progress"
	"github.com/JonMunkholm/payslips/internal/render"
)

func main() {
	_ = godotenv.Overload()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "send":
		err = runSend(ctx, cfg, logger, os.Args[2:])
	case "preview":
		err = runPreview(ctx, cfg, os.Args[2:])
	case "inspect":
		err = runInspect(cfg, logger, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error(os.Args[1]+" failed", "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: payslipctl <send|preview|inspect> -csv FILE [flags]")
}

func readRecords(cfg *config.Config, path string) ([]payroll.Record, error) {
	return readRecordsWith(payroll.NewClassifier(cfg.Dispatch.NumericMarkers...), path)
}

func readRecordsWith(classifier *payroll.Classifier, path string) ([]payroll.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return payroll.NewParser(classifier).ParseReader(f)
}

func serverFromEnv(cfg *config.Config) (mail.ServerConfig, error) {
	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		port = 0
	}
	server := mail.ServerConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     port,
		Username: os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}
	if server.From == "" {
		server.From = cfg.Mail.DefaultFrom
	}
	return server, server.Validate()
}

func runSend(ctx context.Context, cfg *config.Config, logger *slog.Logger, args []string) error {
	cmd := flag.NewFlagSet("send", flag.ExitOnError)
	csvPath := cmd.String("csv", "", "payroll CSV file")
	profileName := cmd.String("profile", cfg.Dispatch.Profile, "dispatch profile: default, aggressive or dedicated")
	cmd.Parse(args)

	if *csvPath == "" {
		cmd.Usage()
		return fmt.Errorf("-csv is required")
	}
	return send(ctx, cfg, logger, os.Stdout, *csvPath, *profileName)
}

// send runs one mailing and writes its progress frames to out. Setup failures
// end the stream with an error frame, as the HTTP endpoint does.
func send(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer, csvPath, profileName string) error {
	stream := progress.NewStream(out, nil)

	pipeline, records, err := prepareSend(cfg, logger, csvPath, profileName)
	if err != nil {
		_ = stream.Fail(err.Error())
		return err
	}

	res := pipeline.Run(ctx, records, stream.Observe)

	logger.Info("run finished",
		"sent", res.Summary.Sent,
		"failed", res.Summary.Failed,
		"success_rate", res.Summary.SuccessRateString(),
		"elapsed", res.Elapsed.String(),
	)
	if res.Summary.Failed > 0 {
		return fmt.Errorf("%d of %d payslips failed", res.Summary.Failed, res.Summary.Total)
	}
	return nil
}

func prepareSend(cfg *config.Config, logger *slog.Logger, csvPath, profileName string) (*dispatch.Pipeline, []payroll.Record, error) {
	server, err := serverFromEnv(cfg)
	if err != nil {
		return nil, nil, err
	}
	profile, err := dispatch.LookupProfile(profileName)
	if err != nil {
		return nil, nil, err
	}
	profile = profile.WithOverrides(cfg.Dispatch.Overrides())

	records, err := readRecords(cfg, csvPath)
	if err != nil {
		return nil, nil, err
	}

	sender, err := mail.NewSender(cfg.Mail.Provider, mail.Options{
		DialTimeout:  cfg.Mail.DialTimeout,
		ResendAPIKey: cfg.Mail.ResendAPIKey,
		DefaultFrom:  cfg.Mail.DefaultFrom,
		Logger:       logger,
	})
	if err != nil {
		return nil, nil, err
	}

	svc := payslip.New(render.NewPDF(render.DefaultLayout), sender, server,
		payslip.WithDefaultCreditDate(cfg.Mail.DefaultCreditDate),
		payslip.WithLogger(logger),
	)
	pipeline, err := dispatch.New(profile, svc, dispatch.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return pipeline, records, nil
}

func runPreview(ctx context.Context, cfg *config.Config, args []string) error {
	cmd := flag.NewFlagSet("preview", flag.ExitOnError)
	csvPath := cmd.String("csv", "", "payroll CSV file")
	outDir := cmd.String("out", "payslips", "output directory")
	workers := cmd.Int("workers", 4, "parallel renders")
	cmd.Parse(args)

	if *csvPath == "" {
		cmd.Usage()
		return fmt.Errorf("-csv is required")
	}

	records, err := readRecords(cfg, *csvPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	renderer := render.NewPDF(render.DefaultLayout)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*workers, 1))

	for i, rec := range records {
		g.Go(func() error {
			id := payslip.EmployeeIDChain.ResolveOr(rec, fmt.Sprintf("row%d", i+1))
			name := payslip.Filename(id, payslip.DateFromChain.ResolveOr(rec, ""))

			pdf, err := renderer.Render(ctx, rec)
			if err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			path := filepath.Join(*outDir, name)
			if err := os.WriteFile(path, pdf, 0o644); err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		})
	}
	return g.Wait()
}

func runInspect(cfg *config.Config, logger *slog.Logger, args []string) error {
	cmd := flag.NewFlagSet("inspect", flag.ExitOnError)
	csvPath := cmd.String("csv", "", "payroll CSV file")
	cmd.Parse(args)

	if *csvPath == "" {
		cmd.Usage()
		return fmt.Errorf("-csv is required")
	}
	return inspect(cfg, logger, os.Stdout, *csvPath)
}

// inspect logs how each column was classified and writes the records to out
// as JSON lines.
func inspect(cfg *config.Config, logger *slog.Logger, out io.Writer, csvPath string) error {
	classifier := payroll.NewClassifier(cfg.Dispatch.NumericMarkers...)
	logger.Debug("numeric markers", "markers", classifier.Markers())

	records, err := readRecordsWith(classifier, csvPath)
	if err != nil {
		return err
	}

	// Every record shares the header row, so the first one describes the columns
	columns := make([]any, 0, 2*records[0].Len())
	for _, f := range records[0].Fields() {
		columns = append(columns, f.Header, f.Value.Kind().String())
	}
	logger.Info("columns", columns...)

	enc := json.NewEncoder(out)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	logger.Info("inspected", "records", len(records))
	return nil
}
