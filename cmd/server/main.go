package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/JonMunkholm/payslips/internal/config"
	"github.com/JonMunkholm/payslips/internal/logging"
	"github.com/JonMunkholm/payslips/internal/mail"
	"github.com/JonMunkholm/payslips/internal/render"
	"github.com/JonMunkholm/payslips/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"mail_provider", cfg.Mail.Provider,
		"dispatch_profile", cfg.Dispatch.Profile,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	if cfg.Tracing.Enabled {
		tracer.Start(
			tracer.WithService(cfg.Tracing.Service),
			tracer.WithEnv(cfg.Tracing.Env),
		)
		defer tracer.Stop()
		slog.Info("tracing enabled", "service", cfg.Tracing.Service, "env", cfg.Tracing.Env)
	}

	sender, err := mail.NewSender(cfg.Mail.Provider, mail.Options{
		DialTimeout:  cfg.Mail.DialTimeout,
		ResendAPIKey: cfg.Mail.ResendAPIKey,
		DefaultFrom:  cfg.Mail.DefaultFrom,
		Logger:       slog.Default(),
	})
	if err != nil {
		slog.Error("failed to create mail sender", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(cfg, web.Deps{
		Sender:   sender,
		Renderer: render.NewPDF(render.DefaultLayout),
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
