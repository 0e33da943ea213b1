// Package web provides the HTTP server for the payslip mailer.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/JonMunkholm/payslips/internal/config"
	"github.com/JonMunkholm/payslips/internal/dispatch"
	"github.com/JonMunkholm/payslips/internal/mail"
	"github.com/JonMunkholm/payslips/internal/payroll"
	"github.com/JonMunkholm/payslips/internal/payslip"
	"github.com/JonMunkholm/payslips/internal/web/middleware"
)

// Deps are the collaborators a Server hands to every run. Clock and NewRunID
// default to the real clock and random UUIDs.
type Deps struct {
	Sender   mail.Sender
	Renderer payslip.Renderer
	Clock    dispatch.Clock
	Limiter  *dispatch.RunLimiter
	NewRunID func() string
}

// Server is the HTTP server for the payslip mailer.
type Server struct {
	cfg        *config.Config
	deps       Deps
	classifier *payroll.Classifier
	limiter    *rateLimiter
	router     *chi.Mux
	server     *http.Server
}

// NewServer creates a Server from validated configuration.
func NewServer(cfg *config.Config, deps Deps) *Server {
	if deps.Clock == nil {
		deps.Clock = dispatch.SystemClock{}
	}
	if deps.Limiter == nil {
		deps.Limiter = dispatch.NewRunLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	}
	if deps.NewRunID == nil {
		deps.NewRunID = uuid.NewString
	}

	s := &Server{
		cfg:        cfg,
		deps:       deps,
		classifier: payroll.NewClassifier(cfg.Dispatch.NumericMarkers...),
		router:     chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.limiter = newRateLimiter(s.cfg.Rate.RequestsPerMinute, s.cfg.Rate.Burst)
	}
}

func (s *Server) setupRoutes() {
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, errMethodNotAllowed, http.StatusMethodNotAllowed)
	})
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.middleware)
		}
		r.Get("/profiles", s.handleProfiles)
		r.Post("/send-payslips", s.handleSendPayslips)
	})
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops admitting runs, then stops the listener and waits for open
// requests, in-flight runs included. Runs still holding a slot after that are
// given until ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.close()
	}
	s.deps.Limiter.Close()

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}

	// Runs are detached from their request, so check the slots as well
	if active := s.deps.Limiter.Active(); active > 0 {
		slog.Info("waiting for payslip runs to complete", "active", active)
		if drainErr := s.deps.Limiter.WaitForDrain(ctx); drainErr != nil {
			slog.Warn("payslip runs did not complete in time", "error", drainErr)
			return errors.Join(err, drainErr)
		}
		slog.Info("all payslip runs completed")
	}
	return err
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			}
			next.ServeHTTP(w, r)
		})
	}
}
