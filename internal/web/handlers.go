package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/JonMunkholm/payslips/internal/dispatch"
	"github.com/JonMunkholm/payslips/internal/logging"
	"github.com/JonMunkholm/payslips/internal/mail"
	"github.com/JonMunkholm/payslips/internal/payroll"
	"github.com/JonMunkholm/payslips/internal/payslip"
	"github.com/JonMunkholm/payslips/internal/progress"
)

// multipartSlack covers the form fields and part headers around the CSV.
const multipartSlack = 1 << 20

// sendRequest is a validated POST /api/send-payslips body.
type sendRequest struct {
	records []payroll.Record
	server  mail.ServerConfig
	profile dispatch.Profile
}

// handleSendPayslips reads the upload, then reports everything over the
// event stream, including request errors. The run is detached from the
// client: a dropped connection stops the progress stream, not the mailing.
func (s *Server) handleSendPayslips(w http.ResponseWriter, r *http.Request) {
	req, reqErr := s.readSendRequest(w, r)

	stream := progress.NewHTTPStream(w)
	if reqErr != nil {
		s.streamError(stream, r, reqErr)
		return
	}

	release, err := s.deps.Limiter.Acquire(r.Context())
	if err != nil {
		s.streamError(stream, r, err)
		return
	}
	defer release()

	ctx := logging.WithRunID(context.WithoutCancel(r.Context()), s.deps.NewRunID())
	logger := logging.WithFields(ctx,
		"profile", req.profile.Name,
		"records", len(req.records),
		"smtp", req.server,
	)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("payslip run panicked", "panic", rec, "stack", string(debug.Stack()))
			_ = stream.Fail(defaultMessage.Message)
		}
	}()

	span, ctx := tracer.StartSpanFromContext(ctx, "payslip.run",
		tracer.ResourceName(r.URL.Path),
		tracer.Tag("dispatch.profile", req.profile.Name),
		tracer.Tag("dispatch.records", len(req.records)),
	)
	defer span.Finish()

	svc := payslip.New(s.deps.Renderer, s.deps.Sender, req.server,
		payslip.WithDefaultCreditDate(s.cfg.Mail.DefaultCreditDate),
		payslip.WithLogger(logger),
	)
	pipeline, err := dispatch.New(req.profile, svc,
		dispatch.WithClock(s.deps.Clock),
		dispatch.WithLogger(logger),
	)
	if err != nil {
		s.streamError(stream, r, err)
		return
	}

	logger.Info("payslip run started")
	res := pipeline.Run(ctx, req.records, stream.Observe)

	logger.Info("payslip run finished",
		"sent", res.Summary.Sent,
		"failed", res.Summary.Failed,
		"batches", res.Summary.Batches,
		"success_rate", res.Summary.SuccessRateString(),
		"duration_ms", res.Elapsed.Milliseconds(),
	)
	if err := stream.Err(); err != nil {
		logger.Warn("progress stream lost before completion", "error", err)
	}
}

// readSendRequest parses and validates the multipart body. It must run before
// the stream writes its headers, since HTTP/1.x may not allow reading the
// body afterwards.
func (s *Server) readSendRequest(w http.ResponseWriter, r *http.Request) (sendRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+multipartSlack)

	if err := r.ParseMultipartForm(multipartSlack); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return sendRequest{}, fmt.Errorf("%w: %v", errFileTooLarge, err)
		}
		return sendRequest{}, fmt.Errorf("%w: %v", errMissingFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return sendRequest{}, fmt.Errorf("%w: %v", errMissingFile, err)
	}
	defer file.Close()
	if header.Size > s.cfg.Upload.MaxFileSize {
		return sendRequest{}, fmt.Errorf("%w: %d bytes", errFileTooLarge, header.Size)
	}

	rawConfig := r.FormValue("emailConfig")
	if rawConfig == "" {
		rawConfig = r.FormValue("config")
	}
	if strings.TrimSpace(rawConfig) == "" {
		return sendRequest{}, errMissingConfig
	}

	var server mail.ServerConfig
	if err := json.Unmarshal([]byte(rawConfig), &server); err != nil {
		return sendRequest{}, fmt.Errorf("%w: %v", errConfigJSON, err)
	}
	if server.From == "" {
		server.From = s.cfg.Mail.DefaultFrom
	}
	if err := server.Validate(); err != nil {
		return sendRequest{}, err
	}

	profileName := r.FormValue("profile")
	if profileName == "" {
		profileName = s.cfg.Dispatch.Profile
	}
	profile, err := dispatch.LookupProfile(profileName)
	if err != nil {
		return sendRequest{}, err
	}
	profile = profile.WithOverrides(s.cfg.Dispatch.Overrides())

	records, err := payroll.NewParser(s.classifier).ParseReader(file)
	if err != nil {
		return sendRequest{}, err
	}

	return sendRequest{records: records, server: server, profile: profile}, nil
}

// streamError logs err and sends its user-facing message as the terminal
// event.
func (s *Server) streamError(stream *progress.Stream, r *http.Request, err error) {
	userMsg := MapError(err)
	logging.FromContext(r.Context()).Error("payslip request rejected",
		"error", err,
		"code", userMsg.Code,
	)
	_ = stream.Fail(userMsg.Message)
}

// profileView is the JSON shape of a profile, with durations in milliseconds.
type profileView struct {
	Name               string `json:"name"`
	BatchSize          int    `json:"batchSize"`
	InterBatchDelayMS  int64  `json:"interBatchDelayMs"`
	InterItemStaggerMS int64  `json:"interItemStaggerMs"`
	PerItemTimeoutMS   int64  `json:"perItemTimeoutMs"`
	Default            bool   `json:"default"`
}

// handleProfiles lists the named profiles with configured overrides applied.
func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	overrides := s.cfg.Dispatch.Overrides()
	profiles := dispatch.Profiles()
	views := make([]profileView, 0, len(profiles))
	for _, p := range profiles {
		p = p.WithOverrides(overrides)
		views = append(views, profileView{
			Name:               p.Name,
			BatchSize:          p.BatchSize,
			InterBatchDelayMS:  p.InterBatchDelay.Milliseconds(),
			InterItemStaggerMS: p.InterItemStagger.Milliseconds(),
			PerItemTimeoutMS:   p.PerItemTimeout.Milliseconds(),
			Default:            strings.EqualFold(p.Name, s.cfg.Dispatch.Profile),
		})
	}
	writeJSON(w, views)
}

// handleHealth reports liveness and run-slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":   "ok",
		"provider": s.deps.Sender.Name(),
		"runs":     s.deps.Limiter.Status(),
	})
}
