// Package progress writes run progress as a server-sent event stream. Every
// event is a single "data: <json>" frame; the stream ends after exactly one
// terminal frame, either an error or the completion report.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/JonMunkholm/payslips/internal/dispatch"
)

// ErrClosed is returned for writes after the terminal frame.
var ErrClosed = errors.New("progress stream closed")

// BatchProgress is the wire form of dispatch.BatchProgress.
type BatchProgress struct {
	CurrentBatch int `json:"currentBatch"`
	TotalBatches int `json:"totalBatches"`
	BatchSize    int `json:"batchSize"`
}

// Status is the counters snapshot carried by status and complete frames.
type Status struct {
	Total         int            `json:"total"`
	Sent          int            `json:"sent"`
	Failed        int            `json:"failed"`
	Current       string         `json:"current"`
	BatchProgress *BatchProgress `json:"batchProgress,omitempty"`
}

// Summary closes a successful run.
type Summary struct {
	SuccessRate    string `json:"successRate"`
	ProcessingTime string `json:"processingTime"`
}

type errorFrame struct {
	Error string `json:"error"`
}

type statusFrame struct {
	Status Status `json:"status"`
}

type completeFrame struct {
	Complete bool    `json:"complete"`
	Status   Status  `json:"status"`
	Summary  Summary `json:"summary"`
}

// Stream serialises frames onto w. It is safe for concurrent use, although
// the pipeline only writes from one goroutine.
type Stream struct {
	mu     sync.Mutex
	w      io.Writer
	flush  func() error
	closed bool
	err    error
}

// NewStream writes frames to w and calls flush, if non-nil, after each one.
func NewStream(w io.Writer, flush func() error) *Stream {
	return &Stream{w: w, flush: flush}
}

// NewHTTPStream prepares w for server-sent events and returns a stream over
// it. Flushing goes through http.ResponseController so wrapped writers that
// implement Unwrap still flush.
func NewHTTPStream(w http.ResponseWriter) *Stream {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	s := NewStream(w, rc.Flush)
	_ = s.flushNow()
	return s
}

// Status writes a non-terminal progress frame.
func (s *Stream) Status(st Status) error {
	return s.write(statusFrame{Status: st}, false)
}

// Complete writes the terminal success frame and closes the stream.
func (s *Stream) Complete(st Status, sum Summary) error {
	return s.write(completeFrame{Complete: true, Status: st, Summary: sum}, true)
}

// Fail writes the terminal error frame and closes the stream.
func (s *Stream) Fail(message string) error {
	return s.write(errorFrame{Error: message}, true)
}

// Closed reports whether a terminal frame has been written.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Err returns the first write error, typically a disconnected client.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) write(frame any, terminal bool) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode progress frame: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if terminal {
		s.closed = true
	}
	// Once the client is gone there is nobody to write to; the run carries on.
	if s.err != nil {
		return s.err
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		s.err = err
		return err
	}
	if s.flush != nil {
		if err := s.flush(); err != nil {
			s.err = err
			return err
		}
	}
	return nil
}

func (s *Stream) flushNow() error {
	if s.flush == nil {
		return nil
	}
	return s.flush()
}

// Observe adapts the stream to dispatch.EmitFunc. Write errors are recorded
// on the stream and surface through Err.
func (s *Stream) Observe(ev dispatch.Event) {
	st := StatusFrom(ev.Progress)
	if ev.Kind == dispatch.EventComplete && ev.Summary != nil {
		_ = s.Complete(st, SummaryFrom(*ev.Summary))
		return
	}
	_ = s.Status(st)
}

// StatusFrom converts a pipeline snapshot to its wire form.
func StatusFrom(p dispatch.Progress) Status {
	st := Status{Total: p.Total, Sent: p.Sent, Failed: p.Failed, Current: p.Label}
	if p.Batch != nil {
		st.BatchProgress = &BatchProgress{
			CurrentBatch: p.Batch.Current,
			TotalBatches: p.Batch.Total,
			BatchSize:    p.Batch.Size,
		}
	}
	return st
}

// SummaryFrom converts a pipeline summary to its wire form.
func SummaryFrom(s dispatch.Summary) Summary {
	return Summary{SuccessRate: s.SuccessRateString(), ProcessingTime: s.ProcessingTime()}
}
