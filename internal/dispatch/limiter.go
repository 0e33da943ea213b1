package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrTooManyRuns is returned when every run slot stays busy for the whole
// admission wait.
var ErrTooManyRuns = errors.New("too many payslip runs in progress, please try again shortly")

// ErrShuttingDown is returned by Acquire once the limiter is closed.
var ErrShuttingDown = errors.New("server is shutting down, no new payslip runs accepted")

// RunLimiter caps how many runs execute at once. Each run holds one slot for
// its whole duration, so the cap bounds concurrent SMTP connections to
// MaxRuns × batch size.
type RunLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64

	closed    chan struct{}
	closeOnce sync.Once
}

// LimiterStatus is a monitoring snapshot.
type LimiterStatus struct {
	Active    int `json:"active"`
	Available int `json:"available"`
	MaxRuns   int `json:"max_runs"`
}

// NewRunLimiter allows maxRuns concurrent runs; callers wait up to maxWait
// for a slot.
func NewRunLimiter(maxRuns int, maxWait time.Duration) *RunLimiter {
	if maxRuns <= 0 {
		maxRuns = 1
	}
	if maxWait <= 0 {
		maxWait = 5 * time.Second
	}
	return &RunLimiter{
		slots:   make(chan struct{}, maxRuns),
		maxWait: maxWait,
		closed:  make(chan struct{}),
	}
}

// Acquire waits for a slot and returns the function that gives it back. The
// release function is safe to call more than once.
func (l *RunLimiter) Acquire(ctx context.Context) (release func(), err error) {
	if l.Closed() {
		return nil, ErrShuttingDown
	}

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
	case <-l.closed:
		return nil, ErrShuttingDown
	case <-timer.C:
		return nil, ErrTooManyRuns
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// Close may have raced the send above
	if l.Closed() {
		<-l.slots
		return nil, ErrShuttingDown
	}

	l.active.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() {
			l.active.Add(-1)
			<-l.slots
		})
	}, nil
}

// Close stops admitting runs. Waiting callers get ErrShuttingDown; runs that
// already hold a slot keep it until they release.
func (l *RunLimiter) Close() {
	l.closeOnce.Do(func() { close(l.closed) })
}

// Closed reports whether Close has been called.
func (l *RunLimiter) Closed() bool {
	select {
	case <-l.closed:
		return true
	default:
		return false
	}
}

// Active returns the number of runs holding a slot.
func (l *RunLimiter) Active() int { return int(l.active.Load()) }

func (l *RunLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:    l.Active(),
		Available: cap(l.slots) - len(l.slots),
		MaxRuns:   cap(l.slots),
	}
}

// WaitForDrain blocks until no run holds a slot or ctx is done. Used on
// shutdown so in-flight runs can finish their batches.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for l.Active() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
