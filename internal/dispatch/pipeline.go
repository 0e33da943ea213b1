// Package dispatch runs the batched bulk-send loop: records are split into
// fixed-size batches, each batch is processed concurrently with a small
// per-item stagger, every item races a timeout, and batches are separated by
// a pause. Failures are counted, never fatal.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/payslips/internal/payroll"
)

// Processor delivers a single record. The pipeline asks it for the address
// first and never calls Deliver for a record without one.
//
// Deliver receives a context that is cancelled when the item's timeout
// expires. An implementation that ignores it keeps running in the background
// after the pipeline has already recorded the timeout.
type Processor interface {
	Address(rec payroll.Record) (string, bool)
	Deliver(ctx context.Context, rec payroll.Record, address string) error
}

// Result is what a run returns: the summary plus one outcome per record in
// input order.
type Result struct {
	Summary  Summary
	Outcomes []Outcome
	Elapsed  time.Duration
}

// Pipeline executes runs with a fixed profile. It is safe to reuse across
// runs; each Run call is independent.
type Pipeline struct {
	profile   Profile
	processor Processor
	clock     Clock
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithLogger sets the logger used for per-record outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New validates profile and returns a Pipeline.
func New(profile Profile, processor Processor, opts ...Option) (*Pipeline, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if processor == nil {
		return nil, errors.New("dispatch: nil processor")
	}

	p := &Pipeline{
		profile:   profile,
		processor: processor,
		clock:     SystemClock{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Pipeline) Profile() Profile { return p.profile }

// Run processes every record and returns once all of them have an outcome.
// Events are delivered to emit synchronously and in order: one start event,
// a batch_start and batch_done pair per batch, then one complete event.
//
// Cancelling ctx shortens pending sleeps and cancels in-flight items, which
// then fail with the context error; the run still reports every record.
func (p *Pipeline) Run(ctx context.Context, records []payroll.Record, emit EmitFunc) Result {
	if emit == nil {
		emit = func(Event) {}
	}

	started := p.clock.Now()
	total := len(records)
	batches := p.profile.Batches(total)
	outcomes := make([]Outcome, total)
	sent, failed := 0, 0

	snapshot := func(label string, batch *BatchProgress) Progress {
		return Progress{Total: total, Sent: sent, Failed: failed, Label: label, Batch: batch}
	}

	emit(Event{
		Kind:     EventStart,
		Progress: snapshot("Starting batch processing...", &BatchProgress{Current: 0, Total: batches, Size: p.profile.BatchSize}),
	})

	for b := 0; b < batches; b++ {
		lo := b * p.profile.BatchSize
		hi := min(lo+p.profile.BatchSize, total)
		progress := &BatchProgress{Current: b + 1, Total: batches, Size: hi - lo}

		emit(Event{
			Kind:     EventBatchStart,
			Progress: snapshot(fmt.Sprintf("Processing batch %d/%d", b+1, batches), progress),
		})

		p.runBatch(ctx, records[lo:hi], lo, outcomes[lo:hi])

		for _, o := range outcomes[lo:hi] {
			if o.Sent() {
				sent++
			} else {
				failed++
			}
		}

		emit(Event{
			Kind:     EventBatchDone,
			Progress: snapshot(fmt.Sprintf("Completed batch %d/%d", b+1, batches), progress),
		})

		if b < batches-1 {
			_ = p.clock.Sleep(ctx, p.profile.InterBatchDelay)
		}
	}

	summary := newSummary(total, sent, failed, batches)
	emit(Event{
		Kind:     EventComplete,
		Progress: snapshot("Complete", nil),
		Summary:  &summary,
	})

	return Result{
		Summary:  summary,
		Outcomes: outcomes,
		Elapsed:  p.clock.Now().Sub(started),
	}
}

// runBatch processes one batch concurrently and fills out; out[k] belongs to
// the k-th record of the batch, so goroutines never share a slot.
func (p *Pipeline) runBatch(ctx context.Context, batch []payroll.Record, offset int, out []Outcome) {
	var g errgroup.Group
	for k, rec := range batch {
		g.Go(func() error {
			_ = p.clock.Sleep(ctx, time.Duration(k)*p.profile.InterItemStagger)
			out[k] = p.runItem(ctx, offset+k, rec)
			return nil
		})
	}
	_ = g.Wait()
}

// runItem resolves the address and races Deliver against the item timeout.
func (p *Pipeline) runItem(ctx context.Context, index int, rec payroll.Record) Outcome {
	address, ok, err := p.address(rec)
	if err != nil || !ok {
		o := Outcome{Index: index, Address: NoAddress, Status: StatusFailed, Reason: ReasonMissingAddress}
		if err != nil {
			o.Reason = err.Error()
		}
		p.logOutcome(ctx, o)
		return o
	}

	itemCtx, cancel := p.clock.WithTimeout(ctx, p.profile.PerItemTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- p.deliver(itemCtx, rec, address)
	}()

	o := Outcome{Index: index, Address: address}
	select {
	case err := <-done:
		switch {
		case err == nil:
			o.Status = StatusSent
		case timedOut(ctx, itemCtx):
			// The collaborator noticed the deadline before we did.
			o.Status, o.Reason = StatusFailed, ReasonTimeout
		default:
			o.Status, o.Reason = StatusFailed, err.Error()
		}
	case <-itemCtx.Done():
		o.Status = StatusFailed
		if timedOut(ctx, itemCtx) {
			o.Reason = ReasonTimeout
		} else {
			o.Reason = itemCtx.Err().Error()
		}
	}

	p.logOutcome(ctx, o)
	return o
}

// timedOut reports whether the item's own deadline fired, as opposed to the
// whole run being cancelled.
func timedOut(run, item context.Context) bool {
	return run.Err() == nil && errors.Is(item.Err(), context.DeadlineExceeded)
}

// address resolves the recipient, turning a panic into an error like deliver.
func (p *Pipeline) address(rec payroll.Record) (address string, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	address, ok = p.processor.Address(rec)
	return address, ok, nil
}

// deliver converts a collaborator panic into an error so one bad record cannot
// take the run down.
func (p *Pipeline) deliver(ctx context.Context, rec payroll.Record, address string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.processor.Deliver(ctx, rec, address)
}

func (p *Pipeline) logOutcome(ctx context.Context, o Outcome) {
	if o.Sent() {
		p.logger.InfoContext(ctx, "payslip sent", "index", o.Index, "address", o.Address)
		return
	}
	p.logger.WarnContext(ctx, "payslip failed", "index", o.Index, "address", o.Address, "reason", o.Reason)
}
