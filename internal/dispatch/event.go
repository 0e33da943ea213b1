package dispatch

import (
	"fmt"
	"math"
)

// Status is the terminal state of one record.
type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Failure reasons produced by the pipeline itself. Collaborator failures use
// the collaborator's error text.
const (
	ReasonMissingAddress = "missing address"
	ReasonTimeout        = "timeout"

	// NoAddress stands in for the address of a record that has none.
	NoAddress = "no address"
)

// Outcome is the result of dispatching one record.
type Outcome struct {
	Index   int    `json:"index"`
	Address string `json:"address"`
	Status  Status `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

func (o Outcome) Sent() bool { return o.Status == StatusSent }

// EventKind orders the events of a run.
type EventKind string

const (
	EventStart      EventKind = "start"
	EventBatchStart EventKind = "batch_start"
	EventBatchDone  EventKind = "batch_done"
	EventComplete   EventKind = "complete"
)

// BatchProgress locates the run within its batches. Current is 1-based; 0
// means no batch has started. Size is the length of the current batch.
type BatchProgress struct {
	Current int `json:"currentBatch"`
	Total   int `json:"totalBatches"`
	Size    int `json:"batchSize"`
}

// Progress is a snapshot of the run's counters.
type Progress struct {
	Total  int
	Sent   int
	Failed int
	Label  string
	Batch  *BatchProgress
}

// Summary is the terminal report of a run.
type Summary struct {
	Total   int
	Sent    int
	Failed  int
	Batches int

	// SuccessRate is a percentage rounded to one decimal place.
	SuccessRate float64
}

func newSummary(total, sent, failed, batches int) Summary {
	rate := 0.0
	if total > 0 {
		rate = math.Round(float64(sent)/float64(total)*1000) / 10
	}
	return Summary{Total: total, Sent: sent, Failed: failed, Batches: batches, SuccessRate: rate}
}

// SuccessRateString formats the rate as "50.0%".
func (s Summary) SuccessRateString() string {
	return fmt.Sprintf("%.1f%%", s.SuccessRate)
}

// ProcessingTime describes how the run was processed.
func (s Summary) ProcessingTime() string {
	return fmt.Sprintf("Processed in %d batches", s.Batches)
}

// Event is emitted by Pipeline.Run. Summary is set only on EventComplete.
type Event struct {
	Kind     EventKind
	Progress Progress
	Summary  *Summary
}

// EmitFunc receives events in order from the goroutine running the pipeline.
type EmitFunc func(Event)
