package progress

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/payslips/internal/dispatch"
)

func frames(body string) []string {
	var out []string
	for _, chunk := range strings.Split(body, "\n\n") {
		if chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

func TestNewHTTPStream_Headers(t *testing.T) {
	rec := httptest.NewRecorder()

	s := NewHTTPStream(rec)
	require.NoError(t, s.Fail("Missing file or email config"))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rec.Header().Get("Connection"))
	assert.True(t, rec.Flushed)
	assert.Equal(t, "data: {\"error\":\"Missing file or email config\"}\n\n", rec.Body.String())
}

func TestStream_ClosesExactlyOnce(t *testing.T) {
	var buf bytes.Buffer
	s := NewStream(&buf, nil)

	require.NoError(t, s.Status(Status{Total: 2, Current: "Starting batch processing..."}))
	require.NoError(t, s.Complete(Status{Total: 2, Sent: 2}, Summary{SuccessRate: "100.0%", ProcessingTime: "Processed in 1 batches"}))

	assert.True(t, s.Closed())
	assert.ErrorIs(t, s.Status(Status{}), ErrClosed)
	assert.ErrorIs(t, s.Fail("late"), ErrClosed)
	assert.Len(t, frames(buf.String()), 2)
}

func TestStream_FramesFormat(t *testing.T) {
	var buf bytes.Buffer
	s := NewStream(&buf, nil)

	require.NoError(t, s.Status(Status{
		Total: 12, Sent: 5, Failed: 0, Current: "Completed batch 1/3",
		BatchProgress: &BatchProgress{CurrentBatch: 1, TotalBatches: 3, BatchSize: 5},
	}))
	require.NoError(t, s.Complete(Status{Total: 12, Sent: 11, Failed: 1, Current: "Complete"},
		Summary{SuccessRate: "91.7%", ProcessingTime: "Processed in 3 batches"}))

	got := frames(buf.String())
	require.Len(t, got, 2)
	assert.Equal(t, `data: {"status":{"total":12,"sent":5,"failed":0,"current":"Completed batch 1/3","batchProgress":{"currentBatch":1,"totalBatches":3,"batchSize":5}}}`, got[0])
	assert.Equal(t, `data: {"complete":true,"status":{"total":12,"sent":11,"failed":1,"current":"Complete"},"summary":{"successRate":"91.7%","processingTime":"Processed in 3 batches"}}`, got[1])
}

type brokenWriter struct{ writes int }

func (b *brokenWriter) Write(p []byte) (int, error) {
	b.writes++
	return 0, errors.New("broken pipe")
}

func TestStream_WriteErrorIsSticky(t *testing.T) {
	w := &brokenWriter{}
	s := NewStream(w, nil)

	assert.Error(t, s.Status(Status{}))
	assert.Error(t, s.Status(Status{}))
	assert.EqualError(t, s.Err(), "broken pipe")
	assert.Equal(t, 1, w.writes, "no writes after the first failure")

	assert.Error(t, s.Complete(Status{}, Summary{}))
	assert.True(t, s.Closed())
}

func TestStream_Observe(t *testing.T) {
	var buf bytes.Buffer
	s := NewStream(&buf, nil)

	s.Observe(dispatch.Event{
		Kind:     dispatch.EventStart,
		Progress: dispatch.Progress{Total: 2, Label: "Starting batch processing...", Batch: &dispatch.BatchProgress{Current: 0, Total: 1, Size: 5}},
	})
	sum := dispatch.Summary{Total: 2, Sent: 1, Failed: 1, Batches: 1, SuccessRate: 50}
	s.Observe(dispatch.Event{
		Kind:     dispatch.EventComplete,
		Progress: dispatch.Progress{Total: 2, Sent: 1, Failed: 1, Label: "Complete"},
		Summary:  &sum,
	})

	got := frames(buf.String())
	require.Len(t, got, 2)
	assert.Contains(t, got[0], `"batchProgress":{"currentBatch":0,"totalBatches":1,"batchSize":5}`)
	assert.Contains(t, got[1], `"complete":true`)
	assert.Contains(t, got[1], `"successRate":"50.0%"`)
	assert.Contains(t, got[1], `"processingTime":"Processed in 1 batches"`)
	assert.True(t, s.Closed())
}
