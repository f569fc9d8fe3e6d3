package audit

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
)

type fakeMetrics struct {
	dropped int
}

func (f *fakeMetrics) AuditDropped() { f.dropped++ }

// Record never touches the store — only Run does — so it is testable
// without a live MongoDB connection.
func TestRecordDoesNotBlockWhenQueueFull(t *testing.T) {
	fm := &fakeMetrics{}
	sink := NewSink(nil, fm, zerolog.New(io.Discard))

	for i := 0; i < queueCapacity; i++ {
		sink.Record("1000", "connect", "")
	}

	done := make(chan struct{})
	go func() {
		sink.Record("1000", "connect", "")
		close(done)
	}()
	select {
	case <-done:
	default:
	}
	<-done // Record must return even though the queue is already full.

	if len(sink.ch) != queueCapacity {
		t.Fatalf("expected queue to stay at capacity %d, got %d", queueCapacity, len(sink.ch))
	}
	if fm.dropped != 1 {
		t.Fatalf("expected 1 dropped event counted, got %d", fm.dropped)
	}
}

func TestRecordEnqueuesEvent(t *testing.T) {
	sink := NewSink(nil, nil, zerolog.New(io.Discard))
	sink.Record("1042", "stream", "ALL")

	select {
	case ev := <-sink.ch:
		if ev.SessionID != "1042" || ev.Event != "stream" || ev.Detail != "ALL" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("expected an event on the queue")
	}
}
