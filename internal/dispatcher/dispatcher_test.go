package dispatcher

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndrandal/feed-simulator/go-feed/internal/bus"
	"github.com/ndrandal/feed-simulator/go-feed/internal/quote"
	"github.com/ndrandal/feed-simulator/go-feed/internal/registry"
)

type collectingInbox struct {
	mu   sync.Mutex
	got  [][]byte
	full bool
}

func (c *collectingInbox) Enqueue(payload []byte, timeout time.Duration) bool {
	if c.full {
		// Mirrors a permanently-full mailbox: Enqueue still honors its
		// bounded wait before reporting failure.
		time.Sleep(timeout)
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, payload)
	return true
}

func (c *collectingInbox) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func encode(t *testing.T, ticker string) []byte {
	t.Helper()
	q := quote.Quote{Ticker: ticker, Price: 1, Volume: 1, Timestamp: 1, Transaction: quote.Buy}
	payload, err := quote.Encode(&q)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return payload
}

func TestFanOutDeliversToEverySubscription(t *testing.T) {
	reg := registry.New()
	first := &collectingInbox{}
	second := &collectingInbox{}
	reg.Add(&registry.Subscription{SessionID: "s1", Inbox: first})
	reg.Add(&registry.Subscription{SessionID: "s2", Inbox: second})

	b := bus.New(4)
	d := New(b, reg, nil, 50*time.Millisecond, testLogger())

	go d.Run()
	defer d.Stop()

	b.Send(encode(t, "AAPL"), time.Second)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if first.len() == 1 && second.len() == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if first.len() != 1 {
		t.Fatalf("want 1 delivery to first subscriber, got %d", first.len())
	}
	if second.len() != 1 {
		t.Fatalf("want 1 delivery to second subscriber, got %d", second.len())
	}
}

func TestFanOutDropsAfterBoundedWaitOnFullInbox(t *testing.T) {
	reg := registry.New()
	full := &collectingInbox{full: true}
	trailing := &collectingInbox{}
	reg.Add(&registry.Subscription{SessionID: "s1", Inbox: full})
	reg.Add(&registry.Subscription{SessionID: "s2", Inbox: trailing})

	enqueueWait := 50 * time.Millisecond
	b := bus.New(4)
	d := New(b, reg, nil, enqueueWait, testLogger())

	go d.Run()
	defer d.Stop()

	start := time.Now()
	b.Send(encode(t, "AAPL"), time.Second)

	// trailing shares the same fanOut call as full: it only sees the
	// delivery once fanOut has finished waiting out full's bounded
	// enqueueWait, so its arrival proves the wait was honored rather
	// than skipped.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if trailing.len() == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if trailing.len() != 1 {
		t.Fatal("expected trailing subscription to still receive the quote")
	}
	if time.Since(start) < enqueueWait {
		t.Fatal("fanOut returned before honoring the full inbox's bounded wait")
	}
}

func TestStopEndsRunLoop(t *testing.T) {
	reg := registry.New()
	b := bus.New(4)
	d := New(b, reg, nil, 50*time.Millisecond, testLogger())

	done := make(chan struct{})
	go func() {
		d.Run()
		close(done)
	}()

	d.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after Stop")
	}
}

func TestRunExitsWhenBusClosed(t *testing.T) {
	reg := registry.New()
	b := bus.New(4)
	d := New(b, reg, nil, 50*time.Millisecond, testLogger())

	done := make(chan struct{})
	go func() {
		d.Run()
		close(done)
	}()

	b.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after bus closed")
	}
}
