// Package dispatcher implements the Dispatcher (component E): the
// goroutine that drains the Broadcast Bus and fans each quote out to
// every registered subscription; ticker filtering is left to each
// subscription's Transmitter.
package dispatcher

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndrandal/feed-simulator/go-feed/internal/bus"
	"github.com/ndrandal/feed-simulator/go-feed/internal/registry"
)

// recvTimeout mirrors the reference implementation's channel poll
// interval: long enough to avoid busy-spinning, short enough that a
// stop signal is noticed quickly.
const recvTimeout = 200 * time.Millisecond

// Metrics is the subset of counters the Dispatcher updates. Satisfied
// by the server's Prometheus collector; a nil Metrics is valid and
// simply a no-op, so the dispatcher never depends on metrics wiring
// being present.
type Metrics interface {
	FanoutObserved(matched int)
	InboxDropped(reason string)
}

// Dispatcher drains b and fans each payload out against reg.
type Dispatcher struct {
	bus         *bus.Bus
	reg         *registry.Registry
	metrics     Metrics
	enqueueWait time.Duration
	stop        atomic.Bool
	log         zerolog.Logger
}

// New builds a Dispatcher. metrics may be nil. enqueueWait is the
// bounded wait each per-subscription Enqueue gets before the quote is
// dropped — the same send_timeout(quote, emit_interval) policy the
// reference implementation applies per subscriber, so callers
// typically pass the generator's EmitInterval.
func New(b *bus.Bus, reg *registry.Registry, metrics Metrics, enqueueWait time.Duration, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{bus: b, reg: reg, metrics: metrics, enqueueWait: enqueueWait, log: log}
}

// Stop requests the Run loop exit at its next poll.
func (d *Dispatcher) Stop() {
	d.stop.Store(true)
}

// Run drains the bus until stopped or the bus is closed and drained.
// recv_timeout semantics: on timeout, re-check the stop flag and loop;
// on a closed, empty bus, terminate.
func (d *Dispatcher) Run() {
	for {
		if d.stop.Load() {
			return
		}

		payload, res := d.bus.Recv(recvTimeout)
		switch res {
		case bus.RecvTimeout:
			continue
		case bus.RecvClosed:
			return
		}

		d.fanOut(payload)
	}
}

// fanOut forwards payload to every active subscription's inbox
// unconditionally, giving each one up to enqueueWait before treating
// it as dropped (Inbox.Enqueue's send_timeout semantics). Ticker
// filtering happens downstream in each subscription's Transmitter,
// which is the only place that knows the filter: the Dispatcher
// itself never parses the quote; it only counts successful
// deliveries for metrics.
func (d *Dispatcher) fanOut(payload []byte) {
	subs := d.reg.Snapshot()
	delivered := 0
	for _, sub := range subs {
		if sub.Inbox.Enqueue(payload, d.enqueueWait) {
			delivered++
			continue
		}
		d.log.Warn().Str("session_id", sub.SessionID).Msg("dispatcher: dropped quote, inbox full")
		if d.metrics != nil {
			d.metrics.InboxDropped("timeout")
		}
	}

	if d.metrics != nil {
		d.metrics.FanoutObserved(delivered)
	}
}
