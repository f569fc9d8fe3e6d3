// Package transmit implements the Per-Client Transmitter (component
// F): one goroutine per active subscription that applies the ticker
// filter, sends datagrams to the client's UDP endpoint, and tracks
// liveness pings.
package transmit

import (
	"bytes"
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndrandal/feed-simulator/go-feed/internal/quote"
)

const (
	// recvTimeout mirrors the dispatcher's channel poll interval.
	recvTimeout = 200 * time.Millisecond
	// socketReadTimeout bounds how long a non-blocking ping read may
	// wait before the loop re-checks stop and liveness.
	socketReadTimeout = 500 * time.Millisecond
	// pingTimeout is the maximum silence from the client before the
	// transmitter tears itself down.
	pingTimeout = 5 * time.Second
	// inboxCapacity bounds the per-subscription mailbox so a slow
	// client drops quotes rather than growing memory without limit.
	inboxCapacity = 256
)

// Metrics is the subset of counters the Transmitter updates. A nil
// Metrics is a valid no-op.
type Metrics interface {
	LivenessTimeout()
}

// Transmitter owns one UDP socket on behalf of one subscription. It
// implements registry.Inbox so the Dispatcher can push serialized
// quote payloads into it without knowing about sockets at all.
type Transmitter struct {
	sessionID string
	filter    map[string]bool

	conn *net.UDPConn

	inbox   chan []byte
	stop    atomic.Bool
	lastPing atomic.Int64 // unix nanos

	metrics Metrics
	log     zerolog.Logger
}

// New resolves udpAddr and binds an ephemeral local socket. filter is
// the set of tickers this subscription cares about; a nil or empty
// filter means ALL.
func New(sessionID string, udpAddr *net.UDPAddr, filter map[string]bool, metrics Metrics, log zerolog.Logger) (*Transmitter, error) {
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, quote.ServerError("resolve udp peer: %v", err)
	}
	if err := conn.SetReadBuffer(64); err != nil {
		// Not fatal; SetReadBuffer is a kernel-buffer hint, not a
		// correctness requirement.
		log.Warn().Str("session_id", sessionID).Err(err).Msg("transmitter: SetReadBuffer failed")
	}

	tx := &Transmitter{
		sessionID: sessionID,
		filter:    filter,
		conn:      conn,
		inbox:     make(chan []byte, inboxCapacity),
		metrics:   metrics,
		log:       log,
	}
	tx.lastPing.Store(time.Now().UnixNano())
	return tx, nil
}

// Enqueue implements registry.Inbox: a bounded push mirroring
// bus.Bus.Send's send_timeout semantics. It tries a non-blocking send
// first, then waits up to timeout before giving up — a full mailbox
// for longer than timeout means the quote is dropped, not queued past
// the current tick.
func (t *Transmitter) Enqueue(payload []byte, timeout time.Duration) bool {
	select {
	case t.inbox <- payload:
		return true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case t.inbox <- payload:
		return true
	case <-timer.C:
		return false
	}
}

// Stop requests the transmitter exit at its next loop iteration. Safe
// to call multiple times and from any goroutine.
func (t *Transmitter) Stop() {
	t.stop.Store(true)
}

// Stopped reports whether Stop has been called.
func (t *Transmitter) Stopped() bool {
	return t.stop.Load()
}

// Run drives the transmitter until stopped or until liveness is lost;
// datagram send errors are logged and do not end it. A panic inside
// Run is recovered and logged so it cannot take down the server. It
// always closes the UDP socket on return. Callers typically run this
// in its own goroutine and rely on Stop/liveness timeout for
// termination, matching the spec's "F is NOT responsible for removing
// itself from the registry" rule — Run never touches a registry.
func (t *Transmitter) Run() {
	defer t.conn.Close()
	defer func() {
		if r := recover(); r != nil {
			t.log.Error().Str("session_id", t.sessionID).Interface("panic", r).Msg("transmitter: recovered from panic")
		}
	}()

	pingBuf := make([]byte, 64)

	for {
		if t.stop.Load() {
			return
		}

		if time.Since(t.lastPingTime()) > pingTimeout {
			t.log.Warn().Str("session_id", t.sessionID).Msg("transmitter: liveness lost")
			if t.metrics != nil {
				t.metrics.LivenessTimeout()
			}
			return
		}

		t.conn.SetReadDeadline(time.Now().Add(socketReadTimeout))
		if n, _, err := t.conn.ReadFromUDP(pingBuf); err == nil {
			if isPing(pingBuf[:n]) {
				t.lastPing.Store(time.Now().UnixNano())
			}
		}

		select {
		case payload := <-t.inbox:
			t.deliver(payload)
		case <-time.After(recvTimeout):
		}
	}
}

func (t *Transmitter) lastPingTime() time.Time {
	return time.Unix(0, t.lastPing.Load())
}

func (t *Transmitter) deliver(payload []byte) {
	if len(t.filter) > 0 {
		ticker, err := quote.PeekTicker(payload)
		if err != nil {
			t.log.Warn().Str("session_id", t.sessionID).Err(err).Msg("transmitter: dropping malformed payload")
			return
		}
		if !t.filter[ticker] {
			return
		}
	}

	// Best-effort: a transport error here is swallowed per the
	// propagation policy for datagram sends.
	if _, err := t.conn.Write(payload); err != nil {
		t.log.Debug().Str("session_id", t.sessionID).Err(err).Msg("transmitter: datagram send failed")
	}
}

func isPing(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return bytes.EqualFold(trimmed, []byte("ping"))
}
