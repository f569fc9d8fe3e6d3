// Package server implements the Command Front-End (component G): the
// TCP listener that greets each connection, parses STREAM/CANCEL
// commands, and mutates the Subscription Registry while the data
// plane runs independently.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndrandal/feed-simulator/go-feed/internal/quote"
	"github.com/ndrandal/feed-simulator/go-feed/internal/registry"
	"github.com/ndrandal/feed-simulator/go-feed/internal/transmit"
)

// acceptPollInterval mirrors the reference server's "non-blocking
// accept with a short sleep" loop, giving the Accept loop a place to
// notice ctx cancellation without a second goroutine.
const acceptPollInterval = 50 * time.Millisecond

// firstSessionID is the value handed out to the first connection;
// ids increase monotonically from here for the life of the process.
const firstSessionID = 1000

// Metrics is the subset of counters the Command Front-End updates. A
// nil Metrics is a valid no-op.
type Metrics interface {
	CommandError(detail string)
	SessionStarted()
	SessionEnded()
}

// AuditSink records session lifecycle events on a best-effort basis.
// A nil AuditSink is a valid no-op — command handling never blocks on
// it.
type AuditSink interface {
	Record(sessionID, event, detail string)
}

// Config configures the Command Front-End's listening address.
type Config struct {
	// Addr is the TCP listen address, e.g. "127.0.0.1:8888".
	Addr string
}

// Server is the TCP command front-end.
type Server struct {
	cfg       Config
	reg       *registry.Registry
	tickers   map[string]bool
	metrics   Metrics
	txMetrics transmit.Metrics
	audit     AuditSink
	log       zerolog.Logger

	sessionCounter atomic.Uint64

	mu           sync.Mutex
	transmitters map[string]*transmit.Transmitter
	conns        map[net.Conn]struct{}

	listener net.Listener
	ready    chan struct{}
	stop     atomic.Bool
	wg       sync.WaitGroup
}

// New builds a Server. metrics, txMetrics and audit may all be nil.
// txMetrics is handed to every Transmitter this server starts, so
// liveness-timeout counts surface alongside the front-end's own
// command/session counters.
func New(cfg Config, reg *registry.Registry, tickers []string, metrics Metrics, txMetrics transmit.Metrics, audit AuditSink, log zerolog.Logger) *Server {
	known := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		known[t] = true
	}
	s := &Server{
		cfg:          cfg,
		reg:          reg,
		tickers:      known,
		metrics:      metrics,
		txMetrics:    txMetrics,
		audit:        audit,
		log:          log,
		transmitters: make(map[string]*transmit.Transmitter),
		conns:        make(map[net.Conn]struct{}),
		ready:        make(chan struct{}),
	}
	s.sessionCounter.Store(firstSessionID - 1)
	return s
}

// Addr blocks until the listener is bound and returns its address.
// Intended for tests and for logging the resolved port when the
// configured port is 0 (ephemeral).
func (s *Server) Addr() net.Addr {
	<-s.ready
	return s.listener.Addr()
}

// Run listens on cfg.Addr and serves connections until ctx is
// canceled. It blocks until every in-flight connection handler has
// returned.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return quote.ServerError("listen on %s: %v", s.cfg.Addr, err)
	}
	s.listener = ln
	close(s.ready)
	s.log.Info().Str("addr", ln.Addr().String()).Msg("command front-end listening")

	tcpLn, _ := ln.(*net.TCPListener)

	for {
		if ctx.Err() != nil {
			break
		}

		if tcpLn != nil {
			tcpLn.SetDeadline(time.Now().Add(acceptPollInterval))
		}
		conn, err := ln.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if s.stop.Load() {
				break
			}
			s.log.Warn().Err(err).Msg("accept failed")
			continue
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}

	s.wg.Wait()
	return nil
}

// Shutdown stops accepting new connections, force-closes every
// tracked connection so its blocking handleConn read unblocks, and
// stops every live transmitter. Safe to call once; callers typically
// trigger it from a signal handler. Run's wg.Wait() only returns once
// every handleConn goroutine this unblocks has actually exited.
func (s *Server) Shutdown() {
	s.stop.Store(true)
	if s.listener != nil {
		s.listener.Close()
	}

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	for _, tx := range s.transmitters {
		tx.Stop()
	}
	s.mu.Unlock()
}

func (s *Server) nextSessionID() string {
	return strconv.FormatUint(s.sessionCounter.Add(1), 10)
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	sessionID := s.nextSessionID()
	log := s.log.With().Str("session_id", sessionID).Logger()

	writer := bufio.NewWriter(conn)
	writer.WriteString(welcomeServer)
	writer.WriteString(welcomeInfo)
	writer.WriteString(welcomeTerminator)
	if err := writer.Flush(); err != nil {
		log.Debug().Err(err).Msg("command front-end: failed to send banner")
		return
	}

	if s.audit != nil {
		s.audit.Record(sessionID, "connect", conn.RemoteAddr().String())
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		reply := s.handleLine(sessionID, scanner.Text(), &log)
		writer.WriteString(reply)
		writer.WriteString("\n")
		if err := writer.Flush(); err != nil {
			log.Debug().Err(err).Msg("command front-end: write failed")
			return
		}
	}

	// EOF or read error: exit without touching the registry. The
	// subscription, if any, lives on until CANCEL, ping timeout, or
	// server shutdown.
	if s.audit != nil {
		s.audit.Record(sessionID, "disconnect", "")
	}
}

func (s *Server) handleLine(sessionID, line string, log *zerolog.Logger) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		s.countError(detailEmptyLine)
		return "ERROR|" + detailEmptyLine
	}

	fields := strings.Fields(trimmed)
	switch parseCommandKind(fields[0]) {
	case cmdStream:
		return s.handleStream(sessionID, trimmed, log)
	case cmdCancel:
		return s.handleCancel(sessionID, log)
	default:
		s.countError(detailInvalidCommand)
		return "ERROR|" + detailInvalidCommand
	}
}

func (s *Server) handleStream(sessionID, line string, log *zerolog.Logger) string {
	// Strip the leading "STREAM" token; the remainder is "<udp-url> <ticker-spec>".
	afterCmd := strings.TrimSpace(line[len(strings.Fields(line)[0]):])

	udpURL, tickerSpec, ok := parseStreamArgs(afterCmd)
	if !ok {
		s.countError(detailIncomplete)
		return "ERROR|" + detailIncomplete
	}

	host, port, err := parseUDPURL(udpURL)
	if err != nil {
		s.countError(err.Error())
		return "ERROR|" + err.Error()
	}

	filter, err := parseTickerSpec(tickerSpec, s.tickers)
	if err != nil {
		s.countError(err.Error())
		return "ERROR|" + err.Error()
	}

	udpAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, port))
	if err != nil {
		detail := fmt.Sprintf("%s %s", detailBadUDPAddr, udpURL)
		s.countError(detail)
		return "ERROR|" + detail
	}

	if _, exists := s.reg.Get(sessionID); exists {
		// Silent keep-old per the STREAM-on-existing-subscription
		// design decision: the reply stays OK|stream started even
		// though nothing changed. A single connection only ever
		// drives one session's commands sequentially, so this check
		// and the registry.Add below never race each other.
		return "OK|" + detailStreamStarted
	}

	tx, err := transmit.New(sessionID, udpAddr, filter, s.txMetrics, *log)
	if err != nil {
		log.Warn().Err(err).Msg("command front-end: failed to start transmitter")
		s.countError(detailBadUDPAddr)
		return "ERROR|" + detailBadUDPAddr
	}

	sub := &registry.Subscription{
		SessionID: sessionID,
		UDPAddr:   udpAddr,
		Inbox:     tx,
		CreatedAt: time.Now(),
	}
	s.reg.Add(sub)

	s.mu.Lock()
	s.transmitters[sessionID] = tx
	s.mu.Unlock()

	go tx.Run()

	if s.metrics != nil {
		s.metrics.SessionStarted()
	}
	if s.audit != nil {
		s.audit.Record(sessionID, "stream", tickerSpecDetail(tickerSpec))
	}

	return "OK|" + detailStreamStarted
}

func (s *Server) handleCancel(sessionID string, log *zerolog.Logger) string {
	existed := s.reg.Remove(sessionID)

	s.mu.Lock()
	tx, ok := s.transmitters[sessionID]
	if ok {
		delete(s.transmitters, sessionID)
	}
	s.mu.Unlock()

	if ok {
		tx.Stop()
	}

	if existed {
		if s.metrics != nil {
			s.metrics.SessionEnded()
		}
		if s.audit != nil {
			s.audit.Record(sessionID, "cancel", "")
		}
	}

	_ = log
	return "OK|" + detailCanceled
}

func (s *Server) countError(detail string) {
	if s.metrics != nil {
		s.metrics.CommandError(detail)
	}
}

func tickerSpecDetail(spec string) string {
	if strings.EqualFold(spec, "ALL") {
		return "ALL"
	}
	return spec
}
