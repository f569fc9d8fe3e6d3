// Command qserver runs the quote server: the synthetic-quote
// Generator, the Broadcast Bus, the Dispatcher, the Subscription
// Registry, and the TCP Command Front-End, all wired together and
// shut down cleanly on SIGINT/SIGTERM.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndrandal/feed-simulator/go-feed/internal/admin"
	"github.com/ndrandal/feed-simulator/go-feed/internal/audit"
	"github.com/ndrandal/feed-simulator/go-feed/internal/board"
	"github.com/ndrandal/feed-simulator/go-feed/internal/bus"
	"github.com/ndrandal/feed-simulator/go-feed/internal/config"
	"github.com/ndrandal/feed-simulator/go-feed/internal/dispatcher"
	"github.com/ndrandal/feed-simulator/go-feed/internal/market"
	"github.com/ndrandal/feed-simulator/go-feed/internal/metrics"
	"github.com/ndrandal/feed-simulator/go-feed/internal/quote"
	"github.com/ndrandal/feed-simulator/go-feed/internal/registry"
	"github.com/ndrandal/feed-simulator/go-feed/internal/server"
)

func main() {
	cfg := config.Load()

	log := newLogger(cfg.LogLevel)
	log.Info().Msg("quote server starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	tickers := cfg.TickerList()
	if len(tickers) == 0 {
		log.Fatal().Msg("ticker universe is empty")
	}
	log.Info().Int("count", len(tickers)).Msg("loaded ticker universe")

	settings := market.DefaultSettings()
	settings.EmitInterval = cfg.EmitInterval
	rng := market.NewRNG(cfg.Seed)
	log.Info().Int64("seed", cfg.Seed).Msg("prng seeded")

	gen, initial := market.NewGenerator(settings, tickers, rng)
	b := board.New(initial)

	metricsReg, metricsHandler := metrics.New()
	go runMetricsServer(ctx, cfg.MetricsAddr, metricsHandler, log)

	var auditSink *audit.Sink
	if cfg.AuditDBEnabled {
		store, err := audit.Connect(ctx, cfg.MongoURI, "quoteserver")
		if err != nil {
			log.Warn().Err(err).Msg("audit sink disabled: mongodb connect failed")
		} else {
			defer store.Close(context.Background())
			if err := store.EnsureIndexes(ctx); err != nil {
				log.Warn().Err(err).Msg("audit: failed to ensure indexes")
			}
			auditSink = audit.NewSink(store, metricsReg, log)
			go auditSink.Run(ctx)
			log.Info().Msg("session audit sink enabled")
		}
	}

	broadcastBus := bus.New(cfg.BusCapacity)
	reg := registry.New()

	disp := dispatcher.New(broadcastBus, reg, metricsReg, settings.EmitInterval, log.With().Str("component", "dispatcher").Logger())

	var dispDone, genDone sync.WaitGroup
	dispDone.Add(1)
	go func() {
		defer dispDone.Done()
		disp.Run()
	}()

	dashboard := admin.New(b, reg, log.With().Str("component", "admin").Logger())
	go runAdminServer(ctx, cfg.AdminAddr, dashboard, log)

	genDone.Add(1)
	go func() {
		defer genDone.Done()
		runGenerator(ctx, gen, b, broadcastBus, settings.EmitInterval, cfg.ChannelTimeout, metricsReg, log)
	}()

	var sinkForServer server.AuditSink
	if auditSink != nil {
		sinkForServer = auditSink
	}

	srv := server.New(server.Config{Addr: cfg.TCPAddr}, reg, tickers, metricsReg, metricsReg, sinkForServer, log.With().Str("component", "command-front-end").Logger())

	go func() {
		<-ctx.Done()
		srv.Shutdown()
	}()

	log.Info().Str("addr", cfg.TCPAddr).Msg("command front-end starting")
	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("command front-end exited with error")
	}

	// Join the Generator first: it exits once ctx is canceled, and must
	// stop publishing before the Dispatcher is told to stop draining.
	genDone.Wait()
	disp.Stop()
	dispDone.Wait()

	broadcastBus.Close()
	log.Info().Msg("quote server stopped")
}

// generatorMetrics is the subset of counters runGenerator updates. A
// nil generatorMetrics is a valid no-op.
type generatorMetrics interface {
	QuoteGenerated()
	QuoteDroppedBus()
}

// runGenerator drives the Generator's Tick loop on EmitInterval,
// encoding and publishing each resulting quote onto the bus.
func runGenerator(ctx context.Context, gen *market.Generator, b *board.Board, broadcastBus *bus.Bus, interval, sendTimeout time.Duration, metrics generatorMetrics, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q, err := gen.Tick(b)
			if err != nil {
				log.Warn().Err(err).Msg("generator: tick failed")
				continue
			}
			if metrics != nil {
				metrics.QuoteGenerated()
			}
			payload, err := quote.Encode(&q)
			if err != nil {
				log.Warn().Err(err).Msg("generator: encode failed")
				continue
			}
			if res := broadcastBus.Send(payload, sendTimeout); res != bus.SendOK {
				log.Warn().Str("ticker", q.Ticker).Msg("generator: bus send timed out, dropping quote")
				if metrics != nil {
					metrics.QuoteDroppedBus()
				}
			}
		}
	}
}

func runMetricsServer(ctx context.Context, addr string, handler http.Handler, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Warn().Err(err).Msg("metrics server exited with error")
	}
}

func runAdminServer(ctx context.Context, addr string, dashboard *admin.Dashboard, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/feed", dashboard.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("admin dashboard listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Warn().Err(err).Msg("admin server exited with error")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
