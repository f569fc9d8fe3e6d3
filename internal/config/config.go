// Package config resolves process configuration for the quote server
// from flags and environment variables, following the teacher
// simulator's flag-with-env-fallback convention.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all quote-server configuration.
type Config struct {
	// Command Front-End
	TCPAddr string

	// Ticker universe, comma-separated. Empty means DefaultTickers.
	Tickers string

	// Simulation
	Seed         int64
	EmitInterval time.Duration

	// Broadcast Bus
	BusCapacity    int
	ChannelTimeout time.Duration

	// Persistence (audit sink)
	MongoURI   string
	AuditDBEnabled bool

	// Observability
	MetricsAddr string
	LogLevel    string

	// Admin dashboard (read-only websocket UI)
	AdminAddr string
}

// DefaultTickers mirrors the reference implementation's seed universe
// when no -tickers flag or QUOTE_TICKERS env var is supplied.
var DefaultTickers = []string{
	"AAPL", "MSFT", "GOOG", "AMZN", "TSLA", "NVDA", "META", "NFLX",
	"AMD", "INTC", "ORCL", "CRM", "ADBE", "PYPL", "UBER", "SHOP",
}

func Load() *Config {
	c := &Config{}

	flag.StringVar(&c.TCPAddr, "addr", envStr("QUOTE_TCP_ADDR", "0.0.0.0:8888"), "command front-end TCP listen address")
	flag.StringVar(&c.Tickers, "tickers", envStr("QUOTE_TICKERS", ""), "comma-separated ticker universe (default: built-in list)")

	flag.Int64Var(&c.Seed, "seed", envInt64("QUOTE_SEED", 0), "PRNG seed (0 = random)")
	flag.DurationVar(&c.EmitInterval, "emit-interval", envDuration("QUOTE_EMIT_INTERVAL", 100*time.Millisecond), "interval between generated quotes")

	flag.IntVar(&c.BusCapacity, "bus-capacity", envInt("QUOTE_BUS_CAPACITY", 1024), "broadcast bus channel capacity")
	flag.DurationVar(&c.ChannelTimeout, "channel-timeout", envDuration("QUOTE_CHANNEL_TIMEOUT", 200*time.Millisecond), "generator's bus send timeout")

	flag.StringVar(&c.MongoURI, "mongo-uri", envStr("MONGO_URI", "mongodb://localhost:27017/quoteserver"), "MongoDB connection URI for the session audit sink")
	flag.BoolVar(&c.AuditDBEnabled, "audit-enabled", envBool("QUOTE_AUDIT_ENABLED", false), "enable the best-effort session audit sink")

	flag.StringVar(&c.MetricsAddr, "metrics-addr", envStr("QUOTE_METRICS_ADDR", "0.0.0.0:9090"), "Prometheus metrics listen address")
	flag.StringVar(&c.LogLevel, "log-level", envStr("QUOTE_LOG_LEVEL", "info"), "log level: debug, info, warn, error")

	flag.StringVar(&c.AdminAddr, "admin-addr", envStr("QUOTE_ADMIN_ADDR", "0.0.0.0:9091"), "admin dashboard listen address")

	flag.Parse()
	return c
}

// TickerList parses the Tickers field, falling back to DefaultTickers
// when empty.
func (c *Config) TickerList() []string {
	if strings.TrimSpace(c.Tickers) == "" {
		out := make([]string, len(DefaultTickers))
		copy(out, DefaultTickers)
		return out
	}
	parts := strings.Split(c.Tickers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.ToUpper(strings.TrimSpace(p))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
