package market

import (
	"time"

	"github.com/ndrandal/feed-simulator/go-feed/internal/board"
	"github.com/ndrandal/feed-simulator/go-feed/internal/quote"
)

// Generator is the self-contained synthetic-quote producer (component
// B). It owns no goroutine by itself — callers (typically the server's
// run loop) drive it by calling Tick on an interval and publishing the
// result onto the Broadcast Bus.
type Generator struct {
	settings Settings
	tickers  []string
	tierOf   map[string]quote.Tier
	rng      *RNG
}

// NewGenerator partitions tickers into tiers and draws their initial
// prices. It returns the Generator plus the initial price map the
// caller should seed the Quote Board with.
func NewGenerator(settings Settings, tickers []string, rng *RNG) (*Generator, map[string]float64) {
	tierOf, initial := partition(rng, settings, tickers)
	g := &Generator{
		settings: settings,
		tickers:  tickers,
		tierOf:   tierOf,
		rng:      rng,
	}
	return g, initial
}

// Tick runs one generation step against b: choose a ticker, maybe move
// its price, and build the resulting Quote. Returns a quote.Error
// (kind Ticker) if the chosen ticker was somehow never seeded onto the
// board — this should not happen in normal operation.
func (g *Generator) Tick(b *board.Board) (quote.Quote, error) {
	ticker := g.rng.Choice(g.tickers)

	price, err := g.updatePrice(b, ticker)
	if err != nil {
		return quote.Quote{}, err
	}

	volume := uint32(g.rng.IntRange(int(g.settings.UnitsPerTrade.Min), int(g.settings.UnitsPerTrade.Max)))

	txn := quote.Buy
	if g.rng.Bool(0.5) {
		txn = quote.Sell
	}

	return quote.Quote{
		Ticker:      ticker,
		Price:       price,
		Volume:      volume,
		Timestamp:   uint64(time.Now().Unix()),
		Transaction: txn,
	}, nil
}

// updatePrice implements the bounded random walk: with probability
// ProbabilityChangePrice, draw a new price within +/-10% of the
// current one, clamped back into a tier band at the extremes of the
// global [LOW_MIN, EXPENSIVE_MAX] range.
func (g *Generator) updatePrice(b *board.Board, ticker string) (float64, error) {
	old, err := b.Read(ticker)
	if err != nil {
		return 0, err
	}

	if !g.rng.Bool(g.settings.ProbabilityChangePrice) {
		return old, nil
	}

	calcMin := old * 0.9
	calcMax := old * 1.1

	var lo, hi float64
	switch {
	case calcMin < g.settings.overallMin() && calcMax <= g.settings.overallMax():
		band := g.settings.Low
		lo, hi = band.Min, band.Max
	case calcMax > g.settings.overallMax() && calcMin >= g.settings.overallMin():
		band := g.settings.Expensive
		lo, hi = band.Min, band.Max
	default:
		lo, hi = calcMin, calcMax
	}

	newPrice := g.rng.FloatRange(lo, hi)
	b.Write(ticker, newPrice)
	return newPrice, nil
}

// TierOf reports the fixed tier assignment for ticker, used by tests.
func (g *Generator) TierOf(ticker string) (quote.Tier, bool) {
	t, ok := g.tierOf[ticker]
	return t, ok
}
