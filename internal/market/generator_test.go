package market

import (
	"testing"

	"github.com/ndrandal/feed-simulator/go-feed/internal/board"
)

func testTickers() []string {
	return []string{"AAPL", "MSFT", "TSLA", "NEXO", "QBIT", "FLUX", "SYNK", "PULS", "CYRA", "LEDG"}
}

func newTestGenerator(seed int64) (*Generator, *board.Board) {
	rng := NewRNG(seed)
	settings := DefaultSettings()
	gen, initial := NewGenerator(settings, testTickers(), rng)
	return gen, board.New(initial)
}

func TestInitialPricesWithinGlobalBand(t *testing.T) {
	gen, b := newTestGenerator(1)
	settings := DefaultSettings()
	for _, ticker := range testTickers() {
		p, err := b.Read(ticker)
		if err != nil {
			t.Fatalf("unexpected error reading %s: %v", ticker, err)
		}
		if p < settings.overallMin() || p > settings.overallMax() {
			t.Fatalf("%s initial price %f outside global band", ticker, p)
		}
	}
	_ = gen
}

func TestTickProducesKnownTickerAndBoundedPrice(t *testing.T) {
	gen, b := newTestGenerator(2)
	settings := DefaultSettings()
	tickerSet := make(map[string]bool)
	for _, tk := range testTickers() {
		tickerSet[tk] = true
	}

	for i := 0; i < 5000; i++ {
		q, err := gen.Tick(b)
		if err != nil {
			t.Fatalf("tick %d: unexpected error: %v", i, err)
		}
		if !tickerSet[q.Ticker] {
			t.Fatalf("tick %d: unknown ticker %q", i, q.Ticker)
		}
		if q.Price < settings.overallMin() || q.Price > settings.overallMax() {
			t.Fatalf("tick %d: price %f outside global band", i, q.Price)
		}
		if q.Volume < settings.UnitsPerTrade.Min || q.Volume > settings.UnitsPerTrade.Max {
			t.Fatalf("tick %d: volume %d outside configured range", i, q.Volume)
		}
	}
}

func TestTickUnknownTickerErrors(t *testing.T) {
	gen, b := newTestGenerator(3)
	if _, err := gen.updatePrice(b, "DOESNOTEXIST"); err == nil {
		t.Fatal("expected error for unknown ticker")
	}
}

func TestZeroChangeProbabilityKeepsPrice(t *testing.T) {
	rng := NewRNG(4)
	settings := DefaultSettings()
	settings.ProbabilityChangePrice = 0
	gen, initial := NewGenerator(settings, testTickers(), rng)
	b := board.New(initial)

	for _, ticker := range testTickers() {
		before, _ := b.Read(ticker)
		for i := 0; i < 50; i++ {
			after, err := gen.updatePrice(b, ticker)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if after != before {
				t.Fatalf("%s price changed with probability 0: %f -> %f", ticker, before, after)
			}
		}
	}
}

func TestTierAssignmentCoversAllTickers(t *testing.T) {
	gen, _ := newTestGenerator(5)
	for _, ticker := range testTickers() {
		if _, ok := gen.TierOf(ticker); !ok {
			t.Fatalf("%s has no tier assignment", ticker)
		}
	}
}
