// Package board implements the Quote Board: the authoritative
// ticker → price map shared between the generator (sole writer) and
// occasional readers (tests, the admin dashboard).
package board

import (
	"sync"

	"github.com/ndrandal/feed-simulator/go-feed/internal/quote"
)

// Board is a concurrency-safe ticker → price map. Contention is low by
// design: one writer (the Generator), occasional readers.
type Board struct {
	mu     sync.RWMutex
	prices map[string]float64
}

// New creates a Board seeded with the given initial prices. Every
// ticker present at construction remains present for the life of the
// Board — callers never remove entries.
func New(initial map[string]float64) *Board {
	prices := make(map[string]float64, len(initial))
	for k, v := range initial {
		prices[k] = v
	}
	return &Board{prices: prices}
}

// Read returns the current price for ticker, or a quote.TickerError if
// it was never loaded.
func (b *Board) Read(ticker string) (float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.prices[ticker]
	if !ok {
		return 0, quote.TickerError("ticker %s not found", ticker)
	}
	return p, nil
}

// Write creates or replaces the price for ticker.
func (b *Board) Write(ticker string, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices[ticker] = price
}

// Snapshot returns a cloned copy of the entire board, for tests and
// the admin dashboard. It must never be used on the data-plane hot
// path.
func (b *Board) Snapshot() map[string]float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]float64, len(b.prices))
	for k, v := range b.prices {
		out[k] = v
	}
	return out
}

// Len returns the number of tickers on the board.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.prices)
}
