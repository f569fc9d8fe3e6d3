package market

import (
	"time"

	"github.com/ndrandal/feed-simulator/go-feed/internal/quote"
)

// Range is an inclusive [Min, Max] range over an integer quantity
// (trade volume).
type Range struct {
	Min uint32
	Max uint32
}

// Settings configures the synthetic price generator: tier bands and
// shares, trade-volume range, the probability that a tick actually
// moves a price, and the tick interval itself.
type Settings struct {
	Expensive quote.Band
	Middle    quote.Band
	Low       quote.Band

	// TopShare and MiddleShare partition the ticker universe at
	// startup; the remainder falls into Low.
	TopShare    float64
	MiddleShare float64

	UnitsPerTrade Range

	ProbabilityChangePrice float64

	EmitInterval time.Duration
}

// DefaultSettings mirrors the reference implementation's defaults.
func DefaultSettings() Settings {
	return Settings{
		Expensive:              quote.Band{Min: 500.0, Max: 1500.0},
		Middle:                 quote.Band{Min: 100.0, Max: 499.0},
		Low:                    quote.Band{Min: 0.5, Max: 99.9},
		TopShare:               0.10,
		MiddleShare:            0.40,
		UnitsPerTrade:          Range{Min: 1, Max: 500_000},
		ProbabilityChangePrice: 0.9,
		EmitInterval:           100 * time.Millisecond,
	}
}

// bandFor returns the price band associated with a tier.
func (s Settings) bandFor(t quote.Tier) quote.Band {
	switch t {
	case quote.TierExpensive:
		return s.Expensive
	case quote.TierMiddle:
		return s.Middle
	default:
		return s.Low
	}
}

// overallMin and overallMax are the absolute band boundaries across
// all tiers (LOW_MIN and EXPENSIVE_MAX in the spec).
func (s Settings) overallMin() float64 { return s.Low.Min }
func (s Settings) overallMax() float64 { return s.Expensive.Max }
