package market

import (
	"math"

	"github.com/ndrandal/feed-simulator/go-feed/internal/quote"
)

// shuffle returns a shuffled copy of tickers using the Fisher-Yates
// algorithm driven by rng, leaving the input slice untouched.
func shuffle(rng *RNG, tickers []string) []string {
	out := make([]string, len(tickers))
	copy(out, tickers)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.IntRange(0, i)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// partition randomly assigns every ticker to a tier according to
// settings' shares, then draws an initial price uniformly from within
// that tier's band. Tier membership returned here is fixed for the
// process lifetime; only the initial price can later change.
func partition(rng *RNG, settings Settings, tickers []string) (tierOf map[string]quote.Tier, initialPrice map[string]float64) {
	shuffled := shuffle(rng, tickers)
	total := len(shuffled)

	expensiveCount := ceilShare(total, settings.TopShare)
	middleCount := ceilShare(total, settings.MiddleShare)

	tierOf = make(map[string]quote.Tier, total)
	initialPrice = make(map[string]float64, total)

	for i, ticker := range shuffled {
		var tier quote.Tier
		switch {
		case i < expensiveCount:
			tier = quote.TierExpensive
		case i < expensiveCount+middleCount:
			tier = quote.TierMiddle
		default:
			tier = quote.TierLow
		}

		band := settings.bandFor(tier)
		tierOf[ticker] = tier
		initialPrice[ticker] = rng.FloatRange(band.Min, band.Max)
	}

	return tierOf, initialPrice
}

func ceilShare(total int, share float64) int {
	n := int(math.Ceil(float64(total) * share))
	if n > total {
		return total
	}
	return n
}
