package market

import (
	"sync"
	"time"
)

// RNG is a seedable pseudo-random number generator using PCG-XSH-RR.
// It is safe for concurrent use. The Generator is single-goroutine in
// normal operation, but tests may sample it concurrently.
type RNG struct {
	mu    sync.Mutex
	state uint64
	inc   uint64
}

// NewRNG creates a new PRNG with the given seed. If seed is 0, it uses
// the current time.
func NewRNG(seed int64) *RNG {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := &RNG{}
	r.inc = uint64(seed)<<1 | 1
	r.state = 0
	r.step()
	r.state += uint64(seed)
	r.step()
	return r
}

func (r *RNG) step() {
	r.state = r.state*6364136223846793005 + r.inc
}

// Uint32 returns a uniformly distributed uint32.
func (r *RNG) Uint32() uint32 {
	r.mu.Lock()
	old := r.state
	r.step()
	r.mu.Unlock()

	xorshifted := uint32(((old >> 18) ^ old) >> 27)
	rot := uint32(old >> 59)
	return (xorshifted >> rot) | (xorshifted << ((-rot) & 31))
}

// Float64 returns a uniformly distributed float64 in [0, 1).
func (r *RNG) Float64() float64 {
	return float64(r.Uint32()) / (1 << 32)
}

// IntRange returns a uniformly distributed int in [min, max] (inclusive).
func (r *RNG) IntRange(min, max int) int {
	if min >= max {
		return min
	}
	return min + int(r.Uint32()%uint32(max-min+1))
}

// FloatRange returns a uniformly distributed float64 in [min, max).
func (r *RNG) FloatRange(min, max float64) float64 {
	if min >= max {
		return min
	}
	return min + r.Float64()*(max-min)
}

// Bool returns true with the given probability. prob must be in [0, 1];
// callers are expected to validate this at configuration-load time.
func (r *RNG) Bool(prob float64) bool {
	return r.Float64() < prob
}

// Choice returns a uniformly random element of items. Panics if items
// is empty — callers only ever invoke this over the loaded ticker
// list, which startup guarantees is non-empty.
func (r *RNG) Choice(items []string) string {
	return items[r.IntRange(0, len(items)-1)]
}
