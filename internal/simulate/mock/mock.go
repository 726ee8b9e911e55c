// Package mock provides a scripted random source for the simulate package and
// every other consumer of simulate.Rand.
//
// Rand returns the values queued in Floats and Ints in order, so tests can
// assert exact simulator and feedback output without reasoning about a
// pseudo-random generator.
//
// Example:
//
//	r := &mock.Rand{Floats: []float64{0.1, 0.9}, Ints: []int{0, 1}}
//	out := simulate.Simulate("hello world", 0.5, r)
package mock

import (
	"fmt"
	"sync"

	"github.com/MrWong99/diction/internal/simulate"
)

// Rand is a scripted implementation of simulate.Rand. It panics when a script
// runs dry so that a test consuming more randomness than expected fails
// loudly.
type Rand struct {
	mu sync.Mutex

	// Floats are returned by successive Float64 calls.
	Floats []float64

	// Ints are returned by successive IntN calls. Each value must be < n.
	Ints []int

	// FloatCalls and IntNCalls count the calls made so far.
	FloatCalls int
	IntNCalls  int
}

// Float64 returns the next scripted float.
func (r *Rand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FloatCalls >= len(r.Floats) {
		panic(fmt.Sprintf("mock.Rand: Float64 call %d exceeds script of %d", r.FloatCalls+1, len(r.Floats)))
	}
	v := r.Floats[r.FloatCalls]
	r.FloatCalls++
	return v
}

// IntN returns the next scripted int. It panics if the value is outside [0, n).
func (r *Rand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.IntNCalls >= len(r.Ints) {
		panic(fmt.Sprintf("mock.Rand: IntN call %d exceeds script of %d", r.IntNCalls+1, len(r.Ints)))
	}
	v := r.Ints[r.IntNCalls]
	if v < 0 || v >= n {
		panic(fmt.Sprintf("mock.Rand: scripted IntN value %d out of range [0,%d)", v, n))
	}
	r.IntNCalls++
	return v
}

// Exhausted reports whether every scripted value has been consumed.
func (r *Rand) Exhausted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.FloatCalls == len(r.Floats) && r.IntNCalls == len(r.Ints)
}

// Ensure Rand implements simulate.Rand at compile time.
var _ simulate.Rand = (*Rand)(nil)
