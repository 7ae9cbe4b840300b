package clock

import (
	"math"
	"time"
)

// Tick is the engine's unit of time. Tick 0 is "before the first frame".
type Tick uint64

// Source is the read side of the clock handed to engine components.
type Source interface {
	Now() Tick
}

// Clock is the single authoritative tick counter. It is advanced once per
// frame by the game loop and never goes backwards.
type Clock struct {
	now  Tick
	rate time.Duration
}

// New creates a clock running at the given frame duration (e.g. 50ms = 20 Hz).
func New(rate time.Duration) *Clock {
	if rate <= 0 {
		rate = 50 * time.Millisecond
	}
	return &Clock{rate: rate}
}

func (c *Clock) Now() Tick           { return c.now }
func (c *Clock) Rate() time.Duration { return c.rate }

// Advance moves the clock forward by one tick and returns the new value.
func (c *Clock) Advance() Tick {
	c.now++
	return c.now
}

// Ticks converts a wall-clock duration to a tick count, rounding up.
// Any positive duration is at least one tick.
func (c *Clock) Ticks(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	n := int64(d / c.rate)
	if d%c.rate != 0 {
		n++
	}
	return n
}

// Seconds converts fractional seconds to ticks, rounding up.
func (c *Clock) Seconds(s float64) int64 {
	if s <= 0 {
		return 0
	}
	return c.Ticks(time.Duration(math.Ceil(s * float64(time.Second))))
}

// Add returns t shifted by n ticks, saturating at zero for negative n.
func Add(t Tick, n int64) Tick {
	if n < 0 {
		if uint64(-n) > uint64(t) {
			return 0
		}
		return t - Tick(-n)
	}
	return t + Tick(n)
}

// Manual is a Source for tests and tools that want to set time directly.
type Manual struct {
	T Tick
}

func (m *Manual) Now() Tick { return m.T }

// Step advances the manual clock by n ticks.
func (m *Manual) Step(n int64) Tick {
	m.T = Add(m.T, n)
	return m.T
}
