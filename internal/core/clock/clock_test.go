package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceIsMonotonic(t *testing.T) {
	c := New(50 * time.Millisecond)
	require.Equal(t, Tick(0), c.Now())

	for i := 1; i <= 5; i++ {
		assert.Equal(t, Tick(i), c.Advance())
	}
	assert.Equal(t, Tick(5), c.Now())
}

func TestTicksRoundsUp(t *testing.T) {
	c := New(50 * time.Millisecond)

	assert.Equal(t, int64(0), c.Ticks(0))
	assert.Equal(t, int64(1), c.Ticks(time.Millisecond))
	assert.Equal(t, int64(1), c.Ticks(50*time.Millisecond))
	assert.Equal(t, int64(2), c.Ticks(51*time.Millisecond))
	assert.Equal(t, int64(20), c.Ticks(time.Second))
	assert.Equal(t, int64(160), c.Seconds(8))
	assert.Equal(t, int64(10), c.Seconds(0.5))
}

func TestDefaultRate(t *testing.T) {
	c := New(0)
	assert.Equal(t, 50*time.Millisecond, c.Rate())
}

func TestAddSaturates(t *testing.T) {
	assert.Equal(t, Tick(7), Add(5, 2))
	assert.Equal(t, Tick(3), Add(5, -2))
	assert.Equal(t, Tick(0), Add(5, -10))
}

func TestManual(t *testing.T) {
	m := &Manual{}
	m.Step(3)
	assert.Equal(t, Tick(3), m.Now())
	m.T = 100
	assert.Equal(t, Tick(100), m.Now())
}
