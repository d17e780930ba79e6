package components

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type manualClock struct{ t time.Time }

func (c *manualClock) now() time.Time          { return c.t }
func (c *manualClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newManualGesture(d time.Duration) (*HoldGesture, *manualClock, *[]float64, *int) {
	clock := &manualClock{t: time.Date(2026, 3, 10, 7, 30, 0, 0, time.UTC)}
	var progress []float64
	completions := 0
	g := NewHoldGesture(d, func(p float64) { progress = append(progress, p) }, func() { completions++ })
	g.tick = 0
	g.now = clock.now
	return g, clock, &progress, &completions
}

func TestHoldProgressIsProportional(t *testing.T) {
	g, clock, _, completions := newManualGesture(5 * time.Second)

	g.Press()
	clock.advance(time.Second)
	g.update()
	assert.InDelta(t, 0.2, g.Progress(), 1e-9)

	clock.advance(1500 * time.Millisecond)
	g.update()
	assert.InDelta(t, 0.5, g.Progress(), 1e-9)
	assert.Zero(t, *completions)
}

func TestHoldReleaseResets(t *testing.T) {
	g, clock, progress, completions := newManualGesture(5 * time.Second)

	g.Press()
	clock.advance(3 * time.Second)
	g.update()
	g.Release()

	assert.Zero(t, g.Progress())
	assert.Equal(t, 0.0, (*progress)[len(*progress)-1])
	assert.False(t, g.Completed())
	assert.Zero(t, *completions)

	// A new press starts from zero.
	g.Press()
	clock.advance(time.Second)
	g.update()
	assert.InDelta(t, 0.2, g.Progress(), 1e-9)
}

func TestHoldCompletesOnce(t *testing.T) {
	g, clock, _, completions := newManualGesture(5 * time.Second)

	g.Press()
	clock.advance(5 * time.Second)
	assert.False(t, g.update())
	assert.Equal(t, 1.0, g.Progress())
	assert.True(t, g.Completed())

	clock.advance(time.Second)
	g.update()
	g.Release()
	g.Press()
	g.update()
	assert.Equal(t, 1, *completions)
	assert.Equal(t, 1.0, g.Progress())

	g.Reset()
	assert.False(t, g.Completed())
	assert.Zero(t, g.Progress())
}

func TestHoldSetDuration(t *testing.T) {
	g, clock, _, completions := newManualGesture(5 * time.Second)
	g.SetDuration(2 * time.Second)
	g.SetDuration(0)
	assert.Equal(t, 2*time.Second, g.Duration())

	g.Press()
	clock.advance(2 * time.Second)
	g.update()
	assert.Equal(t, 1, *completions)
}

func TestHoldWithTicker(t *testing.T) {
	done := make(chan struct{})
	g := NewHoldGesture(100*time.Millisecond, nil, func() { close(done) })
	g.tick = 5 * time.Millisecond

	g.Press()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hold never completed")
	}
	assert.True(t, g.Completed())
}
