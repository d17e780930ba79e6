package components

import (
	"sync"
	"time"
)

const holdTick = 50 * time.Millisecond

// HoldGesture times a press-and-hold. Progress is the held time over the
// required duration, it drops to zero on release, and completion fires once.
type HoldGesture struct {
	mu       sync.Mutex
	duration time.Duration
	tick     time.Duration
	now      func() time.Time

	onProgress func(float64)
	onComplete func()

	holding   bool
	done      bool
	startedAt time.Time
	progress  float64
	stop      chan struct{}
}

// NewHoldGesture creates a gesture that completes after duration of
// continuous holding. Callbacks run on the ticker goroutine.
func NewHoldGesture(duration time.Duration, onProgress func(float64), onComplete func()) *HoldGesture {
	return &HoldGesture{
		duration:   duration,
		tick:       holdTick,
		now:        time.Now,
		onProgress: onProgress,
		onComplete: onComplete,
	}
}

// SetDuration changes the hold time for the next press.
func (g *HoldGesture) SetDuration(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if d > 0 {
		g.duration = d
	}
}

// Duration is the hold time required to complete.
func (g *HoldGesture) Duration() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.duration
}

// Press starts timing. Ignored while already held or after completion.
func (g *HoldGesture) Press() {
	g.mu.Lock()
	if g.holding || g.done {
		g.mu.Unlock()
		return
	}
	g.holding = true
	g.startedAt = g.now()
	g.progress = 0
	stop := make(chan struct{})
	g.stop = stop
	tick := g.tick
	g.mu.Unlock()

	g.report(0)
	if tick > 0 {
		go g.run(tick, stop)
	}
}

func (g *HoldGesture) run(tick time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !g.update() {
				return
			}
		}
	}
}

// update recomputes progress from the clock. It returns false once the
// gesture is no longer being held.
func (g *HoldGesture) update() bool {
	g.mu.Lock()
	if !g.holding {
		g.mu.Unlock()
		return false
	}

	progress := float64(g.now().Sub(g.startedAt)) / float64(g.duration)
	if progress < 0 {
		progress = 0
	}
	complete := progress >= 1
	if complete {
		progress = 1
		g.holding = false
		g.done = true
		close(g.stop)
		g.stop = nil
	}
	g.progress = progress
	g.mu.Unlock()

	g.report(progress)
	if complete && g.onComplete != nil {
		g.onComplete()
	}
	return !complete
}

// Release cancels an unfinished hold and resets progress to zero.
func (g *HoldGesture) Release() {
	g.mu.Lock()
	if !g.holding {
		g.mu.Unlock()
		return
	}
	g.holding = false
	g.progress = 0
	close(g.stop)
	g.stop = nil
	g.mu.Unlock()

	g.report(0)
}

// Reset makes a completed gesture usable again.
func (g *HoldGesture) Reset() {
	g.Release()
	g.mu.Lock()
	g.done = false
	g.progress = 0
	g.mu.Unlock()
}

// Progress is the last computed progress in [0, 1].
func (g *HoldGesture) Progress() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.progress
}

// Completed reports whether the hold finished.
func (g *HoldGesture) Completed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.done
}

func (g *HoldGesture) report(p float64) {
	if g.onProgress != nil {
		g.onProgress(p)
	}
}
