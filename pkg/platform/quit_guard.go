package platform

import (
	"sync"

	"go.uber.org/zap"
	"golang.design/x/hotkey"
)

type shortcut interface {
	Register() error
	Unregister() error
	Keydown() <-chan hotkey.Event
}

func quitShortcut() shortcut {
	return hotkey.New([]hotkey.Modifier{quitModifier}, hotkey.KeyQ)
}

// QuitGuard swallows the platform quit shortcut while an alarm rings, so
// the only way out is the dismiss gesture.
//
// Enable and Disable only record the wanted state and return. The shortcut
// is registered and released on the guard's own goroutine: on darwin the
// hotkey package dispatches synchronously to the main queue, which deadlocks
// when called from the fyne main goroutine.
type QuitGuard struct {
	newShortcut func() shortcut
	logger      *zap.SugaredLogger

	mu   sync.Mutex
	want bool
	hk   shortcut

	wake  chan struct{}
	start sync.Once
}

// NewQuitGuard creates an inactive guard.
func NewQuitGuard(logger *zap.SugaredLogger) *QuitGuard {
	return newQuitGuard(quitShortcut, logger)
}

func newQuitGuard(newShortcut func() shortcut, logger *zap.SugaredLogger) *QuitGuard {
	return &QuitGuard{
		newShortcut: newShortcut,
		logger:      logger,
		wake:        make(chan struct{}, 1),
	}
}

// Enable asks for the shortcut to be held. Safe to call when already enabled
// and from any goroutine.
func (g *QuitGuard) Enable() {
	g.set(true)
}

// Disable asks for the shortcut to be released.
func (g *QuitGuard) Disable() {
	g.set(false)
}

// Enabled reports whether the shortcut is currently held.
func (g *QuitGuard) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hk != nil
}

func (g *QuitGuard) set(want bool) {
	g.mu.Lock()
	g.want = want
	g.mu.Unlock()

	g.start.Do(func() { go g.loop() })
	select {
	case g.wake <- struct{}{}:
	default:
	}
}

func (g *QuitGuard) loop() {
	for range g.wake {
		g.apply()
	}
}

// apply converges on the latest wanted state, so a burst of Enable and
// Disable calls ends in whichever came last.
func (g *QuitGuard) apply() {
	g.mu.Lock()
	want, held := g.want, g.hk
	g.mu.Unlock()

	switch {
	case want && held == nil:
		hk := g.newShortcut()
		if err := hk.Register(); err != nil {
			g.logger.Warnf("Failed to register quit shortcut prevention: %v", err)
			return
		}
		g.mu.Lock()
		g.hk = hk
		g.mu.Unlock()

		go func() {
			for range hk.Keydown() {
				g.logger.Info("Quit blocked, hold the dismiss button to stop the alarm")
			}
		}()

	case !want && held != nil:
		g.mu.Lock()
		g.hk = nil
		g.mu.Unlock()
		if err := held.Unregister(); err != nil {
			g.logger.Warnf("Failed to unregister quit shortcut prevention: %v", err)
		}
	}
}
