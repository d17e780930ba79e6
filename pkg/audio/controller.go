package audio

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/borgmon/alarm-clock/pkg/models"
)

// Controller owns at most one loaded alarm sound. Every method logs and
// swallows playback failures: a silent alarm is still a visible alarm.
type Controller struct {
	mu sync.Mutex

	backend Backend
	handle  Handle
	source  Source
	playing bool

	startVolume float64
	onFailure   func(error)

	logger *zap.SugaredLogger
}

// NewController creates a controller on top of backend.
func NewController(backend Backend, logger *zap.SugaredLogger) *Controller {
	return &Controller{
		backend:     backend,
		startVolume: 1.0,
		logger:      logger,
	}
}

// Init prepares the backend. Safe to call more than once.
func (c *Controller) Init() {
	if err := c.backend.Init(); err != nil {
		c.fail(fmt.Errorf("%w: init: %w", ErrPlayback, err))
		return
	}
	c.logger.Info("Audio initialized")
}

// Teardown stops any sound and releases the backend.
func (c *Controller) Teardown() {
	c.Stop()
	if err := c.backend.Close(); err != nil {
		c.fail(fmt.Errorf("%w: close backend: %w", ErrPlayback, err))
	}
}

// SetStartVolume sets the level new sounds begin at.
func (c *Controller) SetStartVolume(level float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startVolume = models.ClampVolume(level)
}

// OnFailure registers a hook called for every swallowed playback failure.
func (c *Controller) OnFailure(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFailure = fn
}

// Start replaces whatever is loaded with source and loops it until Stop.
// Calling Start while something plays always ends with exactly one sound.
func (c *Controller) Start(source Source) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()

	h, err := c.backend.Load(source)
	if err != nil {
		c.failLocked(fmt.Errorf("%w: load %s: %w", ErrPlayback, source, err))
		return
	}

	if err := h.SetVolume(c.startVolume); err != nil {
		c.failLocked(fmt.Errorf("%w: volume %s: %w", ErrPlayback, source, err))
	}
	h.OnPlaybackStatus(c.watchdog(h))

	if err := h.Play(true); err != nil {
		c.failLocked(fmt.Errorf("%w: play %s: %w", ErrPlayback, source, err))
		if err := h.Unload(); err != nil {
			c.logger.Warnf("Error unloading failed sound: %v", err)
		}
		return
	}

	c.handle = h
	c.source = source
	c.playing = true
	c.logger.Infof("Playing alarm sound %s", source)
}

// StartSound resolves sound and starts it.
func (c *Controller) StartSound(sound models.SoundSource) {
	source, err := Resolve(sound)
	if err != nil {
		c.fail(err)
		return
	}
	c.Start(source)
}

// watchdog restarts playback if the backend reports a finish while not
// looping, so a platform looping failure cannot silence the alarm.
func (c *Controller) watchdog(h Handle) func(Status) {
	return func(st Status) {
		if !st.Loaded || !st.DidJustFinish || st.Looping {
			return
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.handle != h || !c.playing {
			return
		}
		c.logger.Warnf("Alarm sound %s finished without looping, restarting", c.source)
		if err := h.Replay(); err != nil {
			c.failLocked(fmt.Errorf("%w: replay %s: %w", ErrPlayback, c.source, err))
		}
	}
}

// Stop stops and releases the loaded sound. No-op when nothing is loaded.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	if c.handle == nil {
		c.playing = false
		return
	}

	h := c.handle
	c.handle = nil
	c.playing = false
	c.source = Source{}

	if err := h.Stop(); err != nil {
		c.failLocked(fmt.Errorf("%w: stop: %w", ErrPlayback, err))
	}
	if err := h.Unload(); err != nil {
		c.failLocked(fmt.Errorf("%w: unload: %w", ErrPlayback, err))
	}
	c.logger.Info("Alarm sound stopped")
}

// SetVolume clamps level to [0, 1]. No-op when nothing is loaded.
func (c *Controller) SetVolume(level float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return
	}
	if err := c.handle.SetVolume(models.ClampVolume(level)); err != nil {
		c.failLocked(fmt.Errorf("%w: volume: %w", ErrPlayback, err))
	}
}

// IsPlaying reports whether a sound is loaded and playing.
func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Current returns the source that is playing, if any.
func (c *Controller) Current() (Source, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source, c.playing
}

func (c *Controller) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failLocked(err)
}

func (c *Controller) failLocked(err error) {
	c.logger.Errorf("Error playing alarm sound: %v", err)
	if c.onFailure != nil {
		c.onFailure(err)
	}
}
