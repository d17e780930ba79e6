package audio

import (
	"errors"
	"fmt"
	"time"

	"github.com/borgmon/alarm-clock/pkg/models"
)

// ErrPlayback wraps load, play, stop and volume failures.
var ErrPlayback = errors.New("playback error")

// Source is a concrete loadable reference: either a bundled asset path or
// a URI pointing at a user file. Exactly one field is set.
type Source struct {
	Asset string
	URI   string
}

func (s Source) String() string {
	if s.Asset != "" {
		return "asset:" + s.Asset
	}
	return s.URI
}

// Resolve turns a sound variant into a loadable Source. Built-in ids are
// checked against the catalogue a second time here.
func Resolve(sound models.SoundSource) (Source, error) {
	switch sound.Kind {
	case models.SoundBuiltin:
		b, ok := models.LookupBuiltinSound(sound.Value)
		if !ok {
			return Source{}, fmt.Errorf("%w: unknown built-in sound %q", ErrPlayback, sound.Value)
		}
		return Source{Asset: b.Asset}, nil
	case models.SoundCustomURI:
		if sound.Value == "" {
			return Source{}, fmt.Errorf("%w: empty sound URI", ErrPlayback)
		}
		return Source{URI: sound.Value}, nil
	default:
		return Source{}, fmt.Errorf("%w: no sound", ErrPlayback)
	}
}

// Status is reported by a Handle whenever playback state changes.
type Status struct {
	Loaded        bool
	Playing       bool
	Looping       bool
	DidJustFinish bool
	Position      time.Duration
}

// Handle is one loaded sound.
type Handle interface {
	Play(loop bool) error
	// Replay restarts playback from the beginning.
	Replay() error
	Stop() error
	Unload() error
	SetVolume(level float64) error
	// OnPlaybackStatus installs the status callback. It may be called from
	// any goroutine.
	OnPlaybackStatus(func(Status))
}

// Backend is the native decoder/mixer.
type Backend interface {
	Init() error
	Load(source Source) (Handle, error)
	Close() error
}
