package models

import (
	"errors"
	"fmt"
)

// SoundKind discriminates the two kinds of alarm sound.
type SoundKind string

const (
	SoundBuiltin   SoundKind = "builtin"
	SoundCustomURI SoundKind = "custom"
)

// BuiltinSound is an audio asset bundled with the application.
type BuiltinSound struct {
	ID    string
	Name  string
	Asset string // path inside the embedded asset FS
}

// BuiltinSounds is the fixed catalogue of bundled sounds, in display order.
var BuiltinSounds = []BuiltinSound{
	{ID: "jmsn", Name: "JMSN - Love Me", Asset: "sounds/jmsn_love_me.wav"},
	{ID: "backseat", Name: "Backseat", Asset: "sounds/backseat.wav"},
	{ID: "beabadoobee", Name: "Beabadoobee - The Perfect Pair", Asset: "sounds/beabadoobee_perfect_pair.wav"},
}

// LookupBuiltinSound finds a bundled sound by its id.
func LookupBuiltinSound(id string) (BuiltinSound, bool) {
	for _, s := range BuiltinSounds {
		if s.ID == id {
			return s, true
		}
	}
	return BuiltinSound{}, false
}

// SoundSource is either Builtin(id) or CustomURI(uri).
type SoundSource struct {
	Kind  SoundKind
	Value string
}

var ErrInvalidSound = errors.New("invalid sound source")

// Builtin returns the variant for a bundled sound id.
func Builtin(id string) SoundSource {
	return SoundSource{Kind: SoundBuiltin, Value: id}
}

// CustomURI returns the variant for a user-picked audio file.
func CustomURI(uri string) SoundSource {
	return SoundSource{Kind: SoundCustomURI, Value: uri}
}

// ParseSoundFile classifies a persisted soundFile value. Known built-in ids
// become Builtin, anything else non-empty is a URI. An empty value yields
// the zero SoundSource.
func ParseSoundFile(soundFile string) SoundSource {
	if soundFile == "" {
		return SoundSource{}
	}
	if _, ok := LookupBuiltinSound(soundFile); ok {
		return Builtin(soundFile)
	}
	return CustomURI(soundFile)
}

// IsZero reports whether no sound was chosen.
func (s SoundSource) IsZero() bool {
	return s.Kind == "" && s.Value == ""
}

// Validate checks the variant against the built-in catalogue.
func (s SoundSource) Validate() error {
	switch s.Kind {
	case SoundBuiltin:
		if _, ok := LookupBuiltinSound(s.Value); !ok {
			return fmt.Errorf("%w: unknown built-in sound %q", ErrInvalidSound, s.Value)
		}
	case SoundCustomURI:
		if s.Value == "" {
			return fmt.Errorf("%w: empty custom sound URI", ErrInvalidSound)
		}
	default:
		return fmt.Errorf("%w: no sound selected", ErrInvalidSound)
	}
	return nil
}

// SoundFile is the string persisted in Alarm.SoundFile.
func (s SoundSource) SoundFile() string {
	return s.Value
}
