package models

import (
	"fmt"
	"strconv"
	"time"
)

// Alarm is a persisted alarm definition. It has no date: the next
// occurrence is computed from Time whenever it is scheduled.
type Alarm struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Time    string `json:"time"` // HH:mm, 24h, local time
	// Enabled is persisted but nothing in the delivery path consults it yet.
	Enabled bool `json:"enabled"`

	SoundFile string `json:"soundFile,omitempty"` // built-in sound id or a URI
	SoundName string `json:"soundName,omitempty"` // display name of the sound
}

// NewAlarmID returns an identifier derived from the creation instant.
func NewAlarmID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

// NewAlarm builds an enabled alarm for the given time of day and sound.
func NewAlarm(now time.Time, name string, hour, minute int, sound SoundSource, soundName string) (Alarm, error) {
	clock, err := NewClockTime(hour, minute)
	if err != nil {
		return Alarm{}, err
	}
	if err := sound.Validate(); err != nil {
		return Alarm{}, err
	}
	return Alarm{
		ID:        NewAlarmID(now),
		Name:      name,
		Time:      clock.String(),
		Enabled:   true,
		SoundFile: sound.SoundFile(),
		SoundName: soundName,
	}, nil
}

// Sound returns the sound variant stored in SoundFile.
func (a Alarm) Sound() SoundSource {
	return ParseSoundFile(a.SoundFile)
}

// ClockTime is a wall-clock time of day without date or zone.
type ClockTime struct {
	Hour   int
	Minute int
}

// NewClockTime validates hour and minute.
func NewClockTime(hour, minute int) (ClockTime, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("invalid time of day %02d:%02d", hour, minute)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

// ParseClockTime parses a strict "HH:mm" string.
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil || len(s) != 5 {
		return ClockTime{}, fmt.Errorf("invalid time %q: want HH:mm", s)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Next returns the next instant strictly after now whose local wall clock
// reads c: today if still ahead, otherwise tomorrow.
func (c ClockTime) Next(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), c.Hour, c.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, c.Hour, c.Minute, 0, 0, now.Location())
	}
	return next
}
