package models

const (
	UnknownAlarmID   = "unknown"
	UnknownAlarmName = "Alarm"
	UnknownAlarmTime = "--:--"
)

// Session is the alarm currently ringing. It only lives in memory.
type Session struct {
	ID        string // alarm id, or UnknownAlarmID when the store has no record
	TriggerID string // trigger to cancel on dismissal
	Name      string
	Time      string
	Sound     SoundSource
	Known     bool // true when resolved against a stored alarm
}
