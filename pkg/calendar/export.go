// Package calendar writes upcoming alarms as an iCalendar file so they can
// be imported into a calendar app.
package calendar

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/emersion/go-ical"

	"github.com/borgmon/alarm-clock/pkg/models"
)

const (
	productID = "-//borgmon//alarm-clock//EN"
	uidDomain = "@alarm-clock"
)

// Occurrence is the next ring of one alarm.
type Occurrence struct {
	Alarm  models.Alarm
	FireAt time.Time
}

// Upcoming computes the next occurrence of every alarm with a valid time,
// in the order given.
func Upcoming(alarms []models.Alarm, now time.Time) []Occurrence {
	out := make([]Occurrence, 0, len(alarms))
	for _, a := range alarms {
		clock, err := models.ParseClockTime(a.Time)
		if err != nil {
			continue
		}
		out = append(out, Occurrence{Alarm: a, FireAt: clock.Next(now)})
	}
	return out
}

// Build returns a calendar with one event per occurrence. Each event has a
// display alarm at its start.
func Build(occurrences []Occurrence, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, o := range occurrences {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, o.Alarm.ID+uidDomain)
		event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
		event.Props.SetDateTime(ical.PropDateTimeStart, o.FireAt.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, o.FireAt.Add(time.Minute).UTC())
		event.Props.SetText(ical.PropSummary, o.Alarm.Name)
		if o.Alarm.SoundName != "" {
			event.Props.SetText(ical.PropDescription, "Sound: "+o.Alarm.SoundName)
		}

		reminder := ical.NewComponent(ical.CompAlarm)
		reminder.Props.SetText(ical.PropAction, "DISPLAY")
		trigger := ical.NewProp(ical.PropTrigger)
		trigger.SetValueType(ical.ValueDuration)
		trigger.Value = "PT0S"
		reminder.Props.Set(trigger)
		reminder.Props.SetText(ical.PropDescription, o.Alarm.Name)
		event.Children = append(event.Children, reminder)

		cal.Children = append(cal.Children, event.Component)
	}
	return cal
}

// Export writes the next occurrence of every alarm to w.
func Export(w io.Writer, alarms []models.Alarm, now time.Time) (int, error) {
	occurrences := Upcoming(alarms, now)
	if len(occurrences) == 0 {
		return 0, fmt.Errorf("no alarms to export")
	}
	if err := ical.NewEncoder(w).Encode(Build(occurrences, now)); err != nil {
		return 0, fmt.Errorf("encode calendar: %w", err)
	}
	return len(occurrences), nil
}

// ExportFile writes the calendar to path.
func ExportFile(path string, alarms []models.Alarm, now time.Time) (int, error) {
	var buf bytes.Buffer
	n, err := Export(&buf, alarms, now)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("write calendar %s: %w", path, err)
	}
	return n, nil
}
