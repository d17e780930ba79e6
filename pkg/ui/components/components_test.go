package components

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borgmon/alarm-clock/pkg/models"
)

func TestAlarmLabel(t *testing.T) {
	assert.Equal(t, "07:30  Wake up  (JMSN - Love Me)",
		AlarmLabel(models.Alarm{Name: "Wake up", Time: "07:30", SoundName: "JMSN - Love Me"}))
	assert.Equal(t, "12:00  Alarm", AlarmLabel(models.Alarm{Time: "12:00"}))
}

func TestAlarmListRemoveSelected(t *testing.T) {
	test.NewTempApp(t)

	alarms := []models.Alarm{
		{ID: "1", Name: "Wake up", Time: "07:30"},
		{ID: "2", Name: "Lunch", Time: "12:15"},
	}
	var removed []string
	added := 0
	al, _ := NewAlarmList(alarms, AlarmListConfig{
		OnAdd:    func() { added++ },
		OnRemove: func(a models.Alarm) { removed = append(removed, a.ID) },
	})

	assert.True(t, al.RemoveButton.Disabled())
	test.Tap(al.RemoveButton)
	assert.Empty(t, removed)

	al.Select(1)
	selected, ok := al.Selected()
	require.True(t, ok)
	assert.Equal(t, "2", selected.ID)
	assert.False(t, al.RemoveButton.Disabled())

	test.Tap(al.RemoveButton)
	assert.Equal(t, []string{"2"}, removed)

	test.Tap(al.AddButton)
	assert.Equal(t, 1, added)

	al.SetAlarms(alarms[:1])
	_, ok = al.Selected()
	assert.False(t, ok)
	assert.Len(t, al.Alarms(), 1)
}

func TestHoldButtonDrivesGesture(t *testing.T) {
	test.NewTempApp(t)

	g, _, _, _ := newManualGesture(5e9)
	b := NewGestureButton("Hold to dismiss", g)

	b.MouseDown(nil)
	assert.True(t, b.Holding())
	b.MouseDown(nil)

	b.MouseUp(nil)
	assert.False(t, b.Holding())

	b.TouchDown(nil)
	assert.True(t, b.Holding())
	b.TouchCancel(nil)
	assert.False(t, b.Holding())
	assert.Zero(t, g.Progress())

	b.SetProgress(1.4)
	assert.Equal(t, 1.0, b.Progress())
}
