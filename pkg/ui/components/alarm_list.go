package components

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/borgmon/alarm-clock/pkg/models"
)

// AlarmLabel is the one-line rendering of an alarm in the list.
func AlarmLabel(a models.Alarm) string {
	name := a.Name
	if name == "" {
		name = "Alarm"
	}
	if a.SoundName == "" {
		return fmt.Sprintf("%s  %s", a.Time, name)
	}
	return fmt.Sprintf("%s  %s  (%s)", a.Time, name, a.SoundName)
}

// AlarmListConfig configures the list
type AlarmListConfig struct {
	OnAdd    func()             // Called when the add button is pressed
	OnRemove func(models.Alarm) // Called with the selected alarm
}

// AlarmList shows stored alarms with add and remove controls
type AlarmList struct {
	list        *widget.List
	data        []models.Alarm
	selectedIdx int
	config      AlarmListConfig

	AddButton    *widget.Button
	RemoveButton *widget.Button
}

// NewAlarmList creates the list and the container to place in a window
func NewAlarmList(alarms []models.Alarm, config AlarmListConfig) (*AlarmList, *fyne.Container) {
	al := &AlarmList{
		data:        alarms,
		selectedIdx: -1,
		config:      config,
	}

	al.list = widget.NewList(
		func() int {
			return len(al.data)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("00:00  template")
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i < len(al.data) {
				o.(*widget.Label).SetText(AlarmLabel(al.data[i]))
			}
		})

	al.list.OnSelected = func(id widget.ListItemID) {
		al.selectedIdx = id
		al.RemoveButton.Enable()
	}
	al.list.OnUnselected = func(widget.ListItemID) {
		al.selectedIdx = -1
		al.RemoveButton.Disable()
	}

	al.AddButton = widget.NewButtonWithIcon("New alarm", theme.ContentAddIcon(), func() {
		if al.config.OnAdd != nil {
			al.config.OnAdd()
		}
	})
	al.RemoveButton = widget.NewButtonWithIcon("Delete", theme.ContentRemoveIcon(), al.RemoveSelected)
	al.RemoveButton.Disable()

	listScroll := container.NewScroll(al.list)
	listScroll.SetMinSize(fyne.NewSize(0, 200))

	listWithBorder := container.NewBorder(
		widget.NewSeparator(),
		widget.NewSeparator(),
		nil,
		nil,
		listScroll,
	)

	return al, container.NewBorder(nil, container.NewHBox(al.AddButton, al.RemoveButton), nil, nil, listWithBorder)
}

// SetAlarms replaces the shown alarms and clears the selection
func (al *AlarmList) SetAlarms(alarms []models.Alarm) {
	al.data = alarms
	al.selectedIdx = -1
	al.list.UnselectAll()
	al.RemoveButton.Disable()
	al.list.Refresh()
}

// Alarms returns the shown alarms
func (al *AlarmList) Alarms() []models.Alarm {
	return al.data
}

// Select selects the alarm at index i
func (al *AlarmList) Select(i int) {
	al.list.Select(i)
}

// Selected returns the selected alarm, if any
func (al *AlarmList) Selected() (models.Alarm, bool) {
	if al.selectedIdx < 0 || al.selectedIdx >= len(al.data) {
		return models.Alarm{}, false
	}
	return al.data[al.selectedIdx], true
}

// RemoveSelected hands the selected alarm to OnRemove. The owner reloads
// the list once the removal is persisted.
func (al *AlarmList) RemoveSelected() {
	a, ok := al.Selected()
	if !ok {
		return
	}
	if al.config.OnRemove != nil {
		al.config.OnRemove(a)
	}
}
