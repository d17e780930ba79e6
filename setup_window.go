package main

import (
	"errors"
	"fmt"
	"path"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"github.com/borgmon/alarm-clock/pkg/calendar"
	"github.com/borgmon/alarm-clock/pkg/config"
	"github.com/borgmon/alarm-clock/pkg/delivery"
	"github.com/borgmon/alarm-clock/pkg/models"
	"github.com/borgmon/alarm-clock/pkg/trigger"
	"github.com/borgmon/alarm-clock/pkg/ui/components"
)

const customSoundOption = "Custom file…"

// SetupWindow lists, creates and deletes alarms. While it is open it is
// the foreground event channel.
type SetupWindow struct {
	ac       *AlarmClock
	window   fyne.Window
	list     *components.AlarmList
	onClosed func()

	unsubscribe func()
}

func NewSetupWindow(ac *AlarmClock, onClosed func()) *SetupWindow {
	sw := &SetupWindow{
		ac:       ac,
		onClosed: onClosed,
	}

	sw.window = ac.app.NewWindow("Alarm Clock")
	sw.window.Resize(fyne.NewSize(480, 420))
	sw.buildUI()

	sw.unsubscribe = ac.triggers.OnForegroundEvent(ac.coordinator.Handler(delivery.ChannelForeground))
	sw.window.SetOnClosed(func() {
		sw.unsubscribe()
		if sw.onClosed != nil {
			sw.onClosed()
		}
	})

	return sw
}

func (sw *SetupWindow) buildUI() {
	var listContainer *fyne.Container
	sw.list, listContainer = components.NewAlarmList(sw.ac.alarmStore.LoadAll(sw.ac.ctx), components.AlarmListConfig{
		OnAdd:    sw.showCreateAlarmDialog,
		OnRemove: sw.confirmDelete,
	})

	autoStartCheck := widget.NewCheck("Start at login", func(enabled bool) {
		sw.setAutoStart(enabled)
	})
	autoStartCheck.SetChecked(sw.ac.config.AutoStart)

	exportButton := widget.NewButton("Export to Calendar", sw.showExportDialog)

	title := widget.NewLabelWithStyle("Alarms", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	footer := container.NewHBox(autoStartCheck, layout.NewSpacer(), exportButton)

	sw.window.SetContent(container.NewPadded(container.NewBorder(title, footer, nil, nil, listContainer)))
}

func (sw *SetupWindow) Show() {
	sw.window.Show()
}

func (sw *SetupWindow) refresh() {
	sw.list.SetAlarms(sw.ac.alarmStore.LoadAll(sw.ac.ctx))
	sw.ac.updateSystemTrayMenu()
}

func twoDigitOptions(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%02d", i)
	}
	return out
}

func (sw *SetupWindow) showCreateAlarmDialog() {
	nameEntry := widget.NewEntry()
	nameEntry.SetPlaceHolder("Alarm")

	next := time.Now().Add(time.Hour)
	hourSelect := widget.NewSelect(twoDigitOptions(24), nil)
	hourSelect.SetSelected(fmt.Sprintf("%02d", next.Hour()))
	minuteSelect := widget.NewSelect(twoDigitOptions(60), nil)
	minuteSelect.SetSelected("00")

	options := make([]string, 0, len(models.BuiltinSounds)+1)
	for _, s := range models.BuiltinSounds {
		options = append(options, s.Name)
	}
	options = append(options, customSoundOption)

	var (
		sound     = models.Builtin(models.BuiltinSounds[0].ID)
		soundName = models.BuiltinSounds[0].Name
	)
	customLabel := widget.NewLabel("")
	soundSelect := widget.NewSelect(options, nil)
	soundSelect.SetSelected(soundName)
	soundSelect.OnChanged = func(choice string) {
		if choice != customSoundOption {
			for _, s := range models.BuiltinSounds {
				if s.Name == choice {
					sound, soundName = models.Builtin(s.ID), s.Name
				}
			}
			customLabel.SetText("")
			return
		}

		picker := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, sw.window)
				return
			}
			if reader == nil {
				return
			}
			defer reader.Close()
			uri := reader.URI()
			sound, soundName = models.CustomURI(uri.String()), path.Base(uri.Path())
			customLabel.SetText(soundName)
		}, sw.window)
		picker.SetFilter(storage.NewExtensionFileFilter([]string{".wav"}))
		picker.Show()
	}

	items := []*widget.FormItem{
		widget.NewFormItem("Name", nameEntry),
		widget.NewFormItem("Time", container.NewHBox(hourSelect, widget.NewLabel(":"), minuteSelect)),
		widget.NewFormItem("Sound", container.NewVBox(soundSelect, customLabel)),
	}

	dialog.ShowForm("New Alarm", "Create", "Cancel", items, func(confirmed bool) {
		if !confirmed {
			return
		}

		hour, _ := strconv.Atoi(hourSelect.Selected)
		minute, _ := strconv.Atoi(minuteSelect.Selected)
		name := nameEntry.Text
		if name == "" {
			name = models.UnknownAlarmName
		}

		alarm, err := models.NewAlarm(time.Now(), name, hour, minute, sound, soundName)
		if err != nil {
			dialog.ShowError(err, sw.window)
			return
		}
		sw.createAlarm(alarm)
	}, sw.window)
}

func (sw *SetupWindow) createAlarm(alarm models.Alarm) {
	if err := sw.ac.alarmStore.Upsert(sw.ac.ctx, alarm); err != nil {
		dialog.ShowError(fmt.Errorf("could not save alarm: %w", err), sw.window)
		return
	}

	if _, err := sw.ac.triggers.Schedule(sw.ac.ctx, alarm); err != nil {
		if errors.Is(err, trigger.ErrPermissionDenied) {
			dialog.ShowError(errors.New("alarms are not allowed to fire: grant notification and alarm permissions, then create the alarm again"), sw.window)
		} else {
			sw.ac.logger.Errorf("Error scheduling alarm %s: %v", alarm.ID, err)
		}
	}
	sw.refresh()
}

func (sw *SetupWindow) confirmDelete(alarm models.Alarm) {
	msg := fmt.Sprintf("Delete the %s alarm \"%s\"?", alarm.Time, alarm.Name)
	dialog.ShowConfirm("Delete Alarm", msg, func(ok bool) {
		if ok {
			sw.deleteAlarm(alarm)
		}
	}, sw.window)
}

func (sw *SetupWindow) deleteAlarm(alarm models.Alarm) {
	if err := sw.ac.alarmStore.Delete(sw.ac.ctx, alarm.ID); err != nil {
		dialog.ShowError(fmt.Errorf("could not delete alarm: %w", err), sw.window)
		return
	}
	if err := sw.ac.triggers.Cancel(sw.ac.ctx, alarm.ID); err != nil {
		sw.ac.logger.Errorf("Error cancelling deleted alarm %s: %v", alarm.ID, err)
	}
	sw.refresh()
}

func (sw *SetupWindow) setAutoStart(enabled bool) {
	if enabled == sw.ac.config.AutoStart {
		return
	}
	cfg := sw.ac.config
	cfg.AutoStart = enabled

	go func() {
		if err := setupAutostart(enabled, sw.ac.logger); err != nil {
			fyne.Do(func() {
				dialog.ShowError(fmt.Errorf("failed to set autostart: %w", err), sw.window)
			})
			return
		}
		// The config watcher picks the change up and updates ac.config.
		if err := config.Save(sw.ac.configPath, cfg); err != nil {
			sw.ac.logger.Errorf("Error saving config: %v", err)
		}
	}()
}

func (sw *SetupWindow) showExportDialog() {
	save := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, sw.window)
			return
		}
		if writer == nil {
			return
		}
		defer writer.Close()

		n, err := calendar.Export(writer, sw.ac.alarmStore.LoadAll(sw.ac.ctx), time.Now())
		if err != nil {
			dialog.ShowError(err, sw.window)
			return
		}
		dialog.ShowInformation("Exported", fmt.Sprintf("Exported %d alarms to %s", n, writer.URI().Name()), sw.window)
	}, sw.window)
	save.SetFileName("alarms.ics")
	save.SetFilter(storage.NewExtensionFileFilter([]string{".ics"}))
	save.Show()
}
