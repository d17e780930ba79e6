package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"github.com/borgmon/alarm-clock/assets"
	"github.com/borgmon/alarm-clock/pkg/calendar"
	"github.com/borgmon/alarm-clock/pkg/trigger"
)

func (ac *AlarmClock) setupSystemTray() {
	ac.updateSystemTrayMenu()
}

// updateSystemTrayMenu must run on the fyne main goroutine.
func (ac *AlarmClock) updateSystemTrayMenu() {
	desk, ok := ac.app.(desktop.App)
	if !ok {
		return
	}

	menuItems := []*fyne.MenuItem{}

	session, ringing := ac.coordinator.Session()
	if ringing {
		header := fyne.NewMenuItem(fmt.Sprintf("Ringing: %s %s", session.Time, truncateString(session.Name, 30)), nil)
		header.Disabled = true
		menuItems = append(menuItems, header,
			fyne.NewMenuItem("Dismiss Alarm", func() {
				go ac.emitForSession(trigger.EventActionPress, trigger.ActionDismiss)
			}),
			fyne.NewMenuItemSeparator(),
		)
	}

	upcoming := ac.upcomingToday(5)
	if len(upcoming) > 0 {
		headerItem := fyne.NewMenuItem("Upcoming Today:", nil)
		headerItem.Disabled = true
		menuItems = append(menuItems, headerItem)

		for _, t := range upcoming {
			item := fyne.NewMenuItem(fmt.Sprintf("  %s - %s",
				t.FireAt.Format("15:04"),
				truncateString(t.Notification.Title, 35)), nil)
			item.Disabled = true
			menuItems = append(menuItems, item)
		}

		menuItems = append(menuItems, fyne.NewMenuItemSeparator())
	}

	menuItems = append(menuItems,
		fyne.NewMenuItem("Open", ac.open),
		fyne.NewMenuItem("Export to Calendar", func() {
			go ac.exportCalendar()
		}),
		fyne.NewMenuItemSeparator(),
	)

	quit := fyne.NewMenuItem("Quit", ac.quit)
	quit.Disabled = ringing
	quit.IsQuit = true
	menuItems = append(menuItems, quit)

	menu := fyne.NewMenu("Alarm Clock", menuItems...)
	desk.SetSystemTrayMenu(menu)
	desk.SetSystemTrayIcon(assets.Icon)
}

// open is the desktop equivalent of tapping the alarm notification.
func (ac *AlarmClock) open() {
	if session, ringing := ac.coordinator.Session(); ringing {
		ac.ringWindow.Show(session)
		go ac.emitForSession(trigger.EventPress, "")
		return
	}
	ac.showSetupWindow()
}

func (ac *AlarmClock) emitForSession(t trigger.EventType, actionID string) {
	session, ringing := ac.coordinator.Session()
	if !ringing || session.TriggerID == "" {
		return
	}
	if err := ac.scheduler.EmitFor(ac.ctx, t, session.TriggerID, actionID); err != nil {
		ac.logger.Warnf("Error emitting %s for %s: %v", t, session.TriggerID, err)
	}
}

// upcomingToday returns up to limit pending triggers firing before midnight.
func (ac *AlarmClock) upcomingToday(limit int) []trigger.Trigger {
	ctx, cancel := context.WithTimeout(ac.ctx, 2*time.Second)
	defer cancel()

	now := time.Now()
	todayEnd := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())

	upcoming := []trigger.Trigger{}
	for _, t := range ac.triggers.ListPending(ctx) {
		if t.FireAt.After(now) && t.FireAt.Before(todayEnd) {
			upcoming = append(upcoming, t)
			if len(upcoming) >= limit {
				break
			}
		}
	}
	return upcoming
}

func (ac *AlarmClock) exportCalendar() {
	path := filepath.Join(ac.config.DataDir, "alarms.ics")
	n, err := calendar.ExportFile(path, ac.alarmStore.LoadAll(ac.ctx), time.Now())
	if err != nil {
		ac.logger.Errorf("Error exporting calendar: %v", err)
		ac.app.SendNotification(fyne.NewNotification("Export failed", err.Error()))
		return
	}
	ac.logger.Infof("Exported %d alarms to %s", n, path)
	ac.app.SendNotification(fyne.NewNotification("Alarms exported", path))
}

// truncateString truncates a string to maxLen runes, adding "..." if needed
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
