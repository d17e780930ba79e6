package main

import (
	"context"
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"github.com/borgmon/alarm-clock/pkg/delivery"
	"github.com/borgmon/alarm-clock/pkg/models"
	"github.com/borgmon/alarm-clock/pkg/platform"
	"github.com/borgmon/alarm-clock/pkg/ui/components"
)

// RingWindow is the full-screen view shown while an alarm rings. It can
// only be left through the hold-to-dismiss button.
type RingWindow struct {
	app         fyne.App
	coordinator *delivery.Coordinator
	quitGuard   *platform.QuitGuard
	gesture     *components.HoldGesture

	// Owned by the fyne main goroutine.
	window         fyne.Window
	nameText       *canvas.Text
	timeText       *canvas.Text
	button         *components.HoldButton
	stopMonitoring chan struct{}

	logger *zap.SugaredLogger
}

func NewRingWindow(app fyne.App, coordinator *delivery.Coordinator, quitGuard *platform.QuitGuard, hold time.Duration, logger *zap.SugaredLogger) *RingWindow {
	rw := &RingWindow{
		app:         app,
		coordinator: coordinator,
		quitGuard:   quitGuard,
		logger:      logger,
	}
	rw.gesture = components.NewHoldGesture(hold, rw.onProgress, rw.onDismissed)
	return rw
}

// SetHoldDuration applies to the next hold.
func (rw *RingWindow) SetHoldDuration(d time.Duration) {
	rw.gesture.SetDuration(d)
	fyne.Do(func() {
		if rw.button != nil {
			rw.button.Text = holdLabel(rw.gesture.Duration())
			rw.button.Refresh()
		}
	})
}

func holdLabel(d time.Duration) string {
	return fmt.Sprintf("Dismiss (Hold %ds)", int(d.Round(time.Second)/time.Second))
}

// Show opens the window for session, or updates it when already open.
func (rw *RingWindow) Show(session models.Session) {
	fyne.Do(func() {
		if rw.window != nil {
			rw.setSession(session)
			rw.window.Show()
			rw.window.RequestFocus()
			return
		}

		rw.gesture.Reset()
		rw.window = rw.app.NewWindow("Alarm")
		rw.window.SetFullScreen(true)
		rw.buildUI()
		rw.setSession(session)

		rw.window.SetCloseIntercept(func() {
			rw.logger.Info("Close blocked, hold the dismiss button to stop the alarm")
		})

		rw.stopMonitoring = make(chan struct{})
		rw.quitGuard.Enable()
		rw.setupFocusMonitoring(rw.window, rw.stopMonitoring)

		rw.window.Show()
		rw.window.RequestFocus()
	})
}

// Hide closes the window once the alarm is no longer ringing.
func (rw *RingWindow) Hide() {
	fyne.Do(func() {
		if rw.window == nil {
			return
		}
		close(rw.stopMonitoring)
		rw.quitGuard.Disable()

		w := rw.window
		rw.window, rw.button, rw.nameText, rw.timeText = nil, nil, nil, nil
		w.Close()
	})
}

func (rw *RingWindow) buildUI() {
	rw.timeText = canvas.NewText("", nil)
	rw.timeText.TextSize = 96
	rw.timeText.TextStyle = fyne.TextStyle{Bold: true}
	rw.timeText.Alignment = fyne.TextAlignCenter

	rw.nameText = canvas.NewText("", nil)
	rw.nameText.TextSize = 32
	rw.nameText.Alignment = fyne.TextAlignCenter

	rw.button = components.NewGestureButton(holdLabel(rw.gesture.Duration()), rw.gesture)

	content := container.NewVBox(
		container.NewPadded(rw.timeText),
		container.NewPadded(rw.nameText),
		widget.NewSeparator(),
		container.NewCenter(rw.button),
	)

	rw.window.SetContent(container.NewPadded(container.NewCenter(content)))
}

func (rw *RingWindow) setSession(session models.Session) {
	rw.timeText.Text = session.Time
	rw.nameText.Text = session.Name
	rw.timeText.Refresh()
	rw.nameText.Refresh()
}

func (rw *RingWindow) onProgress(p float64) {
	fyne.Do(func() {
		if rw.button != nil {
			rw.button.SetProgress(p)
		}
	})
}

func (rw *RingWindow) onDismissed() {
	if platform.Pulse() {
		rw.logger.Debug("Haptic pulse sent")
	}
	rw.coordinator.Dismiss(context.Background())
}

// setupFocusMonitoring keeps the ringing window in front. The quit guard
// is only held while the app is active so other apps keep their shortcut.
func (rw *RingWindow) setupFocusMonitoring(w fyne.Window, stop chan struct{}) {
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()

		wasFocused := true
		for {
			select {
			case <-stop:
				rw.logger.Debug("Stopping focus monitoring")
				return
			case <-ticker.C:
				select {
				case <-stop:
					return
				default:
				}
				isFocused := platform.IsAppActive()

				if wasFocused && !isFocused {
					rw.quitGuard.Disable()
				} else if !wasFocused && isFocused {
					rw.quitGuard.Enable()
				}

				if !isFocused {
					rw.logger.Debug("Ringing window not active, bringing to front")
					platform.ActivateApp()
					fyne.Do(func() {
						if rw.window == w {
							w.Show()
							w.RequestFocus()
						}
					})
				}

				wasFocused = isFocused
			}
		}
	}()
}
