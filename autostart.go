package main

import (
	"os"
	"path/filepath"

	"github.com/emersion/go-autostart"
	"go.uber.org/zap"
)

// loginItem starts the app tray-only, so alarms can ring after a reboot
// without a window being opened.
func loginItem() (*autostart.App, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}

	// Resolve symlinks if any
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	return &autostart.App{
		Name:        "alarm-clock",
		DisplayName: "Alarm Clock",
		Exec:        []string{execPath, "--background"},
	}, nil
}

func setupAutostart(enable bool, logger *zap.SugaredLogger) error {
	app, err := loginItem()
	if err != nil {
		return err
	}

	switch {
	case enable && !app.IsEnabled():
		if err := app.Enable(); err != nil {
			return err
		}
		logger.Info("Autostart enabled")
	case !enable && app.IsEnabled():
		if err := app.Disable(); err != nil {
			return err
		}
		logger.Info("Autostart disabled")
	}
	return nil
}
