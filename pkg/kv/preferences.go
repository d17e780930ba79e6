package kv

import (
	"context"

	"fyne.io/fyne/v2"
)

// Preferences stores values in the fyne application preferences.
type Preferences struct {
	prefs fyne.Preferences
}

// NewPreferences wraps the preferences of app.
func NewPreferences(app fyne.App) *Preferences {
	return &Preferences{prefs: app.Preferences()}
}

func (p *Preferences) Get(_ context.Context, key string) (string, bool, error) {
	// fyne has no existence check; an unset key reads as the fallback.
	const missing = "\x00missing"
	v := p.prefs.StringWithFallback(key, missing)
	if v == missing {
		return "", false, nil
	}
	return v, true, nil
}

func (p *Preferences) Set(_ context.Context, key, value string) error {
	p.prefs.SetString(key, value)
	return nil
}

func (p *Preferences) Remove(_ context.Context, key string) error {
	p.prefs.RemoveValue(key)
	return nil
}
