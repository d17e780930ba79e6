// Package assets bundles the built-in alarm sounds and the app icon.
package assets

import (
	"embed"

	"fyne.io/fyne/v2"
)

//go:embed sounds/*.wav
var FS embed.FS

//go:embed icon.png
var iconPNG []byte

// Icon is used for the app, the tray and notifications.
var Icon = fyne.NewStaticResource("icon.png", iconPNG)
