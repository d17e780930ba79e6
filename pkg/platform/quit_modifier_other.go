//go:build !darwin

package platform

import "golang.design/x/hotkey"

const quitModifier = hotkey.ModCtrl
