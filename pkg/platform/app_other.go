//go:build !darwin

package platform

// SetBackgroundMode is a no-op on non-macOS platforms
func SetBackgroundMode(bool) {}

// IsAppActive always returns true on non-macOS platforms
func IsAppActive() bool {
	return true
}

// ActivateApp is a no-op on non-macOS platforms; the ringing window
// re-requests focus itself.
func ActivateApp() {}
