//go:build !darwin

package platform

// Pulse reports false: there is no haptic device to drive.
func Pulse() bool {
	return false
}
