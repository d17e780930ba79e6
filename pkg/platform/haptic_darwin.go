//go:build darwin

package platform

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework AppKit
#import <AppKit/AppKit.h>

void hapticPulse() {
    [[NSHapticFeedbackManager defaultPerformer]
        performFeedbackPattern:NSHapticFeedbackPatternLevelChange
               performanceTime:NSHapticFeedbackPerformanceTimeNow];
}
*/
import "C"

// Pulse plays a haptic tap on a Force Touch trackpad. It reports whether
// the platform supports haptics.
func Pulse() bool {
	C.hapticPulse()
	return true
}
