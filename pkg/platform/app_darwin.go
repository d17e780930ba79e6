//go:build darwin

package platform

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Cocoa -framework AppKit
#import <Cocoa/Cocoa.h>
#import <AppKit/AppKit.h>

void setActivationPolicy(int accessory) {
    if (accessory) {
        [NSApp setActivationPolicy:NSApplicationActivationPolicyAccessory];
    } else {
        [NSApp setActivationPolicy:NSApplicationActivationPolicyRegular];
    }
}

int isAppActive() {
    return [NSApp isActive] ? 1 : 0;
}

void activateApp() {
    [NSApp activateIgnoringOtherApps:YES];
}
*/
import "C"

import "go.uber.org/zap"

// SetBackgroundMode hides the dock icon while only the tray is shown.
func SetBackgroundMode(background bool) {
	zap.S().Debugf("Setting activation policy, background=%v", background)
	accessory := C.int(0)
	if background {
		accessory = 1
	}
	C.setActivationPolicy(accessory)
}

// IsAppActive returns true if the application is currently active/focused
func IsAppActive() bool {
	return C.isAppActive() == 1
}

// ActivateApp brings the application to the front
func ActivateApp() {
	C.activateApp()
}
