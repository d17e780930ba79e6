package trigger

import (
	"context"
	"time"
)

// EventType is the kind of lifecycle event delivered for a notification.
type EventType int

const (
	EventUnknown EventType = iota
	EventDelivered
	EventPress
	EventDismissed
	EventActionPress
)

func (t EventType) String() string {
	switch t {
	case EventDelivered:
		return "DELIVERED"
	case EventPress:
		return "PRESS"
	case EventDismissed:
		return "DISMISSED"
	case EventActionPress:
		return "ACTION_PRESS"
	default:
		return "UNKNOWN"
	}
}

// ActionDismiss is the notification action id that dismisses an alarm.
const ActionDismiss = "dismiss"

// Notification is what the platform shows when a trigger fires.
type Notification struct {
	ID               string
	Title            string
	Body             string
	ChannelID        string
	Category         string
	FullScreen       bool // request full-screen / lock-screen presentation
	Ongoing          bool // not swipe-dismissible until cancelled
	AutoCancel       bool
	AllowWhileIdle   bool
	VibrationPattern []int
}

// Trigger is a one-shot notification scheduled at an absolute instant.
type Trigger struct {
	Notification Notification
	FireAt       time.Time
}

// Event is one lifecycle event for a notification.
type Event struct {
	ID           string // unique per delivery, for log correlation
	Type         EventType
	Notification Notification
	ActionID     string // set for EventActionPress
}

// Handler receives events. The same handler shape serves both channels.
type Handler func(ctx context.Context, ev Event)

// Channel groups alarm notifications on the platform.
type Channel struct {
	ID               string
	Name             string
	HighImportance   bool
	VibrationPattern []int
}

// Subsystem is the platform trigger/notification primitive. It guarantees
// at-least-once delivery of a fired trigger, on exactly one channel:
// foreground listeners when any are registered, the background handler
// otherwise.
type Subsystem interface {
	CreateChannel(ctx context.Context, ch Channel) error
	CreateTrigger(ctx context.Context, n Notification, fireAt time.Time) (string, error)
	Cancel(ctx context.Context, id string) error
	CancelAll(ctx context.Context) error
	ListPending(ctx context.Context) ([]Trigger, error)
	ListDisplayed(ctx context.Context) ([]Trigger, error)

	// OnForegroundEvent registers a UI-scoped listener and returns its
	// unsubscribe function.
	OnForegroundEvent(h Handler) func()
	// SetBackgroundHandler registers the process-entry handler.
	SetBackgroundHandler(h Handler)
}

// AuthorizationStatus mirrors the platform's notification grant.
type AuthorizationStatus int

const (
	AuthorizationNotDetermined AuthorizationStatus = -1
	AuthorizationDenied        AuthorizationStatus = 0
	AuthorizationAuthorized    AuthorizationStatus = 1
	AuthorizationProvisional   AuthorizationStatus = 2
)

// Settings is the current permission state.
type Settings struct {
	Authorization AuthorizationStatus
	// ExactAlarms is false when the platform gates exact scheduling behind
	// a separate grant that has not been given.
	ExactAlarms bool
}

// Authorizer requests and inspects notification permissions.
type Authorizer interface {
	RequestPermission(ctx context.Context) (AuthorizationStatus, error)
	Settings(ctx context.Context) (Settings, error)
	OpenAlarmPermissionSettings(ctx context.Context) error
}
