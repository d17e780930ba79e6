// Package delivery turns trigger events into the ringing state: it resolves
// the fired trigger against the alarm store, starts the alarm sound and
// publishes the ringing session until the user dismisses it.
package delivery

import (
	"context"
	"errors"
	"regexp"
	"sync"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/borgmon/alarm-clock/pkg/models"
	"github.com/borgmon/alarm-clock/pkg/trigger"
)

const (
	StateIdle    = "idle"
	StateRinging = "ringing"

	EventDeliver = "deliver"
	EventDismiss = "dismiss"
)

// Channel labels for where an event came from.
const (
	ChannelForeground = "foreground"
	ChannelBackground = "background"
	ChannelReconcile  = "reconcile"
)

var bodyTime = regexp.MustCompile(`\d{2}:\d{2}`)

// AlarmFinder looks up stored alarms.
type AlarmFinder interface {
	Find(ctx context.Context, id string) (models.Alarm, bool)
}

// SoundPlayer is the playback side of the coordinator.
type SoundPlayer interface {
	StartSound(sound models.SoundSource)
	Stop()
}

// Triggers is the scheduling side of the coordinator.
type Triggers interface {
	Cancel(ctx context.Context, id string) error
	ListDisplayed(ctx context.Context) ([]trigger.Trigger, error)
	ChannelID() string
}

// Observer receives delivery outcomes, typically for metrics.
type Observer interface {
	Delivered(channel string)
	Dismissed()
	SetRinging(ringing bool)
}

type nopObserver struct{}

func (nopObserver) Delivered(string) {}
func (nopObserver) Dismissed()       {}
func (nopObserver) SetRinging(bool)  {}

// Listener is told about every session change. ringing is false once the
// alarm has been dismissed.
type Listener func(session models.Session, ringing bool)

// Coordinator is the idle/ringing state machine. Both event channels and
// the reconciliation path feed the same methods.
type Coordinator struct {
	mu      sync.Mutex
	machine *fsm.FSM
	session models.Session

	alarms   AlarmFinder
	sound    SoundPlayer
	triggers Triggers
	observer Observer
	fallback models.SoundSource

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int

	logger *zap.SugaredLogger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithObserver reports outcomes to o.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithFallbackSound plays sound when an alarm has none that resolves.
func WithFallbackSound(sound models.SoundSource) Option {
	return func(c *Coordinator) {
		c.fallback = sound
	}
}

// NewCoordinator creates an idle coordinator.
func NewCoordinator(alarms AlarmFinder, sound SoundPlayer, triggers Triggers, logger *zap.SugaredLogger, opts ...Option) *Coordinator {
	c := &Coordinator{
		alarms:    alarms,
		sound:     sound,
		triggers:  triggers,
		observer:  nopObserver{},
		listeners: make(map[int]Listener),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: EventDeliver, Src: []string{StateIdle, StateRinging}, Dst: StateRinging},
			{Name: EventDismiss, Src: []string{StateRinging}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				c.logger.Debugf("Delivery state %s -> %s", e.Src, e.Dst)
			},
		},
	)
	return c
}

// SetFallbackSound replaces the fallback sound, for config reloads.
func (c *Coordinator) SetFallbackSound(sound models.SoundSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallback = sound
}

// State is the current machine state.
func (c *Coordinator) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Current()
}

// Session returns the ringing session, if any.
func (c *Coordinator) Session() (models.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session, c.machine.Is(StateRinging)
}

// Subscribe registers l and returns its unsubscribe function.
func (c *Coordinator) Subscribe(l Listener) func() {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Coordinator) publish(session models.Session, ringing bool) {
	c.listenersMu.Lock()
	ls := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		ls = append(ls, l)
	}
	c.listenersMu.Unlock()

	for _, l := range ls {
		l(session, ringing)
	}
}

// Handler adapts the coordinator to a trigger channel.
func (c *Coordinator) Handler(channel string) trigger.Handler {
	return func(ctx context.Context, ev trigger.Event) {
		c.HandleEvent(ctx, channel, ev)
	}
}

// HandleEvent applies one trigger event. The outcome does not depend on
// which channel delivered it.
func (c *Coordinator) HandleEvent(ctx context.Context, channel string, ev trigger.Event) {
	log := c.logger.With("event", ev.ID, "channel", channel, "notification", ev.Notification.ID)

	switch ev.Type {
	case trigger.EventDelivered:
		log.Info("Alarm delivered")
		c.deliver(ctx, channel, ev.Notification)
	case trigger.EventPress:
		log.Debug("Notification pressed")
	case trigger.EventDismissed:
		log.Info("Notification dismissed")
	case trigger.EventActionPress:
		if ev.ActionID != trigger.ActionDismiss {
			log.Warnf("Unknown notification action %q", ev.ActionID)
			return
		}
		c.dismiss(ctx, ev.Notification.ID)
	default:
		log.Warnf("Ignoring %s event", ev.Type)
	}
}

// Resolve builds the session for a fired notification. It never fails: a
// notification with no stored alarm gets placeholder fields.
func (c *Coordinator) Resolve(ctx context.Context, n trigger.Notification) models.Session {
	session := models.Session{
		ID:        models.UnknownAlarmID,
		TriggerID: n.ID,
		Name:      n.Title,
		Time:      models.UnknownAlarmTime,
	}
	if session.Name == "" {
		session.Name = models.UnknownAlarmName
	}
	if t := bodyTime.FindString(n.Body); t != "" {
		session.Time = t
	}

	if n.ID != "" {
		if alarm, ok := c.alarms.Find(ctx, n.ID); ok {
			session.ID = alarm.ID
			session.Known = true
			if alarm.Name != "" {
				session.Name = alarm.Name
			}
			if alarm.Time != "" {
				session.Time = alarm.Time
			}
			session.Sound = alarm.Sound()
		}
	}
	return session
}

func (c *Coordinator) soundFor(session models.Session) (models.SoundSource, bool) {
	if err := session.Sound.Validate(); err == nil {
		return session.Sound, true
	} else if !session.Sound.IsZero() {
		c.logger.Warnf("Alarm %s has an unusable sound: %v", session.ID, err)
	}
	if !c.fallback.IsZero() {
		return c.fallback, true
	}
	return models.SoundSource{}, false
}

func (c *Coordinator) deliver(ctx context.Context, channel string, n trigger.Notification) {
	session := c.Resolve(ctx, n)

	c.mu.Lock()
	// Sound first so the ringing view is never shown silent for longer than
	// the load takes.
	if sound, ok := c.soundFor(session); ok {
		c.sound.StartSound(sound)
	} else {
		c.logger.Warnf("No sound file found for alarm %s, ringing silently", session.ID)
	}

	if err := c.machine.Event(ctx, EventDeliver); err != nil && !isNoTransition(err) {
		c.mu.Unlock()
		c.logger.Errorf("Error entering ringing state: %v", err)
		return
	}
	c.session = session
	c.mu.Unlock()

	c.observer.Delivered(channel)
	c.observer.SetRinging(true)
	c.publish(session, true)
}

// Dismiss ends the ringing alarm: the sound stops, its trigger is cancelled
// so it cannot deliver again, and the session is cleared. The stored alarm
// is kept.
func (c *Coordinator) Dismiss(ctx context.Context) {
	c.mu.Lock()
	id := c.session.TriggerID
	c.mu.Unlock()
	c.dismiss(ctx, id)
}

func (c *Coordinator) dismiss(ctx context.Context, triggerID string) {
	c.mu.Lock()
	if c.machine.Is(StateRinging) && triggerID != "" && triggerID != c.session.TriggerID {
		// A stale notification for another alarm: retire it, keep ringing.
		ringing := c.session.TriggerID
		c.mu.Unlock()
		c.logger.Warnf("Dismiss for trigger %s while %s rings, cancelling only %s", triggerID, ringing, triggerID)
		if err := c.triggers.Cancel(ctx, triggerID); err != nil {
			c.logger.Errorf("Error cancelling trigger %s on dismiss: %v", triggerID, err)
		}
		return
	}
	c.sound.Stop()

	if triggerID != "" {
		if err := c.triggers.Cancel(ctx, triggerID); err != nil {
			c.logger.Errorf("Error cancelling trigger %s on dismiss: %v", triggerID, err)
		}
	}

	wasRinging := c.machine.Is(StateRinging)
	if wasRinging {
		if err := c.machine.Event(ctx, EventDismiss); err != nil {
			c.logger.Errorf("Error leaving ringing state: %v", err)
		}
	}
	session := c.session
	c.session = models.Session{}
	c.mu.Unlock()

	if !wasRinging {
		return
	}
	c.logger.Infof("Alarm %s dismissed", session.ID)
	c.observer.Dismissed()
	c.observer.SetRinging(false)
	c.publish(session, false)
}

// Reconcile re-derives the ringing state from the notifications the
// platform still shows. It is a no-op when none is on the alarm channel or
// when that alarm is already ringing, and it only logs failures.
func (c *Coordinator) Reconcile(ctx context.Context) {
	displayed, err := c.triggers.ListDisplayed(ctx)
	if err != nil {
		c.logger.Errorf("Error checking active alarms: %v", err)
		return
	}

	channelID := c.triggers.ChannelID()
	for _, t := range displayed {
		if t.Notification.ChannelID != channelID {
			continue
		}

		c.mu.Lock()
		already := c.machine.Is(StateRinging) && c.session.TriggerID == t.Notification.ID
		c.mu.Unlock()
		if already {
			return
		}

		c.HandleEvent(ctx, ChannelReconcile, trigger.Event{
			ID:           uuid.NewString(),
			Type:         trigger.EventDelivered,
			Notification: t.Notification,
		})
		return
	}
}

func isNoTransition(err error) bool {
	var nt fsm.NoTransitionError
	return errors.As(err, &nt)
}
