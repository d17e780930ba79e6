package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/borgmon/alarm-clock/pkg/kv"
	"github.com/borgmon/alarm-clock/pkg/models"
	"github.com/borgmon/alarm-clock/pkg/store"
	"github.com/borgmon/alarm-clock/pkg/trigger"
)

// fakeSound records the sound that would be audible.
type fakeSound struct {
	mu      sync.Mutex
	current *models.SoundSource
	starts  int
}

func (s *fakeSound) StartSound(sound models.SoundSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &sound
	s.starts++
}

func (s *fakeSound) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

func (s *fakeSound) playing() (models.SoundSource, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.SoundSource{}, false
	}
	return *s.current, true
}

type fakeTriggers struct {
	displayed []trigger.Trigger
	listErr   error
	cancelled []string
}

func (f *fakeTriggers) Cancel(_ context.Context, id string) error {
	f.cancelled = append(f.cancelled, id)
	kept := f.displayed[:0]
	for _, t := range f.displayed {
		if t.Notification.ID != id {
			kept = append(kept, t)
		}
	}
	f.displayed = kept
	return nil
}

func (f *fakeTriggers) ListDisplayed(context.Context) ([]trigger.Trigger, error) {
	return f.displayed, f.listErr
}

func (f *fakeTriggers) ChannelID() string { return models.DefaultChannelID }

type countingObserver struct {
	delivered map[string]int
	dismissed int
	ringing   bool
}

func (o *countingObserver) Delivered(channel string) { o.delivered[channel]++ }
func (o *countingObserver) Dismissed()               { o.dismissed++ }
func (o *countingObserver) SetRinging(r bool)        { o.ringing = r }

type fixture struct {
	coord    *Coordinator
	alarms   *store.AlarmStore
	sound    *fakeSound
	triggers *fakeTriggers
	observer *countingObserver
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		alarms:   store.NewAlarmStore(kv.NewMemory(), zap.NewNop().Sugar()),
		sound:    &fakeSound{},
		triggers: &fakeTriggers{},
		observer: &countingObserver{delivered: map[string]int{}},
	}
	opts = append([]Option{WithObserver(f.observer)}, opts...)
	f.coord = NewCoordinator(f.alarms, f.sound, f.triggers, zap.NewNop().Sugar(), opts...)
	return f
}

func wakeAlarm() models.Alarm {
	return models.Alarm{ID: "1760000000000", Name: "Wake up", Time: "07:30", Enabled: true, SoundFile: "jmsn", SoundName: "JMSN - Love Me"}
}

func noteFor(a models.Alarm) trigger.Notification {
	return trigger.Notification{ID: a.ID, Title: a.Name, Body: "Alarma: " + a.Time, ChannelID: models.DefaultChannelID}
}

func delivered(n trigger.Notification) trigger.Event {
	return trigger.Event{ID: "ev-1", Type: trigger.EventDelivered, Notification: n}
}

func TestDeliverResolvesBuiltinSound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := wakeAlarm()
	require.NoError(t, f.alarms.Upsert(ctx, a))

	f.coord.HandleEvent(ctx, ChannelBackground, delivered(noteFor(a)))

	assert.Equal(t, StateRinging, f.coord.State())
	session, ringing := f.coord.Session()
	require.True(t, ringing)
	assert.Equal(t, models.Session{
		ID:        a.ID,
		TriggerID: a.ID,
		Name:      "Wake up",
		Time:      "07:30",
		Sound:     models.Builtin("jmsn"),
		Known:     true,
	}, session)

	sound, playing := f.sound.playing()
	require.True(t, playing)
	assert.Equal(t, models.Builtin("jmsn"), sound)
	assert.Equal(t, 1, f.observer.delivered[ChannelBackground])
	assert.True(t, f.observer.ringing)
}

func TestDeliverCustomURI(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := wakeAlarm()
	a.SoundFile = "file:///home/me/Music/alarm.wav"
	require.NoError(t, f.alarms.Upsert(ctx, a))

	f.coord.HandleEvent(ctx, ChannelForeground, delivered(noteFor(a)))

	sound, playing := f.sound.playing()
	require.True(t, playing)
	assert.Equal(t, models.CustomURI("file:///home/me/Music/alarm.wav"), sound)
}

func TestDeliverUnknownAlarmUsesPlaceholders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.coord.HandleEvent(ctx, ChannelBackground, delivered(trigger.Notification{ID: "gone", Body: "no time here"}))

	session, ringing := f.coord.Session()
	require.True(t, ringing)
	assert.Equal(t, models.UnknownAlarmID, session.ID)
	assert.Equal(t, "gone", session.TriggerID)
	assert.Equal(t, models.UnknownAlarmName, session.Name)
	assert.Equal(t, models.UnknownAlarmTime, session.Time)
	assert.False(t, session.Known)

	_, playing := f.sound.playing()
	assert.False(t, playing)
}

func TestDeliverUnknownAlarmParsesBody(t *testing.T) {
	f := newFixture(t)

	f.coord.HandleEvent(context.Background(), ChannelBackground,
		delivered(trigger.Notification{ID: "gone", Title: "Gym", Body: "Alarma: 18:45"}))

	session, _ := f.coord.Session()
	assert.Equal(t, "Gym", session.Name)
	assert.Equal(t, "18:45", session.Time)
}

func TestDeliverFallbackSound(t *testing.T) {
	f := newFixture(t, WithFallbackSound(models.Builtin("backseat")))
	ctx := context.Background()
	a := wakeAlarm()
	a.SoundFile = ""
	require.NoError(t, f.alarms.Upsert(ctx, a))

	f.coord.HandleEvent(ctx, ChannelBackground, delivered(noteFor(a)))

	sound, playing := f.sound.playing()
	require.True(t, playing)
	assert.Equal(t, models.Builtin("backseat"), sound)
}

func TestDoubleDeliveryLeavesOneSound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := wakeAlarm()
	require.NoError(t, f.alarms.Upsert(ctx, a))

	f.coord.HandleEvent(ctx, ChannelBackground, delivered(noteFor(a)))
	f.coord.HandleEvent(ctx, ChannelForeground, delivered(noteFor(a)))

	assert.Equal(t, StateRinging, f.coord.State())
	assert.Equal(t, 2, f.sound.starts)
	_, playing := f.sound.playing()
	assert.True(t, playing)
}

func TestDismissStopsSoundAndKeepsAlarm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := wakeAlarm()
	require.NoError(t, f.alarms.Upsert(ctx, a))

	var changes []bool
	unsubscribe := f.coord.Subscribe(func(_ models.Session, ringing bool) {
		changes = append(changes, ringing)
	})
	defer unsubscribe()

	f.coord.HandleEvent(ctx, ChannelForeground, delivered(noteFor(a)))
	f.coord.Dismiss(ctx)

	assert.Equal(t, StateIdle, f.coord.State())
	_, ringing := f.coord.Session()
	assert.False(t, ringing)
	_, playing := f.sound.playing()
	assert.False(t, playing)
	assert.Equal(t, []string{a.ID}, f.triggers.cancelled)
	assert.Equal(t, []bool{true, false}, changes)
	assert.Equal(t, 1, f.observer.dismissed)
	assert.False(t, f.observer.ringing)

	stored, ok := f.alarms.Find(ctx, a.ID)
	require.True(t, ok)
	assert.Equal(t, a, stored)
}

func TestDismissWhenIdleIsNoop(t *testing.T) {
	f := newFixture(t)
	f.coord.Dismiss(context.Background())

	assert.Equal(t, StateIdle, f.coord.State())
	assert.Empty(t, f.triggers.cancelled)
	assert.Zero(t, f.observer.dismissed)
}

func TestPressAndDismissedKeepRinging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := wakeAlarm()
	require.NoError(t, f.alarms.Upsert(ctx, a))
	f.coord.HandleEvent(ctx, ChannelForeground, delivered(noteFor(a)))

	for _, typ := range []trigger.EventType{trigger.EventPress, trigger.EventDismissed, trigger.EventUnknown} {
		f.coord.HandleEvent(ctx, ChannelForeground, trigger.Event{Type: typ, Notification: noteFor(a)})
		assert.Equal(t, StateRinging, f.coord.State(), typ.String())
		_, playing := f.sound.playing()
		assert.True(t, playing, typ.String())
	}
	assert.Empty(t, f.triggers.cancelled)
}

func TestActionPressDismiss(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := wakeAlarm()
	require.NoError(t, f.alarms.Upsert(ctx, a))
	f.coord.HandleEvent(ctx, ChannelBackground, delivered(noteFor(a)))

	f.coord.HandleEvent(ctx, ChannelBackground, trigger.Event{Type: trigger.EventActionPress, ActionID: "snooze", Notification: noteFor(a)})
	assert.Equal(t, StateRinging, f.coord.State())

	f.coord.HandleEvent(ctx, ChannelBackground, trigger.Event{Type: trigger.EventActionPress, ActionID: trigger.ActionDismiss, Notification: noteFor(a)})
	assert.Equal(t, StateIdle, f.coord.State())
	assert.Equal(t, []string{a.ID}, f.triggers.cancelled)
}

func TestActionPressDismissForOtherTriggerKeepsRinging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := wakeAlarm()
	require.NoError(t, f.alarms.Upsert(ctx, a))
	f.coord.HandleEvent(ctx, ChannelBackground, delivered(noteFor(a)))

	stale := trigger.Notification{ID: "1760000009999", Title: "Old", Body: "Alarma: 06:00", ChannelID: models.DefaultChannelID}
	f.coord.HandleEvent(ctx, ChannelBackground, trigger.Event{Type: trigger.EventActionPress, ActionID: trigger.ActionDismiss, Notification: stale})

	assert.Equal(t, StateRinging, f.coord.State())
	session, ringing := f.coord.Session()
	require.True(t, ringing)
	assert.Equal(t, a.ID, session.TriggerID)
	_, playing := f.sound.playing()
	assert.True(t, playing)
	assert.Equal(t, []string{stale.ID}, f.triggers.cancelled)
	assert.Zero(t, f.observer.dismissed)

	f.coord.Dismiss(ctx)
	assert.Equal(t, StateIdle, f.coord.State())
	assert.Equal(t, []string{stale.ID, a.ID}, f.triggers.cancelled)
}

func TestReconcileAfterRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := wakeAlarm()
	require.NoError(t, f.alarms.Upsert(ctx, a))
	f.triggers.displayed = []trigger.Trigger{
		{Notification: trigger.Notification{ID: "other", ChannelID: "some-other-channel"}},
		{Notification: noteFor(a)},
	}

	f.coord.Reconcile(ctx)

	session, ringing := f.coord.Session()
	require.True(t, ringing)
	assert.Equal(t, a.ID, session.ID)
	sound, playing := f.sound.playing()
	require.True(t, playing)
	assert.Equal(t, models.Builtin("jmsn"), sound)
	assert.Equal(t, 1, f.observer.delivered[ChannelReconcile])

	// Already ringing for the same trigger.
	f.coord.Reconcile(ctx)
	assert.Equal(t, 1, f.sound.starts)

	f.coord.Dismiss(ctx)
	f.coord.Reconcile(ctx)
	assert.Equal(t, StateIdle, f.coord.State())
}

func TestReconcileTolerantOfNothingAndErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.coord.Reconcile(ctx)
	assert.Equal(t, StateIdle, f.coord.State())

	f.triggers.listErr = errors.New("boom")
	f.coord.Reconcile(ctx)
	assert.Equal(t, StateIdle, f.coord.State())
	assert.Zero(t, f.sound.starts)
}

func TestHandlerLabelsChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := wakeAlarm()
	require.NoError(t, f.alarms.Upsert(ctx, a))

	f.coord.Handler(ChannelForeground)(ctx, delivered(noteFor(a)))
	assert.Equal(t, 1, f.observer.delivered[ChannelForeground])
}
