package trigger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/borgmon/alarm-clock/pkg/models"
)

type fakeSubsystem struct {
	channels  []Channel
	created   map[string]time.Time
	notes     map[string]Notification
	cancelled []string
	failWith  error
	listErr   error
}

func newFakeSubsystem() *fakeSubsystem {
	return &fakeSubsystem{created: map[string]time.Time{}, notes: map[string]Notification{}}
}

func (f *fakeSubsystem) CreateChannel(_ context.Context, ch Channel) error {
	f.channels = append(f.channels, ch)
	return f.failWith
}

func (f *fakeSubsystem) CreateTrigger(_ context.Context, n Notification, fireAt time.Time) (string, error) {
	if f.failWith != nil {
		return "", f.failWith
	}
	f.created[n.ID] = fireAt
	f.notes[n.ID] = n
	return n.ID, nil
}

func (f *fakeSubsystem) Cancel(_ context.Context, id string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.cancelled = append(f.cancelled, id)
	delete(f.created, id)
	return nil
}

func (f *fakeSubsystem) CancelAll(context.Context) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.created = map[string]time.Time{}
	return nil
}

func (f *fakeSubsystem) ListPending(context.Context) ([]Trigger, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []Trigger
	for id, at := range f.created {
		out = append(out, Trigger{Notification: f.notes[id], FireAt: at})
	}
	return out, nil
}

func (f *fakeSubsystem) ListDisplayed(context.Context) ([]Trigger, error) { return nil, f.listErr }

func (f *fakeSubsystem) OnForegroundEvent(Handler) func() { return func() {} }

func (f *fakeSubsystem) SetBackgroundHandler(Handler) {}

type fakeAuthorizer struct {
	status       AuthorizationStatus
	exact        bool
	openedAlarms int
}

func (a *fakeAuthorizer) RequestPermission(context.Context) (AuthorizationStatus, error) {
	return a.status, nil
}

func (a *fakeAuthorizer) Settings(context.Context) (Settings, error) {
	return Settings{Authorization: a.status, ExactAlarms: a.exact}, nil
}

func (a *fakeAuthorizer) OpenAlarmPermissionSettings(context.Context) error {
	a.openedAlarms++
	return nil
}

func newTestManager(now time.Time) (*Manager, *fakeSubsystem, *fakeAuthorizer) {
	sub := newFakeSubsystem()
	auth := &fakeAuthorizer{status: AuthorizationAuthorized, exact: true}
	m := NewManager(sub, auth, "", zap.NewNop().Sugar())
	m.now = func() time.Time { return now }
	return m, sub, auth
}

func sampleAlarm() models.Alarm {
	return models.Alarm{ID: "1760000000000", Name: "Wake up", Time: "07:30", Enabled: true, SoundFile: "jmsn"}
}

func TestManagerScheduleLaterToday(t *testing.T) {
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.Local)
	m, sub, _ := newTestManager(now)

	id, err := m.Schedule(context.Background(), sampleAlarm())
	require.NoError(t, err)
	assert.Equal(t, "1760000000000", id)
	assert.Equal(t, time.Date(2026, 3, 10, 7, 30, 0, 0, time.Local), sub.created[id])

	n := sub.notes[id]
	assert.Equal(t, "Wake up", n.Title)
	assert.Equal(t, "Alarma: 07:30", n.Body)
	assert.Equal(t, models.DefaultChannelID, n.ChannelID)
	assert.True(t, n.FullScreen)
	assert.True(t, n.Ongoing)
	assert.False(t, n.AutoCancel)
}

func TestManagerScheduleRollsToTomorrow(t *testing.T) {
	now := time.Date(2026, 3, 10, 7, 30, 0, 0, time.Local)
	m, sub, _ := newTestManager(now)

	id, err := m.Schedule(context.Background(), sampleAlarm())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 11, 7, 30, 0, 0, time.Local), sub.created[id])
}

func TestManagerScheduleFailures(t *testing.T) {
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.Local)

	t.Run("bad time", func(t *testing.T) {
		m, _, _ := newTestManager(now)
		a := sampleAlarm()
		a.Time = "7:30"
		_, err := m.Schedule(context.Background(), a)
		assert.ErrorIs(t, err, ErrScheduling)
	})

	t.Run("denied", func(t *testing.T) {
		m, sub, auth := newTestManager(now)
		auth.status = AuthorizationDenied
		_, err := m.Schedule(context.Background(), sampleAlarm())
		assert.ErrorIs(t, err, ErrScheduling)
		assert.ErrorIs(t, err, ErrPermissionDenied)
		assert.Empty(t, sub.created)
	})

	t.Run("no exact alarms", func(t *testing.T) {
		m, _, auth := newTestManager(now)
		auth.exact = false
		_, err := m.Schedule(context.Background(), sampleAlarm())
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("platform rejects", func(t *testing.T) {
		m, sub, _ := newTestManager(now)
		sub.failWith = errors.New("boom")
		_, err := m.Schedule(context.Background(), sampleAlarm())
		assert.ErrorIs(t, err, ErrScheduling)
	})
}

func TestManagerRequestPermissions(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	m, _, auth := newTestManager(now)
	assert.True(t, m.RequestPermissions(ctx))

	auth.status = AuthorizationProvisional
	assert.True(t, m.RequestPermissions(ctx))

	auth.status = AuthorizationDenied
	assert.False(t, m.RequestPermissions(ctx))

	auth.status = AuthorizationAuthorized
	auth.exact = false
	assert.False(t, m.RequestPermissions(ctx))
	assert.Equal(t, 1, auth.openedAlarms)
}

func TestManagerCancel(t *testing.T) {
	ctx := context.Background()
	m, sub, _ := newTestManager(time.Date(2026, 3, 10, 6, 0, 0, 0, time.Local))

	id, err := m.Schedule(ctx, sampleAlarm())
	require.NoError(t, err)
	require.NoError(t, m.Cancel(ctx, id))
	assert.Equal(t, []string{id}, sub.cancelled)
	assert.Empty(t, m.ListPending(ctx))

	sub.failWith = errors.New("boom")
	assert.ErrorIs(t, m.Cancel(ctx, id), ErrScheduling)
	assert.ErrorIs(t, m.CancelAll(ctx), ErrScheduling)
}

func TestManagerListPendingSwallowsErrors(t *testing.T) {
	m, sub, _ := newTestManager(time.Now())
	sub.listErr = errors.New("boom")

	pending := m.ListPending(context.Background())
	assert.NotNil(t, pending)
	assert.Empty(t, pending)
}

func TestManagerInitializeCreatesChannel(t *testing.T) {
	m, sub, _ := newTestManager(time.Now())
	require.NoError(t, m.Initialize(context.Background()))
	require.Len(t, sub.channels, 1)
	assert.Equal(t, models.DefaultChannelID, sub.channels[0].ID)
	assert.True(t, sub.channels[0].HighImportance)
	assert.Equal(t, []int{300, 500, 300, 500}, sub.channels[0].VibrationPattern)
}
