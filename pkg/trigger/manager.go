package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/borgmon/alarm-clock/pkg/models"
)

var (
	// ErrScheduling wraps trigger creation and cancellation failures.
	ErrScheduling = errors.New("scheduling error")
	// ErrPermissionDenied is returned when the platform refuses to schedule.
	ErrPermissionDenied = errors.New("permission denied")
)

const channelName = "Alarm Notifications (Silent)"

// VibrationPattern is used for both the channel and each notification.
var VibrationPattern = []int{300, 500, 300, 500}

// Manager schedules alarms as one-shot triggers and relays platform events.
type Manager struct {
	sub       Subsystem
	auth      Authorizer
	channelID string
	now       func() time.Time
	logger    *zap.SugaredLogger
}

// NewManager creates a new Manager instance
func NewManager(sub Subsystem, auth Authorizer, channelID string, logger *zap.SugaredLogger) *Manager {
	if channelID == "" {
		channelID = models.DefaultChannelID
	}
	return &Manager{
		sub:       sub,
		auth:      auth,
		channelID: channelID,
		now:       time.Now,
		logger:    logger,
	}
}

// ChannelID is the channel every alarm notification is posted on.
func (m *Manager) ChannelID() string {
	return m.channelID
}

// Initialize creates the alarm channel. The channel has no sound: the
// application plays the alarm itself.
func (m *Manager) Initialize(ctx context.Context) error {
	err := m.sub.CreateChannel(ctx, Channel{
		ID:               m.channelID,
		Name:             channelName,
		HighImportance:   true,
		VibrationPattern: VibrationPattern,
	})
	if err != nil {
		return fmt.Errorf("%w: create channel: %w", ErrScheduling, err)
	}
	return nil
}

// RequestPermissions asks for notification display and checks the separate
// exact-alarm grant, sending the user to settings when it is missing. It
// returns true only when both are satisfied.
func (m *Manager) RequestPermissions(ctx context.Context) bool {
	status, err := m.auth.RequestPermission(ctx)
	if err != nil {
		m.logger.Errorf("Error requesting permissions: %v", err)
		return false
	}

	settings, err := m.auth.Settings(ctx)
	if err != nil {
		m.logger.Errorf("Error reading notification settings: %v", err)
		return false
	}
	if !settings.ExactAlarms {
		m.logger.Warn("Exact alarm permission not granted")
		if err := m.auth.OpenAlarmPermissionSettings(ctx); err != nil {
			m.logger.Errorf("Error opening alarm permission settings: %v", err)
		}
		return false
	}

	return status >= AuthorizationAuthorized
}

// NextFireTime is the next local instant matching alarm.Time.
func NextFireTime(alarm models.Alarm, now time.Time) (time.Time, error) {
	clock, err := models.ParseClockTime(alarm.Time)
	if err != nil {
		return time.Time{}, err
	}
	return clock.Next(now), nil
}

// AlarmNotification builds the notification shown for alarm.
func (m *Manager) AlarmNotification(alarm models.Alarm) Notification {
	return Notification{
		ID:               alarm.ID,
		Title:            alarm.Name,
		Body:             "Alarma: " + alarm.Time,
		ChannelID:        m.channelID,
		Category:         "alarm",
		FullScreen:       true,
		Ongoing:          true,
		AutoCancel:       false,
		AllowWhileIdle:   true,
		VibrationPattern: VibrationPattern,
	}
}

// Schedule registers a one-shot trigger for the next occurrence of alarm.
// The returned trigger id equals alarm.ID.
func (m *Manager) Schedule(ctx context.Context, alarm models.Alarm) (string, error) {
	fireAt, err := NextFireTime(alarm, m.now())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrScheduling, err)
	}

	settings, err := m.auth.Settings(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: read settings: %w", ErrScheduling, err)
	}
	if settings.Authorization == AuthorizationDenied || !settings.ExactAlarms {
		return "", fmt.Errorf("%w: %w: alarms cannot be scheduled", ErrScheduling, ErrPermissionDenied)
	}

	id, err := m.sub.CreateTrigger(ctx, m.AlarmNotification(alarm), fireAt)
	if err != nil {
		m.logger.Errorf("Error scheduling alarm %s: %v", alarm.ID, err)
		return "", fmt.Errorf("%w: %w", ErrScheduling, err)
	}

	m.logger.Infof("Alarm %s scheduled for %s", alarm.ID, fireAt.Format("2006-01-02 15:04"))
	return id, nil
}

// Cancel removes a pending or displayed trigger. Absent ids are fine.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	if err := m.sub.Cancel(ctx, id); err != nil {
		m.logger.Errorf("Error cancelling alarm %s: %v", id, err)
		return fmt.Errorf("%w: %w", ErrScheduling, err)
	}
	m.logger.Infof("Alarm %s cancelled", id)
	return nil
}

// CancelAll removes every trigger.
func (m *Manager) CancelAll(ctx context.Context) error {
	if err := m.sub.CancelAll(ctx); err != nil {
		m.logger.Errorf("Error cancelling all alarms: %v", err)
		return fmt.Errorf("%w: %w", ErrScheduling, err)
	}
	m.logger.Info("All alarms cancelled")
	return nil
}

// ListPending returns triggers that have not fired yet. Errors yield an
// empty list.
func (m *Manager) ListPending(ctx context.Context) []Trigger {
	triggers, err := m.sub.ListPending(ctx)
	if err != nil {
		m.logger.Errorf("Error getting trigger notifications: %v", err)
		return []Trigger{}
	}
	return triggers
}

// ListDisplayed returns fired triggers whose notification is still shown.
func (m *Manager) ListDisplayed(ctx context.Context) ([]Trigger, error) {
	return m.sub.ListDisplayed(ctx)
}

// OnForegroundEvent registers a UI-scoped listener.
func (m *Manager) OnForegroundEvent(h Handler) func() {
	return m.sub.OnForegroundEvent(h)
}

// SetBackgroundHandler registers the process-entry handler. Call it from
// main before any UI exists.
func (m *Manager) SetBackgroundHandler(h Handler) {
	m.sub.SetBackgroundHandler(h)
}
