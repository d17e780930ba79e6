package trigger

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	statePending   = "pending"
	stateDisplayed = "displayed"
)

// SweepInterval is how often pending triggers are checked against the wall
// clock. Timers run on the monotonic clock, which stops while the machine
// sleeps, so a timer alone can fire late after a suspend.
const SweepInterval = 30 * time.Second

// Clock abstracts time for the scheduler.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a stoppable pending call.
type Timer interface {
	Stop() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Presenter shows a fired notification to the user.
type Presenter interface {
	Present(n Notification)
}

// Scheduler is the desktop trigger subsystem. Triggers live in the
// triggers table so a trigger that came due while the process was not
// running is delivered at the next Start.
type Scheduler struct {
	db        *sql.DB
	clock     Clock
	presenter Presenter
	logger    *zap.SugaredLogger

	mu         sync.Mutex
	ctx        context.Context
	timers     map[string]Timer
	channels   map[string]Channel
	foreground map[int]Handler
	nextSub    int
	background Handler

	sweeping bool
	sweep    Timer
}

// NewScheduler creates a scheduler on the shared database. presenter may be
// nil.
func NewScheduler(db *sql.DB, clock Clock, presenter Presenter, logger *zap.SugaredLogger) *Scheduler {
	if clock == nil {
		clock = SystemClock
	}
	return &Scheduler{
		db:         db,
		clock:      clock,
		presenter:  presenter,
		logger:     logger,
		ctx:        context.Background(),
		timers:     make(map[string]Timer),
		channels:   make(map[string]Channel),
		foreground: make(map[int]Handler),
	}
}

// SetPresenter replaces the presenter once the UI exists.
func (s *Scheduler) SetPresenter(p Presenter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presenter = p
}

// Start arms every pending trigger. Triggers already due fire before Start
// returns, so register the background handler first.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	pending, err := s.ListPending(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	var due []string
	for _, t := range pending {
		if !t.FireAt.After(now) {
			due = append(due, t.Notification.ID)
			continue
		}
		s.arm(t.Notification.ID, t.FireAt.Sub(now))
	}

	for _, id := range due {
		s.logger.Infof("Trigger %s came due while not running, delivering now", id)
		s.fire(id)
	}

	s.mu.Lock()
	s.sweeping = true
	s.armSweepLocked()
	s.mu.Unlock()

	s.logger.Infof("Trigger scheduler started with %d pending triggers", len(pending))
	return nil
}

// Stop disarms all timers and the sweep. Persisted triggers stay for the
// next Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweeping = false
	if s.sweep != nil {
		s.sweep.Stop()
		s.sweep = nil
	}
	s.stopTimersLocked()
}

func (s *Scheduler) stopTimersLocked() {
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) armSweepLocked() {
	if s.sweep != nil {
		s.sweep.Stop()
		s.sweep = nil
	}
	if !s.sweeping || s.ctx.Err() != nil {
		return
	}
	s.sweep = s.clock.AfterFunc(SweepInterval, func() {
		s.Sweep(s.currentContext())
		s.mu.Lock()
		defer s.mu.Unlock()
		s.armSweepLocked()
	})
}

func (s *Scheduler) currentContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Sweep fires every pending trigger whose fire time has passed on the wall
// clock, whether or not its timer has run.
func (s *Scheduler) Sweep(ctx context.Context) {
	pending, err := s.ListPending(ctx)
	if err != nil {
		s.logger.Errorf("Error sweeping pending triggers: %v", err)
		return
	}

	now := s.clock.Now()
	for _, t := range pending {
		if t.FireAt.After(now) {
			continue
		}
		s.logger.Infof("Trigger %s is overdue by %s, delivering now", t.Notification.ID, now.Sub(t.FireAt).Round(time.Second))
		s.fire(t.Notification.ID)
	}
}

func (s *Scheduler) CreateChannel(_ context.Context, ch Channel) error {
	if ch.ID == "" {
		return fmt.Errorf("channel id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[ch.ID] = ch
	return nil
}

func (s *Scheduler) CreateTrigger(ctx context.Context, n Notification, fireAt time.Time) (string, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO triggers (id, fire_at, title, body, channel_id, full_screen, ongoing, state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			fire_at = excluded.fire_at,
			title = excluded.title,
			body = excluded.body,
			channel_id = excluded.channel_id,
			full_screen = excluded.full_screen,
			ongoing = excluded.ongoing,
			state = excluded.state`,
		n.ID, fireAt.UnixMilli(), n.Title, n.Body, n.ChannelID, n.FullScreen, n.Ongoing, statePending,
	)
	if err != nil {
		return "", fmt.Errorf("insert trigger %s: %w", n.ID, err)
	}

	s.arm(n.ID, fireAt.Sub(s.clock.Now()))
	return n.ID, nil
}

func (s *Scheduler) arm(id string, d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.timers[id]; ok {
		old.Stop()
	}
	s.timers[id] = s.clock.AfterFunc(d, func() { s.fire(id) })
}

// fire moves a pending trigger to displayed and delivers it. A trigger that
// is no longer pending was cancelled or already delivered.
func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	ctx := s.ctx
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE triggers SET state = ? WHERE id = ? AND state = ?`, stateDisplayed, id, statePending)
	if err != nil {
		s.logger.Errorf("Error marking trigger %s displayed: %v", id, err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return
	}

	t, err := s.get(ctx, id)
	if err != nil {
		s.logger.Errorf("Error loading fired trigger %s: %v", id, err)
		return
	}

	s.mu.Lock()
	presenter := s.presenter
	s.mu.Unlock()
	if presenter != nil {
		presenter.Present(t.Notification)
	}

	s.Emit(ctx, Event{Type: EventDelivered, Notification: t.Notification})
}

// Emit delivers ev on exactly one channel: to every foreground listener if
// any is registered, otherwise to the background handler.
func (s *Scheduler) Emit(ctx context.Context, ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	s.mu.Lock()
	fg := make([]Handler, 0, len(s.foreground))
	for _, h := range s.foreground {
		fg = append(fg, h)
	}
	bg := s.background
	s.mu.Unlock()

	switch {
	case len(fg) > 0:
		for _, h := range fg {
			h(ctx, ev)
		}
	case bg != nil:
		bg(ctx, ev)
	default:
		s.logger.Warnf("No handler for %s event on %s", ev.Type, ev.Notification.ID)
	}
}

// EmitFor looks up the trigger id and emits an event of type t for it.
func (s *Scheduler) EmitFor(ctx context.Context, t EventType, id, actionID string) error {
	trig, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	s.Emit(ctx, Event{Type: t, Notification: trig.Notification, ActionID: actionID})
	return nil
}

func (s *Scheduler) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM triggers WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete trigger %s: %w", id, err)
	}
	return nil
}

func (s *Scheduler) CancelAll(ctx context.Context) error {
	s.mu.Lock()
	s.stopTimersLocked()
	s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM triggers`); err != nil {
		return fmt.Errorf("delete triggers: %w", err)
	}
	return nil
}

func (s *Scheduler) ListPending(ctx context.Context) ([]Trigger, error) {
	return s.list(ctx, statePending)
}

func (s *Scheduler) ListDisplayed(ctx context.Context) ([]Trigger, error) {
	return s.list(ctx, stateDisplayed)
}

const triggerColumns = `id, fire_at, title, body, channel_id, full_screen, ongoing`

func (s *Scheduler) list(ctx context.Context, state string) ([]Trigger, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+triggerColumns+` FROM triggers WHERE state = ? ORDER BY fire_at, id`, state)
	if err != nil {
		return nil, fmt.Errorf("list %s triggers: %w", state, err)
	}
	defer rows.Close()

	var out []Trigger
	for rows.Next() {
		t, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Scheduler) get(ctx context.Context, id string) (Trigger, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+triggerColumns+` FROM triggers WHERE id = ?`, id)
	t, err := s.scan(row)
	if err != nil {
		return Trigger{}, fmt.Errorf("get trigger %s: %w", id, err)
	}
	return t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Scheduler) scan(row scanner) (Trigger, error) {
	var (
		t      Trigger
		fireAt int64
	)
	n := &t.Notification
	if err := row.Scan(&n.ID, &fireAt, &n.Title, &n.Body, &n.ChannelID, &n.FullScreen, &n.Ongoing); err != nil {
		return Trigger{}, err
	}
	t.FireAt = time.UnixMilli(fireAt)

	s.mu.Lock()
	ch, ok := s.channels[n.ChannelID]
	s.mu.Unlock()
	if ok {
		n.VibrationPattern = ch.VibrationPattern
	}
	return t, nil
}

func (s *Scheduler) OnForegroundEvent(h Handler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.foreground[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.foreground, id)
		})
	}
}

func (s *Scheduler) SetBackgroundHandler(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = h
}

// The desktop has no notification or exact-alarm gate.

func (s *Scheduler) RequestPermission(context.Context) (AuthorizationStatus, error) {
	return AuthorizationAuthorized, nil
}

func (s *Scheduler) Settings(context.Context) (Settings, error) {
	return Settings{Authorization: AuthorizationAuthorized, ExactAlarms: true}, nil
}

func (s *Scheduler) OpenAlarmPermissionSettings(context.Context) error {
	return nil
}
