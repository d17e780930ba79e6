package store

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/borgmon/alarm-clock/pkg/kv"
	"github.com/borgmon/alarm-clock/pkg/models"
)

// StorageKey is the single key the alarm list lives under.
const StorageKey = "@alarm_app_alarms"

// ErrStorage wraps serialization and I/O failures.
var ErrStorage = errors.New("storage error")

// AlarmStore is the source of truth for which alarms exist. Every write
// loads, modifies and persists the whole list: last writer wins.
type AlarmStore struct {
	kv     kv.Store
	logger *zap.SugaredLogger
}

// NewAlarmStore creates a new AlarmStore instance
func NewAlarmStore(store kv.Store, logger *zap.SugaredLogger) *AlarmStore {
	return &AlarmStore{kv: store, logger: logger}
}

// LoadAll returns every stored alarm. A missing or corrupt value yields an
// empty list: a broken store must never block alarm delivery.
func (s *AlarmStore) LoadAll(ctx context.Context) []models.Alarm {
	alarms, err := s.load(ctx)
	if err != nil {
		s.logger.Errorf("Error loading alarms: %v", err)
		return []models.Alarm{}
	}
	return alarms
}

func (s *AlarmStore) load(ctx context.Context) ([]models.Alarm, error) {
	raw, ok, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if !ok || raw == "" {
		return []models.Alarm{}, nil
	}

	var alarms []models.Alarm
	if err := json.Unmarshal([]byte(raw), &alarms); err != nil {
		return nil, fmt.Errorf("%w: decode alarms: %w", ErrStorage, err)
	}
	if alarms == nil {
		alarms = []models.Alarm{}
	}
	return alarms, nil
}

// Find returns the alarm with id from LoadAll.
func (s *AlarmStore) Find(ctx context.Context, id string) (models.Alarm, bool) {
	for _, a := range s.LoadAll(ctx) {
		if a.ID == id {
			return a, true
		}
	}
	return models.Alarm{}, false
}

// SaveAll replaces the stored list.
func (s *AlarmStore) SaveAll(ctx context.Context, alarms []models.Alarm) error {
	if alarms == nil {
		alarms = []models.Alarm{}
	}
	data, err := json.Marshal(alarms)
	if err != nil {
		return fmt.Errorf("%w: encode alarms: %w", ErrStorage, err)
	}
	if err := s.kv.Set(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

// Upsert replaces the alarm with the same id, or appends it. A list that
// cannot be read is never overwritten.
func (s *AlarmStore) Upsert(ctx context.Context, alarm models.Alarm) error {
	alarms, err := s.load(ctx)
	if err != nil {
		s.logger.Errorf("Error loading alarms to save %s: %v", alarm.ID, err)
		return err
	}

	replaced := false
	for i := range alarms {
		if alarms[i].ID == alarm.ID {
			alarms[i] = alarm
			replaced = true
			break
		}
	}
	if !replaced {
		alarms = append(alarms, alarm)
	}

	if err := s.SaveAll(ctx, alarms); err != nil {
		s.logger.Errorf("Error saving alarm %s: %v", alarm.ID, err)
		return err
	}
	return nil
}

// Delete removes the alarm with id and leaves the others untouched.
func (s *AlarmStore) Delete(ctx context.Context, id string) error {
	alarms, err := s.load(ctx)
	if err != nil {
		s.logger.Errorf("Error loading alarms to delete %s: %v", id, err)
		return err
	}
	filtered := make([]models.Alarm, 0, len(alarms))
	for _, a := range alarms {
		if a.ID != id {
			filtered = append(filtered, a)
		}
	}

	if err := s.SaveAll(ctx, filtered); err != nil {
		s.logger.Errorf("Error deleting alarm %s: %v", id, err)
		return err
	}
	return nil
}

// Clear removes the stored list altogether.
func (s *AlarmStore) Clear(ctx context.Context) error {
	if err := s.kv.Remove(ctx, StorageKey); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}
