// Package settings owns the per-target configuration rows. The scheduler and
// the adapters always read a current snapshot; updates made through the API
// are persisted and fanned out to watchers so an auto-upload toggle takes
// effect without a restart.
package settings

import (
	"context"
	"fmt"
	"sync"

	"axle-upload/internal/apperrors"
	"axle-upload/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store caches the settings rows and notifies watchers on update.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger

	mu       sync.RWMutex
	current  map[string]models.TargetSetting
	watchers map[string]map[chan models.TargetSetting]struct{}
}

// NewStore loads persisted settings and seeds any target missing a row with
// its default. The defaults slice also fixes the set of known targets.
func NewStore(db *gorm.DB, defaults []models.TargetSetting, logger *zap.Logger) (*Store, error) {
	s := &Store{
		db:       db,
		logger:   logger,
		current:  make(map[string]models.TargetSetting, len(defaults)),
		watchers: make(map[string]map[chan models.TargetSetting]struct{}),
	}

	for _, def := range defaults {
		var row models.TargetSetting
		err := db.Where("target = ?", def.Target).First(&row).Error
		switch {
		case err == nil:
			s.current[def.Target] = row
		case err == gorm.ErrRecordNotFound:
			if err := db.Create(&def).Error; err != nil {
				return nil, fmt.Errorf("seeding settings for %s: %w", def.Target, err)
			}
			logger.Info("seeded default settings", zap.String("target", def.Target))
			s.current[def.Target] = def
		default:
			return nil, fmt.Errorf("loading settings for %s: %w", def.Target, err)
		}
	}
	return s, nil
}

// Targets returns the known target names.
func (s *Store) Targets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.current))
	for name := range s.current {
		names = append(names, name)
	}
	return names
}

// Get returns a snapshot of one target's settings.
func (s *Store) Get(target string) (models.TargetSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.current[target]
	if !ok {
		return models.TargetSetting{}, &apperrors.NotFoundError{Resource: "target", Key: target}
	}
	return cfg, nil
}

// Update persists new settings for a target and notifies watchers. Unknown
// targets are rejected; the target set is fixed at startup.
func (s *Store) Update(ctx context.Context, target string, cfg models.TargetSetting) error {
	s.mu.Lock()
	if _, ok := s.current[target]; !ok {
		s.mu.Unlock()
		return &apperrors.NotFoundError{Resource: "target", Key: target}
	}
	cfg.Target = target
	if err := s.db.WithContext(ctx).Save(&cfg).Error; err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persisting settings for %s: %w", target, err)
	}
	s.current[target] = cfg
	// Sends stay under the lock so a concurrent cancel cannot close a channel
	// mid-send. They never block: a watcher that is behind misses this
	// snapshot and picks up the state on its next read.
	for ch := range s.watchers[target] {
		select {
		case ch <- cfg:
		default:
		}
	}
	s.mu.Unlock()

	s.logger.Info("target settings updated",
		zap.String("target", target),
		zap.Bool("autoUpload", cfg.AutoUpload),
		zap.Int("intervalSeconds", cfg.AutoUploadIntervalSeconds))
	return nil
}

// Watch returns a channel receiving every settings update for target. The
// cancel func removes the watcher and closes the channel.
func (s *Store) Watch(target string) (<-chan models.TargetSetting, func()) {
	ch := make(chan models.TargetSetting, 1)

	s.mu.Lock()
	if s.watchers[target] == nil {
		s.watchers[target] = make(map[chan models.TargetSetting]struct{})
	}
	s.watchers[target][ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if set, ok := s.watchers[target]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
		}
		s.mu.Unlock()
	}
	return ch, cancel
}
