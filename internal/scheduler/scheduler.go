// Package scheduler drives the periodic auto-upload of pending ledger rows.
// Each target gets its own supervisor so one slow or misconfigured system
// never delays the others.
package scheduler

import (
	"context"
	"sync"
	"time"

	"axle-upload/internal/activation"
	"axle-upload/internal/models"
	"axle-upload/internal/repositories"
	"axle-upload/internal/settings"

	"go.uber.org/zap"
)

// Uploader is the slice of the target adapter the scheduler needs.
type Uploader interface {
	Name() string
	Ledger() repositories.LedgerRepository
	Set(ctx context.Context, recordID uint) (*models.UploadRecord, error)
}

// perRecordTimeout bounds one upload attempt inside a drain pass.
const perRecordTimeout = 2 * time.Minute

// Supervisor runs the auto-upload loop for a single target. It is armed when
// the target's settings enable auto-upload with a positive interval, idle
// otherwise, and it follows settings updates live.
type Supervisor struct {
	uploader Uploader
	store    *settings.Store
	gate     *activation.Gate
	logger   *zap.Logger

	stop chan struct{}
	done chan struct{}
}

// NewSupervisor creates a supervisor for one target. Call Start to run it.
func NewSupervisor(up Uploader, store *settings.Store, gate *activation.Gate, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		uploader: up,
		store:    store,
		gate:     gate,
		logger:   logger.With(zap.String("target", up.Name())),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the supervisor loop.
func (s *Supervisor) Start() {
	go s.run()
}

// Stop terminates the loop. A drain pass already in flight finishes its
// current record first.
func (s *Supervisor) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Supervisor) run() {
	defer close(s.done)

	cfg, err := s.store.Get(s.uploader.Name())
	if err != nil {
		s.logger.Error("supervisor cannot load settings", zap.Error(err))
		return
	}
	updates, cancel := s.store.Watch(s.uploader.Name())
	defer cancel()

	timer := time.NewTimer(time.Hour)
	stopTimer(timer)
	armed := false
	arm := func() {
		stopTimer(timer)
		armed = cfg.AutoUpload && cfg.AutoUploadIntervalSeconds > 0
		if armed {
			timer.Reset(time.Duration(cfg.AutoUploadIntervalSeconds) * time.Second)
		}
	}

	wasArmed := false
	arm()
	s.logger.Info("supervisor started", zap.Bool("armed", armed))

	for {
		select {
		case <-s.stop:
			stopTimer(timer)
			s.logger.Info("supervisor stopped")
			return

		case cfg = <-updates:
			wasArmed = armed
			arm()
			s.logger.Info("supervisor settings applied", zap.Bool("armed", armed))
			// Enabling from idle should not wait a full interval.
			if armed && !wasArmed {
				s.drain(cfg)
			}

		case <-timer.C:
			// Rearm before draining so a long pass cannot stall the cadence
			// decision; the next tick fires on schedule.
			timer.Reset(time.Duration(cfg.AutoUploadIntervalSeconds) * time.Second)
			s.drain(cfg)
		}
	}
}

// drain uploads every pending ledger row, oldest first. Failures are logged
// per record and never abort the pass; the row stays pending for the next one.
func (s *Supervisor) drain(cfg models.TargetSetting) {
	if !s.gate.IsActivated() {
		s.logger.Debug("auto-upload skipped, not activated")
		return
	}

	ctx := context.Background()
	pending, err := s.uploader.Ledger().FindPending(ctx, cfg.TodayOnly)
	if err != nil {
		s.logger.Error("listing pending records", zap.Error(err))
		return
	}
	if len(pending) == 0 {
		return
	}
	s.logger.Info("auto-upload pass", zap.Int("pending", len(pending)))

	for _, rec := range pending {
		select {
		case <-s.stop:
			return
		default:
		}
		recCtx, cancel := context.WithTimeout(ctx, perRecordTimeout)
		_, err := s.uploader.Set(recCtx, rec.ID)
		cancel()
		if err != nil {
			s.logger.Warn("auto-upload failed",
				zap.Uint("recordId", rec.ID),
				zap.String("barCode", rec.BarCode),
				zap.Error(err))
		}
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// Scheduler owns one supervisor per target.
type Scheduler struct {
	sups []*Supervisor
	once sync.Once
}

// New builds a scheduler covering every given uploader.
func New(ups []Uploader, store *settings.Store, gate *activation.Gate, logger *zap.Logger) *Scheduler {
	s := &Scheduler{}
	for _, up := range ups {
		s.sups = append(s.sups, NewSupervisor(up, store, gate, logger))
	}
	return s
}

// Start launches all supervisors.
func (s *Scheduler) Start() {
	for _, sup := range s.sups {
		sup.Start()
	}
}

// Stop shuts all supervisors down and waits for them.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		for _, sup := range s.sups {
			sup.Stop()
		}
	})
}
