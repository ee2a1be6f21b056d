// Package scheduler triggers the daily dispatch run at the configured local
// time and guards against overlapping runs.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"duewatch/internal/config"
	"duewatch/internal/deadline"
	"duewatch/internal/faults"
	"duewatch/internal/logging"
	"duewatch/internal/notify"
)

// ErrRunInProgress is returned when a run is requested while another is
// still executing.
var ErrRunInProgress = errors.New("dispatch run already in progress")

// HealthProber reports whether the upstream API is reachable. Optional.
type HealthProber interface {
	Health(ctx context.Context) error
}

// RunInfo captures the outcome of the most recent run for status reporting.
type RunInfo struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Summary    notify.Summary `json:"summary"`
	Err        string         `json:"error,omitempty"`
}

// Scheduler owns the daily trigger and the mutual exclusion around runs.
type Scheduler struct {
	cfg        *config.Config
	store      *deadline.Store
	dispatcher *notify.Dispatcher
	messenger  notify.Messenger
	prober     HealthProber
	logger     *slog.Logger

	runMu  sync.Mutex
	infoMu sync.Mutex
	last   *RunInfo
}

// New builds a scheduler. prober may be nil when no remote is configured.
func New(cfg *config.Config, store *deadline.Store, dispatcher *notify.Dispatcher, messenger notify.Messenger, prober HealthProber, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		store:      store,
		dispatcher: dispatcher,
		messenger:  messenger,
		prober:     prober,
		logger:     logging.NewComponentLogger(logger, "scheduler"),
	}
}

// Start runs the daily loop until the context is cancelled. It blocks, so
// callers usually run it in a goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	loc := s.cfg.Location()
	for {
		next := s.nextRun(time.Now().In(loc))
		s.logger.Info("next scheduled run", logging.String("at", next.Format(time.RFC3339)))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := s.RunNow(ctx); err != nil {
			if errors.Is(err, ErrRunInProgress) {
				s.logger.Warn("scheduled run skipped, previous run still active")
			} else {
				s.logger.Error("scheduled run failed", logging.Error(err))
			}
		}
	}
}

// RunNow executes one dispatch run immediately. Concurrent calls beyond the
// first return ErrRunInProgress. Transient failures are retried per the
// schedule config before the error surfaces.
func (s *Scheduler) RunNow(ctx context.Context) (notify.Summary, error) {
	if !s.runMu.TryLock() {
		return notify.Summary{}, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	runID := uuid.NewString()
	info := RunInfo{RunID: runID, StartedAt: time.Now()}
	logger := s.logger.With(logging.String(logging.FieldRunID, runID))

	s.probeRemote(ctx, logger)

	summary, err := s.runWithRetries(ctx, logger)
	info.FinishedAt = time.Now()
	info.Summary = summary
	if err != nil {
		info.Err = err.Error()
	}
	s.setLast(info)

	// A failed pass is still reported to operators; the summary carries the
	// windows that could not be fetched.
	s.sendOperatorSummary(ctx, logger, runID, summary, info.FinishedAt.Sub(info.StartedAt))
	return summary, err
}

// Running reports whether a run is currently executing.
func (s *Scheduler) Running() bool {
	if s.runMu.TryLock() {
		s.runMu.Unlock()
		return false
	}
	return true
}

// LastRun returns info about the most recent run, or nil before the first.
func (s *Scheduler) LastRun() *RunInfo {
	s.infoMu.Lock()
	defer s.infoMu.Unlock()
	if s.last == nil {
		return nil
	}
	copied := *s.last
	return &copied
}

// NextRun returns the next scheduled trigger time.
func (s *Scheduler) NextRun() time.Time {
	return s.nextRun(time.Now().In(s.cfg.Location()))
}

func (s *Scheduler) runWithRetries(ctx context.Context, logger *slog.Logger) (notify.Summary, error) {
	attempts := s.cfg.Schedule.RetryAttempts + 1
	delay := time.Duration(s.cfg.Schedule.RetryDelay) * time.Second

	var summary notify.Summary
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		summary, err = s.dispatcher.Run(ctx)
		if err == nil {
			return summary, nil
		}
		if !faults.Retryable(err) || attempt == attempts {
			break
		}
		logger.Warn("dispatch run failed, retrying",
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err))
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		case <-time.After(delay):
		}
	}
	return summary, err
}

func (s *Scheduler) probeRemote(ctx context.Context, logger *slog.Logger) {
	if s.prober == nil {
		return
	}
	if err := s.prober.Health(ctx); err != nil {
		logger.Warn("remote api unreachable, run will use local store", logging.Error(err))
		return
	}
	logger.Info("remote api healthy")
}

func (s *Scheduler) sendOperatorSummary(ctx context.Context, logger *slog.Logger, runID string, summary notify.Summary, elapsed time.Duration) {
	if !s.cfg.Dispatch.IncludeOperators || len(s.cfg.Dispatch.OperatorChannels) == 0 {
		return
	}

	counts, err := s.store.TierCounts(ctx, time.Now())
	if err != nil {
		logger.Warn("tier counts unavailable for summary", logging.Error(err))
		counts = nil
	}
	text := notify.RunSummary(runID, summary, elapsed, counts)

	for _, channel := range s.cfg.Dispatch.OperatorChannels {
		if err := s.messenger.Send(ctx, channel, text); err != nil {
			logger.Warn("operator summary delivery failed",
				logging.String(logging.FieldChannel, channel),
				logging.Error(err))
		}
	}
}

func (s *Scheduler) setLast(info RunInfo) {
	s.infoMu.Lock()
	defer s.infoMu.Unlock()
	s.last = &info
}

// nextRun returns the next occurrence of the configured check time strictly
// after now.
func (s *Scheduler) nextRun(now time.Time) time.Time {
	hour, minute := s.cfg.CheckClock()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
