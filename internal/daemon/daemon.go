package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"duewatch/internal/config"
	"duewatch/internal/deadline"
	"duewatch/internal/logging"
	"duewatch/internal/scheduler"
)

// Daemon coordinates the scheduler and embedded API server and enforces
// single-instance execution via a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *deadline.Store
	sched  *scheduler.Scheduler
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool               `json:"running"`
	RunActive    bool               `json:"run_active"`
	NextRun      time.Time          `json:"next_run"`
	LastRun      *scheduler.RunInfo `json:"last_run,omitempty"`
	DatabasePath string             `json:"database_path"`
	LockFilePath string             `json:"lock_file_path"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *deadline.Store, sched *scheduler.Scheduler, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || sched == nil {
		return nil, errors.New("daemon requires config, store, and scheduler")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "duewatchd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		sched:    sched,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, d.logger)
	return d, nil
}

// Start acquires the daemon lock and launches the scheduler and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another duewatch daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}
	go d.sched.Start(d.ctx)

	d.running.Store(true)
	d.logger.Info("duewatch daemon started",
		logging.String("lock", d.lockPath),
		logging.String("database", d.store.Path()))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.cancel()
	d.api.stop()
	_ = d.lock.Unlock()
	d.running.Store(false)
	d.ctx = nil
	d.cancel = nil
	d.logger.Info("duewatch daemon stopped")
}

// Wait blocks until the daemon context ends.
func (d *Daemon) Wait() {
	if d.ctx == nil {
		return
	}
	<-d.ctx.Done()
}

// Status reports current runtime information.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		RunActive:    d.sched.Running(),
		NextRun:      d.sched.NextRun(),
		LastRun:      d.sched.LastRun(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
	}
}

// APIAddr returns the bound API address, or empty when the server is off.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}
