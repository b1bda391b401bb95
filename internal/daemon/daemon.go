package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"sluice/internal/catalog"
	"sluice/internal/config"
	"sluice/internal/logging"
	"sluice/internal/workflow"
)

// Daemon coordinates the background capture run and enforces single-instance
// execution through a lock file.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *catalog.Store
	workflow *workflow.Manager

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, logger, and workflow manager")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "sluiced.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// LockFilePath reports where the instance lock lives.
func (d *Daemon) LockFilePath() string {
	return d.lockPath
}

// Start acquires the daemon lock and launches the capture run in the
// background. Use Wait to block until the run finishes.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another sluice daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running.Store(true)

	go func() {
		defer close(d.done)
		if err := d.workflow.Run(runCtx); err != nil {
			d.logger.Error("capture run failed", logging.Error(err))
		}
	}()

	d.logger.Info("sluice daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Wait blocks until the background run completes.
func (d *Daemon) Wait() {
	if d.done != nil {
		<-d.done
	}
}

// Stop cancels the capture run, waits for the drain to finish, and releases
// the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("sluice daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}
