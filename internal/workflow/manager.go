package workflow

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"sluice/internal/capture"
	"sluice/internal/catalog"
	"sluice/internal/config"
	"sluice/internal/logging"
	"sluice/internal/notifications"
	"sluice/internal/reassembly"
	"sluice/internal/uploader"
)

// Deps carries the collaborators the manager orchestrates.
type Deps struct {
	Lanes     []*capture.Lane
	Registry  *capture.Registry
	Lifecycle *capture.Lifecycle
	Pipeline  *reassembly.Pipeline
	Uploader  uploader.Service
	Catalog   *catalog.Store
	Notifier  notifications.Service
	Logger    *slog.Logger
}

// Manager drives the capture round loop and feeds finalized sessions into the
// reassembly worker. Lanes run concurrently within a round; rounds are paced
// by the configured interval, and shutdown is only observed at round
// boundaries so settle windows always complete.
type Manager struct {
	cfg       *config.Config
	lanes     []*capture.Lane
	registry  *capture.Registry
	lifecycle *capture.Lifecycle
	pipeline  *reassembly.Pipeline
	uploader  uploader.Service
	catalog   *catalog.Store
	notifier  notifications.Service
	logger    *slog.Logger
	now       func() time.Time

	jobs chan *reassembly.Job

	mu        sync.Mutex
	succeeded int
	failed    int
}

// NewManager wires the capture and reassembly halves together.
func NewManager(cfg *config.Config, deps Deps) *Manager {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Manager{
		cfg:       cfg,
		lanes:     deps.Lanes,
		registry:  deps.Registry,
		lifecycle: deps.Lifecycle,
		pipeline:  deps.Pipeline,
		uploader:  deps.Uploader,
		catalog:   deps.Catalog,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(deps.Logger, "workflow"),
		now:       time.Now,
		jobs:      make(chan *reassembly.Job, 2*len(deps.Lanes)+4),
	}
}

// SetClock overrides the time source, for tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// Run executes rounds until the context is canceled or the configured run
// duration elapses, then drains open sessions and pending reassembly work
// before returning.
func (m *Manager) Run(ctx context.Context) error {
	started := m.now()
	deadline := time.Time{}
	if m.cfg.Capture.MaxRunSeconds > 0 {
		deadline = started.Add(time.Duration(m.cfg.Capture.MaxRunSeconds) * time.Second)
	}

	workerDone := make(chan struct{})
	// Draining continues after cancellation, so the worker must outlive ctx.
	workerCtx := context.WithoutCancel(ctx)
	go m.reassemblyWorker(workerCtx, workerDone)

	m.logger.Info("capture run started",
		logging.Int("lanes", len(m.lanes)),
		logging.Int("round_interval_seconds", m.cfg.Capture.RoundInterval),
	)

	interval := time.Duration(m.cfg.Capture.RoundInterval) * time.Second
	round := 0
	for {
		if ctx.Err() != nil {
			break
		}
		if !deadline.IsZero() && !m.now().Before(deadline) {
			m.logger.Info("run duration limit reached")
			break
		}

		round++
		m.runRound(ctx, round)

		if !m.sleep(ctx, interval) {
			break
		}
	}

	m.drain(workerCtx)
	close(m.jobs)
	<-workerDone

	m.mu.Lock()
	succeeded, failed := m.succeeded, m.failed
	m.mu.Unlock()

	duration := m.now().Sub(started)
	m.logger.Info("capture run finished",
		logging.Int("rounds", round),
		logging.Int("sessions_succeeded", succeeded),
		logging.Int("sessions_failed", failed),
		logging.Duration("duration", duration),
	)
	if err := m.notifier.NotifyRunCompleted(workerCtx, succeeded, failed, duration); err != nil {
		m.logger.Warn("run notification failed", logging.Error(err))
	}
	return nil
}

// runRound runs every lane concurrently and enqueues whatever they finalized.
func (m *Manager) runRound(ctx context.Context, round int) {
	results := make([][]*capture.Session, len(m.lanes))

	g, roundCtx := errgroup.WithContext(ctx)
	for i, lane := range m.lanes {
		i, lane := i, lane
		g.Go(func() error {
			results[i] = lane.Round(roundCtx)
			return nil
		})
	}
	_ = g.Wait()

	for _, finalized := range results {
		for _, sess := range finalized {
			m.enqueue(ctx, sess)
		}
	}

	m.logger.Debug("round complete", logging.Int("round", round))
}

// drain finalizes every still-open session exactly once and enqueues the
// non-empty ones.
func (m *Manager) drain(ctx context.Context) {
	for _, sess := range m.registry.Open() {
		if finalized := m.lifecycle.Finalize(sess, capture.ReasonShutdown); finalized != nil {
			m.enqueue(ctx, finalized)
		}
	}
}

func (m *Manager) enqueue(ctx context.Context, sess *capture.Session) {
	job := reassembly.NewJob(sess.ID, sess.Target, sess.Dir, m.now(), m.cfg.Reassembly.OutputExtension)
	if err := m.notifier.NotifySessionFinalized(ctx, sess.Target, sess.SegmentCount(), sess.FinalizeReason()); err != nil {
		m.logger.Debug("session notification failed", logging.Error(err))
	}
	m.jobs <- job
}

func (m *Manager) reassemblyWorker(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	for job := range m.jobs {
		m.processJob(ctx, job)
	}
}

func (m *Manager) processJob(ctx context.Context, job *reassembly.Job) {
	if err := m.pipeline.Run(ctx, job); err != nil {
		m.mu.Lock()
		m.failed++
		m.mu.Unlock()
		if job.Status == reassembly.StatusExhausted {
			if nerr := m.notifier.NotifyReassemblyExhausted(ctx, job.Target, job.SessionDir); nerr != nil {
				m.logger.Warn("exhaustion notification failed", logging.Error(nerr))
			}
		}
		if nerr := m.notifier.NotifyError(ctx, err, "reassembly"); nerr != nil {
			m.logger.Debug("error notification failed", logging.Error(nerr))
		}
		return
	}

	m.mu.Lock()
	m.succeeded++
	m.mu.Unlock()
	if err := m.notifier.NotifyReassemblyCompleted(ctx, job.Target, job.OutputPath); err != nil {
		m.logger.Debug("completion notification failed", logging.Error(err))
	}

	m.publish(ctx, job)
}

// publish records the artifact in the catalog and uploads it when uploads are
// configured. Failures here never fail the job; the artifact stays on disk.
func (m *Manager) publish(ctx context.Context, job *reassembly.Job) {
	var recordID int64
	if m.catalog != nil {
		record, err := m.catalog.Record(ctx, catalog.Artifact{
			Name:      job.ArtifactName,
			Target:    job.Target,
			SizeBytes: fileSize(job.OutputPath),
			CreatedAt: m.now().UTC(),
		})
		if err != nil {
			m.logger.Warn("catalog record failed",
				logging.String("artifact", job.ArtifactName),
				logging.Error(err),
			)
		} else {
			recordID = record.ID
		}
	}

	if m.uploader == nil || !m.uploader.Enabled() {
		return
	}

	key, _, err := m.uploader.Upload(ctx, job.OutputPath)
	if err != nil {
		m.logger.Warn("upload failed, artifact kept local",
			logging.String("artifact", job.OutputPath),
			logging.Error(err),
		)
		if nerr := m.notifier.NotifyError(ctx, err, "upload"); nerr != nil {
			m.logger.Debug("error notification failed", logging.Error(nerr))
		}
		return
	}

	if m.catalog != nil && recordID != 0 {
		if err := m.catalog.MarkUploaded(ctx, recordID, key, m.now().UTC()); err != nil {
			m.logger.Warn("catalog upload update failed", logging.Error(err))
		}
	}
	if err := m.notifier.NotifyUploadCompleted(ctx, job.Target, key); err != nil {
		m.logger.Debug("upload notification failed", logging.Error(err))
	}
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
