package workflow

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"sluice/internal/capture"
	"sluice/internal/catalog"
	"sluice/internal/logging"
	"sluice/internal/reassembly"
	"sluice/internal/testsupport"
)

type fakePage struct {
	events chan capture.FetchEvent
}

func newFakePage(buffer int) *fakePage {
	return &fakePage{events: make(chan capture.FetchEvent, buffer)}
}

func (p *fakePage) Navigate(string) error             { return nil }
func (p *fakePage) Events() <-chan capture.FetchEvent { return p.events }

func (p *fakePage) push(url string, body []byte) {
	p.events <- capture.FetchEvent{URL: url, Body: body}
}

type selectorFunc func(ctx context.Context, lane int) (string, error)

func (f selectorFunc) Select(ctx context.Context, lane int) (string, error) { return f(ctx, lane) }

type recordingNotifier struct {
	mu        sync.Mutex
	finalized []string
	reasons   []string
	completed []string
	exhausted []string
	uploads   []string
	errors    []string
}

func (n *recordingNotifier) NotifySessionFinalized(_ context.Context, target string, _ int, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finalized = append(n.finalized, target)
	n.reasons = append(n.reasons, reason)
	return nil
}

func (n *recordingNotifier) NotifyReassemblyCompleted(_ context.Context, _, artifact string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, artifact)
	return nil
}

func (n *recordingNotifier) NotifyReassemblyExhausted(_ context.Context, _, sessionDir string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.exhausted = append(n.exhausted, sessionDir)
	return nil
}

func (n *recordingNotifier) NotifyUploadCompleted(_ context.Context, _, objectKey string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.uploads = append(n.uploads, objectKey)
	return nil
}

func (n *recordingNotifier) NotifyRunCompleted(context.Context, int, int, time.Duration) error {
	return nil
}

func (n *recordingNotifier) NotifyError(_ context.Context, err error, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, err.Error())
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

type fixture struct {
	manager  *Manager
	page     *fakePage
	notifier *recordingNotifier
	catalog  *catalog.Store
	staging  string
	output   string
}

func newFixture(t *testing.T, idleThreshold int) *fixture {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	staging := cfg.Paths.StagingDir
	output := cfg.Paths.OutputDir

	logger := logging.NewNop()
	registry := capture.NewRegistry()
	lifecycle := capture.NewLifecycle(registry, idleThreshold, time.Hour, logger)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lifecycle.SetClock(func() time.Time { return clock })

	page := newFakePage(16)
	lane := capture.NewLane(capture.LaneOptions{
		Index:       0,
		Settle:      time.Millisecond,
		StagingDir:  staging,
		Selector:    selectorFunc(func(ctx context.Context, lane int) (string, error) { return "alpha", nil }),
		Page:        page,
		Interceptor: capture.NewInterceptor(".ts", logger),
		Registry:    registry,
		Lifecycle:   lifecycle,
		Logger:      logger,
		Now:         func() time.Time { return clock },
	})

	store, err := catalog.OpenPath(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	notifier := &recordingNotifier{}
	manager := NewManager(cfg, Deps{
		Lanes:     []*capture.Lane{lane},
		Registry:  registry,
		Lifecycle: lifecycle,
		Pipeline:  reassembly.NewPipeline("ffmpeg-unused", output, 3, logger),
		Catalog:   store,
		Notifier:  notifier,
		Logger:    logger,
	})
	manager.SetClock(func() time.Time { return clock })

	return &fixture{
		manager:  manager,
		page:     page,
		notifier: notifier,
		catalog:  store,
		staging:  staging,
		output:   output,
	}
}

// stageArtifact plants the finished artifact so the pipeline's idempotency
// check succeeds without running the concat tool.
func (fx *fixture) stageArtifact(t *testing.T) string {
	t.Helper()
	name := "alpha-20260301-120000.mp4"
	testsupport.WriteFile(t, filepath.Join(fx.staging, name), 64)
	return name
}

func TestRunFinalizesIdleSessionAndProcessesJob(t *testing.T) {
	fx := newFixture(t, 1)
	fx.page.push("https://cdn.example.com/live/alpha_1.ts", []byte("one"))
	name := fx.stageArtifact(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := fx.manager.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(filepath.Join(fx.output, name)); err != nil {
		t.Fatalf("artifact missing from output dir: %v", err)
	}

	fx.notifier.mu.Lock()
	defer fx.notifier.mu.Unlock()
	if len(fx.notifier.finalized) == 0 || fx.notifier.finalized[0] != "alpha" {
		t.Fatalf("expected session finalized notification, got %v", fx.notifier.finalized)
	}
	if len(fx.notifier.completed) != 1 {
		t.Fatalf("expected one completed reassembly, got %v", fx.notifier.completed)
	}
	if len(fx.notifier.exhausted) != 0 {
		t.Fatalf("unexpected exhaustion: %v", fx.notifier.exhausted)
	}

	artifacts, err := fx.catalog.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(artifacts) != 1 || artifacts[0].Name != name {
		t.Fatalf("catalog should hold the artifact, got %+v", artifacts)
	}
}

func TestRunDrainsOpenSessionsOnShutdown(t *testing.T) {
	// Idle threshold high enough that the session is still open when the
	// context expires; drain must finalize it.
	fx := newFixture(t, 1000)
	fx.page.push("https://cdn.example.com/live/alpha_1.ts", []byte("one"))
	fx.stageArtifact(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := fx.manager.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	fx.notifier.mu.Lock()
	defer fx.notifier.mu.Unlock()
	if len(fx.notifier.finalized) != 1 {
		t.Fatalf("expected exactly one finalized session, got %v", fx.notifier.finalized)
	}
	if fx.notifier.reasons[0] != capture.ReasonShutdown {
		t.Fatalf("expected shutdown finalize reason, got %q", fx.notifier.reasons[0])
	}
	if len(fx.notifier.completed) != 1 {
		t.Fatalf("pending job must be processed before Run returns, got %v", fx.notifier.completed)
	}
}

func TestRunDiscardsEmptySessions(t *testing.T) {
	fx := newFixture(t, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := fx.manager.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	fx.notifier.mu.Lock()
	defer fx.notifier.mu.Unlock()
	if len(fx.notifier.finalized) != 0 {
		t.Fatalf("empty sessions must not produce jobs, got %v", fx.notifier.finalized)
	}

	artifacts, err := fx.catalog.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(artifacts) != 0 {
		t.Fatalf("catalog should be empty, got %+v", artifacts)
	}
}

func TestRunRespectsRunDurationLimit(t *testing.T) {
	fx := newFixture(t, 1)
	fx.manager.cfg.Capture.MaxRunSeconds = 60

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	fx.manager.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(30 * time.Second)
		return clock
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = fx.manager.Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run must stop once the duration limit is reached")
	}
}
