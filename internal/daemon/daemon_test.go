package daemon

import (
	"context"
	"testing"
	"time"

	"sluice/internal/capture"
	"sluice/internal/logging"
	"sluice/internal/testsupport"
	"sluice/internal/workflow"
)

func newTestDaemon(t *testing.T, logDir string) *Daemon {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Paths.LogDir = logDir

	logger := logging.NewNop()
	registry := capture.NewRegistry()
	manager := workflow.NewManager(cfg, workflow.Deps{
		Registry:  registry,
		Lifecycle: capture.NewLifecycle(registry, 2, time.Hour, logger),
		Logger:    logger,
	})

	d, err := New(cfg, nil, logger, manager)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestStartEnforcesSingleInstance(t *testing.T) {
	logDir := t.TempDir()
	first := newTestDaemon(t, logDir)
	second := newTestDaemon(t, logDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer first.Stop()

	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second daemon must fail to acquire the lock")
	}
}

func TestStopReleasesLock(t *testing.T) {
	logDir := t.TempDir()
	first := newTestDaemon(t, logDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first.Stop()

	second := newTestDaemon(t, logDir)
	if err := second.Start(ctx); err != nil {
		t.Fatalf("lock should be free after Stop: %v", err)
	}
	second.Stop()
}

func TestStartTwiceFails(t *testing.T) {
	d := newTestDaemon(t, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	if err := d.Start(ctx); err == nil {
		t.Fatal("second Start on a running daemon must fail")
	}
}
