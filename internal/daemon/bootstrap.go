package daemon

import (
	"context"
	"log/slog"
	"time"

	"sluice/internal/browser"
	"sluice/internal/capture"
	"sluice/internal/catalog"
	"sluice/internal/config"
	"sluice/internal/notifications"
	"sluice/internal/reassembly"
	"sluice/internal/selector"
	"sluice/internal/uploader"
	"sluice/internal/workflow"
)

// Bootstrap assembles the full capture stack: browser watcher, lanes,
// reassembly pipeline, catalog, uploader, and the workflow manager tying them
// together. The returned cleanup closes the browser connection; Close on the
// daemon releases everything else.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Daemon, func(), error) {
	store, err := catalog.Open(cfg)
	if err != nil {
		return nil, nil, err
	}

	watcher, err := browser.NewWatcher(ctx, cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	cleanup := func() { _ = watcher.Close() }

	fail := func(err error) (*Daemon, func(), error) {
		cleanup()
		_ = store.Close()
		return nil, nil, err
	}

	upload, err := uploader.NewService(cfg, logger)
	if err != nil {
		return fail(err)
	}

	registry := capture.NewRegistry()
	lifecycle := capture.NewLifecycle(
		registry,
		cfg.Capture.IdleRoundThreshold,
		time.Duration(cfg.Capture.MaxSessionSeconds)*time.Second,
		logger,
	)
	interceptor := capture.NewInterceptor(cfg.Capture.SegmentExtension, logger)
	sel := selector.FromConfig(cfg)

	lanes := make([]*capture.Lane, 0, cfg.Capture.Lanes)
	for i := 0; i < cfg.Capture.Lanes; i++ {
		page, err := watcher.NewLanePage(i)
		if err != nil {
			return fail(err)
		}
		lanes = append(lanes, capture.NewLane(capture.LaneOptions{
			Index:       i,
			Offset:      cfg.Capture.LaneOffset,
			Settle:      time.Duration(cfg.Capture.SettleSeconds) * time.Second,
			StagingDir:  cfg.Paths.StagingDir,
			Selector:    sel,
			Page:        page,
			Interceptor: interceptor,
			Registry:    registry,
			Lifecycle:   lifecycle,
			Logger:      logger,
		}))
	}

	manager := workflow.NewManager(cfg, workflow.Deps{
		Lanes:     lanes,
		Registry:  registry,
		Lifecycle: lifecycle,
		Pipeline: reassembly.NewPipeline(
			cfg.Reassembly.FFmpegBinary,
			cfg.Paths.OutputDir,
			cfg.Reassembly.MaxAttempts,
			logger,
		),
		Uploader: upload,
		Catalog:  store,
		Notifier: notifications.NewService(cfg),
		Logger:   logger,
	})

	d, err := New(cfg, store, logger, manager)
	if err != nil {
		return fail(err)
	}
	return d, cleanup, nil
}
