package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"sluice/internal/capture"
	"sluice/internal/config"
	"sluice/internal/logging"
	"sluice/internal/services"
)

// Watcher owns the browser connection shared by all lane pages.
type Watcher struct {
	browser     *rod.Browser
	template    string
	extension   string
	eventBuffer int
	navTimeout  time.Duration
	logger      *slog.Logger
}

// NewWatcher connects to the configured browser. A debugger_url takes
// precedence; otherwise a local headless instance is launched.
func NewWatcher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Watcher, error) {
	controlURL := strings.TrimSpace(cfg.Browser.DebuggerURL)
	if controlURL == "" {
		url, err := launcher.New().Headless(cfg.Browser.Headless).Launch()
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "browser", "launch", "", err)
		}
		controlURL = url
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "browser", "connect", controlURL, err)
	}

	return &Watcher{
		browser:     b,
		template:    cfg.Browser.PageURLTemplate,
		extension:   cfg.Capture.SegmentExtension,
		eventBuffer: cfg.Browser.EventBuffer,
		navTimeout:  time.Duration(cfg.Browser.NavTimeoutSeconds) * time.Second,
		logger:      logging.NewComponentLogger(logger, "browser"),
	}, nil
}

// Close tears down the browser connection.
func (w *Watcher) Close() error {
	if w == nil || w.browser == nil {
		return nil
	}
	return w.browser.Close()
}

// NewLanePage opens one tab with segment interception wired up. The returned
// page satisfies the capture lane's Page contract.
func (w *Watcher) NewLanePage(lane int) (*LanePage, error) {
	page, err := w.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "browser", "open page", fmt.Sprintf("lane %d", lane), err)
	}

	lp := &LanePage{
		page:       page,
		template:   w.template,
		navTimeout: w.navTimeout,
		events:     make(chan capture.FetchEvent, w.eventBuffer),
		logger:     w.logger.With(logging.Int(logging.FieldLane, lane)),
	}

	router := page.HijackRequests()
	pattern := "*" + w.extension + "*"
	if err := router.Add(pattern, "", lp.hijack); err != nil {
		_ = page.Close()
		return nil, services.Wrap(services.ErrExternalTool, "browser", "register hijack", pattern, err)
	}
	go router.Run()
	lp.router = router

	return lp, nil
}

// LanePage is one browser tab bound to a capture lane. Segment responses are
// published on Events; all other traffic passes through untouched.
type LanePage struct {
	page       *rod.Page
	router     *rod.HijackRouter
	template   string
	navTimeout time.Duration
	events     chan capture.FetchEvent
	logger     *slog.Logger
}

// Navigate loads the monitored page for a target.
func (p *LanePage) Navigate(target string) error {
	url := fmt.Sprintf(p.template, target)
	page := p.page
	if p.navTimeout > 0 {
		page = page.Timeout(p.navTimeout)
	}
	if err := page.Navigate(url); err != nil {
		return services.Wrap(services.ErrTransient, "browser", "navigate", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		p.logger.Debug("page load wait ended early", logging.String("url", url), logging.Error(err))
	}
	return nil
}

// Events exposes intercepted segment responses in arrival order.
func (p *LanePage) Events() <-chan capture.FetchEvent {
	return p.events
}

// Close stops interception and closes the tab.
func (p *LanePage) Close() error {
	if p.router != nil {
		_ = p.router.Stop()
	}
	return p.page.Close()
}

func (p *LanePage) hijack(ctx *rod.Hijack) {
	if err := ctx.LoadResponse(http.DefaultClient, true); err != nil {
		p.logger.Debug("segment fetch passthrough failed",
			logging.String("url", ctx.Request.URL().String()),
			logging.Error(err),
		)
		return
	}
	publish(p.events, capture.FetchEvent{
		URL:  ctx.Request.URL().String(),
		Body: []byte(ctx.Response.Body()),
	}, p.logger)
}

// publish never blocks the interception goroutine; when the buffer is full
// the event is dropped and the source can replay the sequence later.
func publish(events chan<- capture.FetchEvent, event capture.FetchEvent, logger *slog.Logger) bool {
	select {
	case events <- event:
		return true
	default:
		logger.Warn("event buffer full, dropping segment",
			logging.String("url", event.URL),
			logging.String(logging.FieldEventType, "segment_dropped"),
		)
		return false
	}
}
