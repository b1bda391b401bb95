package capture

import (
	"context"
	"log/slog"
	"time"

	"sluice/internal/logging"
	"sluice/internal/selector"
)

// Page is the slice of the browser automation a lane needs: point the page at
// a target and receive the network fetches it produces. The rod-backed
// implementation lives in internal/browser.
type Page interface {
	Navigate(target string) error
	Events() <-chan FetchEvent
}

// Lane owns one capture worker's state: the current binding, its session, and
// the idle-round counter. Only the lane's own worker goroutine calls Round;
// the session itself is safe to share through the registry.
type Lane struct {
	Index int

	offset      int
	settle      time.Duration
	staging     string
	selector    selector.Service
	page        Page
	interceptor *Interceptor
	registry    *Registry
	lifecycle   *Lifecycle
	logger      *slog.Logger
	now         func() time.Time

	session    *Session
	idleRounds int
	lastSeen   uint64
}

// LaneOptions carries lane construction parameters.
type LaneOptions struct {
	Index       int
	Offset      int
	Settle      time.Duration
	StagingDir  string
	Selector    selector.Service
	Page        Page
	Interceptor *Interceptor
	Registry    *Registry
	Lifecycle   *Lifecycle
	Logger      *slog.Logger
	Now         func() time.Time
}

// NewLane builds a lane controller.
func NewLane(opts LaneOptions) *Lane {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := logging.NewComponentLogger(opts.Logger, "lane")
	return &Lane{
		Index:       opts.Index,
		offset:      opts.Offset,
		settle:      opts.Settle,
		staging:     opts.StagingDir,
		selector:    opts.Selector,
		page:        opts.Page,
		interceptor: opts.Interceptor,
		registry:    opts.Registry,
		lifecycle:   opts.Lifecycle,
		logger:      logger.With(logging.Int(logging.FieldLane, opts.Index)),
		now:         now,
	}
}

// Session exposes the lane's current session, if any.
func (l *Lane) Session() *Session {
	return l.session
}

// Round executes one capture round: resolve the lane's target, bind or rebind
// as needed, collect segments for the settle window, and evaluate idle and
// age limits. It returns the sessions finalized during the round.
func (l *Lane) Round(ctx context.Context) []*Session {
	var finalized []*Session

	// Another lane sharing this session may have finalized it.
	if l.session != nil && l.session.Finalized() {
		l.detach()
	}

	target, err := l.selector.Select(ctx, l.Index+l.offset)
	if err != nil {
		l.logger.Debug("selector unavailable, treating as no target", logging.Error(err))
		target = ""
	}
	target = NormalizeTarget(target)

	switch {
	case target == "" && l.session == nil:
		// Never bound; retry next round.
		return nil
	case target != "" && (l.session == nil || l.session.Target != target):
		if l.session != nil {
			if sess := l.lifecycle.Finalize(l.session, ReasonRebind); sess != nil {
				finalized = append(finalized, sess)
			}
			l.detach()
		}
		if err := l.bind(target); err != nil {
			l.logger.Warn("bind failed, retrying next round",
				logging.String(logging.FieldTarget, target),
				logging.Error(err),
			)
			return finalized
		}
	}

	l.collect()

	if sess := l.evaluate(); sess != nil {
		finalized = append(finalized, sess)
	}
	return finalized
}

func (l *Lane) bind(target string) error {
	sess, err := l.registry.Acquire(target, func() (*Session, error) {
		return NewSession(target, l.staging, l.now())
	})
	if err != nil {
		return err
	}
	l.session = sess
	l.idleRounds = 0
	l.lastSeen = sess.ArrivalCount()

	if err := l.page.Navigate(target); err != nil {
		// Stay bound; without page traffic the idle rounds will close it.
		l.logger.Warn("page navigation failed",
			logging.String(logging.FieldTarget, target),
			logging.Error(err),
		)
		return nil
	}

	l.logger.Info("lane bound",
		logging.String(logging.FieldTarget, target),
		logging.String(logging.FieldSessionID, sess.ID),
	)
	return nil
}

// collect drains fetch events for the settle window. The window always runs
// to completion; shutdown is only observed between rounds.
func (l *Lane) collect() {
	timer := time.NewTimer(l.settle)
	defer timer.Stop()

	events := l.page.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				<-timer.C
				return
			}
			l.observe(ev)
		case <-timer.C:
			// Window over; absorb whatever is already buffered.
			for {
				select {
				case ev, ok := <-events:
					if !ok {
						return
					}
					l.observe(ev)
				default:
					return
				}
			}
		}
	}
}

func (l *Lane) observe(ev FetchEvent) {
	if l.session == nil {
		return
	}
	if _, err := l.interceptor.Observe(l.session, ev); err != nil {
		l.logger.Warn("segment write failed",
			logging.String("url", ev.URL),
			logging.Error(err),
		)
	}
}

func (l *Lane) evaluate() *Session {
	if l.session == nil {
		return nil
	}

	// Read the arrival counter instead of consuming a flag: after a registry
	// merge another lane evaluates the same session, and both must see the
	// round's activity.
	count := l.session.ArrivalCount()
	active := count > l.lastSeen
	l.lastSeen = count
	if active {
		l.idleRounds = 0
	} else {
		l.idleRounds++
	}

	reason, done := l.lifecycle.Evaluate(l.session, l.idleRounds, active)
	if !done {
		return nil
	}
	sess := l.lifecycle.Finalize(l.session, reason)
	l.detach()
	return sess
}

func (l *Lane) detach() {
	l.session = nil
	l.idleRounds = 0
	l.lastSeen = 0
}
