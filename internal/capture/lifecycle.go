package capture

import (
	"log/slog"
	"os"
	"time"

	"sluice/internal/logging"
)

// Finalize reasons reported in logs and carried on finalized sessions.
const (
	ReasonIdle        = "idle"
	ReasonMaxDuration = "max_duration"
	ReasonRebind      = "rebind"
	ReasonShutdown    = "shutdown"
)

// Lifecycle decides when a bound session is done and performs the
// finalization transition: detach from the registry and hand the directory
// over for reassembly.
type Lifecycle struct {
	registry      *Registry
	idleThreshold int
	maxSession    time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// NewLifecycle builds a lifecycle manager. idleThreshold is the number of
// consecutive inactive rounds that closes a session; maxSession caps total
// session age regardless of activity.
func NewLifecycle(registry *Registry, idleThreshold int, maxSession time.Duration, logger *slog.Logger) *Lifecycle {
	if idleThreshold < 1 {
		idleThreshold = 1
	}
	return &Lifecycle{
		registry:      registry,
		idleThreshold: idleThreshold,
		maxSession:    maxSession,
		logger:        logging.NewComponentLogger(logger, "lifecycle"),
		now:           time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (lc *Lifecycle) SetClock(now func() time.Time) {
	lc.now = now
}

// Evaluate reports whether a session that just finished a round with the
// given activity state should be finalized, and why.
func (lc *Lifecycle) Evaluate(sess *Session, idleRounds int, active bool) (string, bool) {
	if lc.maxSession > 0 && lc.now().Sub(sess.CreatedAt) >= lc.maxSession {
		return ReasonMaxDuration, true
	}
	if !active && idleRounds >= lc.idleThreshold {
		return ReasonIdle, true
	}
	return "", false
}

// Finalize closes the session exactly once: it removes the registry mapping
// and returns the session for reassembly. Sessions that captured nothing are
// discarded (their empty directory removed) and nil is returned, as is the
// case when another lane already finalized the session.
func (lc *Lifecycle) Finalize(sess *Session, reason string) *Session {
	if sess == nil || !sess.MarkFinalized(reason) {
		return nil
	}
	lc.registry.Remove(sess.Target, sess.ID)

	count := sess.SegmentCount()
	if count == 0 {
		if err := os.Remove(sess.Dir); err != nil {
			lc.logger.Debug("remove empty session directory",
				logging.String(logging.FieldSessionDir, sess.Dir),
				logging.Error(err),
			)
		}
		lc.logger.Debug("discarded session with no segments",
			logging.String(logging.FieldTarget, sess.Target),
			logging.String(logging.FieldSessionID, sess.ID),
			logging.String("reason", reason),
		)
		return nil
	}

	lc.logger.Info("session finalized",
		logging.String(logging.FieldTarget, sess.Target),
		logging.String(logging.FieldSessionID, sess.ID),
		logging.String(logging.FieldSessionDir, sess.Dir),
		logging.Int("segments", count),
		logging.String("reason", reason),
		logging.String(logging.FieldEventType, "session_finalized"),
	)
	return sess
}
