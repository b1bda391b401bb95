package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Session is the capture state for one continuous binding of a target: the
// on-disk directory segments land in, the dedup set of sequence numbers, and
// the arrival counter that fixes segment order. A session may be shared by two
// lanes after a registry merge, so all mutable state is guarded.
type Session struct {
	ID        string
	Target    string
	Dir       string
	CreatedAt time.Time

	mu        sync.Mutex
	seen      map[uint64]struct{}
	counter   uint64
	finalized bool
	reason    string
}

// NewSession allocates a session for target and creates its directory under
// stagingDir.
func NewSession(target, stagingDir string, now time.Time) (*Session, error) {
	id := uuid.NewString()
	dir := filepath.Join(stagingDir, fmt.Sprintf("%s-%s", NormalizeTarget(target), id[:8]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &Session{
		ID:        id,
		Target:    target,
		Dir:       dir,
		CreatedAt: now,
		seen:      make(map[uint64]struct{}),
	}, nil
}

// claim reserves a sequence number and returns its arrival index. It reports
// false for duplicates and for sessions already finalized.
func (s *Session) claim(seq uint64) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return 0, false
	}
	if _, dup := s.seen[seq]; dup {
		return 0, false
	}
	idx := s.counter
	s.counter++
	s.seen[seq] = struct{}{}
	return idx, true
}

// release undoes a claim whose segment write failed, so the sequence number
// stays eligible for replay.
func (s *Session) release(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, seq)
}

// SegmentCount reports how many unique segments the session holds.
func (s *Session) SegmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// ArrivalCount reports how many segments have arrived so far. The counter
// only grows, so any observer can detect activity by comparing two readings;
// nothing is consumed, which keeps the check safe for lanes sharing a merged
// session.
func (s *Session) ArrivalCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

// MarkFinalized flips the session to finalized and records why. It returns
// true only for the caller that performed the transition, which makes shutdown
// draining and cross-lane detachment exactly-once.
func (s *Session) MarkFinalized(reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return false
	}
	s.finalized = true
	s.reason = reason
	return true
}

// FinalizeReason reports why the session was finalized, empty while open.
func (s *Session) FinalizeReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Finalized reports whether the session has been finalized.
func (s *Session) Finalized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalized
}

// NormalizeTarget produces the canonical form of a target name used for
// registry keys and directory names: NFC-normalized, trimmed, with anything
// outside [a-zA-Z0-9._-] replaced by '-'.
func NormalizeTarget(target string) string {
	target = norm.NFC.String(strings.TrimSpace(target))
	var sb strings.Builder
	sb.Grow(len(target))
	for _, r := range target {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteByte('-')
		}
	}
	return sb.String()
}
