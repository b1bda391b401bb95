package capture

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"sluice/internal/logging"
)

// FetchEvent is one observed network fetch from the monitored page: the
// request URL and the response payload.
type FetchEvent struct {
	URL  string
	Body []byte
}

// Interceptor filters fetch events down to segment deliveries and persists
// unique segments into the active session directory. File names carry a
// monotonically increasing arrival prefix so a lexicographic sort of the
// directory reproduces exact arrival order.
type Interceptor struct {
	ext    string
	logger *slog.Logger
}

// NewInterceptor builds an interceptor for segments with the given file
// extension (".ts" by convention).
func NewInterceptor(ext string, logger *slog.Logger) *Interceptor {
	return &Interceptor{
		ext:    ext,
		logger: logging.NewComponentLogger(logger, "interceptor"),
	}
}

// Observe handles one fetch event against the given session. It returns true
// when a new segment file was written. Duplicates, zero-byte payloads, and
// URLs that are not segment shaped are all skipped without marking activity;
// a zero-byte payload in particular leaves the sequence number unseen so a
// later delivery can be captured.
func (i *Interceptor) Observe(sess *Session, ev FetchEvent) (bool, error) {
	seq, ok := SequenceFromURL(ev.URL, i.ext)
	if !ok {
		return false, nil
	}

	if len(ev.Body) == 0 {
		i.logger.Debug("empty segment payload, leaving eligible for replay",
			logging.String("url", ev.URL),
			logging.String(logging.FieldSessionID, sess.ID),
		)
		return false, nil
	}

	idx, fresh := sess.claim(seq)
	if !fresh {
		return false, nil
	}

	name := fmt.Sprintf("%08d_%d%s", idx, seq, i.ext)
	if err := os.WriteFile(filepath.Join(sess.Dir, name), ev.Body, 0o644); err != nil {
		sess.release(seq)
		return false, fmt.Errorf("write segment %s: %w", name, err)
	}

	i.logger.Debug("segment captured",
		logging.String(logging.FieldSessionID, sess.ID),
		logging.Int64("sequence", int64(seq)),
		logging.Int("bytes", len(ev.Body)),
	)
	return true, nil
}

// SequenceFromURL extracts the segment sequence number from a URL: the digits
// between the last underscore of the path basename and the extension. The
// query string is ignored. It reports false for URLs that do not look like
// segments.
func SequenceFromURL(url, ext string) (uint64, bool) {
	path := url
	if cut := strings.IndexByte(path, '?'); cut >= 0 {
		path = path[:cut]
	}
	if !strings.HasSuffix(path, ext) {
		return 0, false
	}
	base := path[strings.LastIndexByte(path, '/')+1:]
	stem := strings.TrimSuffix(base, ext)
	underscore := strings.LastIndexByte(stem, '_')
	if underscore < 0 {
		return 0, false
	}
	seq, err := strconv.ParseUint(stem[underscore+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}
