package reassembly

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"sluice/internal/fileutil"
	"sluice/internal/logging"
	"sluice/internal/services"
)

var commandContext = exec.CommandContext

const manifestName = "segments.ffconcat"

// Pipeline turns finalized session directories into single ordered artifacts
// via the external concat tool. Retries are bounded and idempotent: a job
// whose artifact already exists on disk completes without re-invoking the
// tool, and an exhausted job leaves the session directory untouched for
// manual recovery.
type Pipeline struct {
	binary      string
	outputDir   string
	maxAttempts int
	logger      *slog.Logger
}

// NewPipeline builds a pipeline invoking the given ffmpeg binary and moving
// finished artifacts into outputDir.
func NewPipeline(binary, outputDir string, maxAttempts int, logger *slog.Logger) *Pipeline {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Pipeline{
		binary:      binary,
		outputDir:   outputDir,
		maxAttempts: maxAttempts,
		logger:      logging.NewComponentLogger(logger, "reassembly"),
	}
}

// Run executes the job to completion: manifest, bounded concat attempts, and
// on success the move-and-cleanup step. The job's Status and Attempts fields
// reflect the outcome.
func (p *Pipeline) Run(ctx context.Context, job *Job) error {
	job.Status = StatusRunning

	segments, err := listSegments(job.SessionDir)
	if err != nil {
		job.Status = StatusExhausted
		return services.Wrap(services.ErrValidation, "reassembly", "list segments", job.SessionDir, err)
	}
	if len(segments) == 0 {
		job.Status = StatusExhausted
		return services.Wrap(services.ErrValidation, "reassembly", "list segments", "session directory holds no segments", nil)
	}

	manifest := filepath.Join(job.SessionDir, manifestName)
	if err := writeManifest(manifest, segments); err != nil {
		job.Status = StatusExhausted
		return services.Wrap(services.ErrValidation, "reassembly", "write manifest", "", err)
	}

	staged := filepath.Join(filepath.Dir(job.SessionDir), job.ArtifactName)

	var lastErr error
	for job.Attempts < p.maxAttempts {
		// A prior attempt (or a crashed prior run) may already have produced
		// the artifact; never treat that as a failure.
		if artifactReady(staged) {
			return p.succeed(job, staged, manifest)
		}

		job.Attempts++
		if err := p.invoke(ctx, manifest, staged); err != nil {
			lastErr = err
			p.logger.Warn("concat attempt failed",
				logging.String(logging.FieldSessionID, job.SessionID),
				logging.Int("attempt", job.Attempts),
				logging.Error(err),
			)
			continue
		}
		if artifactReady(staged) {
			return p.succeed(job, staged, manifest)
		}
		lastErr = fmt.Errorf("tool exited cleanly but artifact %s is missing", staged)
	}

	if artifactReady(staged) {
		return p.succeed(job, staged, manifest)
	}

	job.Status = StatusExhausted
	p.logger.Error("reassembly exhausted, keeping session directory for manual recovery",
		logging.String(logging.FieldSessionID, job.SessionID),
		logging.String(logging.FieldTarget, job.Target),
		logging.String(logging.FieldSessionDir, job.SessionDir),
		logging.Int("attempts", job.Attempts),
		logging.String(logging.FieldEventType, "reassembly_exhausted"),
		logging.String(logging.FieldErrorHint, "run 'sluice reassemble <dir>' after fixing the cause"),
	)
	return services.Wrap(services.ErrExternalTool, "reassembly", "concat", job.SessionDir, lastErr)
}

func (p *Pipeline) invoke(ctx context.Context, manifest, artifact string) error {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
		"-f", "concat", "-safe", "0",
		"-i", manifest,
		"-c", "copy",
		artifact,
	}
	cmd := commandContext(ctx, p.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return fmt.Errorf("%s: %w: %s", p.binary, err, detail)
		}
		return fmt.Errorf("%s: %w", p.binary, err)
	}
	return nil
}

func (p *Pipeline) succeed(job *Job, staged, manifest string) error {
	final := filepath.Join(p.outputDir, job.ArtifactName)
	if err := fileutil.MoveFile(staged, final); err != nil {
		return services.Wrap(services.ErrTransient, "reassembly", "move artifact", final, err)
	}

	if err := os.Remove(manifest); err != nil && !os.IsNotExist(err) {
		p.logger.Warn("remove manifest", logging.String("path", manifest), logging.Error(err))
	}
	if err := os.RemoveAll(job.SessionDir); err != nil {
		p.logger.Warn("remove session directory", logging.String(logging.FieldSessionDir, job.SessionDir), logging.Error(err))
	}

	job.Status = StatusSucceeded
	job.OutputPath = final
	p.logger.Info("reassembly complete",
		logging.String(logging.FieldSessionID, job.SessionID),
		logging.String(logging.FieldTarget, job.Target),
		logging.String("artifact", final),
		logging.Int("attempts", job.Attempts),
		logging.String(logging.FieldEventType, "reassembly_succeeded"),
	)
	return nil
}

// listSegments returns the session's segment file names sorted
// lexicographically, which reproduces capture arrival order.
func listSegments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == manifestName {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func writeManifest(path string, segments []string) error {
	var sb strings.Builder
	sb.WriteString("ffconcat version 1.0\n")
	for _, name := range segments {
		sb.WriteString("file '")
		sb.WriteString(name)
		sb.WriteString("'\n")
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

func artifactReady(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
