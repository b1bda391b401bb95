package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/spf13/cobra"

	"sluice/internal/logging"
	"sluice/internal/reassembly"
)

// sessionDirSuffix matches the short session id appended to directory names.
var sessionDirSuffix = regexp.MustCompile(`-[0-9a-f]{8}$`)

// findStagedArtifact looks for an artifact the original run staged next to
// the session directory before it stopped. Reusing its name lets the
// pipeline's pre-existing-artifact check complete the job without invoking
// the concat tool again. The newest non-empty match wins.
func findStagedArtifact(sessionDir, target, ext string) string {
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(sessionDir), target+"-*"+ext))
	if err != nil {
		return ""
	}
	var name string
	var newest time.Time
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() || info.Size() == 0 {
			continue
		}
		if name == "" || info.ModTime().After(newest) {
			name = filepath.Base(match)
			newest = info.ModTime()
		}
	}
	return name
}

func newReassembleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reassemble <session-dir>",
		Short: "Reassemble a preserved session directory",
		Long: "Reassemble runs the concat step against a session directory left behind\n" +
			"by an exhausted job, producing the artifact in the configured output\n" +
			"directory. Segments are concatenated in capture arrival order.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			dir, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve session directory: %w", err)
			}
			info, err := os.Stat(dir)
			if err != nil {
				return fmt.Errorf("session directory: %w", err)
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			target := sessionDirSuffix.ReplaceAllString(filepath.Base(dir), "")
			pipeline := reassembly.NewPipeline(
				cfg.Reassembly.FFmpegBinary,
				cfg.Paths.OutputDir,
				cfg.Reassembly.MaxAttempts,
				logger,
			)
			job := reassembly.NewJob(filepath.Base(dir), target, dir, time.Now().UTC(), cfg.Reassembly.OutputExtension)
			if staged := findStagedArtifact(dir, target, cfg.Reassembly.OutputExtension); staged != "" {
				job.ArtifactName = staged
			}

			if err := pipeline.Run(cmd.Context(), job); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reassembled %s (%d attempts)\n", job.OutputPath, job.Attempts)
			return nil
		},
	}
}
