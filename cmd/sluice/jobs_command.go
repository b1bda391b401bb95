package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sluice/internal/catalog"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List reassembled artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := catalog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()

			artifacts, err := store.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list artifacts: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(artifacts) == 0 {
				fmt.Fprintln(out, "No artifacts recorded")
				return nil
			}

			headers := []string{"ID", "Artifact", "Target", "Size", "Created", "Uploaded"}
			rows := make([][]string, 0, len(artifacts))
			for _, artifact := range artifacts {
				rows = append(rows, []string{
					strconv.FormatInt(artifact.ID, 10),
					artifact.Name,
					artifact.Target,
					formatSize(artifact.SizeBytes),
					artifact.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					formatUpload(artifact),
				})
			}

			if isTerminal(out) {
				fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{
					alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft,
				}))
				return nil
			}
			// Plain tab-separated output when piped.
			fmt.Fprintln(out, strings.Join(headers, "\t"))
			for _, row := range rows {
				fmt.Fprintln(out, strings.Join(row, "\t"))
			}
			return nil
		},
	}
}

func formatUpload(artifact *catalog.Artifact) string {
	if artifact.UploadedAt.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", artifact.ObjectKey, artifact.UploadedAt.Local().Format(time.DateTime))
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
