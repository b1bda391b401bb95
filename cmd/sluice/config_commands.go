package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sluice/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand())
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}

			if overwrite {
				if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("remove existing config: %w", err)
				}
			}

			if err := config.WriteSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set the selector service or a static target list before running Sluice.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Staging dir:       %s\n", cfg.Paths.StagingDir)
			fmt.Fprintf(out, "Output dir:        %s\n", cfg.Paths.OutputDir)
			fmt.Fprintf(out, "Log dir:           %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "Lanes:             %d (offset %d)\n", cfg.Capture.Lanes, cfg.Capture.LaneOffset)
			fmt.Fprintf(out, "Round interval:    %ds (settle %ds)\n", cfg.Capture.RoundInterval, cfg.Capture.SettleSeconds)
			fmt.Fprintf(out, "Idle threshold:    %d rounds\n", cfg.Capture.IdleRoundThreshold)
			fmt.Fprintf(out, "Max session:       %ds\n", cfg.Capture.MaxSessionSeconds)
			fmt.Fprintf(out, "Segment extension: %s\n", cfg.Capture.SegmentExtension)
			if len(cfg.Selector.Targets) > 0 {
				fmt.Fprintf(out, "Selector:          static (%s)\n", strings.Join(cfg.Selector.Targets, ", "))
			} else {
				fmt.Fprintf(out, "Selector:          %s\n", cfg.Selector.BaseURL)
			}
			fmt.Fprintf(out, "Page template:     %s\n", cfg.Browser.PageURLTemplate)
			fmt.Fprintf(out, "Headless:          %s\n", yesNo(cfg.Browser.Headless))
			fmt.Fprintf(out, "FFmpeg:            %s (max %d attempts)\n", cfg.Reassembly.FFmpegBinary, cfg.Reassembly.MaxAttempts)
			fmt.Fprintf(out, "Upload enabled:    %s\n", yesNo(cfg.Upload.Enabled))
			if cfg.Upload.Enabled {
				fmt.Fprintf(out, "Upload bucket:     %s @ %s\n", cfg.Upload.Bucket, cfg.Upload.Endpoint)
			}
			fmt.Fprintf(out, "Notifications:     %s\n", yesNo(strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""))
			return nil
		},
	}
}
