package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCapture()
	c.normalizeSelector()
	c.normalizeReassembly()
	c.normalizeUpload()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCapture() {
	if c.Capture.Lanes <= 0 {
		c.Capture.Lanes = defaultLanes
	}
	if c.Capture.RoundInterval <= 0 {
		c.Capture.RoundInterval = defaultRoundInterval
	}
	if c.Capture.SettleSeconds <= 0 {
		c.Capture.SettleSeconds = defaultSettleSeconds
	}
	if c.Capture.IdleRoundThreshold <= 0 {
		c.Capture.IdleRoundThreshold = defaultIdleRoundThreshold
	}
	if c.Capture.MaxSessionSeconds <= 0 {
		c.Capture.MaxSessionSeconds = defaultMaxSessionSeconds
	}
	ext := strings.TrimSpace(c.Capture.SegmentExtension)
	if ext == "" {
		ext = defaultSegmentExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	c.Capture.SegmentExtension = ext
}

func (c *Config) normalizeSelector() {
	c.Selector.BaseURL = strings.TrimRight(strings.TrimSpace(c.Selector.BaseURL), "/")
	if c.Selector.TimeoutSeconds <= 0 {
		c.Selector.TimeoutSeconds = defaultSelectorTimeout
	}
	targets := c.Selector.Targets[:0]
	for _, target := range c.Selector.Targets {
		if trimmed := strings.TrimSpace(target); trimmed != "" {
			targets = append(targets, trimmed)
		}
	}
	c.Selector.Targets = targets
}

func (c *Config) normalizeReassembly() {
	if strings.TrimSpace(c.Reassembly.FFmpegBinary) == "" {
		c.Reassembly.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Reassembly.MaxAttempts <= 0 {
		c.Reassembly.MaxAttempts = defaultMaxAttempts
	}
	ext := strings.TrimSpace(c.Reassembly.OutputExtension)
	if ext == "" {
		ext = defaultOutputExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	c.Reassembly.OutputExtension = ext
}

// normalizeUpload fills credentials from the environment when the config file
// leaves them blank. The variable names match the R2 deployment this daemon
// originally shipped against.
func (c *Config) normalizeUpload() {
	if c.Upload.Endpoint == "" {
		c.Upload.Endpoint = os.Getenv("R2_ENDPOINT")
	}
	if c.Upload.AccessKey == "" {
		c.Upload.AccessKey = os.Getenv("R2_ACCESS_KEY")
	}
	if c.Upload.SecretKey == "" {
		c.Upload.SecretKey = os.Getenv("R2_SECRET_KEY")
	}
	if c.Upload.Bucket == "" {
		c.Upload.Bucket = os.Getenv("R2_BUCKET")
	}
	c.Upload.Endpoint = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(c.Upload.Endpoint), "https://"), "http://")
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
