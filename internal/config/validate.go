package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateSelector(); err != nil {
		return err
	}
	if err := c.validateBrowser(); err != nil {
		return err
	}
	if err := c.validateReassembly(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCapture() error {
	if c.Capture.Lanes < 1 {
		return errors.New("capture.lanes must be at least 1")
	}
	if c.Capture.LaneOffset < 0 {
		return errors.New("capture.lane_offset must not be negative")
	}
	if c.Capture.SettleSeconds > c.Capture.RoundInterval {
		return fmt.Errorf("capture.settle_seconds (%d) must not exceed capture.round_interval_seconds (%d)",
			c.Capture.SettleSeconds, c.Capture.RoundInterval)
	}
	if c.Capture.MaxRunSeconds < 0 {
		return errors.New("capture.max_run_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateSelector() error {
	if len(c.Selector.Targets) > 0 {
		return nil
	}
	if c.Selector.BaseURL == "" {
		return errors.New("selector.base_url or selector.targets must be set (create a config with 'sluice config init')")
	}
	if !strings.HasPrefix(c.Selector.BaseURL, "http://") && !strings.HasPrefix(c.Selector.BaseURL, "https://") {
		return fmt.Errorf("selector.base_url must be an http(s) URL, got %q", c.Selector.BaseURL)
	}
	return nil
}

func (c *Config) validateBrowser() error {
	template := strings.TrimSpace(c.Browser.PageURLTemplate)
	if template == "" {
		return errors.New("browser.page_url_template must be set")
	}
	if !strings.Contains(template, "%s") {
		return fmt.Errorf("browser.page_url_template must contain a %%s placeholder for the target name, got %q", template)
	}
	return nil
}

func (c *Config) validateReassembly() error {
	if c.Reassembly.MaxAttempts < 1 {
		return errors.New("reassembly.max_attempts must be at least 1")
	}
	return nil
}

func (c *Config) validateUpload() error {
	if !c.Upload.Enabled {
		return nil
	}
	missing := make([]string, 0, 4)
	if strings.TrimSpace(c.Upload.Endpoint) == "" {
		missing = append(missing, "upload.endpoint (or R2_ENDPOINT)")
	}
	if strings.TrimSpace(c.Upload.AccessKey) == "" {
		missing = append(missing, "upload.access_key (or R2_ACCESS_KEY)")
	}
	if strings.TrimSpace(c.Upload.SecretKey) == "" {
		missing = append(missing, "upload.secret_key (or R2_SECRET_KEY)")
	}
	if strings.TrimSpace(c.Upload.Bucket) == "" {
		missing = append(missing, "upload.bucket (or R2_BUCKET)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("upload.enabled is true but required settings are missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
