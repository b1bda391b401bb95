package config

const (
	defaultStagingDir         = "~/.local/share/sluice/staging"
	defaultOutputDir          = "~/.local/share/sluice/output"
	defaultLogDir             = "~/.local/share/sluice/logs"
	defaultLanes              = 4
	defaultRoundInterval      = 10
	defaultSettleSeconds      = 8
	defaultIdleRoundThreshold = 2
	defaultMaxSessionSeconds  = 1200
	defaultSegmentExtension   = ".ts"
	defaultSelectorTimeout    = 10
	defaultNavTimeoutSeconds  = 30
	defaultEventBuffer        = 256
	defaultFFmpegBinary       = "ffmpeg"
	defaultMaxAttempts        = 3
	defaultOutputExtension    = ".mp4"
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
		},
		Capture: Capture{
			Lanes:              defaultLanes,
			RoundInterval:      defaultRoundInterval,
			SettleSeconds:      defaultSettleSeconds,
			IdleRoundThreshold: defaultIdleRoundThreshold,
			MaxSessionSeconds:  defaultMaxSessionSeconds,
			SegmentExtension:   defaultSegmentExtension,
		},
		Selector: Selector{
			TimeoutSeconds: defaultSelectorTimeout,
		},
		Browser: Browser{
			Headless:          true,
			NavTimeoutSeconds: defaultNavTimeoutSeconds,
			EventBuffer:       defaultEventBuffer,
		},
		Reassembly: Reassembly{
			FFmpegBinary:    defaultFFmpegBinary,
			MaxAttempts:     defaultMaxAttempts,
			OutputExtension: defaultOutputExtension,
		},
		Upload: Upload{
			Secure: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
