package config

const (
	defaultDataDir            = "~/.local/share/clipkeeper"
	defaultRecordingsDir      = "~/.local/share/clipkeeper/recordings"
	defaultStagingDir         = "~/.local/share/clipkeeper/staging"
	defaultLogDir             = "~/.local/share/clipkeeper/logs"
	defaultCaptureBackend     = BackendNative
	defaultFFmpegBinary       = "ffmpeg"
	defaultLeadInMillis       = 200
	defaultTrailMillis        = 200
	minPaddingMillis          = 200
	defaultMaxDurationSeconds = 60
	defaultStopTimeoutSeconds = 10
	defaultMinFreeMiB         = 512
	defaultIngestBaseURL      = "http://127.0.0.1:3001"
	defaultIngestTimeout      = 60
	defaultSentenceLimit      = 50
	defaultServerBind         = "0.0.0.0:3001"
	defaultServerUploadDir    = "~/.local/share/clipkeeper/server/uploads"
	defaultServerDatabase     = "~/.local/share/clipkeeper/server/dataset.db"
	defaultServerMaxUploadMiB = 50
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Capture backend identifiers.
const (
	BackendNative = "native"
	BackendMemory = "memory"
)

var defaultInputArgs = []string{
	"-f", "v4l2", "-i", "/dev/video0",
	"-f", "alsa", "-i", "default",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	inputArgs := make([]string, len(defaultInputArgs))
	copy(inputArgs, defaultInputArgs)
	return Config{
		Paths: Paths{
			DataDir:       defaultDataDir,
			RecordingsDir: defaultRecordingsDir,
			StagingDir:    defaultStagingDir,
			LogDir:        defaultLogDir,
		},
		Capture: Capture{
			Backend:            defaultCaptureBackend,
			FFmpegBinary:       defaultFFmpegBinary,
			InputArgs:          inputArgs,
			LeadInMillis:       defaultLeadInMillis,
			TrailMillis:        defaultTrailMillis,
			MaxDurationSeconds: defaultMaxDurationSeconds,
			StopTimeoutSeconds: defaultStopTimeoutSeconds,
			MinFreeMiB:         defaultMinFreeMiB,
		},
		Ingest: Ingest{
			BaseURL:        defaultIngestBaseURL,
			RequestTimeout: defaultIngestTimeout,
			SentenceLimit:  defaultSentenceLimit,
		},
		Server: Server{
			Bind:         defaultServerBind,
			UploadDir:    defaultServerUploadDir,
			DatabasePath: defaultServerDatabase,
			MaxUploadMiB: defaultServerMaxUploadMiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
