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
	c.normalizeIngest()
	if err := c.normalizeServer(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.RecordingsDir) == "" {
		c.Paths.RecordingsDir = defaultRecordingsDir
	}
	if c.Paths.RecordingsDir, err = expandPath(c.Paths.RecordingsDir); err != nil {
		return fmt.Errorf("paths.recordings_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
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
	c.Capture.Backend = strings.ToLower(strings.TrimSpace(c.Capture.Backend))
	if c.Capture.Backend == "" {
		c.Capture.Backend = defaultCaptureBackend
	}
	c.Capture.FFmpegBinary = strings.TrimSpace(c.Capture.FFmpegBinary)
	if c.Capture.FFmpegBinary == "" {
		c.Capture.FFmpegBinary = defaultFFmpegBinary
	}
	args := make([]string, 0, len(c.Capture.InputArgs))
	for _, arg := range c.Capture.InputArgs {
		if arg = strings.TrimSpace(arg); arg != "" {
			args = append(args, arg)
		}
	}
	c.Capture.InputArgs = args
	if c.Capture.StopTimeoutSeconds <= 0 {
		c.Capture.StopTimeoutSeconds = defaultStopTimeoutSeconds
	}
}

func (c *Config) normalizeIngest() {
	if value, ok := os.LookupEnv("CLIPKEEPER_INGEST_URL"); ok && strings.TrimSpace(value) != "" {
		c.Ingest.BaseURL = value
	}
	c.Ingest.BaseURL = strings.TrimRight(strings.TrimSpace(c.Ingest.BaseURL), "/")
	if c.Ingest.BaseURL == "" {
		c.Ingest.BaseURL = defaultIngestBaseURL
	}
	if c.Ingest.SentenceLimit <= 0 {
		c.Ingest.SentenceLimit = defaultSentenceLimit
	}
}

func (c *Config) normalizeServer() error {
	if value, ok := os.LookupEnv("CLIPKEEPER_SERVER_BIND"); ok && strings.TrimSpace(value) != "" {
		c.Server.Bind = value
	}
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	var err error
	if strings.TrimSpace(c.Server.UploadDir) == "" {
		c.Server.UploadDir = defaultServerUploadDir
	}
	if c.Server.UploadDir, err = expandPath(c.Server.UploadDir); err != nil {
		return fmt.Errorf("server.upload_dir: %w", err)
	}
	if strings.TrimSpace(c.Server.DatabasePath) == "" {
		c.Server.DatabasePath = defaultServerDatabase
	}
	if c.Server.DatabasePath, err = expandPath(c.Server.DatabasePath); err != nil {
		return fmt.Errorf("server.database_path: %w", err)
	}
	if c.Server.PublicDir, err = expandPath(strings.TrimSpace(c.Server.PublicDir)); err != nil {
		return fmt.Errorf("server.public_dir: %w", err)
	}
	if c.Server.MaxUploadMiB <= 0 {
		c.Server.MaxUploadMiB = defaultServerMaxUploadMiB
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
