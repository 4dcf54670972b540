package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains on-device directory configuration.
type Paths struct {
	DataDir       string `toml:"data_dir"`
	RecordingsDir string `toml:"recordings_dir"`
	StagingDir    string `toml:"staging_dir"`
	LogDir        string `toml:"log_dir"`
}

// Capture contains recording device and session timing configuration.
type Capture struct {
	// Backend selects the capture variant: "native" writes clips to the
	// recordings directory, "memory" keeps them in process memory.
	Backend      string   `toml:"backend"`
	FFmpegBinary string   `toml:"ffmpeg_binary"`
	InputArgs    []string `toml:"input_args"`
	// LeadInMillis is the wait between the device going live and the
	// recording indicator appearing.
	LeadInMillis int `toml:"lead_in_ms"`
	// TrailMillis is the wait between a stop request and the device stop.
	TrailMillis        int `toml:"trail_ms"`
	MaxDurationSeconds int `toml:"max_duration_seconds"`
	StopTimeoutSeconds int `toml:"stop_timeout_seconds"`
	MinFreeMiB         int `toml:"min_free_mib"`
}

// Ingest contains configuration for the remote ingestion service.
type Ingest struct {
	BaseURL        string `toml:"base_url"`
	RequestTimeout int    `toml:"request_timeout"`
	SentenceLimit  int    `toml:"sentence_limit"`
}

// Server contains configuration for the clipkeeperd ingestion server.
type Server struct {
	Bind         string `toml:"bind"`
	UploadDir    string `toml:"upload_dir"`
	PublicDir    string `toml:"public_dir"`
	DatabasePath string `toml:"database_path"`
	MaxUploadMiB int    `toml:"max_upload_mib"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clipkeeper.
//
// Configuration sections by subsystem:
//   - Paths: on-device data, recordings, staging, and log directories
//   - Capture: backend selection, ffmpeg device arguments, lead-in/trail timing
//   - Ingest: ingestion service URL used for sentences and uploads
//   - Server: clipkeeperd bind address and storage locations
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Capture Capture `toml:"capture"`
	Ingest  Ingest  `toml:"ingest"`
	Server  Server  `toml:"server"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipkeeper/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("clipkeeper.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the on-device directories used by the CLI. The
// recordings directory is created here as well so the first capture never
// races its creation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.RecordingsDir, c.Paths.StagingDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// EnsureServerDirectories creates the directories clipkeeperd writes to.
func (c *Config) EnsureServerDirectories() error {
	dirs := []string{c.Paths.LogDir, c.Server.UploadDir, filepath.Dir(c.Server.DatabasePath)}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the on-device SQLite file holding the offline queue
// and the respondent profile.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "clipkeeper.db")
}

// UploadLockPath returns the lock file guarding reconciliation passes.
func (c *Config) UploadLockPath() string {
	return filepath.Join(c.Paths.DataDir, "upload.lock")
}

// ServerLockPath returns the lock file enforcing a single clipkeeperd instance.
func (c *Config) ServerLockPath() string {
	return filepath.Join(c.Paths.LogDir, "clipkeeperd.lock")
}

// LeadIn returns the configured lead-in delay.
func (c *Config) LeadIn() time.Duration {
	return time.Duration(c.Capture.LeadInMillis) * time.Millisecond
}

// Trail returns the configured trail delay.
func (c *Config) Trail() time.Duration {
	return time.Duration(c.Capture.TrailMillis) * time.Millisecond
}

// IngestTimeout returns the per-request timeout for the ingestion client.
func (c *Config) IngestTimeout() time.Duration {
	return time.Duration(c.Ingest.RequestTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
