package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCapture() error {
	switch c.Capture.Backend {
	case BackendNative, BackendMemory:
	default:
		return fmt.Errorf("capture.backend must be %q or %q, got %q", BackendNative, BackendMemory, c.Capture.Backend)
	}
	if len(c.Capture.InputArgs) == 0 {
		return errors.New("capture.input_args must include at least one ffmpeg input")
	}
	if c.Capture.LeadInMillis < minPaddingMillis {
		return fmt.Errorf("capture.lead_in_ms must be >= %d", minPaddingMillis)
	}
	if c.Capture.TrailMillis < minPaddingMillis {
		return fmt.Errorf("capture.trail_ms must be >= %d", minPaddingMillis)
	}
	if c.Capture.MaxDurationSeconds < 0 {
		return errors.New("capture.max_duration_seconds must be >= 0")
	}
	if c.Capture.MinFreeMiB < 0 {
		return errors.New("capture.min_free_mib must be >= 0")
	}
	return nil
}

func (c *Config) validateIngest() error {
	parsed, err := url.Parse(c.Ingest.BaseURL)
	if err != nil {
		return fmt.Errorf("ingest.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("ingest.base_url must use http or https, got %q", c.Ingest.BaseURL)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return fmt.Errorf("ingest.base_url must include a host, got %q", c.Ingest.BaseURL)
	}
	return ensurePositiveMap(map[string]int{
		"ingest.request_timeout": c.Ingest.RequestTimeout,
		"ingest.sentence_limit":  c.Ingest.SentenceLimit,
	})
}

func (c *Config) validateServer() error {
	if !strings.Contains(c.Server.Bind, ":") {
		return fmt.Errorf("server.bind must be host:port, got %q", c.Server.Bind)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
