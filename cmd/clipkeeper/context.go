package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"clipkeeper/internal/capture"
	"clipkeeper/internal/config"
	"clipkeeper/internal/ingest"
	"clipkeeper/internal/kvstore"
	"clipkeeper/internal/logging"
	"clipkeeper/internal/profile"
	"clipkeeper/internal/queue"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

// deviceStores groups the on-device state shared by the session, queue, and
// upload commands.
type deviceStores struct {
	kv       *kvstore.Store
	queue    *queue.Store
	profiles *profile.Store
	buffers  *capture.BufferRegistry
}

func (d *deviceStores) resources() capture.Resources {
	return capture.Resources{Buffers: d.buffers}
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// loggerValue returns the file-only CLI logger. Failures fall back to a
// no-op logger; stdout belongs to the command output.
func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg, "clipkeeper", false)
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	return c.logger
}

// openStores opens the device database and loads the queue. Memory clips
// live in the returned buffers until the process exits.
func (c *commandContext) openStores(ctx context.Context) (*deviceStores, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	kv, err := kvstore.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open device database: %w", err)
	}
	buffers := capture.NewBufferRegistry()
	q := queue.NewStore(kv, capture.Resources{Buffers: buffers}, c.loggerValue())
	if err := q.Load(ctx); err != nil {
		_ = kv.Close()
		return nil, err
	}
	return &deviceStores{
		kv:       kv,
		queue:    q,
		profiles: profile.NewStore(kv),
		buffers:  buffers,
	}, nil
}

func (c *commandContext) withStores(ctx context.Context, fn func(*deviceStores) error) error {
	device, err := c.openStores(ctx)
	if err != nil {
		return err
	}
	defer device.kv.Close()
	return fn(device)
}

func (c *commandContext) ingestClient() (*ingest.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return ingest.NewClient(cfg.Ingest.BaseURL, cfg.IngestTimeout(), c.loggerValue()), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
