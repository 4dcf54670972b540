package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"clipkeeper/internal/capture"
	"clipkeeper/internal/config"
	"clipkeeper/internal/profile"
	"clipkeeper/internal/queue"
	"clipkeeper/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	cfg.Capture.FFmpegBinary = "sh"
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

// seedQueue appends native clips for each sentence text directly through
// the stores, the way a finished session leaves them.
func seedQueue(t *testing.T, cfg *config.Config, texts ...string) []queue.Item {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	kv := testsupport.MustOpenKVAt(t, cfg.DatabasePath())
	q := testsupport.MustLoadQueue(t, kv, capture.Resources{})

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	items := make([]queue.Item, 0, len(texts))
	for i, text := range texts {
		clip := filepath.Join(cfg.Paths.RecordingsDir, "clip-"+text+".mp4")
		if err := os.WriteFile(clip, []byte("mp4:"+text), 0o644); err != nil {
			t.Fatal(err)
		}
		item := queue.Item{
			ID:         base.Add(time.Duration(i) * time.Second).Format("150405"),
			Resource:   capture.Handle(clip),
			SentenceID: int64(i + 1),
			Text:       text,
			Metadata:   profile.Profile{Name: "Budi", Age: "40", Gender: profile.GenderMale},
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
		if err := q.Append(context.Background(), item); err != nil {
			t.Fatalf("Append: %v", err)
		}
		items = append(items, item)
	}
	if err := kv.Close(); err != nil {
		t.Fatalf("close kv: %v", err)
	}
	return items
}
