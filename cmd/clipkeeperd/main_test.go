package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"clipkeeper/internal/config"
	"clipkeeper/internal/ingestserver"
	"clipkeeper/internal/testsupport"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := cfg.EnsureServerDirectories(); err != nil {
		t.Fatal(err)
	}
	return cfg, path
}

func TestServeUntilCancelled(t *testing.T) {
	cfg, _ := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrs := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, cfg, func(addr string) { addrs <- addr })
	}()

	var addr string
	select {
	case addr = <-addrs:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServeRefusesSecondInstance(t *testing.T) {
	cfg, _ := testConfig(t)
	held := flock.New(cfg.ServerLockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock = %v, %v", ok, err)
	}
	defer held.Unlock()

	err = serve(context.Background(), cfg, nil)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock conflict, got %v", err)
	}
}

func TestImportCommand(t *testing.T) {
	cfg, configPath := testConfig(t)
	file := filepath.Join(t.TempDir(), "sentences.json")
	if err := os.WriteFile(file, []byte(`[{"text":"Selamat pagi","category":"Greeting"},{"text":"Terima kasih"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", configPath, "import", file})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out.String(), "Imported 2 sentences") {
		t.Fatalf("unexpected output %q", out.String())
	}

	dataset, err := ingestserver.OpenDataset(cfg.Server.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	defer dataset.Close()
	sentences, _, err := dataset.Counts(context.Background())
	if err != nil || sentences != 2 {
		t.Fatalf("Counts = %d, %v", sentences, err)
	}
}

func TestReadSentenceFileRejectsBlankText(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sentences.json")
	if err := os.WriteFile(file, []byte(`[{"text":"ok"},{"text":""}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readSentenceFile(file); err == nil || !strings.Contains(err.Error(), "sentence 2") {
		t.Fatalf("expected validation error for entry 2, got %v", err)
	}
}
