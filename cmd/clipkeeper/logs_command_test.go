package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogsShowsTrailingLines(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(env.cfg.Paths.LogDir, "clipkeeperd.log")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, env.configPath, "logs", "--server", "-n", "2")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.TrimSpace(out) != "two\nthree" {
		t.Fatalf("unexpected output %q", out)
	}
}
