package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipkeeper/internal/config"
	"clipkeeper/internal/logging"
)

func TestNewFromConfigWritesNamedFileOnly(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg, "clipkeeper", false)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("session ready", logging.Int("prompts", 3))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "clipkeeper.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "session ready prompts=3") {
		t.Fatalf("unexpected log content %q", content)
	}
}

func TestConsoleLoggerHoistsComponent(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "queue").Info("item appended", logging.String(logging.FieldItemID, "17"))
	logger.Debug("hidden")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "INFO queue [17]: item appended\n") {
		t.Fatalf("expected component and item in header, got %q", line)
	}
	if strings.Contains(line, "hidden") {
		t.Fatalf("debug line should be filtered at info level: %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestConsoleHeaderCarriesSessionSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	session := logging.NewComponentLogger(logger, "session")
	session.Info("clip captured",
		logging.String(logging.FieldItemID, "1700000000000"),
		logging.String(logging.FieldPhase, "processing"),
		logging.Int64(logging.FieldSentenceID, 7),
	)
	session.WithGroup("device").Info("armed", logging.String(logging.FieldPhase, "arming"), logging.String("input", "/dev/video0"))
	logger.Info("no subject", logging.String("note", "two words"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", content)
	}
	if !strings.HasSuffix(lines[0], "INFO session [1700000000000 processing]: clip captured sentence_id=7") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	// Grouped keys are not subject keys.
	if !strings.HasSuffix(lines[1], "INFO session: armed device.phase=arming device.input=/dev/video0") {
		t.Fatalf("unexpected grouped line %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], `INFO no subject note="two words"`) {
		t.Fatalf("unexpected plain line %q", lines[2])
	}
}

func TestJSONLoggerIncludesContextFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{
		Format:           "json",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithItemID(context.Background(), "1700000000000")
	logging.WarnWithContext(logging.WithContext(ctx, logger), "upload failed", "upload_failed", logging.Error(errors.New("boom")))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(content, &entry); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	if entry["level"] != "warn" {
		t.Fatalf("unexpected level %v", entry["level"])
	}
	if entry[logging.FieldItemID] != "1700000000000" {
		t.Fatalf("expected item id field, got %v", entry)
	}
	if entry[logging.FieldEventType] != "upload_failed" || entry[logging.FieldErrorHint] == nil {
		t.Fatalf("expected event type and hint defaults, got %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
