// Package staging sweeps the capture staging directory. The native backend
// records into staging and moves finished clips out, so anything left behind
// belongs to a capture that was interrupted by a crash or power loss.
package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipkeeper/internal/logging"
)

// DefaultMaxAge is the age past which a staging file is considered abandoned.
const DefaultMaxAge = time.Hour

// SweepResult contains the outcome of a sweep.
type SweepResult struct {
	Removed    []string
	FreedBytes int64
	Errors     []SweepError
}

// SweepError pairs a path with its removal error.
type SweepError struct {
	Path  string
	Error error
}

// SweepStale removes partial clips in stagingDir last modified before maxAge
// ago. Subdirectories are left alone.
func SweepStale(ctx context.Context, stagingDir string, maxAge time.Duration, logger *slog.Logger) SweepResult {
	var result SweepResult

	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return result
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, SweepError{Path: stagingDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(stagingDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, SweepError{Path: path, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			result.Errors = append(result.Errors, SweepError{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to remove abandoned staging clip", "staging_sweep_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		result.FreedBytes += info.Size()
		if logger != nil {
			logger.Info("removed abandoned staging clip",
				logging.String("path", path),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "staging_sweep"),
			)
		}
	}
	return result
}
