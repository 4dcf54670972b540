package preflight

import (
	"context"

	"clipkeeper/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunLocal executes the checks that need no network access.
func RunLocal(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
	}

	// Recordings only land on disk for the native backend.
	if cfg.Capture.Backend != config.BackendMemory {
		results = append(results, CheckDirectoryAccess("Recordings directory", cfg.Paths.RecordingsDir))
		results = append(results, CheckFreeSpace("Free space", cfg.Paths.RecordingsDir, cfg.Capture.MinFreeMiB))
	}

	results = append(results, CheckCaptureBinaries(cfg)...)
	return results
}

// RunAll executes the local checks followed by the ingestion endpoint check.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := RunLocal(cfg)
	return append(results, CheckIngest(ctx, cfg.Ingest.BaseURL))
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
