package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"clipkeeper/internal/config"
	"clipkeeper/internal/deps"
	"clipkeeper/internal/ingest"
)

const ingestCheckTimeout = 5 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// minMiB mebibytes available. A zero minimum always passes.
func CheckFreeSpace(name, path string, minMiB int) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := freeMiB(stat)
	if minMiB > 0 && free < uint64(minMiB) {
		return Result{Name: name, Detail: fmt.Sprintf("%d MiB free, need %d MiB", free, minMiB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d MiB free", free)}
}

func freeMiB(stat unix.Statfs_t) uint64 {
	return uint64(stat.Bavail) * uint64(stat.Bsize) / (1 << 20)
}

// CheckCaptureBinaries reports on the external tools the capture device
// needs. The memory backend still records through ffmpeg.
func CheckCaptureBinaries(cfg *config.Config) []Result {
	statuses := deps.CheckBinaries(deps.CaptureRequirements(cfg))
	results := make([]Result, 0, len(statuses))
	for _, status := range statuses {
		result := Result{Name: status.Name, Passed: status.Available || status.Optional}
		switch {
		case status.Available:
			result.Detail = status.Command
		case status.Optional:
			result.Detail = status.Detail + " (optional)"
		default:
			result.Detail = status.Detail
		}
		results = append(results, result)
	}
	return results
}

// CheckIngest verifies that the ingestion endpoint answers a sentence request.
func CheckIngest(ctx context.Context, baseURL string) Result {
	const name = "Ingestion service"

	base := strings.TrimSpace(baseURL)
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, ingestCheckTimeout)
	defer cancel()

	client := ingest.NewClient(base, ingestCheckTimeout, nil)
	if _, err := client.FetchSentences(checkCtx, 1); err != nil {
		return Result{Name: name, Detail: summarizeIngestError(err)}
	}
	return Result{Name: name, Passed: true, Detail: base + " reachable"}
}

func summarizeIngestError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (ingestion service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (ingestion service unreachable)"
	}
	return err.Error()
}
