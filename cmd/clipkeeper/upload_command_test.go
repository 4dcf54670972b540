package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"clipkeeper/internal/ingest"
	"clipkeeper/internal/ingestserver"
	"clipkeeper/internal/testsupport"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// startIngestServer runs the real ingestion server over a temp dataset.
func startIngestServer(t *testing.T) (*ingestserver.Dataset, string) {
	t.Helper()
	serverCfg := testsupport.NewConfig(t)
	if err := serverCfg.EnsureServerDirectories(); err != nil {
		t.Fatal(err)
	}
	dataset, err := ingestserver.OpenDataset(serverCfg.Server.DatabasePath)
	if err != nil {
		t.Fatalf("OpenDataset: %v", err)
	}
	t.Cleanup(func() { dataset.Close() })
	srv, err := ingestserver.New(serverCfg, dataset, nil)
	if err != nil {
		t.Fatalf("ingestserver.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return dataset, ts.URL
}

func TestUploadSendsPendingClips(t *testing.T) {
	dataset, url := startIngestServer(t)
	env := setupCLITestEnv(t, testsupport.WithIngestURL(url))
	seedQueue(t, env.cfg, "pagi", "siang")

	out, err := runCLI(t, env.configPath, "upload")
	if err != nil {
		t.Fatalf("upload: %v\n%s", err, out)
	}
	requireContains(t, out, "Uploaded 2 of 2 clips")

	recs, err := dataset.Recordings(t.Context(), 10)
	if err != nil || len(recs) != 2 {
		t.Fatalf("server recordings = %d, %v", len(recs), err)
	}
	for _, rec := range recs {
		data, err := os.ReadFile(rec.FilePath)
		if err != nil || !strings.HasPrefix(string(data), "mp4:") {
			t.Fatalf("stored clip %s = %q, %v", rec.FilePath, data, err)
		}
	}

	out, err = runCLI(t, env.configPath, "upload")
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	requireContains(t, out, "Nothing to upload")

	out, _ = runCLI(t, env.configPath, "queue", "status", "--json")
	var counts map[string]int
	_ = json.Unmarshal([]byte(out), &counts)
	if counts["uploaded"] != 2 || counts["pending"] != 0 {
		t.Fatalf("unexpected counts after upload %v", counts)
	}
}

func TestUploadReportsFailures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	env := setupCLITestEnv(t, testsupport.WithIngestURL(ts.URL))
	items := seedQueue(t, env.cfg, "pagi")

	out, err := runCLI(t, env.configPath, "upload", "--json")
	if err != nil {
		t.Fatalf("upload --json should report, not fail: %v", err)
	}
	var report ingest.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if report.Attempted != 1 || report.Succeeded != 0 || len(report.FailedIDs) != 1 || report.FailedIDs[0] != items[0].ID {
		t.Fatalf("unexpected report %+v", report)
	}

	if _, err := runCLI(t, env.configPath, "upload"); err == nil {
		t.Fatal("expected plain upload to exit non-zero on failures")
	}
	if _, err := os.Stat(string(items[0].Resource)); err != nil {
		t.Fatalf("failed clip must be kept for retry: %v", err)
	}
}
