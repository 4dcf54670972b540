package ingestserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"clipkeeper/internal/config"
	"clipkeeper/internal/ingest"
	"clipkeeper/internal/ingestserver"
	"clipkeeper/internal/profile"
	"clipkeeper/internal/queue"
	"clipkeeper/internal/testsupport"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, opts ...testsupport.ConfigOption) (*config.Config, *ingestserver.Dataset, *httptest.Server) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureServerDirectories(); err != nil {
		t.Fatalf("EnsureServerDirectories: %v", err)
	}
	dataset, err := ingestserver.OpenDataset(cfg.Server.DatabasePath)
	if err != nil {
		t.Fatalf("OpenDataset: %v", err)
	}
	t.Cleanup(func() { dataset.Close() })
	srv, err := ingestserver.New(cfg, dataset, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return cfg, dataset, ts
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	var payload map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	return resp, payload
}

func TestImportAndFetchSentences(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, payload := postJSON(t, ts.URL+"/api/import-sentences",
		`[{"text":"Selamat pagi","category":"Greeting"},{"text":"Terima kasih"},{"text":"Apa kabar"}]`)
	if resp.StatusCode != http.StatusOK || payload["imported"] != float64(3) {
		t.Fatalf("import: status %d payload %v", resp.StatusCode, payload)
	}

	client := ingest.NewClient(ts.URL, time.Second, nil)
	sentences, err := client.FetchSentences(context.Background(), 2)
	if err != nil {
		t.Fatalf("FetchSentences: %v", err)
	}
	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(sentences))
	}

	all, err := client.FetchSentences(context.Background(), 0)
	if err != nil {
		t.Fatalf("FetchSentences default: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected default limit to cover all 3, got %d", len(all))
	}
	for _, s := range all {
		if s.Text == "Terima kasih" && s.Category != ingestserver.DefaultCategory {
			t.Fatalf("expected default category, got %q", s.Category)
		}
	}
}

func TestImportRejectsBadPayloads(t *testing.T) {
	_, dataset, ts := newTestServer(t)

	for _, body := range []string{`{"text":"not an array"}`, `[{"category":"x"}]`, `[{"text":""}]`} {
		resp, _ := postJSON(t, ts.URL+"/api/import-sentences", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, resp.StatusCode)
		}
	}
	sentences, _, err := dataset.Counts(context.Background())
	if err != nil || sentences != 0 {
		t.Fatalf("rejected imports must not store rows: %d, %v", sentences, err)
	}
}

func TestSentencesRejectsBadLimit(t *testing.T) {
	_, _, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/sentences?limit=abc")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUploadStoresClipSidecarAndRow(t *testing.T) {
	cfg, dataset, ts := newTestServer(t)
	client := ingest.NewClient(ts.URL, time.Second, nil)
	item := queue.Item{
		ID:         "1700000000000",
		Resource:   "mem:x",
		SentenceID: 7,
		Text:       "Selamat pagi",
		Metadata:   profile.Profile{Name: "Budi Santoso", Age: "40", Gender: profile.GenderMale},
	}

	ack, err := client.Upload(context.Background(), item, strings.NewReader("mp4-data"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	dir := filepath.Join(cfg.Server.UploadDir, "Budi_Santoso_male_40")
	if filepath.Dir(ack.Path) != dir || !strings.HasPrefix(filepath.Base(ack.Path), "rec_7_") {
		t.Fatalf("unexpected stored path %q", ack.Path)
	}
	data, err := os.ReadFile(ack.Path)
	if err != nil || string(data) != "mp4-data" {
		t.Fatalf("stored clip = %q, %v", data, err)
	}
	text, err := os.ReadFile(strings.TrimSuffix(ack.Path, ".mp4") + ".txt")
	if err != nil || string(text) != "Selamat pagi" {
		t.Fatalf("sidecar = %q, %v", text, err)
	}

	recs, err := dataset.Recordings(context.Background(), 10)
	if err != nil || len(recs) != 1 {
		t.Fatalf("Recordings = %v, %v", recs, err)
	}
	if recs[0].SentenceID != 7 || recs[0].FilePath != ack.Path || recs[0].SizeBytes != 8 || recs[0].RequestID == "" {
		t.Fatalf("unexpected recording row %+v", recs[0])
	}
}

func TestUploadWithoutVideoIsRejected(t *testing.T) {
	_, _, ts := newTestServer(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	_ = w.WriteField("userName", "Budi")
	_ = w.WriteField("sentenceId", "1")
	_ = w.Close()

	resp, err := http.Post(ts.URL+"/api/upload", w.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUploadFallsBackForMissingFields(t *testing.T) {
	cfg, _, ts := newTestServer(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, _ := w.CreateFormFile("video", "video_0.mp4")
	_, _ = io.WriteString(part, "data")
	_ = w.Close()

	resp, err := http.Post(ts.URL+"/api/upload", w.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	var ack struct {
		Status string `json:"status"`
		Path   string `json:"path"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil || ack.Status != "ok" {
		t.Fatalf("ack = %+v, %v", ack, err)
	}
	if filepath.Dir(ack.Path) != filepath.Join(cfg.Server.UploadDir, "Anonymous_Unknown_0") {
		t.Fatalf("unexpected folder for %q", ack.Path)
	}
	if !strings.HasPrefix(filepath.Base(ack.Path), "rec_0_") {
		t.Fatalf("unexpected file name %q", ack.Path)
	}
	if _, err := os.Stat(strings.TrimSuffix(ack.Path, ".mp4") + ".txt"); !os.IsNotExist(err) {
		t.Fatal("no sidecar expected without sentence text")
	}
}

func TestStaticFilesWithSPAFallback(t *testing.T) {
	public := t.TempDir()
	if err := os.WriteFile(filepath.Join(public, "index.html"), []byte("<html>app</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(public, "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, ts := newTestServer(t, testsupport.WithPublicDir(public))

	get := func(path string) (int, string) {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(data)
	}

	if code, body := get("/app.js"); code != http.StatusOK || body != "console.log(1)" {
		t.Fatalf("/app.js = %d %q", code, body)
	}
	if code, body := get("/record/session"); code != http.StatusOK || body != "<html>app</html>" {
		t.Fatalf("SPA fallback = %d %q", code, body)
	}
	if code, _ := get("/api/unknown"); code != http.StatusNotFound {
		t.Fatalf("unknown api route = %d", code)
	}
}

func TestServerStartAndStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureServerDirectories(); err != nil {
		t.Fatal(err)
	}
	dataset, err := ingestserver.OpenDataset(cfg.Server.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	defer dataset.Close()
	srv, err := ingestserver.New(cfg, dataset, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	resp, err := http.Get("http://" + srv.Addr() + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("status = %d, request id %q", resp.StatusCode, resp.Header.Get("X-Request-ID"))
	}
	srv.Stop()
}
