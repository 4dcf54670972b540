package ingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"clipkeeper/internal/capture"
	"clipkeeper/internal/faults"
	"clipkeeper/internal/ingest"
	"clipkeeper/internal/profile"
	"clipkeeper/internal/queue"
)

type receivedPart struct {
	name     string
	filename string
	body     string
}

func readParts(t *testing.T, r *http.Request) []receivedPart {
	t.Helper()
	reader, err := r.MultipartReader()
	if err != nil {
		t.Errorf("multipart reader: %v", err)
		return nil
	}
	var parts []receivedPart
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return parts
		}
		if err != nil {
			t.Errorf("next part: %v", err)
			return parts
		}
		data, _ := io.ReadAll(part)
		parts = append(parts, receivedPart{name: part.FormName(), filename: part.FileName(), body: string(data)})
	}
}

func sampleItem(id string, sentence int64) queue.Item {
	return queue.Item{
		ID:         id,
		Resource:   capture.Handle("mem:" + id),
		SentenceID: sentence,
		Text:       "Selamat pagi",
		Metadata:   profile.Profile{Name: "Budi", Age: "40", Gender: profile.GenderMale},
		CreatedAt:  time.Now().UTC(),
	}
}

func TestUploadWritesFieldsBeforeVideo(t *testing.T) {
	var got []receivedPart
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/upload" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary=") {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		got = readParts(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","path":"uploads/Budi_male_40/rec_7_1.mp4"}`))
	}))
	defer srv.Close()

	client := ingest.NewClient(srv.URL+"/", time.Second, nil)
	ack, err := client.Upload(context.Background(), sampleItem("1", 7), strings.NewReader("video-bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if ack.Status != "ok" || ack.Path == "" {
		t.Fatalf("unexpected ack %+v", ack)
	}

	want := []receivedPart{
		{name: "userName", body: "Budi"},
		{name: "userAge", body: "40"},
		{name: "userGender", body: "male"},
		{name: "sentenceId", body: "7"},
		{name: "sentenceText", body: "Selamat pagi"},
		{name: "video", filename: "video_7.mp4", body: "video-bytes"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected parts:\n got %+v\nwant %+v", got, want)
	}
}

func TestUploadNonSuccessIsUploadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := ingest.NewClient(srv.URL, time.Second, nil)
	_, err := client.Upload(context.Background(), sampleItem("1", 1), strings.NewReader("x"))
	if !errors.Is(err, faults.ErrUpload) {
		t.Fatalf("expected upload error, got %v", err)
	}
}

func TestUploadTransportFailureIsUploadError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := ingest.NewClient(url, time.Second, nil)
	_, err := client.Upload(context.Background(), sampleItem("1", 1), strings.NewReader("x"))
	if !errors.Is(err, faults.ErrUpload) {
		t.Fatalf("expected upload error, got %v", err)
	}
}

func TestFetchSentencesPassesLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sentences" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "50" {
			t.Errorf("expected limit=50, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": 3, "text": "Terima kasih", "category": "Greeting"},
			{"id": 9, "text": "Sampai jumpa", "category": "Greeting"},
		})
	}))
	defer srv.Close()

	client := ingest.NewClient(srv.URL, time.Second, nil)
	sentences, err := client.FetchSentences(context.Background(), 50)
	if err != nil {
		t.Fatalf("FetchSentences: %v", err)
	}
	if len(sentences) != 2 || sentences[0].ID != 3 || sentences[1].Text != "Sampai jumpa" {
		t.Fatalf("unexpected sentences %+v", sentences)
	}
}

func TestFetchSentencesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "db down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := ingest.NewClient(srv.URL, time.Second, nil)
	if _, err := client.FetchSentences(context.Background(), 5); err == nil {
		t.Fatal("expected error")
	}
}
