package prompts_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"clipkeeper/internal/faults"
	"clipkeeper/internal/prompts"
)

type stubProvider struct {
	sentences []prompts.Sentence
	err       error
}

func (s stubProvider) FetchSentences(context.Context, int) ([]prompts.Sentence, error) {
	return s.sentences, s.err
}

func TestLoadRejectsEmptyOrFailedFetch(t *testing.T) {
	ctx := context.Background()
	if _, err := prompts.Load(ctx, stubProvider{err: errors.New("offline")}, 5); !errors.Is(err, faults.ErrPrecondition) {
		t.Fatalf("expected precondition error for failed fetch, got %v", err)
	}
	if _, err := prompts.Load(ctx, stubProvider{sentences: []prompts.Sentence{{ID: 1, Text: "  "}}}, 5); !errors.Is(err, faults.ErrPrecondition) {
		t.Fatalf("expected precondition error for empty fetch, got %v", err)
	}
	got, err := prompts.Load(ctx, stubProvider{sentences: []prompts.Sentence{{ID: 1, Text: "Selamat pagi"}}}, 5)
	if err != nil || len(got) != 1 {
		t.Fatalf("unexpected load result %v, %v", got, err)
	}
}

func TestFileProviderNumbersAndLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentences.json")
	body := `[{"text":"one"},{"id":40,"text":"two","category":"Greeting"},{"text":"three"}]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := prompts.FileProvider{Path: path}.FetchSentences(context.Background(), 2)
	if err != nil {
		t.Fatalf("FetchSentences failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected limit applied, got %d", len(got))
	}
	if got[0].ID != 1 || got[1].ID != 40 || got[1].Category != "Greeting" {
		t.Fatalf("unexpected sentences %+v", got)
	}
}
