// Package prompts supplies the ordered sentences read aloud in a session.
package prompts

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"clipkeeper/internal/faults"
)

// Sentence is one prompt.
type Sentence struct {
	ID       int64  `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

// Provider fetches up to limit sentences.
type Provider interface {
	FetchSentences(ctx context.Context, limit int) ([]Sentence, error)
}

// Load fetches sentences for a new session. An empty or failed fetch means
// the session cannot start; there is no retry.
func Load(ctx context.Context, provider Provider, limit int) ([]Sentence, error) {
	sentences, err := provider.FetchSentences(ctx, limit)
	if err != nil {
		return nil, faults.Wrap(faults.ErrPrecondition, "prompts", "load", "cannot start a session", err)
	}
	out := make([]Sentence, 0, len(sentences))
	for _, s := range sentences {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, faults.Wrap(faults.ErrPrecondition, "prompts", "load", "cannot start a session: no sentences available", nil)
	}
	return out, nil
}

// FileProvider reads sentences from a JSON array on disk, the same shape the
// ingestion server's import endpoint accepts.
type FileProvider struct {
	Path string
}

// FetchSentences returns the first limit sentences in file order. Entries
// without an id are numbered by position.
func (p FileProvider) FetchSentences(_ context.Context, limit int) ([]Sentence, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("read sentences: %w", err)
	}
	var sentences []Sentence
	if err := json.Unmarshal(data, &sentences); err != nil {
		return nil, fmt.Errorf("decode sentences %s: %w", p.Path, err)
	}
	for i := range sentences {
		if sentences[i].ID == 0 {
			sentences[i].ID = int64(i + 1)
		}
	}
	if limit > 0 && len(sentences) > limit {
		sentences = sentences[:limit]
	}
	return sentences, nil
}
