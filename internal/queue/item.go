package queue

import (
	"time"

	"clipkeeper/internal/capture"
	"clipkeeper/internal/profile"
)

// Item is one recorded clip waiting for, or done with, upload.
type Item struct {
	ID         string          `json:"id"`
	Resource   capture.Handle  `json:"uri"`
	SentenceID int64           `json:"sentenceId"`
	Text       string          `json:"text"`
	Metadata   profile.Profile `json:"metadata"`
	Uploaded   bool            `json:"uploaded"`
	CreatedAt  time.Time       `json:"date"`
}

// Counts summarizes queue contents.
type Counts struct {
	Total    int
	Pending  int
	Uploaded int
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
