package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"clipkeeper/internal/capture"
	"clipkeeper/internal/faults"
	"clipkeeper/internal/logging"
)

// Key is the persisted location of the queue document.
const Key = "offline_queue"

// ErrDuplicate reports an append whose ID or media handle is already queued.
var ErrDuplicate = errors.New("duplicate queue entry")

// Persister stores the serialized queue.
type Persister interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Store is the durable offline upload queue.
type Store struct {
	mu       sync.Mutex
	kv       Persister
	releaser capture.Releaser
	logger   *slog.Logger
	items    []Item
}

// NewStore builds an empty store. Call Load to read persisted state.
func NewStore(kv Persister, releaser capture.Releaser, logger *slog.Logger) *Store {
	return &Store{
		kv:       kv,
		releaser: releaser,
		logger:   logging.NewComponentLogger(logger, "queue"),
	}
}

// Load replaces the in-memory queue with the persisted one. Missing data
// loads as an empty queue.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.kv.Get(ctx, Key)
	if err != nil {
		return faults.Wrap(faults.ErrStorage, "queue", "load", "", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		s.items = nil
		return nil
	}
	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return faults.Wrap(faults.ErrStorage, "queue", "load", "decode persisted queue", err)
	}
	s.items = items
	s.logger.Debug("queue loaded", logging.Int("items", len(items)))
	return nil
}

// Items returns a copy of the queue in insertion order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// Pending returns items not yet uploaded, in insertion order.
func (s *Store) Pending() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Item
	for _, item := range s.items {
		if !item.Uploaded {
			out = append(out, item)
		}
	}
	return out
}

// Get returns the item with id.
func (s *Store) Get(id string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

// Counts summarizes pending and uploaded items.
func (s *Store) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := Counts{Total: len(s.items)}
	for _, item := range s.items {
		if item.Uploaded {
			c.Uploaded++
		} else {
			c.Pending++
		}
	}
	return c
}

// Append adds item to the end of the queue and persists before returning.
func (s *Store) Append(ctx context.Context, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(item.ID) == "" || item.Resource == "" {
		return faults.Wrap(faults.ErrPrecondition, "queue", "append", "item requires id and media handle", nil)
	}
	for _, existing := range s.items {
		if existing.ID == item.ID {
			return faults.Wrap(faults.ErrPrecondition, "queue", "append", "id "+item.ID, ErrDuplicate)
		}
		if existing.Resource == item.Resource {
			return faults.Wrap(faults.ErrPrecondition, "queue", "append", "media "+string(item.Resource)+" already owned by "+existing.ID, ErrDuplicate)
		}
	}

	next := append(cloneItems(s.items), item)
	if err := s.commit(ctx, next, "append"); err != nil {
		return err
	}
	s.logger.Info("clip queued",
		logging.String(logging.FieldItemID, item.ID),
		logging.Int64(logging.FieldSentenceID, item.SentenceID),
		logging.Int("queue_length", len(next)),
	)
	return nil
}

// MarkUploaded flags every listed item as uploaded with a single write and
// returns how many items changed. Unknown IDs and already uploaded items are
// ignored.
func (s *Store) MarkUploaded(ctx context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) == 0 {
		return 0, nil
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	next := cloneItems(s.items)
	changed := 0
	for i := range next {
		if _, ok := wanted[next[i].ID]; ok && !next[i].Uploaded {
			next[i].Uploaded = true
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	if err := s.commit(ctx, next, "mark uploaded"); err != nil {
		return 0, err
	}
	return changed, nil
}

// Delete removes the item and releases its media. It reports false when no
// such item exists. Release failures are logged and do not keep the entry.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, item := range s.items {
		if item.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}
	removed := s.items[idx]
	next := make([]Item, 0, len(s.items)-1)
	next = append(next, s.items[:idx]...)
	next = append(next, s.items[idx+1:]...)
	if err := s.commit(ctx, next, "delete"); err != nil {
		return false, err
	}
	s.release(ctx, removed)
	s.logger.Info("clip deleted", logging.String(logging.FieldItemID, id))
	return true, nil
}

// Clear removes every item, releasing each one's media best-effort, and
// returns how many items were removed.
func (s *Store) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.items
	if err := s.commit(ctx, []Item{}, "clear"); err != nil {
		return 0, err
	}
	for _, item := range removed {
		s.release(ctx, item)
	}
	s.logger.Info("queue cleared", logging.Int("removed", len(removed)))
	return len(removed), nil
}

// commit persists next and swaps it in. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, next []Item, operation string) error {
	if next == nil {
		next = []Item{}
	}
	data, err := json.Marshal(next)
	if err != nil {
		return faults.Wrap(faults.ErrStorage, "queue", operation, "encode queue", err)
	}
	if err := s.kv.Set(ctx, Key, string(data)); err != nil {
		return faults.Wrap(faults.ErrStorage, "queue", operation, "persist queue", err)
	}
	s.items = next
	return nil
}

func (s *Store) release(ctx context.Context, item Item) {
	if s.releaser == nil || item.Resource == "" {
		return
	}
	if err := s.releaser.Release(item.Resource); err != nil {
		logging.WarnWithContext(logging.WithContext(logging.WithItemID(ctx, item.ID), s.logger),
			"media release failed; entry removed anyway", "media_release_failed",
			logging.String("handle", string(item.Resource)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the file manually if storage runs low"),
		)
	}
}
