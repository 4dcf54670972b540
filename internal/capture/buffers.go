package capture

import (
	"bytes"
	"io"
	"sync"

	"github.com/google/uuid"

	"clipkeeper/internal/faults"
)

// BufferRegistry holds in-memory clips for the lifetime of the process.
type BufferRegistry struct {
	mu      sync.Mutex
	buffers map[Handle][]byte
}

// NewBufferRegistry returns an empty registry.
func NewBufferRegistry() *BufferRegistry {
	return &BufferRegistry{buffers: make(map[Handle][]byte)}
}

// Put stores data under a fresh memory handle.
func (r *BufferRegistry) Put(data []byte) Handle {
	h := Handle(memoryPrefix + uuid.NewString())
	r.mu.Lock()
	r.buffers[h] = data
	r.mu.Unlock()
	return h
}

// Open returns a reader over the buffer behind h.
func (r *BufferRegistry) Open(h Handle) (io.ReadCloser, error) {
	r.mu.Lock()
	data, ok := r.buffers[h]
	r.mu.Unlock()
	if !ok {
		return nil, faults.Wrap(faults.ErrCapture, "capture", "open", string(h), ErrUnknownHandle)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Release drops the buffer behind h.
func (r *BufferRegistry) Release(h Handle) {
	r.mu.Lock()
	delete(r.buffers, h)
	r.mu.Unlock()
}

// Len reports how many buffers are held.
func (r *BufferRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffers)
}
