package capture

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"

	"clipkeeper/internal/faults"
	"clipkeeper/internal/logging"
)

// StreamSource produces a clip as a byte stream.
type StreamSource interface {
	// Stream starts the device and returns its output once live, after
	// calling ready. The stream ends when End completes.
	Stream(ctx context.Context, ready func()) (io.ReadCloser, error)
	End(ctx context.Context) error
}

// Device drives the physical camera for either variant.
type Device interface {
	Camera
	StreamSource
}

// MemoryBackend collects each clip into a process-local buffer. Clips do not
// survive a restart.
type MemoryBackend struct {
	Resources

	source StreamSource
	logger *slog.Logger

	mu     sync.Mutex
	active *pump
}

type pump struct {
	stream io.ReadCloser
	buf    bytes.Buffer
	done   chan error
}

// NewMemoryBackend builds an in-memory backend storing clips in buffers.
func NewMemoryBackend(source StreamSource, buffers *BufferRegistry, opts ...Option) *MemoryBackend {
	s := applyOptions(opts)
	if buffers == nil {
		buffers = NewBufferRegistry()
	}
	return &MemoryBackend{
		Resources: Resources{Buffers: buffers},
		source:    source,
		logger:    s.logger.With(logging.String("backend", "memory")),
	}
}

// Start opens the device stream and begins buffering it.
func (b *MemoryBackend) Start(ctx context.Context, onReady func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active != nil {
		return faults.Wrap(faults.ErrCapture, "capture", "start", "device already recording", nil)
	}
	stream, err := b.source.Stream(ctx, once(onReady))
	if err != nil {
		return faults.Wrap(faults.ErrCapture, "capture", "start", "", err)
	}
	p := &pump{stream: stream, done: make(chan error, 1)}
	go func() {
		_, copyErr := io.Copy(&p.buf, stream)
		p.done <- copyErr
	}()
	b.active = p
	b.logger.Debug("capture started")
	return nil
}

// Stop ends the stream and registers the buffered clip.
func (b *MemoryBackend) Stop(ctx context.Context) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.active
	if p == nil {
		return "", faults.Wrap(faults.ErrCapture, "capture", "stop", "device not recording", nil)
	}
	b.active = nil

	endErr := b.source.End(ctx)
	var copyErr error
	select {
	case copyErr = <-p.done:
	case <-ctx.Done():
		_ = p.stream.Close()
		return "", faults.Wrap(faults.ErrCapture, "capture", "stop", "waiting for stream", ctx.Err())
	}
	_ = p.stream.Close()

	if endErr != nil {
		return "", faults.Wrap(faults.ErrCapture, "capture", "stop", "", endErr)
	}
	if copyErr != nil {
		return "", faults.Wrap(faults.ErrCapture, "capture", "stop", "read stream", copyErr)
	}
	if p.buf.Len() == 0 {
		return "", faults.Wrap(faults.ErrCapture, "capture", "stop", "device produced no data", nil)
	}
	h := b.Buffers.Put(p.buf.Bytes())
	b.logger.Info("clip buffered", logging.String("handle", string(h)), logging.Int("bytes", p.buf.Len()))
	return h, nil
}
