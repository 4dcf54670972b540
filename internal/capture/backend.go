package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"clipkeeper/internal/faults"
	"clipkeeper/internal/fileutil"
)

// Handle locates one recorded clip. File-backed handles are absolute paths;
// memory handles carry the "mem:" prefix.
type Handle string

const memoryPrefix = "mem:"

// IsMemory reports whether h refers to an in-memory buffer.
func (h Handle) IsMemory() bool {
	return strings.HasPrefix(string(h), memoryPrefix)
}

// Backend is a capture device variant.
type Backend interface {
	// Start arms the device. onReady is invoked exactly once, only after the
	// device is actually capturing.
	Start(ctx context.Context, onReady func()) error
	// Stop ends the active capture and returns the finished clip.
	Stop(ctx context.Context) (Handle, error)
	// Release discards the clip. Releasing a missing clip is not an error.
	Release(h Handle) error
	// Open reads the clip.
	Open(h Handle) (io.ReadCloser, error)
}

// Releaser discards clips. The offline queue only needs this part of a Backend.
type Releaser interface {
	Release(h Handle) error
}

// Opener reads clips for upload.
type Opener interface {
	Open(h Handle) (io.ReadCloser, error)
}

// ErrUnknownHandle reports a handle whose clip no longer exists.
var ErrUnknownHandle = errors.New("unknown media handle")

// Resources opens and releases clips by handle regardless of which variant
// produced them.
type Resources struct {
	Buffers *BufferRegistry
}

// Open returns a reader over the clip behind h.
func (r Resources) Open(h Handle) (io.ReadCloser, error) {
	if h == "" {
		return nil, faults.Wrap(faults.ErrCapture, "capture", "open", "empty handle", nil)
	}
	if h.IsMemory() {
		if r.Buffers == nil {
			return nil, faults.Wrap(faults.ErrCapture, "capture", "open", string(h), ErrUnknownHandle)
		}
		return r.Buffers.Open(h)
	}
	file, err := os.Open(string(h))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %v", ErrUnknownHandle, err)
		}
		return nil, faults.Wrap(faults.ErrCapture, "capture", "open", string(h), err)
	}
	return file, nil
}

// Release discards the clip behind h. Missing clips are ignored.
func (r Resources) Release(h Handle) error {
	if h == "" {
		return nil
	}
	if h.IsMemory() {
		if r.Buffers != nil {
			r.Buffers.Release(h)
		}
		return nil
	}
	if !filepath.IsAbs(string(h)) {
		return faults.Wrap(faults.ErrStorage, "capture", "release", "refusing relative path "+string(h), nil)
	}
	if err := fileutil.RemoveIfExists(string(h)); err != nil {
		return faults.Wrap(faults.ErrStorage, "capture", "release", string(h), err)
	}
	return nil
}

// NewBackend builds the configured variant. Unknown names fall back to the
// native variant; config validation rejects them earlier.
func NewBackend(kind string, device Device, stagingDir, recordingsDir string, buffers *BufferRegistry, opts ...Option) Backend {
	if kind == "memory" {
		return NewMemoryBackend(device, buffers, opts...)
	}
	return NewNativeBackend(device, stagingDir, recordingsDir, buffers, opts...)
}
