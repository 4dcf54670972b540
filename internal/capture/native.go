package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipkeeper/internal/faults"
	"clipkeeper/internal/fileutil"
	"clipkeeper/internal/logging"
)

// Camera records to a file path.
type Camera interface {
	// Begin starts recording into dst and returns once the device is live,
	// after calling ready.
	Begin(ctx context.Context, dst string, ready func()) error
	// End finalizes the recording and waits for the file to be complete.
	End(ctx context.Context) error
}

// NativeBackend records each clip to a file and keeps it in the recordings
// directory until released.
type NativeBackend struct {
	Resources

	camera        Camera
	stagingDir    string
	recordingsDir string
	logger        *slog.Logger
	now           func() time.Time

	mu     sync.Mutex
	active string
}

// NewNativeBackend builds a file-backed backend. buffers may be nil; it is
// only consulted when opening memory handles left by an earlier run.
func NewNativeBackend(camera Camera, stagingDir, recordingsDir string, buffers *BufferRegistry, opts ...Option) *NativeBackend {
	s := applyOptions(opts)
	return &NativeBackend{
		Resources:     Resources{Buffers: buffers},
		camera:        camera,
		stagingDir:    stagingDir,
		recordingsDir: recordingsDir,
		logger:        s.logger.With(logging.String("backend", "native")),
		now:           s.now,
	}
}

// Start begins recording into a staging file.
func (b *NativeBackend) Start(ctx context.Context, onReady func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active != "" {
		return faults.Wrap(faults.ErrCapture, "capture", "start", "device already recording", nil)
	}
	if err := os.MkdirAll(b.stagingDir, 0o755); err != nil {
		return faults.Wrap(faults.ErrCapture, "capture", "start", "create staging dir", err)
	}
	staging := filepath.Join(b.stagingDir, uuid.NewString()+".mp4")
	if err := b.camera.Begin(ctx, staging, once(onReady)); err != nil {
		_ = fileutil.RemoveIfExists(staging)
		return faults.Wrap(faults.ErrCapture, "capture", "start", "", err)
	}
	b.active = staging
	b.logger.Debug("capture started", logging.String("staging_path", staging))
	return nil
}

// Stop finalizes the recording and moves it into the recordings directory.
func (b *NativeBackend) Stop(ctx context.Context) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	staging := b.active
	if staging == "" {
		return "", faults.Wrap(faults.ErrCapture, "capture", "stop", "device not recording", nil)
	}
	b.active = ""

	if err := b.camera.End(ctx); err != nil {
		_ = fileutil.RemoveIfExists(staging)
		return "", faults.Wrap(faults.ErrCapture, "capture", "stop", "", err)
	}
	if info, err := os.Stat(staging); err != nil || info.Size() == 0 {
		_ = fileutil.RemoveIfExists(staging)
		return "", faults.Wrap(faults.ErrCapture, "capture", "stop", "device produced no data", err)
	}

	if err := os.MkdirAll(b.recordingsDir, 0o755); err != nil {
		_ = fileutil.RemoveIfExists(staging)
		return "", faults.Wrap(faults.ErrStorage, "capture", "stop", "create recordings dir", err)
	}
	target, err := b.nextClipPath()
	if err != nil {
		_ = fileutil.RemoveIfExists(staging)
		return "", err
	}
	if err := fileutil.MoveFile(staging, target); err != nil {
		_ = fileutil.RemoveIfExists(staging)
		return "", faults.Wrap(faults.ErrStorage, "capture", "stop", "move clip into recordings", err)
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		abs = target
	}
	b.logger.Info("clip recorded", logging.String("path", abs))
	return Handle(abs), nil
}

// nextClipPath names the clip rec_<unix-ms>.mp4, stepping forward a
// millisecond until the name is free.
func (b *NativeBackend) nextClipPath() (string, error) {
	stamp := b.now().UnixMilli()
	for range 1000 {
		candidate := filepath.Join(b.recordingsDir, fmt.Sprintf("rec_%d.mp4", stamp))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
		stamp++
	}
	return "", faults.Wrap(faults.ErrStorage, "capture", "stop", "no free clip name in "+b.recordingsDir, nil)
}

func once(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	var o sync.Once
	return func() { o.Do(fn) }
}
