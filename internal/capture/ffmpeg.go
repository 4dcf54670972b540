package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"clipkeeper/internal/config"
	"clipkeeper/internal/logging"
)

var commandFactory = exec.Command

// Markers ffmpeg writes to stderr once it is pulling frames from the device.
var liveMarkers = [][]byte{[]byte("Press [q]"), []byte("frame="), []byte("size=")}

var encodeArgs = []string{
	"-c:v", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p",
	"-c:a", "aac",
}

const (
	stderrTailLimit = 4096
	waitDelay       = 2 * time.Second
)

// FFmpegDevice records the configured camera and microphone through ffmpeg.
// It serves one capture at a time.
type FFmpegDevice struct {
	Binary      string
	InputArgs   []string
	MaxDuration time.Duration
	StopTimeout time.Duration

	logger *slog.Logger

	mu   sync.Mutex
	proc *ffmpegProcess
}

type ffmpegProcess struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stderr  *readyWatcher
	exited  chan struct{}
	exitErr error
}

// NewFFmpegDevice builds a device from the capture configuration.
func NewFFmpegDevice(cfg *config.Config, logger *slog.Logger) *FFmpegDevice {
	args := make([]string, len(cfg.Capture.InputArgs))
	copy(args, cfg.Capture.InputArgs)
	return &FFmpegDevice{
		Binary:      cfg.Capture.FFmpegBinary,
		InputArgs:   args,
		MaxDuration: time.Duration(cfg.Capture.MaxDurationSeconds) * time.Second,
		StopTimeout: time.Duration(cfg.Capture.StopTimeoutSeconds) * time.Second,
		logger:      logging.NewComponentLogger(logger, "ffmpeg"),
	}
}

// Begin records into dst.
func (d *FFmpegDevice) Begin(ctx context.Context, dst string, ready func()) error {
	output := []string{"-movflags", "+faststart", dst}
	return d.launch(ctx, output, nil, ready)
}

// Stream records fragmented MP4 to the returned reader. The reader ends when
// ffmpeg exits.
func (d *FFmpegDevice) Stream(ctx context.Context, ready func()) (io.ReadCloser, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	output := []string{"-f", "mp4", "-movflags", "frag_keyframe+empty_moov", "pipe:1"}
	if err := d.launch(ctx, output, pw, ready); err != nil {
		_ = pr.Close()
		return nil, err
	}
	return pr, nil
}

// launch starts ffmpeg and returns once it is live. stdout, when set, is handed
// to the child and closed in this process, so Wait never blocks on a reader.
func (d *FFmpegDevice) launch(ctx context.Context, output []string, stdout *os.File, ready func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if stdout != nil {
		defer stdout.Close()
	}

	if d.proc != nil {
		return errors.New("ffmpeg already running")
	}

	args := []string{"-hide_banner", "-y"}
	args = append(args, d.InputArgs...)
	if d.MaxDuration > 0 {
		args = append(args, "-t", strconv.Itoa(int(d.MaxDuration/time.Second)))
	}
	args = append(args, encodeArgs...)
	args = append(args, output...)

	cmd := commandFactory(d.binary(), args...) //nolint:gosec
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	watcher := newReadyWatcher()
	cmd.Stderr = watcher
	if stdout != nil {
		cmd.Stdout = stdout
	}
	// Children that inherit stderr must not hold Wait open after ffmpeg exits.
	cmd.WaitDelay = waitDelay
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	proc := &ffmpegProcess{cmd: cmd, stdin: stdin, stderr: watcher, exited: make(chan struct{})}
	go func() {
		proc.exitErr = cmd.Wait()
		close(proc.exited)
	}()

	select {
	case <-watcher.ready:
		d.proc = proc
		d.logger.Debug("ffmpeg live", logging.Int("pid", cmd.Process.Pid))
		if ready != nil {
			ready()
		}
		return nil
	case <-proc.exited:
		return fmt.Errorf("ffmpeg exited before capturing: %v: %s", proc.exitErr, watcher.Tail())
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-proc.exited
		return ctx.Err()
	}
}

// End asks ffmpeg to finish the file and waits for it to exit, killing it
// after StopTimeout.
func (d *FFmpegDevice) End(ctx context.Context) error {
	d.mu.Lock()
	proc := d.proc
	d.proc = nil
	d.mu.Unlock()

	if proc == nil {
		return errors.New("ffmpeg not running")
	}

	// ffmpeg may already have exited on its own after MaxDuration.
	_, _ = io.WriteString(proc.stdin, "q")
	_ = proc.stdin.Close()

	timeout := d.StopTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-proc.exited:
	case <-timer.C:
		_ = proc.cmd.Process.Kill()
		<-proc.exited
		return fmt.Errorf("ffmpeg did not stop within %s", timeout)
	case <-ctx.Done():
		_ = proc.cmd.Process.Kill()
		<-proc.exited
		return ctx.Err()
	}
	if proc.exitErr != nil {
		return fmt.Errorf("ffmpeg exited: %w: %s", proc.exitErr, proc.stderr.Tail())
	}
	return nil
}

func (d *FFmpegDevice) binary() string {
	if strings.TrimSpace(d.Binary) == "" {
		return "ffmpeg"
	}
	return d.Binary
}

// readyWatcher collects ffmpeg's stderr and signals once the device is live.
type readyWatcher struct {
	mu    sync.Mutex
	tail  []byte
	ready chan struct{}
	fired bool
}

func newReadyWatcher() *readyWatcher {
	return &readyWatcher{ready: make(chan struct{})}
}

func (w *readyWatcher) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tail = append(w.tail, p...)
	if !w.fired {
		for _, marker := range liveMarkers {
			if bytes.Contains(w.tail, marker) {
				w.fired = true
				close(w.ready)
				break
			}
		}
	}
	if len(w.tail) > stderrTailLimit {
		w.tail = append([]byte(nil), w.tail[len(w.tail)-stderrTailLimit:]...)
	}
	return len(p), nil
}

// Tail returns the last lines ffmpeg wrote to stderr.
func (w *readyWatcher) Tail() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.TrimSpace(string(w.tail))
}
