package testsupport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"clipkeeper/internal/capture"
	"clipkeeper/internal/session"
)

// Journal records an ordered trace of events from fakes.
type Journal struct {
	mu     sync.Mutex
	events []string
}

// Record appends an event.
func (j *Journal) Record(format string, args ...any) {
	if j == nil {
		return
	}
	j.mu.Lock()
	j.events = append(j.events, fmt.Sprintf(format, args...))
	j.mu.Unlock()
}

// Events returns a copy of the trace.
func (j *Journal) Events() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.events))
	copy(out, j.events)
	return out
}

// FakeBackend is an in-memory capture.Backend with injectable failures.
type FakeBackend struct {
	Journal *Journal
	// AsyncReady fires onReady from a goroutine after Start returns.
	AsyncReady bool

	mu       sync.Mutex
	startErr error
	stopErr  error
	active   bool
	seq      int
	clips    map[capture.Handle][]byte
	released []capture.Handle
}

// NewFakeBackend returns a backend recording into journal (which may be nil).
func NewFakeBackend(journal *Journal) *FakeBackend {
	return &FakeBackend{Journal: journal, clips: make(map[capture.Handle][]byte)}
}

// FailNextStart makes the next Start return err.
func (b *FakeBackend) FailNextStart(err error) {
	b.mu.Lock()
	b.startErr = err
	b.mu.Unlock()
}

// FailNextStop makes the next Stop return err.
func (b *FakeBackend) FailNextStop(err error) {
	b.mu.Lock()
	b.stopErr = err
	b.mu.Unlock()
}

func (b *FakeBackend) Start(_ context.Context, onReady func()) error {
	b.mu.Lock()
	b.Journal.Record("backend start")
	if err := b.startErr; err != nil {
		b.startErr = nil
		b.mu.Unlock()
		return err
	}
	b.active = true
	b.mu.Unlock()
	if b.AsyncReady {
		go onReady()
	} else {
		onReady()
	}
	return nil
}

func (b *FakeBackend) Stop(context.Context) (capture.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Journal.Record("backend stop")
	b.active = false
	if err := b.stopErr; err != nil {
		b.stopErr = nil
		return "", err
	}
	b.seq++
	h := capture.Handle(fmt.Sprintf("mem:fake-%d", b.seq))
	b.clips[h] = []byte(fmt.Sprintf("clip-%d", b.seq))
	return h, nil
}

func (b *FakeBackend) Release(h capture.Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Journal.Record("backend release %s", h)
	delete(b.clips, h)
	b.released = append(b.released, h)
	return nil
}

func (b *FakeBackend) Open(h capture.Handle) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.clips[h]
	if !ok {
		return nil, capture.ErrUnknownHandle
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Released lists every handle passed to Release.
func (b *FakeBackend) Released() []capture.Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]capture.Handle, len(b.released))
	copy(out, b.released)
	return out
}

// Held reports how many clips have not been released.
func (b *FakeBackend) Held() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clips)
}

// StepClock is a session.Clock whose waits complete immediately while
// advancing virtual time and recording each wait in the journal.
type StepClock struct {
	Journal *Journal

	mu    sync.Mutex
	now   time.Time
	ticks chan time.Time
}

// NewStepClock starts virtual time at start.
func NewStepClock(start time.Time, journal *Journal) *StepClock {
	return &StepClock{Journal: journal, now: start, ticks: make(chan time.Time)}
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *StepClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()
	c.Journal.Record("wait %s", d)
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func (c *StepClock) NewTicker(time.Duration) session.Ticker {
	return stepTicker{c: c.ticks}
}

// Tick advances virtual time by d and delivers one tick to the running
// ticker. It blocks until the ticker receives it.
func (c *StepClock) Tick(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()
	c.ticks <- now
}

type stepTicker struct{ c chan time.Time }

func (t stepTicker) C() <-chan time.Time { return t.c }

func (stepTicker) Stop() {}
