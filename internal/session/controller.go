package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"clipkeeper/internal/capture"
	"clipkeeper/internal/faults"
	"clipkeeper/internal/logging"
	"clipkeeper/internal/profile"
	"clipkeeper/internal/prompts"
	"clipkeeper/internal/queue"
)

// Padding around the visible recording window. These are also the minimums:
// shorter values are raised to them.
const (
	DefaultLeadIn = 200 * time.Millisecond
	DefaultTrail  = 200 * time.Millisecond
)

// ErrSessionComplete is returned by Start and Stop once every prompt has a clip.
var ErrSessionComplete = errors.New("session complete")

// ErrSessionAborted is returned by Start and Stop after Abort.
var ErrSessionAborted = errors.New("session aborted")

// Appender receives finished clips.
type Appender interface {
	Append(ctx context.Context, item queue.Item) error
}

// Options tunes a Controller. LeadIn and Trail below the defaults, zero
// included, are raised to DefaultLeadIn and DefaultTrail.
type Options struct {
	LeadIn time.Duration
	Trail  time.Duration
	Clock  Clock
	Logger *slog.Logger
	// OnChange receives a snapshot after every state change. It runs with the
	// controller locked and must not call back into the Controller.
	OnChange func(State)
}

// Controller drives one session over an ordered list of prompts.
type Controller struct {
	backend   capture.Backend
	queue     Appender
	profile   profile.Profile
	sentences []prompts.Sentence
	leadIn    time.Duration
	trail     time.Duration
	clock     Clock
	logger    *slog.Logger
	onChange  func(State)

	mu             sync.Mutex
	state          State
	aborted        chan struct{}
	inflight       sync.WaitGroup
	armed          chan struct{}
	stopRequested  bool
	recordingSince time.Time
	tickerDone     chan struct{}
	lastID         int64
}

// NewController prepares a session. The profile is copied; later edits do
// not affect clips recorded by this session.
func NewController(backend capture.Backend, q Appender, p profile.Profile, sentences []prompts.Sentence, opts Options) (*Controller, error) {
	if backend == nil || q == nil {
		return nil, faults.Wrap(faults.ErrPrecondition, "session", "new", "backend and queue are required", nil)
	}
	if len(sentences) == 0 {
		return nil, faults.Wrap(faults.ErrPrecondition, "session", "new", "cannot start a session without sentences", nil)
	}
	if err := p.Validate(); err != nil {
		return nil, faults.Wrap(faults.ErrPrecondition, "session", "new", "respondent profile incomplete", err)
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	list := make([]prompts.Sentence, len(sentences))
	copy(list, sentences)
	return &Controller{
		backend:   backend,
		queue:     q,
		profile:   p,
		sentences: list,
		leadIn:    max(opts.LeadIn, DefaultLeadIn),
		trail:     max(opts.Trail, DefaultTrail),
		clock:     clock,
		logger:    logging.NewComponentLogger(opts.Logger, "session"),
		onChange:  opts.OnChange,
		state:     State{Total: len(list), Phase: PhaseIdle},
		aborted:   make(chan struct{}),
	}, nil
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Prompt returns the sentence awaiting a clip. ok is false once the session
// is complete.
func (c *Controller) Prompt() (prompts.Sentence, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.PromptIndex >= len(c.sentences) {
		return prompts.Sentence{}, false
	}
	return c.sentences[c.state.PromptIndex], true
}

// Sentences returns the session's prompt list.
func (c *Controller) Sentences() []prompts.Sentence {
	out := make([]prompts.Sentence, len(c.sentences))
	copy(out, c.sentences)
	return out
}

// Start arms the device for the current prompt and returns once Recording
// has begun: after the device reports it is live and the lead-in has passed.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isAborted() {
		c.mu.Unlock()
		return ErrSessionAborted
	}
	switch c.state.Phase {
	case PhaseIdle:
	case PhaseCompleted:
		c.mu.Unlock()
		return ErrSessionComplete
	default:
		phase := c.state.Phase
		c.mu.Unlock()
		return faults.Wrap(faults.ErrPrecondition, "session", "start", "capture already in progress ("+phase.String()+")", nil)
	}
	c.state.LastError = ""
	c.state.Elapsed = 0
	c.stopRequested = false
	armed := make(chan struct{})
	c.armed = armed
	c.transition(PhaseArming)
	c.inflight.Add(1)
	defer c.inflight.Done()
	c.mu.Unlock()

	armCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.aborted:
			cancel()
		case <-armCtx.Done():
		}
	}()

	ready := make(chan struct{})
	var once sync.Once
	onReady := func() { once.Do(func() { close(ready) }) }

	if err := c.backend.Start(armCtx, onReady); err != nil {
		return c.abortArming(ctx, armed, false, c.armingCause(err))
	}
	select {
	case <-ready:
	case <-armCtx.Done():
		return c.abortArming(ctx, armed, true, c.armingCause(armCtx.Err()))
	}
	select {
	case <-c.clock.After(c.leadIn):
	case <-armCtx.Done():
		return c.abortArming(ctx, armed, true, c.armingCause(armCtx.Err()))
	}

	c.mu.Lock()
	c.recordingSince = c.clock.Now()
	c.transition(PhaseRecording)
	c.startTimer()
	close(armed)
	c.mu.Unlock()
	return nil
}

// Stop ends the current capture and queues the clip. A stop requested while
// arming waits for Recording first. The trail is always waited in full before
// the device is stopped.
func (c *Controller) Stop(ctx context.Context) (queue.Item, error) {
	c.mu.Lock()
	switch c.state.Phase {
	case PhaseArming, PhaseRecording:
		if c.stopRequested {
			c.mu.Unlock()
			return queue.Item{}, faults.Wrap(faults.ErrPrecondition, "session", "stop", "stop already requested", nil)
		}
		if c.isAborted() {
			c.mu.Unlock()
			return queue.Item{}, ErrSessionAborted
		}
		c.stopRequested = true
		c.inflight.Add(1)
		defer c.inflight.Done()
	case PhaseCompleted:
		c.mu.Unlock()
		return queue.Item{}, ErrSessionComplete
	case PhaseStopping, PhaseProcessing:
		c.mu.Unlock()
		return queue.Item{}, faults.Wrap(faults.ErrPrecondition, "session", "stop", "stop already in progress", nil)
	default:
		c.mu.Unlock()
		return queue.Item{}, faults.Wrap(faults.ErrPrecondition, "session", "stop", "not recording", nil)
	}

	if c.state.Phase == PhaseArming {
		armed := c.armed
		c.mu.Unlock()
		select {
		case <-armed:
		case <-ctx.Done():
			c.mu.Lock()
			c.stopRequested = false
			c.mu.Unlock()
			return queue.Item{}, faults.Wrap(faults.ErrPrecondition, "session", "stop", "gave up waiting for recording", ctx.Err())
		}
		c.mu.Lock()
		if c.state.Phase != PhaseRecording {
			c.mu.Unlock()
			return queue.Item{}, faults.Wrap(faults.ErrPrecondition, "session", "stop", "capture did not start", nil)
		}
	}
	c.stopTimer()
	c.transition(PhaseStopping)
	c.mu.Unlock()

	<-c.clock.After(c.trail)

	handle, err := c.backend.Stop(ctx)
	if err != nil {
		if !errors.Is(err, faults.ErrCapture) {
			err = faults.Wrap(faults.ErrCapture, "session", "stop", "", err)
		}
		c.mu.Lock()
		c.fail(err)
		c.mu.Unlock()
		return queue.Item{}, err
	}

	c.mu.Lock()
	c.transition(PhaseProcessing)
	sentence := c.sentences[c.state.PromptIndex]
	item := queue.Item{
		ID:         c.nextID(),
		Resource:   handle,
		SentenceID: sentence.ID,
		Text:       sentence.Text,
		Metadata:   c.profile,
		CreatedAt:  c.clock.Now().UTC(),
	}
	c.mu.Unlock()

	if err := c.queue.Append(ctx, item); err != nil {
		if relErr := c.backend.Release(handle); relErr != nil {
			c.logger.Warn("release after failed append",
				logging.String("handle", string(handle)),
				logging.Error(relErr),
			)
		}
		if !errors.Is(err, faults.ErrStorage) && !errors.Is(err, faults.ErrPrecondition) {
			err = faults.Wrap(faults.ErrStorage, "session", "append", "", err)
		}
		c.mu.Lock()
		c.fail(err)
		c.mu.Unlock()
		return queue.Item{}, err
	}

	c.mu.Lock()
	c.state.PromptIndex++
	c.stopRequested = false
	if c.state.PromptIndex >= c.state.Total {
		c.transition(PhaseCompleted)
	} else {
		c.transition(PhaseIdle)
	}
	c.logger.Info("clip captured",
		logging.String(logging.FieldItemID, item.ID),
		logging.Int64(logging.FieldSentenceID, item.SentenceID),
		logging.String("progress", fmt.Sprintf("%d/%d", c.state.PromptIndex, c.state.Total)),
	)
	c.mu.Unlock()
	return item, nil
}

// Abort ends the session. An unfinished capture is stopped and its partial
// clip released without being queued; a Stop already in progress is allowed
// to finish and queue its clip. discarded reports whether a partial clip was
// thrown away. Start and Stop fail with ErrSessionAborted afterwards.
func (c *Controller) Abort(ctx context.Context) (discarded bool, err error) {
	c.mu.Lock()
	if !c.isAborted() {
		close(c.aborted)
	}
	c.mu.Unlock()

	idle := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(idle)
	}()
	select {
	case <-idle:
	case <-ctx.Done():
		return false, faults.Wrap(faults.ErrCapture, "session", "abort", "gave up waiting for capture", ctx.Err())
	}

	c.mu.Lock()
	if c.state.Phase != PhaseRecording {
		c.mu.Unlock()
		return false, nil
	}
	c.stopTimer()
	c.transition(PhaseStopping)
	c.mu.Unlock()

	handle, stopErr := c.backend.Stop(ctx)
	if stopErr == nil {
		if relErr := c.backend.Release(handle); relErr != nil {
			c.logger.Warn("release aborted clip", logging.String("handle", string(handle)), logging.Error(relErr))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.LastError = ErrSessionAborted.Error()
	c.transition(PhaseError)
	c.transition(PhaseIdle)
	c.logger.Info("unfinished capture discarded", logging.Int("prompt_index", c.state.PromptIndex))
	if stopErr != nil {
		if !errors.Is(stopErr, faults.ErrCapture) {
			stopErr = faults.Wrap(faults.ErrCapture, "session", "abort", "", stopErr)
		}
		return true, stopErr
	}
	return true, nil
}

func (c *Controller) isAborted() bool {
	select {
	case <-c.aborted:
		return true
	default:
		return false
	}
}

func (c *Controller) armingCause(err error) error {
	if c.isAborted() {
		return ErrSessionAborted
	}
	return err
}

// abortArming unwinds a failed or cancelled Start. When the device already
// went live it is stopped and the partial clip released.
func (c *Controller) abortArming(ctx context.Context, armed chan struct{}, deviceStarted bool, cause error) error {
	if deviceStarted {
		stopCtx := context.WithoutCancel(ctx)
		if h, err := c.backend.Stop(stopCtx); err == nil {
			if relErr := c.backend.Release(h); relErr != nil {
				c.logger.Warn("release partial clip", logging.String("handle", string(h)), logging.Error(relErr))
			}
		}
	}
	err := cause
	if !errors.Is(err, faults.ErrCapture) {
		err = faults.Wrap(faults.ErrCapture, "session", "start", "", cause)
	}
	c.mu.Lock()
	c.fail(err)
	close(armed)
	c.mu.Unlock()
	return err
}

// fail records err, passes through Error, and settles on Idle with the
// prompt unchanged. Callers hold c.mu.
func (c *Controller) fail(err error) {
	c.stopTimer()
	c.stopRequested = false
	c.state.LastError = err.Error()
	logging.WarnWithContext(c.logger, "capture attempt failed", "capture_failed",
		logging.String(logging.FieldPhase, c.state.Phase.String()),
		logging.Int("prompt_index", c.state.PromptIndex),
		logging.String("error_kind", faults.Kind(err)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the camera and retry the same prompt"),
	)
	c.transition(PhaseError)
	c.transition(PhaseIdle)
}

// transition moves to phase and notifies observers. Callers hold c.mu.
func (c *Controller) transition(to Phase) {
	from := c.state.Phase
	if !isValidTransition(from, to) {
		c.logger.Error("invalid phase transition",
			logging.String("from", from.String()),
			logging.String("to", to.String()),
		)
		return
	}
	c.state.Phase = to
	c.logger.Debug("phase changed", logging.String("from", from.String()), logging.String(logging.FieldPhase, to.String()))
	c.notify()
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange(c.state)
	}
}

// startTimer ticks Elapsed once a second while Recording. Callers hold c.mu.
func (c *Controller) startTimer() {
	ticker := c.clock.NewTicker(time.Second)
	done := make(chan struct{})
	c.tickerDone = done
	since := c.recordingSince
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C():
				c.mu.Lock()
				if c.tickerDone == done {
					c.state.Elapsed = int(c.clock.Now().Sub(since) / time.Second)
					c.notify()
				}
				c.mu.Unlock()
			}
		}
	}()
}

func (c *Controller) stopTimer() {
	if c.tickerDone != nil {
		close(c.tickerDone)
		c.tickerDone = nil
	}
}

// nextID derives an item ID from the clock in Unix milliseconds, stepping
// past the previous ID when two clips land in the same millisecond.
func (c *Controller) nextID() string {
	ms := c.clock.Now().UnixMilli()
	if ms <= c.lastID {
		ms = c.lastID + 1
	}
	c.lastID = ms
	return strconv.FormatInt(ms, 10)
}
