package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"clipkeeper/internal/faults"
	"clipkeeper/internal/prompts"
	"clipkeeper/internal/queue"
	"clipkeeper/internal/session"
)

type fakeController struct {
	state    session.State
	starts   int
	stops    int
	startErr error
	stopErr  error
}

func (f *fakeController) Start(context.Context) error {
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.state.Phase = session.PhaseRecording
	return nil
}

func (f *fakeController) Stop(context.Context) (queue.Item, error) {
	f.stops++
	if f.stopErr != nil {
		f.state.Phase = session.PhaseIdle
		return queue.Item{}, f.stopErr
	}
	f.state.PromptIndex++
	f.state.Phase = session.PhaseIdle
	if f.state.PromptIndex >= f.state.Total {
		f.state.Phase = session.PhaseCompleted
	}
	return queue.Item{ID: "1700000000000"}, nil
}

func (f *fakeController) State() session.State { return f.state }

func (f *fakeController) Sentences() []prompts.Sentence {
	return []prompts.Sentence{
		{ID: 1, Text: "Selamat pagi", Category: "Greeting"},
		{ID: 2, Text: "Terima kasih", Category: "Greeting"},
	}
}

func newTestModel() (Model, *fakeController) {
	ctrl := &fakeController{state: session.State{Total: 2, Phase: session.PhaseIdle}}
	return New(context.Background(), ctrl, nil), ctrl
}

var (
	spaceKey = tea.KeyMsg{Type: tea.KeySpace}
	quitKey  = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
)

func press(t *testing.T, m Model, key tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(key)
	return updated.(Model), cmd
}

func deliver(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, _ := m.Update(msg)
	return updated.(Model)
}

func TestNewModelShowsFirstPrompt(t *testing.T) {
	m, _ := newTestModel()
	view := m.View()
	for _, want := range []string{"prompt 1/2", "Selamat pagi", "ready", "space", "quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestSpaceStartsThenStops(t *testing.T) {
	m, ctrl := newTestModel()

	m, cmd := press(t, m, spaceKey)
	if cmd == nil || !m.starting {
		t.Fatal("expected a start command")
	}
	// A second press while the start is in flight does nothing.
	if _, again := press(t, m, spaceKey); again != nil {
		t.Fatal("expected no duplicate start")
	}
	m = deliver(t, m, cmd())
	if ctrl.starts != 1 || m.state.Phase != session.PhaseRecording {
		t.Fatalf("expected recording after start, phase %s", m.state.Phase)
	}

	m = deliver(t, m, StateMsg{State: session.State{Total: 2, Phase: session.PhaseRecording, Elapsed: 65}})
	if !strings.Contains(m.View(), "REC 01:05") {
		t.Fatalf("expected timer in view:\n%s", m.View())
	}

	m, cmd = press(t, m, spaceKey)
	if cmd == nil || !m.stopSent {
		t.Fatal("expected a stop command")
	}
	if _, again := press(t, m, spaceKey); again != nil {
		t.Fatal("expected no duplicate stop")
	}
	m = deliver(t, m, cmd())
	if ctrl.stops != 1 {
		t.Fatalf("expected one stop, got %d", ctrl.stops)
	}
	view := m.View()
	if !strings.Contains(view, "prompt 2/2") || !strings.Contains(view, "Terima kasih") || !strings.Contains(view, "saved clip") {
		t.Fatalf("expected next prompt after stop:\n%s", view)
	}
}

func TestStartErrorShowsErrorLine(t *testing.T) {
	m, ctrl := newTestModel()
	ctrl.startErr = faults.Wrap(faults.ErrCapture, "capture", "start", "camera busy", nil)

	m, cmd := press(t, m, spaceKey)
	m = deliver(t, m, cmd())
	view := m.View()
	if !strings.Contains(view, "error:") || !strings.Contains(view, "camera busy") {
		t.Fatalf("expected error line:\n%s", view)
	}
	if !strings.Contains(view, "prompt 1/2") {
		t.Fatalf("prompt must not advance:\n%s", view)
	}

	// A new attempt clears the error.
	ctrl.startErr = nil
	m, _ = press(t, m, spaceKey)
	if strings.Contains(m.View(), "error:") {
		t.Fatal("expected error cleared on retry")
	}
}

func TestStopErrorShowsErrorLine(t *testing.T) {
	m, ctrl := newTestModel()
	m, cmd := press(t, m, spaceKey)
	m = deliver(t, m, cmd())
	ctrl.stopErr = errors.New("encoder crashed")

	m, cmd = press(t, m, spaceKey)
	m = deliver(t, m, cmd())
	if !strings.Contains(m.View(), "encoder crashed") || m.stopSent {
		t.Fatalf("expected stop error shown:\n%s", m.View())
	}
}

func TestQuitIsBlockedWhileBusy(t *testing.T) {
	m, _ := newTestModel()
	m = deliver(t, m, StateMsg{State: session.State{Total: 2, Phase: session.PhaseRecording}})

	m, cmd := press(t, m, quitKey)
	if cmd != nil {
		t.Fatal("expected quit to be refused while recording")
	}
	if !strings.Contains(m.View(), "finish the current clip") {
		t.Fatalf("expected notice:\n%s", m.View())
	}

	m = deliver(t, m, StateMsg{State: session.State{Total: 2, Phase: session.PhaseIdle}})
	_, cmd = press(t, m, quitKey)
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestCtrlCAlwaysQuits(t *testing.T) {
	m, _ := newTestModel()
	m = deliver(t, m, StateMsg{State: session.State{Total: 2, Phase: session.PhaseRecording}})
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil || !m.quitting || m.View() != "" {
		t.Fatal("expected ctrl+c to quit")
	}
}

func TestCompletedSession(t *testing.T) {
	m, _ := newTestModel()
	m = deliver(t, m, StateMsg{State: session.State{Total: 2, PromptIndex: 2, Phase: session.PhaseCompleted}})
	view := m.View()
	if !strings.Contains(view, "prompt 2/2") || !strings.Contains(view, "All prompts recorded") {
		t.Fatalf("unexpected completed view:\n%s", view)
	}
	m, cmd := press(t, m, spaceKey)
	if cmd != nil || !strings.Contains(m.View(), "session complete") {
		t.Fatal("space after completion should only show a notice")
	}
}

func TestFeedDropsWhenFull(t *testing.T) {
	ch, push := Feed(1)
	push(session.State{PromptIndex: 1})
	push(session.State{PromptIndex: 2})
	if got := (<-ch).PromptIndex; got != 1 {
		t.Fatalf("expected first snapshot kept, got %d", got)
	}
	select {
	case s := <-ch:
		t.Fatalf("expected second snapshot dropped, got %+v", s)
	default:
	}
}

func TestWaitForStateReadsFeed(t *testing.T) {
	ch, push := Feed(4)
	ctrl := &fakeController{state: session.State{Total: 2}}
	m := New(context.Background(), ctrl, ch)
	push(session.State{Total: 2, Phase: session.PhaseArming})

	msg := m.Init()()
	state, ok := msg.(StateMsg)
	if !ok || state.State.Phase != session.PhaseArming {
		t.Fatalf("unexpected msg %#v", msg)
	}
	m = deliver(t, m, state)
	if !strings.Contains(m.View(), "get ready") {
		t.Fatalf("expected arming indicator:\n%s", m.View())
	}
}

func TestFormatElapsed(t *testing.T) {
	cases := map[int]string{0: "00:00", 9: "00:09", 61: "01:01", 600: "10:00", -3: "00:00"}
	for in, want := range cases {
		if got := formatElapsed(in); got != want {
			t.Errorf("formatElapsed(%d) = %q, want %q", in, got, want)
		}
	}
}
