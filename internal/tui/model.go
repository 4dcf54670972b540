// Package tui is the operator's recording screen: one prompt at a time, a
// phase indicator, a timer, and a single key to start and stop.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"clipkeeper/internal/prompts"
	"clipkeeper/internal/queue"
	"clipkeeper/internal/session"
)

// Controller is the session surface the screen drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (queue.Item, error)
	State() session.State
	Sentences() []prompts.Sentence
}

// Feed returns a buffered state channel and an OnChange callback that feeds
// it without blocking. Snapshots are dropped when the screen falls behind;
// the screen re-reads State after every Start and Stop.
func Feed(buffer int) (<-chan session.State, func(session.State)) {
	ch := make(chan session.State, buffer)
	return ch, func(s session.State) {
		select {
		case ch <- s:
		default:
		}
	}
}

// Model is the root bubbletea model for the recording screen.
type Model struct {
	ctx       context.Context
	ctrl      Controller
	updates   <-chan session.State
	sentences []prompts.Sentence

	state     session.State
	starting  bool
	stopSent  bool
	lastSaved string
	errorMsg  string
	notice    string
	width     int
	quitting  bool
}

// New creates a Model over ctrl. updates may be nil.
func New(ctx context.Context, ctrl Controller, updates <-chan session.State) Model {
	return Model{
		ctx:       ctx,
		ctrl:      ctrl,
		updates:   updates,
		sentences: ctrl.Sentences(),
		state:     ctrl.State(),
	}
}

// Init starts listening for state changes.
func (m Model) Init() tea.Cmd {
	return waitForState(m.updates)
}

func waitForState(updates <-chan session.State) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-updates
		if !ok {
			return feedClosedMsg{}
		}
		return StateMsg{State: s}
	}
}

func startCmd(ctx context.Context, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		return StartedMsg{Err: ctrl.Start(ctx)}
	}
}

func stopCmd(ctx context.Context, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		item, err := ctrl.Stop(ctx)
		return StoppedMsg{Item: item, Err: err}
	}
}

// Update handles input and controller events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case StateMsg:
		m.state = msg.State
		return m, waitForState(m.updates)
	case feedClosedMsg:
		m.updates = nil
		return m, nil
	case StartedMsg:
		m.starting = false
		m.state = m.ctrl.State()
		if msg.Err != nil && !errors.Is(msg.Err, session.ErrSessionComplete) {
			m.errorMsg = msg.Err.Error()
		}
		return m, nil
	case StoppedMsg:
		m.stopSent = false
		m.state = m.ctrl.State()
		if msg.Err != nil {
			m.errorMsg = msg.Err.Error()
			return m, nil
		}
		m.lastSaved = msg.Item.ID
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case KeyQuit, KeyQuitUpper:
		if m.state.Phase.Busy() || m.starting || m.stopSent {
			m.notice = "finish the current clip before quitting"
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit
	case KeySpace, KeyEnter:
		return m.toggle()
	}
	return m, nil
}

// toggle starts a capture when idle and stops it while arming or recording.
func (m Model) toggle() (tea.Model, tea.Cmd) {
	m.notice = ""
	switch m.state.Phase {
	case session.PhaseIdle:
		if m.starting {
			return m, nil
		}
		m.starting = true
		m.errorMsg = ""
		m.lastSaved = ""
		return m, startCmd(m.ctx, m.ctrl)
	case session.PhaseArming, session.PhaseRecording:
		if m.stopSent {
			return m, nil
		}
		m.stopSent = true
		return m, stopCmd(m.ctx, m.ctrl)
	case session.PhaseCompleted:
		m.notice = "session complete, press q to quit"
	}
	return m, nil
}

// View renders the screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder

	b.WriteString(TitleStyle.Render("clipkeeper"))
	b.WriteString("  ")
	b.WriteString(ProgressStyle.Render(m.progress()))
	b.WriteString("\n")

	if m.state.Phase == session.PhaseCompleted {
		b.WriteString(SentenceStyle.Render("All prompts recorded. Run `clipkeeper upload` when online."))
		b.WriteString("\n")
	} else if s, ok := m.currentSentence(); ok {
		text := s.Text
		if m.width > 8 {
			text = lipgloss.NewStyle().Width(m.width - 4).Render(text)
		}
		b.WriteString(SentenceStyle.Render(text))
		b.WriteString("\n")
		if s.Category != "" {
			b.WriteString(CategoryStyle.Render("  " + s.Category))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.indicator())
	b.WriteString("\n")

	if m.errorMsg != "" {
		b.WriteString(ErrorStyle.Render("error: " + m.errorMsg))
		b.WriteString("\n")
	} else if m.lastSaved != "" {
		b.WriteString(SavedStyle.Render("saved clip " + m.lastSaved))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(ProgressStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(footer(m.state.Phase))
	return b.String()
}

func (m Model) progress() string {
	total := m.state.Total
	if total == 0 {
		total = len(m.sentences)
	}
	current := m.state.PromptIndex + 1
	if current > total {
		current = total
	}
	return fmt.Sprintf("prompt %d/%d", current, total)
}

func (m Model) currentSentence() (prompts.Sentence, bool) {
	if m.state.PromptIndex < 0 || m.state.PromptIndex >= len(m.sentences) {
		return prompts.Sentence{}, false
	}
	return m.sentences[m.state.PromptIndex], true
}

func (m Model) indicator() string {
	switch m.state.Phase {
	case session.PhaseRecording:
		return RecordingStyle.Render("● REC " + formatElapsed(m.state.Elapsed))
	case session.PhaseArming:
		return ArmingStyle.Render("◌ get ready")
	case session.PhaseStopping, session.PhaseProcessing:
		return ArmingStyle.Render("◌ saving")
	case session.PhaseCompleted:
		return DoneStyle.Render("✓ done")
	default:
		return IdleStyle.Render("○ ready")
	}
}

// formatElapsed renders seconds as mm:ss.
func formatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func footer(phase session.Phase) string {
	action := "start"
	if phase == session.PhaseArming || phase == session.PhaseRecording {
		action = "stop"
	}
	return FooterKeyStyle.Render("space") + " " + FooterDescStyle.Render(action) + "  " +
		FooterKeyStyle.Render("q") + " " + FooterDescStyle.Render("quit")
}

// Run shows the screen until the operator quits or ctx is cancelled.
func Run(ctx context.Context, ctrl Controller, updates <-chan session.State, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(New(ctx, ctrl, updates), opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
