package session

// Phase is the controller's position within one capture attempt.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseArming
	PhaseRecording
	PhaseStopping
	PhaseProcessing
	PhaseCompleted
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseArming:
		return "arming"
	case PhaseRecording:
		return "recording"
	case PhaseStopping:
		return "stopping"
	case PhaseProcessing:
		return "processing"
	case PhaseCompleted:
		return "completed"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Busy reports whether a capture attempt is in flight.
func (p Phase) Busy() bool {
	switch p {
	case PhaseArming, PhaseRecording, PhaseStopping, PhaseProcessing:
		return true
	default:
		return false
	}
}

// State is a snapshot of the session.
type State struct {
	PromptIndex int
	Total       int
	Phase       Phase
	// Elapsed counts whole seconds spent in Recording for the current clip.
	Elapsed   int
	LastError string
}

// isValidTransition enforces the allowed phase edges.
func isValidTransition(from, to Phase) bool {
	switch from {
	case PhaseIdle:
		return to == PhaseArming
	case PhaseArming:
		return to == PhaseRecording || to == PhaseError
	case PhaseRecording:
		return to == PhaseStopping || to == PhaseError
	case PhaseStopping:
		return to == PhaseProcessing || to == PhaseError
	case PhaseProcessing:
		return to == PhaseIdle || to == PhaseCompleted || to == PhaseError
	case PhaseError:
		return to == PhaseIdle
	default:
		return false
	}
}
