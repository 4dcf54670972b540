package tui

import (
	"clipkeeper/internal/queue"
	"clipkeeper/internal/session"
)

// StateMsg carries a controller state snapshot.
type StateMsg struct {
	State session.State
}

// StartedMsg is sent when a Start call returns.
type StartedMsg struct {
	Err error
}

// StoppedMsg is sent when a Stop call returns.
type StoppedMsg struct {
	Item queue.Item
	Err  error
}

// feedClosedMsg is sent once the state feed is closed.
type feedClosedMsg struct{}
