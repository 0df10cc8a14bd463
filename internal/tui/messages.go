package tui

import "mcpreg/internal/registration"

// StatusMsg reports a freshly evaluated status for one client row.
type StatusMsg struct {
	ID     string
	Status registration.Status
	// Rewritten marks statuses produced after an automatic rewrite.
	Rewritten bool
}

// BusyMsg marks a row as busy with the given activity label.
type BusyMsg struct {
	ID       string
	Activity string
}

// actionDoneMsg reports the end of a configure or unregister request.
type actionDoneMsg struct {
	ID     string
	Action string
	Err    error
}

// WorkDoneMsg signals that all background work has completed.
type WorkDoneMsg struct{}

// ErrorMsg signals a fatal error; the TUI should quit.
type ErrorMsg struct {
	Err error
}
