package registration

import (
	"fmt"
	"strings"
)

// State is the reconciliation state of one client.
type State int

const (
	NotConfigured State = iota
	MissingConfig
	Configured
	IncorrectPath
	Error
)

var stateNames = map[State]string{
	NotConfigured: "not_configured",
	MissingConfig: "missing_config",
	Configured:    "configured",
	IncorrectPath: "incorrect_path",
	Error:         "error",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name for JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	value := strings.TrimSpace(string(text))
	for state, name := range stateNames {
		if name == value {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown registration state %q", value)
}

// Label is the human-facing name of the state.
func (s State) Label() string {
	switch s {
	case NotConfigured:
		return "Not configured"
	case MissingConfig:
		return "Missing entry"
	case Configured:
		return "Configured"
	case IncorrectPath:
		return "Needs reconfiguration"
	case Error:
		return "Error"
	default:
		return s.String()
	}
}

// Status is the most recent known state of a client plus an optional
// diagnostic.
type Status struct {
	State  State  `json:"state"`
	Detail string `json:"detail,omitempty"`
}

// Failed maps an evaluation failure to an Error status.
func Failed(err error) Status {
	msg := "unknown failure"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return Status{State: Error, Detail: msg}
}

// NeedsAttention reports whether the status is actionable.
func (s Status) NeedsAttention() bool {
	return s.State == IncorrectPath || s.State == Error
}

func (s Status) String() string {
	if s.Detail == "" {
		return s.State.Label()
	}
	return s.State.Label() + ": " + s.Detail
}
