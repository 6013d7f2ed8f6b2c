package bridge

import (
	"fmt"
	"time"
)

// State is the arbitration state.
type State uint8

const (
	// StateIdle means no channel owns the bridge.
	StateIdle State = iota

	// StateForwarding means one channel owns the bridge; see Status.Owner.
	StateForwarding

	// StateMenu means input is routed to the command menu.
	StateMenu
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateForwarding:
		return "FORWARDING"
	case StateMenu:
		return "MENU"
	default:
		return "UNKNOWN"
	}
}

// Status is the state plus, when forwarding, the owning channel.
type Status struct {
	State State
	Owner Channel
}

// String returns e.g. "IDLE" or "FORWARDING(LOCAL)".
func (s Status) String() string {
	if s.State == StateForwarding {
		return fmt.Sprintf("%s(%s)", s.State, s.Owner)
	}
	return s.State.String()
}

// Transition reasons.
const (
	ReasonMagicWord = "magic word"
	ReasonInput     = "input"
	ReasonEscape    = "magic word from owner"
	ReasonTimeout   = "owner timeout"
	ReasonMenuExit  = "menu exit"
)

// Transition describes a state change.
type Transition struct {
	From   Status
	To     Status
	Reason string

	// Channel is the channel whose input caused the change. It is only
	// meaningful for input-driven transitions.
	Channel Channel

	At time.Time
}
