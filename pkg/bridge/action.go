package bridge

// ActionKind tells the router what to do with an observed chunk.
type ActionKind uint8

const (
	// ActionBuffering: the chunk is a partial magic word; nothing to do yet.
	ActionBuffering ActionKind = iota

	// ActionForward: mirror Action.Forward to Action.Targets.
	ActionForward

	// ActionConflict: another channel owns the bridge. Tell the source.
	ActionConflict

	// ActionEnterMenu: the menu was just entered. Forward Action.Forward
	// first (if any), then start the menu and feed it Action.Input.
	ActionEnterMenu

	// ActionMenu: feed Action.Input to the running menu.
	ActionMenu

	// ActionIgnore: the chunk came from an unknown channel.
	ActionIgnore
)

// String returns the action name.
func (k ActionKind) String() string {
	switch k {
	case ActionBuffering:
		return "BUFFERING"
	case ActionForward:
		return "FORWARD"
	case ActionConflict:
		return "CONFLICT"
	case ActionEnterMenu:
		return "ENTER_MENU"
	case ActionMenu:
		return "MENU"
	case ActionIgnore:
		return "IGNORE"
	default:
		return "UNKNOWN"
	}
}

// Action is the arbiter's directive for one chunk. Byte slices alias the
// observed chunk.
type Action struct {
	Kind   ActionKind
	Source Channel

	// Targets never contains Source.
	Targets []Channel
	Forward []byte

	// Input is destined for the line editor.
	Input []byte

	// Owner is the owning channel for ActionConflict and the channel that
	// opened the menu for ActionEnterMenu and ActionMenu.
	Owner Channel

	// MenuSession identifies the menu session of ActionEnterMenu and
	// ActionMenu. It increases every time the menu is entered.
	MenuSession uint64
}
