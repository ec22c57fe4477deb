package domain

// Action represents the type of trading action sent to a venue.
type Action int

const (
	ActionOpenLong Action = iota
	ActionCloseLong
	ActionOpenShort
	ActionCloseShort
)

// String returns the string representation of the action
func (a Action) String() string {
	switch a {
	case ActionOpenLong:
		return "open_long"
	case ActionCloseLong:
		return "close_long"
	case ActionOpenShort:
		return "open_short"
	case ActionCloseShort:
		return "close_short"
	default:
		return "unknown"
	}
}

// IsBuy reports whether the action is executed as a buy order.
func (a Action) IsBuy() bool {
	return a == ActionOpenLong || a == ActionCloseShort
}

// OpenAction returns the action that opens a position in direction d.
func OpenAction(d Direction) Action {
	if d == DirectionShort {
		return ActionOpenShort
	}
	return ActionOpenLong
}

// CloseAction returns the action that closes a position in direction d.
func CloseAction(d Direction) Action {
	if d == DirectionShort {
		return ActionCloseShort
	}
	return ActionCloseLong
}
