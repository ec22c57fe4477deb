package domain

// Direction side of a trade.
type Direction int

const (
	DirectionLong Direction = iota
	DirectionShort
)

func (d Direction) String() string {
	switch d {
	case DirectionLong:
		return "long"
	case DirectionShort:
		return "short"
	default:
		return "unknown"
	}
}

// Opposite returns the other side.
func (d Direction) Opposite() Direction {
	if d == DirectionLong {
		return DirectionShort
	}
	return DirectionLong
}

// Signal trading intent produced once per cycle.
type Signal int

const (
	SignalNone Signal = iota
	SignalLong
	SignalShort
)

func (s Signal) String() string {
	switch s {
	case SignalLong:
		return "long"
	case SignalShort:
		return "short"
	default:
		return "none"
	}
}

// Direction maps Long/Short to a trade direction; None reports false.
func (s Signal) Direction() (Direction, bool) {
	switch s {
	case SignalLong:
		return DirectionLong, true
	case SignalShort:
		return DirectionShort, true
	default:
		return 0, false
	}
}

// Opposes reports whether the signal points against d.
func (s Signal) Opposes(d Direction) bool {
	dir, ok := s.Direction()
	return ok && dir != d
}
