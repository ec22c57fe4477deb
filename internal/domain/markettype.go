package domain

// MarketType selects spot or margin/perpetual trading.
type MarketType string

const (
	MarketTypeSpot   MarketType = "spot"
	MarketTypeMargin MarketType = "margin"
)

func (m MarketType) String() string {
	return string(m)
}

// Allows reports whether an entry in direction d can be placed. Spot
// accounts cannot sell what they do not hold, so shorts need margin.
func (m MarketType) Allows(d Direction) bool {
	switch d {
	case DirectionLong:
		return m == MarketTypeSpot || m == MarketTypeMargin
	case DirectionShort:
		return m == MarketTypeMargin
	default:
		return false
	}
}
