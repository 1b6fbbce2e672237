package health

type Status int

const (
	StatusHealthy Status = iota // Available
	StatusFrozen                // Excluded until the freeze expires
	StatusProbing               // Available, proving recovery
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusFrozen:
		return "frozen"
	case StatusProbing:
		return "probing"
	default:
		return "unknown"
	}
}

// Text is the label shown in status displays.
func (s Status) Text() string {
	switch s {
	case StatusHealthy:
		return "Healthy"
	case StatusFrozen:
		return "Frozen"
	case StatusProbing:
		return "Probing"
	default:
		return "Unknown"
	}
}

// Color is the display color tier for the status.
func (s Status) Color() string {
	switch s {
	case StatusHealthy:
		return "#18a058"
	case StatusFrozen:
		return "#d03050"
	case StatusProbing:
		return "#f0a020"
	default:
		return "#909399"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Available reports whether the status admits traffic without a state change.
func (s Status) Available() bool {
	return s != StatusFrozen
}
