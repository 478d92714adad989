package modal

// Mode is what the overlay is showing.
type Mode string

const (
	ModeNone     Mode = "none"
	ModePin      Mode = "pin"
	ModeSettings Mode = "settings"
	ModeSupport  Mode = "support"
)

// Phase is the overlay lifecycle: closed -> opening -> open -> closed.
type Phase int

const (
	// PhaseClosed means no overlay exists.
	PhaseClosed Phase = iota
	// PhaseOpening means the overlay is attached and its content is loading.
	PhaseOpening
	// PhaseOpen means the overlay content finished loading.
	PhaseOpen
)

// String returns the string representation of the phase
func (p Phase) String() string {
	switch p {
	case PhaseClosed:
		return "closed"
	case PhaseOpening:
		return "opening"
	case PhaseOpen:
		return "open"
	default:
		return "unknown"
	}
}
