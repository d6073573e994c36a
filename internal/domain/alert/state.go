package alert

import "strings"

// IndicatorState is the visible state of the LED groups.
type IndicatorState int

const (
	// StateIdle lights the safe group only.
	StateIdle IndicatorState = iota
	// StateDanger lights the danger group only.
	StateDanger
)

// String implements fmt.Stringer.
func (s IndicatorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDanger:
		return "danger"
	default:
		return "unknown"
	}
}

// PinMode selects how pin numbers in the configuration are interpreted.
type PinMode string

const (
	// PinModeBCM uses Broadcom SoC channel numbers (GPIO17, GPIO27...).
	PinModeBCM PinMode = "BCM"
	// PinModeBoard uses physical header pin numbers (1..40).
	PinModeBoard PinMode = "BOARD"
)

// ParsePinMode parses a pin mode name case-insensitively.
// Unknown names yield PinModeBCM and false.
func ParsePinMode(s string) (PinMode, bool) {
	switch PinMode(strings.ToUpper(strings.TrimSpace(s))) {
	case PinModeBCM:
		return PinModeBCM, true
	case PinModeBoard:
		return PinModeBoard, true
	default:
		return PinModeBCM, false
	}
}
