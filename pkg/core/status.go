// pkg/core/status.go
package core

import "fmt"

// EngineStatus is the ignition state of the engine.
// Off and Stalled both produce no torque but are reported separately.
type EngineStatus uint8

const (
	EngineOff EngineStatus = iota
	EngineOn
	EngineStalled
)

func (s EngineStatus) String() string {
	switch s {
	case EngineOn:
		return "On"
	case EngineOff:
		return "Off"
	case EngineStalled:
		return "Stalled"
	default:
		return fmt.Sprintf("EngineStatus(%d)", s)
	}
}

// Valid reports whether s is a declared engine status.
func (s EngineStatus) Valid() bool {
	return s <= EngineStalled
}

// Running reports whether the engine can deliver torque.
func (s EngineStatus) Running() bool {
	return s == EngineOn
}

// ClutchStatus is a view of the clutch pedal position.
// Off means the pedal is fully down and the drivetrain is disconnected.
type ClutchStatus uint8

const (
	ClutchOff ClutchStatus = iota
	ClutchHalfOn
	ClutchOn
)

// Clutch pedal positions, 0 is pedal down.
const (
	ClutchMinPosition = 0
	ClutchMaxPosition = 2
)

func (s ClutchStatus) String() string {
	switch s {
	case ClutchOn:
		return "On"
	case ClutchHalfOn:
		return "HalfOn"
	case ClutchOff:
		return "Off"
	default:
		return fmt.Sprintf("ClutchStatus(%d)", s)
	}
}

// ClutchFromPosition derives the clutch status from a pedal position.
// Positions outside [0,2] are clamped.
func ClutchFromPosition(pos int) ClutchStatus {
	switch {
	case pos <= ClutchMinPosition:
		return ClutchOff
	case pos >= ClutchMaxPosition:
		return ClutchOn
	default:
		return ClutchHalfOn
	}
}

// HandBrakeStatus is the parking brake lever state.
type HandBrakeStatus uint8

const (
	HandBrakeOn HandBrakeStatus = iota
	HandBrakeOff
)

func (s HandBrakeStatus) String() string {
	switch s {
	case HandBrakeOn:
		return "On"
	case HandBrakeOff:
		return "Off"
	default:
		return fmt.Sprintf("HandBrakeStatus(%d)", s)
	}
}

// Valid reports whether s is On or Off.
func (s HandBrakeStatus) Valid() bool {
	return s <= HandBrakeOff
}

// Toggle flips the lever.
func (s HandBrakeStatus) Toggle() HandBrakeStatus {
	if s == HandBrakeOn {
		return HandBrakeOff
	}
	return HandBrakeOn
}

func (s EngineStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
func (s ClutchStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
func (s HandBrakeStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
