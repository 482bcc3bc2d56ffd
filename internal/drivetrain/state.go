package drivetrain

import "github.com/OCAP2/drivetrain/pkg/core"

// subsystemState holds the four orthogonal subsystems.
// Both gear positions are kept; only the one matching mode is active.
type subsystemState struct {
	mode       core.TransmissionMode
	engine     core.EngineStatus
	handBrake  core.HandBrakeStatus
	clutchPos  int
	manualGear core.ManualGear
	autoGear   core.AutoGear
}

func (s *subsystemState) clutch() core.ClutchStatus {
	return core.ClutchFromPosition(s.clutchPos)
}

// activeGear formats the gear of the active mode.
func (s *subsystemState) activeGear() string {
	if s.mode == core.Automatic {
		return s.autoGear.String()
	}
	return s.manualGear.String()
}

func (s *subsystemState) inReverse() bool {
	if s.mode == core.Automatic {
		return s.autoGear == core.AutoReverse
	}
	return s.manualGear == core.ManualReverse
}

// inputBuffer holds the latest pedal and steering inputs until a tick reads them.
type inputBuffer struct {
	accelerator float64
	brake       float64
	turn        float64
}

// State is a read-only copy of a controller's state.
type State struct {
	Mode            core.TransmissionMode
	ManualGear      core.ManualGear
	AutoGear        core.AutoGear
	Engine          core.EngineStatus
	Clutch          core.ClutchStatus
	ClutchPosition  int
	HandBrake       core.HandBrakeStatus
	ReferenceTorque float64
	SteerAngle      float64
	Accelerator     float64
	Brake           float64
	Turn            float64
	Ticks           uint64
}

// ShiftResult tells what a gear-shift request did.
type ShiftResult uint8

const (
	// ShiftApplied means the gear changed.
	ShiftApplied ShiftResult = iota
	// ShiftIgnored means the request targeted the inactive gearbox.
	ShiftIgnored
	// ShiftStalled means the clutch was not disengaged and the engine stalled.
	ShiftStalled
)

func (r ShiftResult) String() string {
	switch r {
	case ShiftApplied:
		return "applied"
	case ShiftIgnored:
		return "ignored"
	case ShiftStalled:
		return "stalled"
	default:
		return "unknown"
	}
}
