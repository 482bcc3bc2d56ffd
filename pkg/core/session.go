// pkg/core/session.go
package core

import "time"

// Snapshot is the presentation view of a controller, pushed to display sinks.
// Gear is already formatted for the active transmission mode.
type Snapshot struct {
	Mode               TransmissionMode `json:"mode"`
	Gear               string           `json:"gear"`
	HandBrake          HandBrakeStatus  `json:"handBrake"`
	Accelerator        float64          `json:"accelerator"`
	Braking            bool             `json:"braking"`
	Clutch             ClutchStatus     `json:"clutch"`
	Engine             EngineStatus     `json:"engine"`
	SteerAngle         float64          `json:"steerAngle"`
	SteeringWheelAngle float64          `json:"steeringWheelAngle"`
}

// Session is one recorded drive of a single car.
type Session struct {
	ID         string           `json:"id"`
	CarID      string           `json:"carId"`
	StartTime  time.Time        `json:"startTime"`
	EndTime    time.Time        `json:"endTime"`
	Mode       TransmissionMode `json:"mode"`
	TableScale float64          `json:"tableScale"`
	TickRate   time.Duration    `json:"tickRate"`
}

// TickRecord is a recorded tick output.
type TickRecord struct {
	SessionID string       `json:"sessionId"`
	CarID     string       `json:"carId"`
	Tick      uint64       `json:"tick"`
	Time      time.Time    `json:"time"`
	Command   DriveCommand `json:"command"`
	Snapshot  Snapshot     `json:"snapshot"`
}

// StateEventKind names the subsystem whose state changed.
type StateEventKind string

const (
	EventEngine       StateEventKind = "engine"
	EventStall        StateEventKind = "stall"
	EventClutch       StateEventKind = "clutch"
	EventHandBrake    StateEventKind = "handbrake"
	EventTransmission StateEventKind = "transmission"
	EventShift        StateEventKind = "shift"
)

// StateEvent records a discrete subsystem transition.
// Tick is the number of ticks completed when the transition happened.
type StateEvent struct {
	SessionID string         `json:"sessionId"`
	CarID     string         `json:"carId"`
	Tick      uint64         `json:"tick"`
	Time      time.Time      `json:"time"`
	Kind      StateEventKind `json:"kind"`
	From      string         `json:"from"`
	To        string         `json:"to"`
}

// UploadMetadata is sent with an exported session file.
type UploadMetadata struct {
	SessionID string  `json:"sessionId"`
	CarID     string  `json:"carId"`
	Duration  float64 `json:"duration"`
	Ticks     uint64  `json:"ticks"`
}
