package parser

import "github.com/OCAP2/drivetrain/pkg/core"

// NewCar describes a car to create. Zero values fall back to configuration:
// HasMode false keeps the configured initial mode, Scale 0 the configured table.
type NewCar struct {
	CarID   string
	Mode    core.TransmissionMode
	HasMode bool
	Scale   float64
}

// AnalogInput is a pedal or steering value addressed to one car.
type AnalogInput struct {
	CarID string
	Value float64
}

// ClutchInput is a clutch pedal step addressed to one car.
type ClutchInput struct {
	CarID string
	Delta int
}

// ManualShift is a manual gear request.
type ManualShift struct {
	CarID string
	Gear  core.ManualGear
}

// AutoShift is an automatic selector request.
type AutoShift struct {
	CarID string
	Gear  core.AutoGear
}

// TickInput asks for Count fixed steps of one car.
type TickInput struct {
	CarID string
	Count uint64
}
