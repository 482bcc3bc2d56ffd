package drivetrain

import (
	"fmt"
	"strings"

	"github.com/OCAP2/drivetrain/pkg/core"
)

// SteeringPolicy selects how the turn input becomes a steer angle.
type SteeringPolicy string

const (
	// SteeringIntegrate adds turn*SteeringRate to the current angle every tick.
	SteeringIntegrate SteeringPolicy = "integrate"
	// SteeringAbsolute maps the turn input directly to turn*MaxSteeringAngle.
	SteeringAbsolute SteeringPolicy = "absolute"
)

// ParseSteeringPolicy parses a policy name; empty selects SteeringIntegrate.
func ParseSteeringPolicy(s string) (SteeringPolicy, error) {
	switch SteeringPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", SteeringIntegrate:
		return SteeringIntegrate, nil
	case SteeringAbsolute:
		return SteeringAbsolute, nil
	default:
		return "", fmt.Errorf("unknown steering policy %q", s)
	}
}

// InitialState is the subsystem state a controller starts in.
type InitialState struct {
	Mode           core.TransmissionMode
	Engine         core.EngineStatus
	HandBrake      core.HandBrakeStatus
	ClutchPosition int
	ManualGear     core.ManualGear
	AutoGear       core.AutoGear
}

// Config holds the tuning of one controller.
type Config struct {
	MaxMotorTorque      float64
	HandBrakeLockTorque float64
	AcceleratorUnit     float64
	BrakeUnit           float64

	Steering           SteeringPolicy
	SteeringRate       float64
	MinSteer           float64
	MaxSteer           float64
	MaxSteeringAngle   float64
	SteeringWheelRatio float64

	Axles   []core.Axle
	Initial InitialState
}

// DefaultConfig returns the stock tuning: parked with the handbrake on, engine
// off, clutch pedal up and both gearboxes in neutral.
func DefaultConfig() Config {
	return Config{
		MaxMotorTorque:      500,
		HandBrakeLockTorque: 100000,
		AcceleratorUnit:     100,
		BrakeUnit:           1000,
		Steering:            SteeringIntegrate,
		SteeringRate:        0.5,
		MinSteer:            -90,
		MaxSteer:            90,
		MaxSteeringAngle:    30,
		SteeringWheelRatio:  6,
		Axles:               core.DefaultAxles(),
		Initial: InitialState{
			Mode:           core.Manual,
			Engine:         core.EngineOff,
			HandBrake:      core.HandBrakeOn,
			ClutchPosition: core.ClutchMaxPosition,
			ManualGear:     core.ManualNeutral,
			AutoGear:       core.AutoNeutral,
		},
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.MaxMotorTorque <= 0 {
		return fmt.Errorf("maxMotorTorque must be positive, got %v", c.MaxMotorTorque)
	}
	if c.HandBrakeLockTorque < 0 {
		return fmt.Errorf("handBrakeLockTorque must not be negative, got %v", c.HandBrakeLockTorque)
	}
	if c.AcceleratorUnit < 0 || c.BrakeUnit < 0 {
		return fmt.Errorf("pedal units must not be negative (accelerator %v, brake %v)", c.AcceleratorUnit, c.BrakeUnit)
	}
	if c.Steering != SteeringIntegrate && c.Steering != SteeringAbsolute {
		return fmt.Errorf("unknown steering policy %q", c.Steering)
	}
	if c.MinSteer > c.MaxSteer {
		return fmt.Errorf("minSteer %v greater than maxSteer %v", c.MinSteer, c.MaxSteer)
	}
	if c.SteeringRate < 0 || c.MaxSteeringAngle < 0 {
		return fmt.Errorf("steering rate and max angle must not be negative")
	}
	if !c.Initial.Mode.Valid() {
		return fmt.Errorf("initial transmission mode %s out of range", c.Initial.Mode)
	}
	if !c.Initial.Engine.Valid() {
		return fmt.Errorf("initial engine status %s out of range", c.Initial.Engine)
	}
	if !c.Initial.HandBrake.Valid() {
		return fmt.Errorf("initial handbrake status %s out of range", c.Initial.HandBrake)
	}
	if !c.Initial.ManualGear.Valid() {
		return fmt.Errorf("initial manual gear %s out of range", c.Initial.ManualGear)
	}
	if !c.Initial.AutoGear.Valid() {
		return fmt.Errorf("initial automatic gear %s out of range", c.Initial.AutoGear)
	}
	if c.Initial.ClutchPosition < core.ClutchMinPosition || c.Initial.ClutchPosition > core.ClutchMaxPosition {
		return fmt.Errorf("initial clutch position %d outside [%d,%d]",
			c.Initial.ClutchPosition, core.ClutchMinPosition, core.ClutchMaxPosition)
	}
	for i, a := range c.Axles {
		if a.Name == "" {
			return fmt.Errorf("axle %d has no name", i)
		}
	}
	return nil
}
