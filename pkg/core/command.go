// pkg/core/command.go
package core

// Axle is a left/right wheel pair and the roles it plays.
type Axle struct {
	Name     string `json:"name" mapstructure:"name"`
	Motor    bool   `json:"motor" mapstructure:"motor"`
	Steering bool   `json:"steering" mapstructure:"steering"`
}

// DefaultAxles is a front-steer, rear-drive layout.
func DefaultAxles() []Axle {
	return []Axle{
		{Name: "front", Steering: true},
		{Name: "rear", Motor: true},
	}
}

// AxleCommand is what the wheel-physics sink applies to one axle for one tick.
type AxleCommand struct {
	Axle             string  `json:"axle"`
	LeftMotorTorque  float64 `json:"leftMotorTorque"`
	RightMotorTorque float64 `json:"rightMotorTorque"`
	LeftBrakeTorque  float64 `json:"leftBrakeTorque"`
	RightBrakeTorque float64 `json:"rightBrakeTorque"`
	LeftSteerAngle   float64 `json:"leftSteerAngle"`
	RightSteerAngle  float64 `json:"rightSteerAngle"`
}

// DriveCommand is the output of a single tick.
// Axle entries that are neither motor nor steering carry zero torque and angle
// but still receive the brake torque.
type DriveCommand struct {
	MotorTorque float64       `json:"motorTorque"`
	BrakeTorque float64       `json:"brakeTorque"`
	SteerAngle  float64       `json:"steerAngle"`
	Axles       []AxleCommand `json:"axles"`
}
