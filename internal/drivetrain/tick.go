package drivetrain

import (
	"context"

	"github.com/OCAP2/drivetrain/pkg/core"
)

// TickResult is one step's command together with the tick index and the
// snapshot taken under the same lock.
type TickResult struct {
	Tick     uint64
	Command  core.DriveCommand
	Snapshot core.Snapshot
}

// Tick runs one fixed step and returns the command for the wheel physics.
func (c *Controller) Tick() core.DriveCommand {
	return c.Step().Command
}

// Step runs one fixed step like Tick and also returns the tick index and
// snapshot it produced.
//
// The stages run in a fixed order and later stages override earlier ones:
// steering, handbrake lock, reverse-adjusted accelerator, reference torque
// plus accelerator clamped to ±MaxMotorTorque, service brake (which also
// cuts motor torque), engine gate, clutch gate, then per-axle actuation.
func (c *Controller) Step() TickResult {
	c.mu.Lock()

	switch c.cfg.Steering {
	case SteeringAbsolute:
		c.steer = c.input.turn * c.cfg.MaxSteeringAngle
	default:
		c.steer += c.input.turn * c.cfg.SteeringRate
	}
	c.steer = clamp(c.steer, c.cfg.MinSteer, c.cfg.MaxSteer)

	var brake float64
	if c.state.handBrake == core.HandBrakeOn {
		brake = c.cfg.HandBrakeLockTorque
	}

	// The buffered value stays positive; only this tick's copy is negated.
	accel := c.input.accelerator
	if c.state.inReverse() {
		accel = -accel
	}

	motor := clamp(c.reference+accel, -c.cfg.MaxMotorTorque, c.cfg.MaxMotorTorque)

	if c.input.brake > 0 {
		motor = 0
		brake = c.input.brake
	}
	if !c.state.engine.Running() {
		motor = 0
	}
	if c.state.clutch() == core.ClutchOff {
		motor = 0
	}

	cmd := core.DriveCommand{
		MotorTorque: motor,
		BrakeTorque: brake,
		SteerAngle:  c.steer,
		Axles:       make([]core.AxleCommand, len(c.cfg.Axles)),
	}
	for i, a := range c.cfg.Axles {
		ac := core.AxleCommand{
			Axle:             a.Name,
			LeftBrakeTorque:  brake,
			RightBrakeTorque: brake,
		}
		if a.Steering {
			ac.LeftSteerAngle = c.steer
			ac.RightSteerAngle = c.steer
		}
		if a.Motor {
			ac.LeftMotorTorque = motor
			ac.RightMotorTorque = motor
		}
		cmd.Axles[i] = ac
	}

	c.ticks++
	tick := c.ticks
	snap := c.snapshotLocked()
	c.mu.Unlock()

	ctx := context.Background()
	c.inst.ticks.Add(ctx, 1, c.attrs)
	c.inst.motor.Record(ctx, motor, c.attrs)
	c.sink.Present(snap)

	return TickResult{Tick: tick, Command: cmd, Snapshot: snap}
}

// Ticks returns the number of completed ticks.
func (c *Controller) Ticks() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}
