// Package drivetrain turns driver inputs into per-tick motor, brake and steer
// commands for one car.
//
// Input methods only record intent or flip discrete subsystem state. All
// numerical work happens in Tick, which the host calls once per fixed step.
package drivetrain

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/OCAP2/drivetrain/internal/geartable"
	"github.com/OCAP2/drivetrain/internal/presentation"
	"github.com/OCAP2/drivetrain/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// TransitionHook receives every discrete subsystem transition.
// It is called outside the controller lock, after the sink has been notified.
type TransitionHook func(core.StateEvent)

// Option configures a Controller.
type Option func(*Controller)

// WithSink sets the display sink. Nil keeps presentation.Nop.
func WithSink(s presentation.Sink) Option {
	return func(c *Controller) {
		if s != nil {
			c.sink = s
		}
	}
}

// WithLogger sets the logger used for transition and stall messages.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTransitionHook registers a hook for discrete state transitions.
func WithTransitionHook(h TransitionHook) Option {
	return func(c *Controller) {
		c.hook = h
	}
}

// WithCarID tags logs, metrics and transition events with the car id.
func WithCarID(id string) Option {
	return func(c *Controller) {
		c.carID = id
	}
}

// WithClock overrides the time source used to stamp transition events.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller is the drivetrain of one car. It is safe for concurrent use.
type Controller struct {
	cfg   Config
	table *geartable.Table

	mu        sync.Mutex
	state     subsystemState
	input     inputBuffer
	steer     float64
	reference float64
	ticks     uint64

	carID  string
	sink   presentation.Sink
	hook   TransitionHook
	logger *slog.Logger
	now    func() time.Time
	inst   *instruments
	attrs  metric.MeasurementOption
}

// New creates a controller in cfg.Initial state.
func New(cfg Config, table *geartable.Table, opts ...Option) (*Controller, error) {
	if table == nil {
		return nil, fmt.Errorf("gear table is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid drivetrain config: %w", err)
	}

	inst, err := newInstruments()
	if err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:   cfg,
		table: table,
		state: subsystemState{
			mode:       cfg.Initial.Mode,
			engine:     cfg.Initial.Engine,
			handBrake:  cfg.Initial.HandBrake,
			clutchPos:  cfg.Initial.ClutchPosition,
			manualGear: cfg.Initial.ManualGear,
			autoGear:   cfg.Initial.AutoGear,
		},
		sink:   presentation.Nop{},
		logger: slog.Default(),
		now:    time.Now,
		inst:   inst,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.attrs = metric.WithAttributes(attribute.String("car", c.carID))
	c.reference = c.referenceLocked()

	return c, nil
}

// CarID returns the id given with WithCarID.
func (c *Controller) CarID() string {
	return c.carID
}

// Accelerator buffers the accelerator pedal. v is scaled by AcceleratorUnit
// and negative results are stored as zero.
func (c *Controller) Accelerator(v float64) {
	c.mu.Lock()
	c.input.accelerator = math.Max(finite(v)*c.cfg.AcceleratorUnit, 0)
	c.mu.Unlock()
}

// Brake buffers the service brake pedal. v is scaled by BrakeUnit and
// negative results are stored as zero.
func (c *Controller) Brake(v float64) {
	c.mu.Lock()
	c.input.brake = math.Max(finite(v)*c.cfg.BrakeUnit, 0)
	c.mu.Unlock()
}

// Turn buffers the steering input, clamped to [-1, 1].
func (c *Controller) Turn(v float64) {
	c.mu.Lock()
	c.input.turn = clamp(finite(v), -1, 1)
	c.mu.Unlock()
}

// ToggleHandBrake flips the parking brake and returns the new status.
func (c *Controller) ToggleHandBrake() core.HandBrakeStatus {
	c.mu.Lock()
	from := c.state.handBrake
	c.state.handBrake = from.Toggle()
	to := c.state.handBrake
	ev := c.eventLocked(core.EventHandBrake, from.String(), to.String())
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Debug("hand brake toggled", "car", c.carID, "from", from, "to", to)
	c.publish(snap, ev)
	return to
}

// ToggleEngine turns the engine on from Off and off from On or Stalled.
func (c *Controller) ToggleEngine() core.EngineStatus {
	c.mu.Lock()
	from := c.state.engine
	if from == core.EngineOff {
		c.state.engine = core.EngineOn
	} else {
		c.state.engine = core.EngineOff
	}
	to := c.state.engine
	ev := c.eventLocked(core.EventEngine, from.String(), to.String())
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Info("engine toggled", "car", c.carID, "from", from, "to", to)
	c.publish(snap, ev)
	return to
}

// ToggleTransmission switches between manual and automatic. The gear kept
// for the newly active mode becomes the torque reference.
func (c *Controller) ToggleTransmission() core.TransmissionMode {
	c.mu.Lock()
	from := c.state.mode
	c.state.mode = from.Toggle()
	to := c.state.mode
	c.reference = c.referenceLocked()
	ev := c.eventLocked(core.EventTransmission, from.String(), to.String())
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Info("transmission toggled", "car", c.carID, "from", from, "to", to)
	c.publish(snap, ev)
	return to
}

// Clutch moves the clutch pedal one position in the direction of delta and
// returns the resulting status. Negative deltas press the pedal down; the
// position stays within [0, 2].
func (c *Controller) Clutch(delta int) core.ClutchStatus {
	c.mu.Lock()
	from := c.state.clutch()
	pos := c.state.clutchPos + max(-1, min(delta, 1))
	if pos < core.ClutchMinPosition {
		pos = core.ClutchMinPosition
	}
	if pos > core.ClutchMaxPosition {
		pos = core.ClutchMaxPosition
	}
	c.state.clutchPos = pos
	to := c.state.clutch()

	var ev *core.StateEvent
	if from != to {
		ev = c.eventLocked(core.EventClutch, from.String(), to.String())
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap, ev)
	return to
}

// ShiftManual requests a manual gear. Requests in automatic mode are ignored.
// Shifting without the clutch fully down stalls the engine and keeps the gear.
func (c *Controller) ShiftManual(g core.ManualGear) ShiftResult {
	c.mu.Lock()
	if c.state.mode != core.Manual {
		c.mu.Unlock()
		c.countShift(ShiftIgnored)
		return ShiftIgnored
	}
	if c.state.clutch() != core.ClutchOff {
		return c.stallLocked(g.String())
	}

	from := c.state.manualGear
	c.state.manualGear = g
	c.reference = math.Min(c.table.Manual(g), c.cfg.MaxMotorTorque)
	return c.shiftedLocked(from.String(), g.String())
}

// ShiftAutomatic requests an automatic selector position. Requests in manual
// mode are ignored. Shifting without the clutch fully down stalls the engine.
func (c *Controller) ShiftAutomatic(g core.AutoGear) ShiftResult {
	c.mu.Lock()
	if c.state.mode != core.Automatic {
		c.mu.Unlock()
		c.countShift(ShiftIgnored)
		return ShiftIgnored
	}
	if c.state.clutch() != core.ClutchOff {
		return c.stallLocked(g.String())
	}

	from := c.state.autoGear
	c.state.autoGear = g
	c.reference = math.Min(c.table.Automatic(g), c.cfg.MaxMotorTorque)
	return c.shiftedLocked(from.String(), g.String())
}

// RefreshGearInfo recomputes the reference torque from the active gear and
// pushes the current state to the sink.
func (c *Controller) RefreshGearInfo() {
	c.mu.Lock()
	c.reference = c.referenceLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.sink.Present(snap)
}

// Snapshot returns the presentation view of the current state.
func (c *Controller) Snapshot() core.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// State returns a copy of the full controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State{
		Mode:            c.state.mode,
		ManualGear:      c.state.manualGear,
		AutoGear:        c.state.autoGear,
		Engine:          c.state.engine,
		Clutch:          c.state.clutch(),
		ClutchPosition:  c.state.clutchPos,
		HandBrake:       c.state.handBrake,
		ReferenceTorque: c.reference,
		SteerAngle:      c.steer,
		Accelerator:     c.input.accelerator,
		Brake:           c.input.brake,
		Turn:            c.input.turn,
		Ticks:           c.ticks,
	}
}

// stallLocked must be called with c.mu held and releases it.
func (c *Controller) stallLocked(requested string) ShiftResult {
	from := c.state.engine
	c.state.engine = core.EngineStalled

	var ev *core.StateEvent
	if from != core.EngineStalled {
		ev = c.eventLocked(core.EventStall, from.String(), core.EngineStalled.String())
	}
	clutch := c.state.clutch()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Warn("engine stalled: shift with clutch engaged",
		"car", c.carID, "requested", requested, "clutch", clutch)
	c.inst.stalls.Add(context.Background(), 1, c.attrs)
	c.countShift(ShiftStalled)
	c.publish(snap, ev)
	return ShiftStalled
}

// shiftedLocked must be called with c.mu held and releases it.
func (c *Controller) shiftedLocked(from, to string) ShiftResult {
	ev := c.eventLocked(core.EventShift, from, to)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Debug("gear shifted", "car", c.carID, "from", from, "to", to)
	c.countShift(ShiftApplied)
	c.publish(snap, ev)
	return ShiftApplied
}

func (c *Controller) countShift(r ShiftResult) {
	c.inst.shifts.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("car", c.carID),
		attribute.String("result", r.String()),
	))
}

func (c *Controller) publish(snap core.Snapshot, ev *core.StateEvent) {
	c.sink.Present(snap)
	if ev != nil && c.hook != nil {
		c.hook(*ev)
	}
}

func (c *Controller) eventLocked(kind core.StateEventKind, from, to string) *core.StateEvent {
	return &core.StateEvent{
		CarID: c.carID,
		Tick:  c.ticks,
		Time:  c.now(),
		Kind:  kind,
		From:  from,
		To:    to,
	}
}

// referenceLocked is the table torque of the active gear, capped at
// MaxMotorTorque.
func (c *Controller) referenceLocked() float64 {
	var t float64
	if c.state.mode == core.Automatic {
		t = c.table.Automatic(c.state.autoGear)
	} else {
		t = c.table.Manual(c.state.manualGear)
	}
	return math.Min(t, c.cfg.MaxMotorTorque)
}

func (c *Controller) snapshotLocked() core.Snapshot {
	return core.Snapshot{
		Mode:               c.state.mode,
		Gear:               c.state.activeGear(),
		HandBrake:          c.state.handBrake,
		Accelerator:        c.input.accelerator,
		Braking:            c.input.brake > 0,
		Clutch:             c.state.clutch(),
		Engine:             c.state.engine,
		SteerAngle:         c.steer,
		SteeringWheelAngle: -c.steer * c.cfg.SteeringWheelRatio,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// finite maps NaN and infinities to zero.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
