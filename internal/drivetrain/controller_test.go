package drivetrain

import (
	"sync"
	"testing"
	"time"

	"github.com/OCAP2/drivetrain/internal/geartable"
	"github.com/OCAP2/drivetrain/internal/presentation"
	"github.com/OCAP2/drivetrain/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pressClutch pushes the pedal fully down: status Off, drivetrain disconnected.
func pressClutch(c *Controller) {
	c.Clutch(-1)
	c.Clutch(-1)
}

// releaseClutch lets the pedal fully up: status On, drivetrain engaged.
func releaseClutch(c *Controller) {
	c.Clutch(1)
	c.Clutch(1)
}

func newTestController(t *testing.T, scale float64, mutate func(*Config), opts ...Option) *Controller {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	table, err := geartable.New(geartable.Config{Scale: scale})
	require.NoError(t, err)
	c, err := New(cfg, table, opts...)
	require.NoError(t, err)
	return c
}

// running returns a heavy-scale controller with the engine on, handbrake off
// and the manual box in the given gear with the clutch pedal released.
func running(t *testing.T, g core.ManualGear, mutate func(*Config), opts ...Option) *Controller {
	t.Helper()
	c := newTestController(t, geartable.Heavy, mutate, opts...)
	c.ToggleEngine()
	c.ToggleHandBrake()
	pressClutch(c)
	require.Equal(t, ShiftApplied, c.ShiftManual(g))
	releaseClutch(c)
	return c
}

func TestNew_InitialState(t *testing.T) {
	c := newTestController(t, geartable.Standard, nil)
	s := c.State()

	assert.Equal(t, core.Manual, s.Mode)
	assert.Equal(t, core.EngineOff, s.Engine)
	assert.Equal(t, core.HandBrakeOn, s.HandBrake)
	assert.Equal(t, core.ClutchOn, s.Clutch)
	assert.Equal(t, core.ManualNeutral, s.ManualGear)
	assert.Equal(t, core.AutoNeutral, s.AutoGear)
	assert.Zero(t, s.ReferenceTorque)
	assert.Zero(t, s.Ticks)
}

func TestNew_Errors(t *testing.T) {
	table := geartable.MustNew(geartable.Config{Scale: geartable.Standard})

	_, err := New(DefaultConfig(), nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.MaxMotorTorque = 0
	_, err = New(cfg, table)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Steering = "wobble"
	_, err = New(cfg, table)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.MinSteer, cfg.MaxSteer = 10, -10
	_, err = New(cfg, table)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Initial.ClutchPosition = 3
	_, err = New(cfg, table)
	assert.Error(t, err)
}

func TestNew_RejectsOutOfRangeInitialState(t *testing.T) {
	table := geartable.MustNew(geartable.Config{Scale: geartable.Standard})

	tests := []struct {
		name   string
		mutate func(*InitialState)
	}{
		{"mode", func(s *InitialState) { s.Mode = core.TransmissionMode(2) }},
		{"engine", func(s *InitialState) { s.Engine = core.EngineStatus(3) }},
		{"handbrake", func(s *InitialState) { s.HandBrake = core.HandBrakeStatus(2) }},
		{"manual gear", func(s *InitialState) { s.ManualGear = core.ManualGear(core.ManualGearCount) }},
		{"auto gear", func(s *InitialState) { s.AutoGear = core.AutoGear(core.AutoGearCount) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg.Initial)
			_, err := New(cfg, table)
			assert.Error(t, err)
		})
	}

	cfg := DefaultConfig()
	cfg.Initial.Mode = core.Automatic
	cfg.Initial.Engine = core.EngineStalled
	cfg.Initial.HandBrake = core.HandBrakeOff
	_, err := New(cfg, table)
	assert.NoError(t, err)
}

func TestParseSteeringPolicy(t *testing.T) {
	p, err := ParseSteeringPolicy("")
	require.NoError(t, err)
	assert.Equal(t, SteeringIntegrate, p)

	p, err = ParseSteeringPolicy(" Absolute ")
	require.NoError(t, err)
	assert.Equal(t, SteeringAbsolute, p)

	_, err = ParseSteeringPolicy("linear")
	assert.Error(t, err)
}

func TestPedals_ScaledAndClampedAtZero(t *testing.T) {
	c := newTestController(t, geartable.Standard, nil)

	c.Accelerator(0.5)
	c.Brake(0.2)
	c.Turn(3)
	s := c.State()
	assert.Equal(t, 50.0, s.Accelerator)
	assert.Equal(t, 200.0, s.Brake)
	assert.Equal(t, 1.0, s.Turn)

	c.Accelerator(-1)
	c.Brake(-1)
	s = c.State()
	assert.Zero(t, s.Accelerator)
	assert.Zero(t, s.Brake)
}

func TestToggleEngine_Transitions(t *testing.T) {
	c := newTestController(t, geartable.Standard, nil)

	assert.Equal(t, core.EngineOn, c.ToggleEngine())
	assert.Equal(t, core.EngineOff, c.ToggleEngine())

	// Clutch engaged: the shift stalls the engine.
	c.ToggleEngine()
	require.Equal(t, ShiftStalled, c.ShiftManual(core.ManualFirst))
	require.Equal(t, core.EngineStalled, c.State().Engine)

	// Stalled resets to Off, never straight to On.
	assert.Equal(t, core.EngineOff, c.ToggleEngine())
	assert.Equal(t, core.EngineOn, c.ToggleEngine())
}

func TestToggleHandBrake(t *testing.T) {
	c := newTestController(t, geartable.Standard, nil)
	assert.Equal(t, core.HandBrakeOff, c.ToggleHandBrake())
	assert.Equal(t, core.HandBrakeOn, c.ToggleHandBrake())
}

func TestClutch_ClampsAndMapsPositions(t *testing.T) {
	c := newTestController(t, geartable.Standard, nil)

	assert.Equal(t, core.ClutchOn, c.Clutch(5))
	assert.Equal(t, core.ClutchMaxPosition, c.State().ClutchPosition)

	// Large deltas move a single position.
	assert.Equal(t, core.ClutchHalfOn, c.Clutch(-10))
	assert.Equal(t, core.ClutchOff, c.Clutch(-1))
	assert.Equal(t, core.ClutchOff, c.Clutch(-1))
	assert.Equal(t, core.ClutchMinPosition, c.State().ClutchPosition)

	assert.Equal(t, core.ClutchHalfOn, c.Clutch(3))
	assert.Equal(t, core.ClutchHalfOn, c.Clutch(0))
}

func TestShift_StallsUnlessClutchOff(t *testing.T) {
	for _, delta := range []int{0, -1} {
		c := newTestController(t, geartable.Heavy, nil)
		c.ToggleEngine()
		c.Clutch(delta)
		require.NotEqual(t, core.ClutchOff, c.State().Clutch)

		assert.Equal(t, ShiftStalled, c.ShiftManual(core.ManualSecond))

		s := c.State()
		assert.Equal(t, core.EngineStalled, s.Engine)
		assert.Equal(t, core.ManualNeutral, s.ManualGear)
		assert.Zero(t, s.ReferenceTorque)
	}
}

func TestShift_WithClutchOffUpdatesGearAndReference(t *testing.T) {
	c := newTestController(t, geartable.Heavy, func(cfg *Config) { cfg.MaxMotorTorque = 250 })
	pressClutch(c)
	require.Equal(t, core.ClutchOff, c.State().Clutch)

	for _, g := range core.ManualGears() {
		require.Equal(t, ShiftApplied, c.ShiftManual(g))
		s := c.State()
		assert.Equal(t, g, s.ManualGear)
		want := min(geartable.Heavy*float64(int(g)-1), 250)
		assert.Equal(t, want, s.ReferenceTorque, "gear %s", g)
	}
}

func TestShift_InactiveModeIgnored(t *testing.T) {
	c := newTestController(t, geartable.Standard, nil)
	pressClutch(c)

	assert.Equal(t, ShiftIgnored, c.ShiftAutomatic(core.AutoDrive))
	assert.Equal(t, core.AutoNeutral, c.State().AutoGear)

	c.ToggleTransmission()
	assert.Equal(t, ShiftIgnored, c.ShiftManual(core.ManualFirst))
	assert.Equal(t, core.ManualNeutral, c.State().ManualGear)

	assert.Equal(t, ShiftApplied, c.ShiftAutomatic(core.AutoDrive))
	s := c.State()
	assert.Equal(t, core.AutoDrive, s.AutoGear)
	assert.Equal(t, 2.5*geartable.Standard, s.ReferenceTorque)
}

func TestToggleTransmission_KeepsBothGears(t *testing.T) {
	c := newTestController(t, geartable.Standard, nil)
	pressClutch(c)
	require.Equal(t, ShiftApplied, c.ShiftManual(core.ManualThird))

	assert.Equal(t, core.Automatic, c.ToggleTransmission())
	require.Equal(t, ShiftApplied, c.ShiftAutomatic(core.AutoLow))
	assert.Equal(t, geartable.Standard, c.State().ReferenceTorque)
	assert.Equal(t, "Low", c.Snapshot().Gear)

	assert.Equal(t, core.Manual, c.ToggleTransmission())
	s := c.State()
	assert.Equal(t, core.ManualThird, s.ManualGear)
	assert.Equal(t, core.AutoLow, s.AutoGear)
	assert.Equal(t, 3*geartable.Standard, s.ReferenceTorque)
	assert.Equal(t, "Third", c.Snapshot().Gear)
}

func TestSnapshot_SteeringWheelAngle(t *testing.T) {
	c := newTestController(t, geartable.Standard, nil)
	c.Turn(1)
	c.Tick()
	c.Tick()

	snap := c.Snapshot()
	assert.Equal(t, 1.0, snap.SteerAngle)
	assert.Equal(t, -6.0, snap.SteeringWheelAngle)
}

func TestSink_NotifiedOnEveryChange(t *testing.T) {
	var got []core.Snapshot
	sink := presentation.Func(func(s core.Snapshot) { got = append(got, s) })
	c := newTestController(t, geartable.Standard, nil, WithSink(sink))

	c.ToggleEngine()
	c.ToggleHandBrake()
	c.Clutch(-1)
	c.ShiftManual(core.ManualFirst)
	c.ToggleTransmission()
	c.RefreshGearInfo()
	c.Tick()

	require.Len(t, got, 7)
	assert.Equal(t, core.EngineOn, got[0].Engine)
	assert.Equal(t, core.HandBrakeOff, got[1].HandBrake)
	assert.Equal(t, core.ClutchHalfOn, got[2].Clutch)
	assert.Equal(t, core.EngineStalled, got[3].Engine)
	assert.Equal(t, core.Automatic, got[4].Mode)
	assert.Equal(t, got[4], got[5])
}

func TestTransitionHook_ReceivesEvents(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var events []core.StateEvent
	c := newTestController(t, geartable.Standard, nil,
		WithCarID("car-1"),
		WithClock(func() time.Time { return at }),
		WithTransitionHook(func(e core.StateEvent) { events = append(events, e) }),
	)

	c.ToggleEngine()
	c.Tick()
	c.ShiftManual(core.ManualFirst) // clutch up: stall
	c.ShiftManual(core.ManualFirst) // already stalled: no second stall event
	c.Clutch(-1)
	c.Clutch(-1)
	c.Clutch(-1) // already Off: no event
	c.ShiftManual(core.ManualFirst)

	require.Len(t, events, 5)
	assert.Equal(t, core.StateEvent{
		CarID: "car-1", Tick: 0, Time: at,
		Kind: core.EventEngine, From: "Off", To: "On",
	}, events[0])
	assert.Equal(t, core.EventStall, events[1].Kind)
	assert.Equal(t, uint64(1), events[1].Tick)
	assert.Equal(t, "Stalled", events[1].To)
	assert.Equal(t, core.EventClutch, events[2].Kind)
	assert.Equal(t, "HalfOn", events[2].To)
	assert.Equal(t, core.EventClutch, events[3].Kind)
	assert.Equal(t, "Off", events[3].To)
	assert.Equal(t, core.EventShift, events[4].Kind)
	assert.Equal(t, "Neutral", events[4].From)
	assert.Equal(t, "First", events[4].To)
}

func TestController_ConcurrentInputsAndTicks(t *testing.T) {
	c := running(t, core.ManualFirst, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Accelerator(float64(j%3) / 2)
				c.Turn(float64(i%3 - 1))
				c.Tick()
				_ = c.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, uint64(800), c.Ticks())
	s := c.State()
	assert.GreaterOrEqual(t, s.SteerAngle, -90.0)
	assert.LessOrEqual(t, s.SteerAngle, 90.0)
}
