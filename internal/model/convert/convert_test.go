package convert

import (
	"testing"
	"time"

	"github.com/OCAP2/drivetrain/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestAxlesToJSON_Empty(t *testing.T) {
	assert.Equal(t, datatypes.JSON("[]"), axlesToJSON(nil))
}

func TestSessionRoundTrip(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := core.Session{
		ID:         "0d4b8a3e-6f7c-4c62-9d5e-8b1a2c3d4e5f",
		CarID:      "car1",
		StartTime:  start,
		Mode:       core.Automatic,
		TableScale: 100,
		TickRate:   20 * time.Millisecond,
	}

	row := CoreToSession(s)
	assert.Equal(t, "Automatic", row.Mode)
	assert.Equal(t, 20.0, row.TickRateMs)
	assert.False(t, row.EndTime.Valid)

	back := SessionToCore(row)
	assert.Equal(t, s, back)

	s.EndTime = start.Add(time.Minute)
	row = CoreToSession(s)
	require.True(t, row.EndTime.Valid)
	assert.Equal(t, s.EndTime, SessionToCore(row).EndTime)
}

func TestTickRecordRoundTrip(t *testing.T) {
	rec := core.TickRecord{
		SessionID: "s1",
		CarID:     "car1",
		Tick:      7,
		Time:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Command: core.DriveCommand{
			MotorTorque: 150,
			SteerAngle:  -3,
			Axles: []core.AxleCommand{
				{Axle: "front", LeftSteerAngle: -3, RightSteerAngle: -3},
				{Axle: "rear", LeftMotorTorque: 150, RightMotorTorque: 150},
			},
		},
		Snapshot: core.Snapshot{
			Mode:        core.Manual,
			Gear:        "Third",
			Engine:      core.EngineOn,
			Clutch:      core.ClutchOn,
			HandBrake:   core.HandBrakeOff,
			Accelerator: 100,
		},
	}

	row := CoreToTickRecord(rec)
	assert.Equal(t, uint64(7), row.Tick)
	assert.Equal(t, "Manual", row.Mode)
	assert.Equal(t, "Third", row.Gear)
	assert.Equal(t, "On", row.Engine)
	assert.Equal(t, "Off", row.HandBrake)
	assert.Equal(t, 100.0, row.Accelerator)

	assert.Equal(t, rec.Command, TickRecordToCommand(row))
}

func TestStateEventRoundTrip(t *testing.T) {
	ev := core.StateEvent{
		SessionID: "s1",
		CarID:     "car1",
		Tick:      3,
		Time:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Kind:      core.EventStall,
		From:      "On",
		To:        "Stalled",
	}

	row := CoreToStateEvent(ev)
	assert.Equal(t, "stall", row.Kind)
	assert.Equal(t, "On", row.FromState)
	assert.Equal(t, "Stalled", row.ToState)
	assert.Equal(t, ev, StateEventToCore(row))
}
