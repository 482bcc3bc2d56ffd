// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"database/sql"
	"encoding/json"

	"github.com/OCAP2/drivetrain/internal/model"
	"github.com/OCAP2/drivetrain/pkg/core"
	"gorm.io/datatypes"
)

// axlesToJSON converts axle commands to datatypes.JSON for DB storage.
func axlesToJSON(axles []core.AxleCommand) datatypes.JSON {
	if len(axles) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(axles)
	return datatypes.JSON(data)
}

// CoreToSession converts a core.Session to a GORM model.Session.
// A zero EndTime is stored as NULL.
func CoreToSession(s core.Session) model.Session {
	return model.Session{
		ID:         s.ID,
		CarID:      s.CarID,
		StartTime:  s.StartTime,
		EndTime:    sql.NullTime{Time: s.EndTime, Valid: !s.EndTime.IsZero()},
		Mode:       s.Mode.String(),
		TableScale: s.TableScale,
		TickRateMs: float64(s.TickRate.Microseconds()) / 1000,
	}
}

// CoreToTickRecord flattens a tick record into one row; axle commands go to a JSON column.
func CoreToTickRecord(t core.TickRecord) model.TickRecord {
	return model.TickRecord{
		Time:        t.Time,
		SessionID:   t.SessionID,
		CarID:       t.CarID,
		Tick:        t.Tick,
		MotorTorque: t.Command.MotorTorque,
		BrakeTorque: t.Command.BrakeTorque,
		SteerAngle:  t.Command.SteerAngle,
		Axles:       axlesToJSON(t.Command.Axles),

		Mode:               t.Snapshot.Mode.String(),
		Gear:               t.Snapshot.Gear,
		Engine:             t.Snapshot.Engine.String(),
		Clutch:             t.Snapshot.Clutch.String(),
		HandBrake:          t.Snapshot.HandBrake.String(),
		Accelerator:        t.Snapshot.Accelerator,
		Braking:            t.Snapshot.Braking,
		SteeringWheelAngle: t.Snapshot.SteeringWheelAngle,
	}
}

// CoreToStateEvent converts a core.StateEvent to a GORM model.StateEvent.
func CoreToStateEvent(e core.StateEvent) model.StateEvent {
	return model.StateEvent{
		Time:      e.Time,
		SessionID: e.SessionID,
		CarID:     e.CarID,
		Tick:      e.Tick,
		Kind:      string(e.Kind),
		FromState: e.From,
		ToState:   e.To,
	}
}
