package convert

import (
	"encoding/json"
	"time"

	"github.com/OCAP2/drivetrain/internal/model"
	"github.com/OCAP2/drivetrain/pkg/core"
)

// SessionToCore converts a GORM model.Session back to a core.Session.
// An unknown mode falls back to Manual.
func SessionToCore(s model.Session) core.Session {
	mode, _ := core.ParseTransmissionMode(s.Mode)
	out := core.Session{
		ID:         s.ID,
		CarID:      s.CarID,
		StartTime:  s.StartTime,
		Mode:       mode,
		TableScale: s.TableScale,
		TickRate:   time.Duration(s.TickRateMs * float64(time.Millisecond)),
	}
	if s.EndTime.Valid {
		out.EndTime = s.EndTime.Time
	}
	return out
}

// TickRecordToCommand rebuilds the drive command stored in a tick row.
func TickRecordToCommand(t model.TickRecord) core.DriveCommand {
	cmd := core.DriveCommand{
		MotorTorque: t.MotorTorque,
		BrakeTorque: t.BrakeTorque,
		SteerAngle:  t.SteerAngle,
	}
	if len(t.Axles) > 0 {
		_ = json.Unmarshal(t.Axles, &cmd.Axles)
	}
	return cmd
}

// StateEventToCore converts a GORM model.StateEvent back to a core.StateEvent.
func StateEventToCore(e model.StateEvent) core.StateEvent {
	return core.StateEvent{
		SessionID: e.SessionID,
		CarID:     e.CarID,
		Tick:      e.Tick,
		Time:      e.Time,
		Kind:      core.StateEventKind(e.Kind),
		From:      e.FromState,
		To:        e.ToState,
	}
}
