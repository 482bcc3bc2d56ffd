// Package influxstorage writes ticks and state events as InfluxDB points.
package influxstorage

import (
	"context"
	"time"

	"github.com/OCAP2/drivetrain/internal/influx"
	"github.com/OCAP2/drivetrain/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementTick       = "drivetrain_tick"
	MeasurementStateEvent = "drivetrain_state_event"
	MeasurementSession    = "drivetrain_session"
)

// connectTimeout bounds the health check done by Init.
const connectTimeout = 10 * time.Second

// Backend implements storage.Backend on an influx.Manager.
type Backend struct {
	manager *influx.Manager
}

// New creates a new InfluxDB storage backend.
func New(manager *influx.Manager) *Backend {
	return &Backend{manager: manager}
}

// Init connects the manager unless it already has a client.
func (b *Backend) Init() error {
	if b.manager.Client != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return b.manager.Connect(ctx)
}

// Close flushes and closes the manager.
func (b *Backend) Close() error {
	return b.manager.Close()
}

func (b *Backend) StartSession(s *core.Session) error {
	return b.manager.WritePoint(b.manager.Bucket(), sessionPoint(s, "start", s.StartTime))
}

func (b *Backend) EndSession(s *core.Session) error {
	end := s.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	return b.manager.WritePoint(b.manager.Bucket(), sessionPoint(s, "end", end))
}

func (b *Backend) RecordTick(t *core.TickRecord) error {
	return b.manager.WritePoint(b.manager.Bucket(), TickPoint(t))
}

func (b *Backend) RecordStateEvent(e *core.StateEvent) error {
	return b.manager.WritePoint(b.manager.Bucket(), StateEventPoint(e))
}

func sessionPoint(s *core.Session, phase string, at time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementSession).
		AddTag("car_id", s.CarID).
		AddTag("session_id", s.ID).
		AddField("phase", phase).
		AddField("mode", s.Mode.String()).
		AddField("table_scale", s.TableScale).
		SetTime(at)
}

// TickPoint converts a tick record into a point tagged by car, session, mode and gear.
func TickPoint(t *core.TickRecord) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementTick).
		AddTag("car_id", t.CarID).
		AddTag("session_id", t.SessionID).
		AddTag("mode", t.Snapshot.Mode.String()).
		AddTag("gear", t.Snapshot.Gear).
		AddField("tick", t.Tick).
		AddField("motor_torque", t.Command.MotorTorque).
		AddField("brake_torque", t.Command.BrakeTorque).
		AddField("steer_angle", t.Command.SteerAngle).
		AddField("accelerator", t.Snapshot.Accelerator).
		AddField("braking", t.Snapshot.Braking).
		AddField("engine", t.Snapshot.Engine.String()).
		AddField("clutch", t.Snapshot.Clutch.String()).
		AddField("hand_brake", t.Snapshot.HandBrake.String()).
		SetTime(t.Time)
}

// StateEventPoint converts a state event into a point tagged by kind.
func StateEventPoint(e *core.StateEvent) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementStateEvent).
		AddTag("car_id", e.CarID).
		AddTag("session_id", e.SessionID).
		AddTag("kind", string(e.Kind)).
		AddField("tick", e.Tick).
		AddField("from", e.From).
		AddField("to", e.To).
		SetTime(e.Time)
}
