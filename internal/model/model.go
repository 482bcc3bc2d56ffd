package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Session{},
	&TickRecord{},
	&StateEvent{},
	&WriterPerformance{},
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Session is one recorded drive of a single car
type Session struct {
	ID         string       `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt  time.Time    `json:"createdAt"`
	CarID      string       `json:"carId" gorm:"size:64;index:idx_session_car_id"`
	StartTime  time.Time    `json:"startTime" gorm:"type:timestamptz"`
	EndTime    sql.NullTime `json:"endTime" gorm:"type:timestamptz"`
	Mode       string       `json:"mode" gorm:"size:16"`
	TableScale float64      `json:"tableScale"`
	TickRateMs float64      `json:"tickRateMs"`
	Ticks      uint64       `json:"ticks"`
}

func (*Session) TableName() string {
	return "sessions"
}

// TickRecord is the drive command and presentation snapshot of one tick
type TickRecord struct {
	ID          uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time      `json:"time" gorm:"type:timestamptz;"`
	SessionID   string         `json:"sessionId" gorm:"size:36;index:idx_tick_session_id"`
	CarID       string         `json:"carId" gorm:"size:64"`
	Tick        uint64         `json:"tick" gorm:"index:idx_tick"`
	MotorTorque float64        `json:"motorTorque"`
	BrakeTorque float64        `json:"brakeTorque"`
	SteerAngle  float64        `json:"steerAngle"`
	Axles       datatypes.JSON `json:"axles"`

	Mode               string  `json:"mode" gorm:"size:16"`
	Gear               string  `json:"gear" gorm:"size:16"`
	Engine             string  `json:"engine" gorm:"size:16"`
	Clutch             string  `json:"clutch" gorm:"size:16"`
	HandBrake          string  `json:"handBrake" gorm:"size:16"`
	Accelerator        float64 `json:"accelerator"`
	Braking            bool    `json:"braking"`
	SteeringWheelAngle float64 `json:"steeringWheelAngle"`
}

func (*TickRecord) TableName() string {
	return "tick_records"
}

// StateEvent is a discrete subsystem transition
type StateEvent struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;"`
	SessionID string    `json:"sessionId" gorm:"size:36;index:idx_state_event_session_id"`
	CarID     string    `json:"carId" gorm:"size:64"`
	Tick      uint64    `json:"tick"`
	Kind      string    `json:"kind" gorm:"size:16;index:idx_state_event_kind"`
	FromState string    `json:"from" gorm:"size:32"`
	ToState   string    `json:"to" gorm:"size:32"`
}

func (*StateEvent) TableName() string {
	return "state_events"
}

// WriterPerformance is a sample of the database writer's queue depth and flush time
type WriterPerformance struct {
	Time                time.Time `json:"time" gorm:"type:timestamptz;index:idx_writer_time"`
	TickQueue           uint32    `json:"tickQueue"`
	StateEventQueue     uint32    `json:"stateEventQueue"`
	LastWriteDurationMs float32   `json:"lastWriteDurationMs"`
}

func (*WriterPerformance) TableName() string {
	return "writer_performances"
}
