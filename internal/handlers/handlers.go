// Package handlers is the input boundary: one dispatcher command per driver
// input, each routed to the controller of the addressed car.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/OCAP2/drivetrain/internal/cache"
	"github.com/OCAP2/drivetrain/internal/config"
	"github.com/OCAP2/drivetrain/internal/dispatcher"
	"github.com/OCAP2/drivetrain/internal/parser"
	"github.com/OCAP2/drivetrain/internal/presentation"
	"github.com/OCAP2/drivetrain/internal/storage"
	"github.com/OCAP2/drivetrain/pkg/core"

	"github.com/google/uuid"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Input commands. Args[0] is always the car id.
const (
	CmdNewCar      = ":CAR:NEW:"
	CmdRemoveCar   = ":CAR:REMOVE:"
	CmdAccelerator = ":ACCELERATOR:"
	CmdBrake       = ":BRAKE:"
	CmdTurn        = ":TURN:"
	CmdHandBrake   = ":HANDBRAKE:"
	CmdEngine      = ":ENGINE:"
	CmdCarType     = ":CARTYPE:"
	CmdClutch      = ":CLUTCH:"
	CmdShiftManual = ":SHIFT:MANUAL:"
	CmdShiftAuto   = ":SHIFT:AUTO:"
	CmdGearInfo    = ":GEARINFO:"
	CmdTick        = ":TICK:"
	CmdState       = ":STATE:"
	CmdMetric      = ":METRIC:"
)

var (
	// ErrMetricsDisabled is returned by :METRIC: when no Influx writer is configured.
	ErrMetricsDisabled = errors.New("metrics disabled")
	// ErrUploadFailed wraps upload errors. The session itself was closed.
	ErrUploadFailed = errors.New("session upload failed")
)

// Recorder queues records for the storage backend.
type Recorder interface {
	RecordTick(rec core.TickRecord) error
	RecordStateEvent(ev core.StateEvent) error
	Drain(ctx context.Context) error
}

// Uploader sends an exported session file to the telemetry server.
type Uploader interface {
	Upload(ctx context.Context, filePath string, meta core.UploadMetadata) error
}

// PointWriter writes a custom metric point. *influx.Manager satisfies it.
type PointWriter interface {
	WritePoint(bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Cars       *cache.CarCache
	Parser     *parser.Parser
	Drivetrain config.DrivetrainConfig
	Backend    storage.Backend
	Recorder   Recorder
	Uploader   Uploader
	Metrics    PointWriter
	Logger     *slog.Logger

	// Sink returns the display sink of a new car. Nil means no display.
	Sink func(carID string) presentation.Sink
	// Now stamps sessions and records. Defaults to time.Now.
	Now func() time.Time
	// DrainTimeout bounds the wait for queued records when a car is removed.
	DrainTimeout time.Duration
}

// Service provides the input handlers.
type Service struct {
	deps  Dependencies
	newID func() string
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.Logger)
	}
	if deps.Cars == nil {
		deps.Cars = cache.NewCarCache()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.DrainTimeout <= 0 {
		deps.DrainTimeout = 5 * time.Second
	}
	return &Service{
		deps:  deps,
		newID: uuid.NewString,
	}
}

// Cars returns the live car registry.
func (s *Service) Cars() *cache.CarCache {
	return s.deps.Cars
}

// RegisterHandlers registers every input command. Input handlers are
// synchronous so inputs and ticks of a car are applied in arrival order.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(CmdNewCar, s.handleNewCar, dispatcher.Logged())
	d.Register(CmdRemoveCar, s.handleRemoveCar, dispatcher.Logged())

	d.Register(CmdAccelerator, s.handleAccelerator)
	d.Register(CmdBrake, s.handleBrake)
	d.Register(CmdTurn, s.handleTurn)
	d.Register(CmdHandBrake, s.handleHandBrake, dispatcher.Logged())
	d.Register(CmdEngine, s.handleEngine, dispatcher.Logged())
	d.Register(CmdCarType, s.handleCarType, dispatcher.Logged())
	d.Register(CmdClutch, s.handleClutch)
	d.Register(CmdShiftManual, s.handleShiftManual, dispatcher.Logged())
	d.Register(CmdShiftAuto, s.handleShiftAuto, dispatcher.Logged())
	d.Register(CmdGearInfo, s.handleGearInfo)

	d.Register(CmdTick, s.handleTick)
	d.Register(CmdState, s.handleState)

	d.Register(CmdMetric, s.handleMetric, dispatcher.Buffered(1000), dispatcher.Logged())
}

func (s *Service) car(args []string) (*cache.Car, error) {
	id, err := s.deps.Parser.ParseCarID(args)
	if err != nil {
		return nil, err
	}
	car, err := s.deps.Cars.Get(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, id)
	}
	return car, nil
}
