package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/OCAP2/drivetrain/internal/cache"
	"github.com/OCAP2/drivetrain/internal/influx"
	"github.com/OCAP2/drivetrain/internal/worker"
	"github.com/OCAP2/drivetrain/pkg/core"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// StatsProvider reports the recording pipeline counters.
type StatsProvider interface {
	Stats() worker.Stats
}

// PointWriter writes a point to a named bucket. *influx.Manager satisfies it.
type PointWriter interface {
	WritePoint(bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Cars       *cache.CarCache
	Recorder   StatsProvider
	Influx     PointWriter
	Logger     *slog.Logger
	StatusFile string
	Interval   time.Duration
}

// CarStatus is one line of the status file.
type CarStatus struct {
	CarID     string        `json:"carId"`
	SessionID string        `json:"sessionId"`
	Ticks     uint64        `json:"ticks"`
	Snapshot  core.Snapshot `json:"snapshot"`
}

// Status is what the monitor writes every interval.
type Status struct {
	Time     time.Time    `json:"time"`
	Cars     []CarStatus  `json:"cars"`
	Recorder worker.Stats `json:"recorder"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus collects the state of every live car and the recorder.
func (s *Service) GetStatus() Status {
	st := Status{Time: time.Now(), Cars: []CarStatus{}}
	if s.deps.Cars != nil {
		s.deps.Cars.Each(func(id string, car *cache.Car) {
			st.Cars = append(st.Cars, CarStatus{
				CarID:     id,
				SessionID: car.Session.ID,
				Ticks:     car.Controller.Ticks(),
				Snapshot:  car.Controller.Snapshot(),
			})
		})
	}
	if s.deps.Recorder != nil {
		st.Recorder = s.deps.Recorder.Stats()
	}
	return st
}

// WriteStatus writes the current status to the status file and, when an
// Influx writer is set, a point to the performance bucket.
func (s *Service) WriteStatus() error {
	st := s.GetStatus()

	if s.deps.StatusFile != "" {
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		tmp := s.deps.StatusFile + ".tmp"
		if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("failed to write status file: %w", err)
		}
		if err := os.Rename(tmp, s.deps.StatusFile); err != nil {
			return fmt.Errorf("failed to replace status file: %w", err)
		}
	}

	if s.deps.Influx != nil {
		if err := s.deps.Influx.WritePoint(influx.PerformanceBucket, statusPoint(st)); err != nil {
			return fmt.Errorf("failed to write status point: %w", err)
		}
	}
	return nil
}

func statusPoint(st Status) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement("drivetrain_status").
		AddField("cars", len(st.Cars)).
		AddField("pending", st.Recorder.Pending).
		AddField("recorded", st.Recorder.Recorded).
		AddField("failed", st.Recorder.Failed).
		AddField("tick_queue", st.Recorder.TickQueue).
		AddField("event_queue", st.Recorder.EventQueue).
		SetTime(st.Time)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if s.deps.StatusFile != "" {
		if err := os.MkdirAll(filepath.Dir(s.deps.StatusFile), 0755); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to create status directory: %w", err)
		}
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval, "file", s.deps.StatusFile)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := s.WriteStatus(); err != nil {
					logger.Error("Error writing status", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for its goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	s.isRunning = false
	done := s.done
	s.mu.Unlock()
	<-done
}
