package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/OCAP2/drivetrain/internal/dispatcher"
	"github.com/OCAP2/drivetrain/internal/storage"
)

// ErrNotRegistered is returned when records are queued before RegisterHandlers.
var ErrNotRegistered = errors.New("recording handlers not registered")

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Backend storage.Backend
	Logger  *slog.Logger
}

// Manager moves tick and transition records off the control path and into
// the storage backend through buffered dispatcher handlers.
type Manager struct {
	backend storage.Backend
	logger  *slog.Logger
	d       *dispatcher.Dispatcher

	pending  atomic.Int64
	recorded atomic.Uint64
	failed   atomic.Uint64
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		backend: deps.Backend,
		logger:  logger,
	}
}

// Stats is a point-in-time view of the recording pipeline.
type Stats struct {
	Pending  int64  `json:"pending"`
	Recorded uint64 `json:"recorded"`
	Failed   uint64 `json:"failed"`

	// Backend write queues, when the backend batches writes.
	TickQueue  int `json:"tickQueue"`
	EventQueue int `json:"eventQueue"`
}

// QueueLengthsProvider is an optional interface for backends that batch
// writes and can report what is still waiting.
type QueueLengthsProvider interface {
	QueueLengths() (ticks, events int)
}

// Stats returns counters for the monitor.
func (m *Manager) Stats() Stats {
	s := Stats{
		Pending:  m.pending.Load(),
		Recorded: m.recorded.Load(),
		Failed:   m.failed.Load(),
	}
	if p, ok := m.backend.(QueueLengthsProvider); ok {
		s.TickQueue, s.EventQueue = p.QueueLengths()
	}
	return s
}

// Drain blocks until every queued record has reached the backend or ctx is done.
func (m *Manager) Drain(ctx context.Context) error {
	t := time.NewTicker(2 * time.Millisecond)
	defer t.Stop()
	for m.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("draining %d records: %w", m.pending.Load(), ctx.Err())
		case <-t.C:
		}
	}
	return nil
}
