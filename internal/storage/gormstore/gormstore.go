// Package gormstore implements storage.Backend on top of any GORM dialect
// with internal queues and a background DB writer goroutine.
package gormstore

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/OCAP2/drivetrain/internal/database"
	"github.com/OCAP2/drivetrain/internal/model"
	"github.com/OCAP2/drivetrain/internal/model/convert"
	"github.com/OCAP2/drivetrain/internal/queue"
	"github.com/OCAP2/drivetrain/pkg/core"

	"gorm.io/gorm"
)

// DefaultFlushInterval is how often queued rows are written when no interval is configured.
const DefaultFlushInterval = 2 * time.Second

// WriteBatchSize is the most rows inserted in one transaction.
const WriteBatchSize = 1000

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
}

// queues holds the write queues for batch DB insertion.
type queues struct {
	Ticks       *queue.Queue[model.TickRecord]
	StateEvents *queue.Queue[model.StateEvent]
}

func newQueues() *queues {
	return &queues{
		Ticks:       queue.New[model.TickRecord](),
		StateEvents: queue.New[model.StateEvent](),
	}
}

// Backend implements storage.Backend with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	queues *queues

	flushMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the connection the backend writes to.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gormstore: no database connection")
	}

	b.deps.Logger.Info("Migrating schema", "dialect", b.deps.DB.Name())
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writerLoop()
	return nil
}

// Close stops the DB writer goroutine and writes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	return b.Flush()
}

// StartSession inserts the session row synchronously so rows queued later can reference it.
func (b *Backend) StartSession(s *core.Session) error {
	row := convert.CoreToSession(*s)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert session %s: %w", s.ID, err)
	}
	return nil
}

// EndSession flushes queued rows and stamps the end time and tick count.
func (b *Backend) EndSession(s *core.Session) error {
	if err := b.Flush(); err != nil {
		return err
	}

	var ticks int64
	if err := b.deps.DB.Model(&model.TickRecord{}).Where("session_id = ?", s.ID).Count(&ticks).Error; err != nil {
		return fmt.Errorf("failed to count ticks of session %s: %w", s.ID, err)
	}

	end := s.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	err := b.deps.DB.Model(&model.Session{}).Where("id = ?", s.ID).Updates(map[string]any{
		"end_time": end,
		"ticks":    ticks,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to close session %s: %w", s.ID, err)
	}
	return nil
}

// RecordTick converts and queues a tick record.
func (b *Backend) RecordTick(t *core.TickRecord) error {
	b.queues.Ticks.Push(convert.CoreToTickRecord(*t))
	return nil
}

// RecordStateEvent converts and queues a state event.
func (b *Backend) RecordStateEvent(e *core.StateEvent) error {
	b.queues.StateEvents.Push(convert.CoreToStateEvent(*e))
	return nil
}

// QueueLengths reports the number of rows waiting to be written.
func (b *Backend) QueueLengths() (ticks, events int) {
	return b.queues.Ticks.Len(), b.queues.StateEvents.Len()
}

// Flush writes all queued rows and records a writer performance sample.
// Rows that fail to insert stay queued, in order, for the next flush.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	ticks, events := b.QueueLengths()
	if ticks == 0 && events == 0 {
		return nil
	}

	start := time.Now()
	tickErr := writeQueue(b.deps.DB, b.queues.Ticks, "tick records", b.deps.Logger)
	eventErr := writeQueue(b.deps.DB, b.queues.StateEvents, "state events", b.deps.Logger)

	perf := model.WriterPerformance{
		Time:                start,
		TickQueue:           uint32(ticks),
		StateEventQueue:     uint32(events),
		LastWriteDurationMs: float32(time.Since(start).Microseconds()) / 1000,
	}
	if err := b.deps.DB.Create(&perf).Error; err != nil {
		b.deps.Logger.Warn("Failed to record writer performance", "error", err)
	}

	if tickErr != nil {
		return tickErr
	}
	return eventErr
}

// writeQueue writes queued rows in batches of WriteBatchSize, one
// transaction per batch. A failed batch goes back to the front of its queue
// and stops the write; batches already committed stay committed.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) error {
	for {
		batch := q.Take(WriteBatchSize)
		if len(batch) == 0 {
			return nil
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			return tx.Create(&batch).Error
		})
		if err != nil {
			log.Error("Error creating rows", "table", name, "count", len(batch), "error", err)
			q.Requeue(batch...)
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
}

// writerLoop periodically drains the queues into the DB until Close.
func (b *Backend) writerLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error("DB writer flush failed", "error", err)
			}
		}
	}
}
