// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"sync"

	"github.com/OCAP2/drivetrain/internal/config"
	"github.com/OCAP2/drivetrain/pkg/core"
)

// SessionRecord groups a session with all its time-series data
type SessionRecord struct {
	Session core.Session
	Ticks   []core.TickRecord
	Events  []core.StateEvent
}

type exportInfo struct {
	path string
	meta core.UploadMetadata
}

// Backend stores sessions in memory and exports each to JSON when it ends
type Backend struct {
	cfg      config.MemoryConfig
	sessions map[string]*SessionRecord // keyed by session ID
	exports  map[string]exportInfo     // keyed by session ID
	mu       sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:      cfg,
		sessions: make(map[string]*SessionRecord),
		exports:  make(map[string]exportInfo),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.sessions[s.ID]; ok {
		return fmt.Errorf("session %s already started", s.ID)
	}
	b.sessions[s.ID] = &SessionRecord{
		Session: *s,
		Ticks:   make([]core.TickRecord, 0),
		Events:  make([]core.StateEvent, 0),
	}
	return nil
}

// EndSession exports the session if an output directory is configured and
// releases its records.
func (b *Backend) EndSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.sessions[s.ID]
	if !ok {
		return fmt.Errorf("unknown session %s", s.ID)
	}
	record.Session.EndTime = s.EndTime
	delete(b.sessions, s.ID)

	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportJSON(record)
}

// RecordTick appends a tick record to its session
func (b *Backend) RecordTick(t *core.TickRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.sessions[t.SessionID]
	if !ok {
		return fmt.Errorf("unknown session %s", t.SessionID)
	}
	record.Ticks = append(record.Ticks, *t)
	return nil
}

// RecordStateEvent appends a state event to its session
func (b *Backend) RecordStateEvent(e *core.StateEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.sessions[e.SessionID]
	if !ok {
		return fmt.Errorf("unknown session %s", e.SessionID)
	}
	record.Events = append(record.Events, *e)
	return nil
}

// Session returns a copy of a live session's records
func (b *Backend) Session(id string) (SessionRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	record, ok := b.sessions[id]
	if !ok {
		return SessionRecord{}, false
	}
	return SessionRecord{
		Session: record.Session,
		Ticks:   append([]core.TickRecord(nil), record.Ticks...),
		Events:  append([]core.StateEvent(nil), record.Events...),
	}, true
}

// ExportedFilePath returns the path of the file written when the session ended
func (b *Backend) ExportedFilePath(sessionID string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	info, ok := b.exports[sessionID]
	return info.path, ok
}

// ExportMetadata returns upload metadata for an exported session
func (b *Backend) ExportMetadata(sessionID string) (core.UploadMetadata, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	info, ok := b.exports[sessionID]
	return info.meta, ok
}
