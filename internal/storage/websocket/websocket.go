package websocket

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/OCAP2/drivetrain/pkg/core"
	"github.com/OCAP2/drivetrain/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams drive sessions over WebSocket to a telemetry server.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msgType, err)
	}
	b.conn.send(data)
	return nil
}

// StartSession announces the session and waits for server ack.
func (b *Backend) StartSession(s *core.Session) error {
	data, err := streaming.Marshal(streaming.TypeStartSession, streaming.StartSessionPayload{Session: s})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", streaming.TypeStartSession, err)
	}

	// Cache for reconnect replay.
	b.conn.mu.Lock()
	b.conn.cachedStarts[s.ID] = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeStartSession, s.ID, ackTimeout)
}

// EndSession sends end_session and waits for server ack.
func (b *Backend) EndSession(s *core.Session) error {
	end := s.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	data, err := streaming.Marshal(streaming.TypeEndSession, streaming.EndSessionPayload{SessionID: s.ID, EndTime: end})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", streaming.TypeEndSession, err)
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndSession, s.ID, ackTimeout)

	// Clear cached state regardless of error.
	b.conn.mu.Lock()
	delete(b.conn.cachedStarts, s.ID)
	b.conn.mu.Unlock()

	return err
}

func (b *Backend) RecordTick(t *core.TickRecord) error {
	return b.sendEnvelope(streaming.TypeTick, t)
}

func (b *Backend) RecordStateEvent(e *core.StateEvent) error {
	return b.sendEnvelope(streaming.TypeStateEvent, e)
}
