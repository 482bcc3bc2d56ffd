package worker

import (
	"fmt"
	"time"

	"github.com/OCAP2/drivetrain/internal/dispatcher"
	"github.com/OCAP2/drivetrain/pkg/core"
)

const (
	CmdRecordTick  = ":RECORD:TICK:"
	CmdRecordState = ":RECORD:STATE:"
)

// RegisterHandlers registers the recording handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	m.d = d

	// High-volume, one per car per tick. Dropped under backpressure.
	d.Register(CmdRecordTick, m.tracked(m.handleTick), dispatcher.Buffered(10000), dispatcher.Logged())
	// Rare and needed to reconstruct the session, so the caller waits for room.
	d.Register(CmdRecordState, m.tracked(m.handleStateEvent), dispatcher.Buffered(1000), dispatcher.Blocking(), dispatcher.Logged())
}

// RecordTick queues a tick record.
func (m *Manager) RecordTick(rec core.TickRecord) error {
	return m.enqueue(CmdRecordTick, &rec, rec.Time)
}

// RecordStateEvent queues a transition record.
func (m *Manager) RecordStateEvent(ev core.StateEvent) error {
	return m.enqueue(CmdRecordState, &ev, ev.Time)
}

func (m *Manager) enqueue(command string, payload any, at time.Time) error {
	if m.d == nil {
		return ErrNotRegistered
	}
	m.pending.Add(1)
	if _, err := m.d.Dispatch(dispatcher.Event{Command: command, Payload: payload, Timestamp: at}); err != nil {
		m.pending.Add(-1)
		m.failed.Add(1)
		return err
	}
	return nil
}

// tracked releases the pending slot taken by enqueue once h has run.
func (m *Manager) tracked(h dispatcher.HandlerFunc) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		defer m.pending.Add(-1)
		res, err := h(e)
		if err != nil {
			m.failed.Add(1)
		} else {
			m.recorded.Add(1)
		}
		return res, err
	}
}

func (m *Manager) handleTick(e dispatcher.Event) (any, error) {
	rec, ok := e.Payload.(*core.TickRecord)
	if !ok {
		return nil, fmt.Errorf("unexpected tick payload %T", e.Payload)
	}
	if err := m.backend.RecordTick(rec); err != nil {
		return nil, fmt.Errorf("failed to record tick %d of %s: %w", rec.Tick, rec.CarID, err)
	}
	return nil, nil
}

func (m *Manager) handleStateEvent(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(*core.StateEvent)
	if !ok {
		return nil, fmt.Errorf("unexpected state event payload %T", e.Payload)
	}
	if err := m.backend.RecordStateEvent(ev); err != nil {
		return nil, fmt.Errorf("failed to record %s event of %s: %w", ev.Kind, ev.CarID, err)
	}
	return nil, nil
}
