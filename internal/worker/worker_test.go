package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/OCAP2/drivetrain/internal/dispatcher"
	"github.com/OCAP2/drivetrain/internal/storage"
	"github.com/OCAP2/drivetrain/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements dispatcher.Logger for testing
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) Debug(msg string, keysAndValues ...any) { l.add(msg) }
func (l *mockLogger) Info(msg string, keysAndValues ...any)  { l.add(msg) }
func (l *mockLogger) Error(msg string, keysAndValues ...any) { l.add(msg) }

func (l *mockLogger) add(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

// mockBackend implements storage.Backend for testing
type mockBackend struct {
	mu     sync.Mutex
	ticks  []*core.TickRecord
	events []*core.StateEvent
	err    error
	gate   chan struct{}
}

func (b *mockBackend) Init() error                        { return nil }
func (b *mockBackend) Close() error                       { return nil }
func (b *mockBackend) StartSession(s *core.Session) error { return nil }
func (b *mockBackend) EndSession(s *core.Session) error   { return nil }

func (b *mockBackend) RecordTick(t *core.TickRecord) error {
	if b.gate != nil {
		<-b.gate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.ticks = append(b.ticks, t)
	return nil
}

func (b *mockBackend) RecordStateEvent(e *core.StateEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, e)
	return nil
}

func (b *mockBackend) QueueLengths() (int, int) { return 3, 1 }

var _ storage.Backend = (*mockBackend)(nil)

func newTestManager(t *testing.T, b *mockBackend) (*Manager, *dispatcher.Dispatcher) {
	t.Helper()
	d, err := dispatcher.New(&mockLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close(context.Background()) })

	m := NewManager(Dependencies{Backend: b})
	m.RegisterHandlers(d)
	return m, d
}

func TestRegisterHandlers(t *testing.T) {
	_, d := newTestManager(t, &mockBackend{})

	assert.True(t, d.HasHandler(CmdRecordTick))
	assert.True(t, d.HasHandler(CmdRecordState))
}

func TestRecord_ReachesBackend(t *testing.T) {
	b := &mockBackend{}
	m, _ := newTestManager(t, b)

	for i := range 5 {
		require.NoError(t, m.RecordTick(core.TickRecord{SessionID: "s1", CarID: "car-1", Tick: uint64(i + 1)}))
	}
	require.NoError(t, m.RecordStateEvent(core.StateEvent{SessionID: "s1", CarID: "car-1", Kind: core.EventStall, From: "On", To: "Stalled"}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Drain(ctx))

	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.ticks, 5)
	for i, rec := range b.ticks {
		assert.Equal(t, uint64(i+1), rec.Tick)
	}
	require.Len(t, b.events, 1)
	assert.Equal(t, core.EventStall, b.events[0].Kind)

	s := m.Stats()
	assert.Equal(t, int64(0), s.Pending)
	assert.Equal(t, uint64(6), s.Recorded)
	assert.Equal(t, uint64(0), s.Failed)
	assert.Equal(t, 3, s.TickQueue)
	assert.Equal(t, 1, s.EventQueue)
}

func TestRecord_BackendErrorCounted(t *testing.T) {
	b := &mockBackend{err: errors.New("disk full")}
	m, _ := newTestManager(t, b)

	require.NoError(t, m.RecordTick(core.TickRecord{CarID: "car-1", Tick: 1}))
	require.NoError(t, m.Drain(context.Background()))

	assert.Equal(t, uint64(1), m.Stats().Failed)
	assert.Equal(t, uint64(0), m.Stats().Recorded)
}

func TestRecord_NotRegistered(t *testing.T) {
	m := NewManager(Dependencies{Backend: &mockBackend{}})

	err := m.RecordTick(core.TickRecord{})
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestRecord_AfterClose(t *testing.T) {
	m, d := newTestManager(t, &mockBackend{})
	require.NoError(t, d.Close(context.Background()))

	err := m.RecordTick(core.TickRecord{CarID: "car-1"})
	assert.Error(t, err)
	assert.Equal(t, int64(0), m.Stats().Pending)
	assert.Equal(t, uint64(1), m.Stats().Failed)
}

func TestDrain_Timeout(t *testing.T) {
	b := &mockBackend{gate: make(chan struct{})}
	m, _ := newTestManager(t, b)

	require.NoError(t, m.RecordTick(core.TickRecord{CarID: "car-1", Tick: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Drain(ctx), context.DeadlineExceeded)

	close(b.gate)
	require.NoError(t, m.Drain(context.Background()))
	assert.Equal(t, uint64(1), m.Stats().Recorded)
}
