// internal/storage/storage_test.go
package storage_test

import (
	"errors"
	"testing"

	"github.com/OCAP2/drivetrain/internal/storage"
	"github.com/OCAP2/drivetrain/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	ticks    int
	events   int
	sessions int
	fail     error
	export   map[string]string
}

func (f *fakeBackend) Init() error { return f.fail }
func (f *fakeBackend) Close() error { return f.fail }
func (f *fakeBackend) StartSession(*core.Session) error { f.sessions++; return f.fail }
func (f *fakeBackend) EndSession(*core.Session) error { return f.fail }
func (f *fakeBackend) RecordTick(*core.TickRecord) error { f.ticks++; return f.fail }
func (f *fakeBackend) RecordStateEvent(*core.StateEvent) error { f.events++; return f.fail }

type uploadableBackend struct {
	fakeBackend
}

func (u *uploadableBackend) ExportedFilePath(id string) (string, bool) {
	p, ok := u.export[id]
	return p, ok
}

func (u *uploadableBackend) ExportMetadata(id string) (core.UploadMetadata, bool) {
	if _, ok := u.export[id]; !ok {
		return core.UploadMetadata{}, false
	}
	return core.UploadMetadata{SessionID: id}, true
}

var (
	_ storage.Backend    = storage.Multi{}
	_ storage.Uploadable = storage.Multi{}
)

func TestMultiFansOut(t *testing.T) {
	a, b := &fakeBackend{}, &fakeBackend{}
	m := storage.Multi{a, b}

	require.NoError(t, m.Init())
	require.NoError(t, m.StartSession(&core.Session{ID: "s"}))
	require.NoError(t, m.RecordTick(&core.TickRecord{}))
	require.NoError(t, m.RecordTick(&core.TickRecord{}))
	require.NoError(t, m.RecordStateEvent(&core.StateEvent{}))
	require.NoError(t, m.Close())

	for _, f := range []*fakeBackend{a, b} {
		assert.Equal(t, 2, f.ticks)
		assert.Equal(t, 1, f.events)
		assert.Equal(t, 1, f.sessions)
	}
}

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	ok := &fakeBackend{}
	m := storage.Multi{&fakeBackend{fail: boom}, ok}

	err := m.RecordTick(&core.TickRecord{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, ok.ticks, "healthy backend still records")
}

func TestMultiExport(t *testing.T) {
	up := &uploadableBackend{fakeBackend{export: map[string]string{"s1": "/tmp/s1.json.gz"}}}
	m := storage.Multi{&fakeBackend{}, up}

	path, ok := m.ExportedFilePath("s1")
	assert.True(t, ok)
	assert.Equal(t, "/tmp/s1.json.gz", path)

	meta, ok := m.ExportMetadata("s1")
	assert.True(t, ok)
	assert.Equal(t, "s1", meta.SessionID)

	_, ok = m.ExportedFilePath("missing")
	assert.False(t, ok)
	_, ok = m.ExportMetadata("missing")
	assert.False(t, ok)
}
