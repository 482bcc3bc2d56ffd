// internal/storage/storage.go
package storage

import (
	"errors"

	"github.com/OCAP2/drivetrain/pkg/core"
)

// Backend is the interface all recording backends must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.Session) error
	EndSession(s *core.Session) error

	// Recording
	RecordTick(t *core.TickRecord) error
	RecordStateEvent(e *core.StateEvent) error
}

// Uploadable is an optional interface for backends that produce a file per
// session suitable for upload to the web frontend.
type Uploadable interface {
	ExportedFilePath(sessionID string) (string, bool)
	ExportMetadata(sessionID string) (core.UploadMetadata, bool)
}

// Multi fans every call out to several backends. Errors are joined, and a
// failing backend does not stop the others.
type Multi []Backend

func (m Multi) Init() error {
	return m.each(func(b Backend) error { return b.Init() })
}

func (m Multi) Close() error {
	return m.each(func(b Backend) error { return b.Close() })
}

func (m Multi) StartSession(s *core.Session) error {
	return m.each(func(b Backend) error { return b.StartSession(s) })
}

func (m Multi) EndSession(s *core.Session) error {
	return m.each(func(b Backend) error { return b.EndSession(s) })
}

func (m Multi) RecordTick(t *core.TickRecord) error {
	return m.each(func(b Backend) error { return b.RecordTick(t) })
}

func (m Multi) RecordStateEvent(e *core.StateEvent) error {
	return m.each(func(b Backend) error { return b.RecordStateEvent(e) })
}

// ExportedFilePath returns the first export path any member knows about.
func (m Multi) ExportedFilePath(sessionID string) (string, bool) {
	for _, b := range m {
		if u, ok := b.(Uploadable); ok {
			if path, ok := u.ExportedFilePath(sessionID); ok {
				return path, true
			}
		}
	}
	return "", false
}

// ExportMetadata returns the metadata of the member that exported the session.
func (m Multi) ExportMetadata(sessionID string) (core.UploadMetadata, bool) {
	for _, b := range m {
		if u, ok := b.(Uploadable); ok {
			if meta, ok := u.ExportMetadata(sessionID); ok {
				return meta, true
			}
		}
	}
	return core.UploadMetadata{}, false
}

func (m Multi) each(fn func(Backend) error) error {
	var errs []error
	for _, b := range m {
		if err := fn(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
