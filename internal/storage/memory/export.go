// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/OCAP2/drivetrain/pkg/core"
)

// SessionExport is the root JSON structure of an exported session
type SessionExport struct {
	SessionID  string                `json:"sessionId"`
	CarID      string                `json:"carId"`
	Mode       core.TransmissionMode `json:"mode"`
	TableScale float64               `json:"tableScale"`
	TickRateMs float64               `json:"tickRateMs"`
	StartTime  time.Time             `json:"startTime"`
	EndTime    time.Time             `json:"endTime"`
	EndTick    uint64                `json:"endTick"`
	Ticks      []TickJSON            `json:"ticks"`
	Events     []EventJSON           `json:"events"`
}

// TickJSON is one tick of an exported session
type TickJSON struct {
	Tick     uint64            `json:"tick"`
	Time     time.Time         `json:"time"`
	Command  core.DriveCommand `json:"command"`
	Snapshot core.Snapshot     `json:"snapshot"`
}

// EventJSON is one state transition of an exported session
type EventJSON struct {
	Tick uint64              `json:"tick"`
	Time time.Time           `json:"time"`
	Kind core.StateEventKind `json:"kind"`
	From string              `json:"from"`
	To   string              `json:"to"`
}

var fileNameReplacer = strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_")

// exportJSON writes the session to a (gzipped) JSON file. Caller holds b.mu.
func (b *Backend) exportJSON(record *SessionRecord) error {
	export := buildExport(record)
	s := record.Session

	name := fileNameReplacer.Replace(s.CarID)
	timestamp := s.StartTime.Format("20060102_150405")
	short := s.ID
	if len(short) > 8 {
		short = short[:8]
	}

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s_%s.json.gz", name, timestamp, short)
	} else {
		filename = fmt.Sprintf("%s_%s_%s.json", name, timestamp, short)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	duration := 0.0
	if !s.EndTime.IsZero() {
		duration = s.EndTime.Sub(s.StartTime).Seconds()
	}
	b.exports[s.ID] = exportInfo{
		path: outputPath,
		meta: core.UploadMetadata{
			SessionID: s.ID,
			CarID:     s.CarID,
			Duration:  duration,
			Ticks:     uint64(len(record.Ticks)),
		},
	}
	return nil
}

func buildExport(record *SessionRecord) SessionExport {
	s := record.Session
	export := SessionExport{
		SessionID:  s.ID,
		CarID:      s.CarID,
		Mode:       s.Mode,
		TableScale: s.TableScale,
		TickRateMs: float64(s.TickRate.Microseconds()) / 1000,
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		Ticks:      make([]TickJSON, 0, len(record.Ticks)),
		Events:     make([]EventJSON, 0, len(record.Events)),
	}

	for _, t := range record.Ticks {
		export.Ticks = append(export.Ticks, TickJSON{
			Tick:     t.Tick,
			Time:     t.Time,
			Command:  t.Command,
			Snapshot: t.Snapshot,
		})
		if t.Tick > export.EndTick {
			export.EndTick = t.Tick
		}
	}

	for _, e := range record.Events {
		export.Events = append(export.Events, EventJSON{
			Tick: e.Tick,
			Time: e.Time,
			Kind: e.Kind,
			From: e.From,
			To:   e.To,
		})
	}

	return export
}

func writeJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}
