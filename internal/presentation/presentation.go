// Package presentation is the push-only display boundary of the drivetrain.
// Sinks receive value snapshots and never write back into the controller.
package presentation

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/OCAP2/drivetrain/pkg/core"
)

// Sink receives controller snapshots after every state change and every tick.
type Sink interface {
	Present(s core.Snapshot)
}

// Func adapts a plain function to a Sink.
type Func func(s core.Snapshot)

// Present calls f(s).
func (f Func) Present(s core.Snapshot) {
	f(s)
}

// Nop discards every snapshot.
type Nop struct{}

// Present does nothing.
func (Nop) Present(core.Snapshot) {}

// Multi fans a snapshot out to several sinks in order.
type Multi struct {
	sinks []Sink
}

// NewMulti creates a fan-out sink, skipping nil entries.
func NewMulti(sinks ...Sink) *Multi {
	valid := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			valid = append(valid, s)
		}
	}
	return &Multi{sinks: valid}
}

// Present forwards s to every sink.
func (m *Multi) Present(s core.Snapshot) {
	for _, sink := range m.sinks {
		sink.Present(s)
	}
}

// Lines formats a snapshot the way the dashboard text shows it.
func Lines(s core.Snapshot) []string {
	return []string{
		"Car type: " + s.Mode.String(),
		"Gear: " + s.Gear,
		"Hand brake: " + s.HandBrake.String(),
		"Accelerator: " + strconv.FormatFloat(s.Accelerator, 'f', -1, 64),
		"Brake: " + strconv.FormatBool(s.Braking),
		"Clutch: " + s.Clutch.String(),
		"Engine: " + s.Engine.String(),
	}
}

// HUD writes the dashboard text of each snapshot to w.
// Identical consecutive snapshots are written once.
type HUD struct {
	mu   sync.Mutex
	w    io.Writer
	last *core.Snapshot
}

// NewHUD creates a text dashboard sink.
func NewHUD(w io.Writer) *HUD {
	return &HUD{w: w}
}

// Present writes s unless it equals the previous snapshot.
func (h *HUD) Present(s core.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.last != nil && *h.last == s {
		return
	}
	h.last = &s

	for _, line := range Lines(s) {
		fmt.Fprintln(h.w, line)
	}
	fmt.Fprintln(h.w)
}
