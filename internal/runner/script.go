package runner

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/OCAP2/drivetrain/internal/dispatcher"
	"github.com/OCAP2/drivetrain/pkg/core"
)

// ScriptEvent is one input dispatched before step Tick. An event with Tick
// equal to Script.Steps runs after the last step.
type ScriptEvent struct {
	Tick    int      `json:"tick"`
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// Script is a deterministic input sequence.
type Script struct {
	Steps  int           `json:"steps"`
	Events []ScriptEvent `json:"events"`
}

// Validate checks step bounds and command names.
func (s Script) Validate() error {
	if s.Steps < 0 {
		return fmt.Errorf("steps must not be negative, got %d", s.Steps)
	}
	for i, ev := range s.Events {
		if ev.Tick < 0 || ev.Tick > s.Steps {
			return fmt.Errorf("event %d: tick %d outside [0, %d]", i, ev.Tick, s.Steps)
		}
		if !strings.HasPrefix(ev.Command, ":") || !strings.HasSuffix(ev.Command, ":") {
			return fmt.Errorf("event %d: malformed command %q", i, ev.Command)
		}
	}
	return nil
}

// ParseScript decodes and validates a JSON script.
func ParseScript(data []byte) (Script, error) {
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to decode script: %w", err)
	}
	return s, s.Validate()
}

// Replay runs the script: for each step n, the events of tick n are
// dispatched in script order and then every live car is ticked once.
// It returns the tick records of all cars in step order.
func (r *Runner) Replay(s Script) ([]core.TickRecord, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	events := slices.Clone(s.Events)
	slices.SortStableFunc(events, func(a, b ScriptEvent) int { return a.Tick - b.Tick })

	var records []core.TickRecord
	next := 0
	for step := 0; step <= s.Steps; step++ {
		for ; next < len(events) && events[next].Tick == step; next++ {
			ev := events[next]
			if _, err := r.d.Dispatch(dispatcher.Event{
				Command:   ev.Command,
				Args:      slices.Clone(ev.Args),
				Timestamp: r.now(),
			}); err != nil {
				return records, fmt.Errorf("step %d: %s %v: %w", step, ev.Command, ev.Args, err)
			}
		}
		if step == s.Steps {
			break
		}

		recs, err := r.Step()
		records = append(records, recs...)
		if err != nil {
			return records, fmt.Errorf("step %d: %w", step, err)
		}
		if r.cfg.Clock != nil {
			r.cfg.Clock.Advance()
		}
	}

	r.cfg.Logger.Debug("Replay complete", "steps", s.Steps, "events", len(events), "records", len(records))
	return records, nil
}

// RunJSON replays a JSON script and returns the tick log as JSON.
func (r *Runner) RunJSON(data []byte) ([]byte, error) {
	s, err := ParseScript(data)
	if err != nil {
		return nil, err
	}
	records, err := r.Replay(s)
	if err != nil {
		return nil, err
	}
	return MarshalRecords(records)
}

// MarshalRecords encodes a tick log. An empty log encodes as [].
func MarshalRecords(records []core.TickRecord) ([]byte, error) {
	if records == nil {
		records = []core.TickRecord{}
	}
	return json.Marshal(records)
}

func (r *Runner) now() time.Time {
	if r.cfg.Clock != nil {
		return r.cfg.Clock.Now()
	}
	return time.Now()
}
