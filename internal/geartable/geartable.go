// Package geartable maps gear positions to reference torque values.
//
// A table is built once from configuration and never changes afterwards. Each
// transmission mode has its own ladder; the manual and automatic ladders are
// looked up independently so the controller can keep both gear positions.
package geartable

import (
	"fmt"
	"strings"

	"github.com/OCAP2/drivetrain/pkg/core"
)

// Canonical product scales.
const (
	Compact  = 10.0
	Standard = 30.0
	Heavy    = 100.0
)

// Unit ladders, multiplied by Config.Scale.
var (
	manualUnits = [core.ManualGearCount]float64{-1, 0, 1, 2, 3, 4, 5, 6}
	autoUnits   = [core.AutoGearCount]float64{-1, 0, 1, 2.5, 4}
)

// Config selects the torque values of a table.
// Manual and Automatic, when set, override the scaled ladder for that mode and
// must name every gear of the mode (keys are gear names, case-insensitive).
type Config struct {
	Scale     float64            `json:"scale" mapstructure:"scale"`
	Manual    map[string]float64 `json:"manual" mapstructure:"manual"`
	Automatic map[string]float64 `json:"automatic" mapstructure:"automatic"`
}

// Table is an immutable gear → reference torque mapping for both modes.
type Table struct {
	scale  float64
	manual [core.ManualGearCount]float64
	auto   [core.AutoGearCount]float64
}

// New builds and validates a table.
func New(cfg Config) (*Table, error) {
	if cfg.Scale <= 0 {
		return nil, fmt.Errorf("gear table scale must be positive, got %v", cfg.Scale)
	}

	t := &Table{scale: cfg.Scale}
	for i, u := range manualUnits {
		t.manual[i] = u * cfg.Scale
	}
	for i, u := range autoUnits {
		t.auto[i] = u * cfg.Scale
	}

	if len(cfg.Manual) > 0 {
		for _, g := range core.ManualGears() {
			v, ok := lookup(cfg.Manual, g.String())
			if !ok {
				return nil, fmt.Errorf("manual gear table: missing gear %s", g)
			}
			t.manual[g] = v
		}
	}
	if len(cfg.Automatic) > 0 {
		for _, g := range core.AutoGears() {
			v, ok := lookup(cfg.Automatic, g.String())
			if !ok {
				return nil, fmt.Errorf("automatic gear table: missing gear %s", g)
			}
			t.auto[g] = v
		}
	}

	if err := validate("manual", t.manual[:]); err != nil {
		return nil, err
	}
	if err := validate("automatic", t.auto[:]); err != nil {
		return nil, err
	}
	return t, nil
}

// MustNew is New for static tables known to be valid.
func MustNew(cfg Config) *Table {
	t, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return t
}

// Scale returns the configured scale factor.
func (t *Table) Scale() float64 {
	return t.scale
}

// Manual returns the reference torque of a manual gear.
func (t *Table) Manual(g core.ManualGear) float64 {
	if !g.Valid() {
		panic(fmt.Sprintf("geartable: %s out of range", g))
	}
	return t.manual[g]
}

// Automatic returns the reference torque of an automatic selector position.
func (t *Table) Automatic(g core.AutoGear) float64 {
	if !g.Valid() {
		panic(fmt.Sprintf("geartable: %s out of range", g))
	}
	return t.auto[g]
}

func lookup(m map[string]float64, name string) (float64, bool) {
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return 0, false
}

// validate checks a ladder laid out as [Reverse, Neutral, forward...].
func validate(mode string, ladder []float64) error {
	if ladder[0] >= 0 {
		return fmt.Errorf("%s gear table: reverse must be negative, got %v", mode, ladder[0])
	}
	if ladder[1] != 0 {
		return fmt.Errorf("%s gear table: neutral must be 0, got %v", mode, ladder[1])
	}
	prev := 0.0
	for i, v := range ladder[2:] {
		if v <= 0 {
			return fmt.Errorf("%s gear table: forward gear %d must be positive, got %v", mode, i+1, v)
		}
		if v < prev {
			return fmt.Errorf("%s gear table: forward gear %d (%v) below previous gear (%v)", mode, i+1, v, prev)
		}
		prev = v
	}
	return nil
}
