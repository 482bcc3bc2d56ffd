// pkg/core/transmission.go
package core

import (
	"fmt"
	"strings"
)

// TransmissionMode selects which gear set and gear table are active.
type TransmissionMode uint8

const (
	Manual TransmissionMode = iota
	Automatic
)

func (m TransmissionMode) String() string {
	switch m {
	case Manual:
		return "Manual"
	case Automatic:
		return "Automatic"
	default:
		return fmt.Sprintf("TransmissionMode(%d)", m)
	}
}

// Valid reports whether m is Manual or Automatic.
func (m TransmissionMode) Valid() bool {
	return m <= Automatic
}

// Toggle returns the other transmission mode.
func (m TransmissionMode) Toggle() TransmissionMode {
	if m == Automatic {
		return Manual
	}
	return Automatic
}

// ParseTransmissionMode parses "manual" or "automatic" (case-insensitive).
func ParseTransmissionMode(s string) (TransmissionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manual", "":
		return Manual, nil
	case "automatic", "auto":
		return Automatic, nil
	default:
		return Manual, fmt.Errorf("unknown transmission mode %q", s)
	}
}

// ManualGear is a gear position of the manual gearbox.
type ManualGear uint8

const (
	ManualReverse ManualGear = iota
	ManualNeutral
	ManualFirst
	ManualSecond
	ManualThird
	ManualFourth
	ManualFifth
	ManualSixth

	// ManualGearCount is the number of manual gear positions.
	ManualGearCount = int(ManualSixth) + 1
)

var manualGearNames = [ManualGearCount]string{
	"Reverse", "Neutral", "First", "Second", "Third", "Fourth", "Fifth", "Sixth",
}

// Valid reports whether g is one of the declared manual gears.
func (g ManualGear) Valid() bool {
	return int(g) < ManualGearCount
}

func (g ManualGear) String() string {
	if !g.Valid() {
		return fmt.Sprintf("ManualGear(%d)", g)
	}
	return manualGearNames[g]
}

// ManualGears lists every manual gear in ladder order.
func ManualGears() []ManualGear {
	gears := make([]ManualGear, ManualGearCount)
	for i := range gears {
		gears[i] = ManualGear(i)
	}
	return gears
}

// ParseManualGear accepts a gear name ("Second"), a short form ("R", "N") or a
// forward gear number ("2").
func ParseManualGear(s string) (ManualGear, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "r":
		return ManualReverse, nil
	case "n":
		return ManualNeutral, nil
	}
	for i, name := range manualGearNames {
		if v == strings.ToLower(name) {
			return ManualGear(i), nil
		}
	}
	if len(v) == 1 && v[0] >= '1' && v[0] <= '6' {
		return ManualFirst + ManualGear(v[0]-'1'), nil
	}
	return ManualNeutral, fmt.Errorf("unknown manual gear %q", s)
}

// AutoGear is a selector position of the automatic gearbox.
type AutoGear uint8

const (
	AutoReverse AutoGear = iota
	AutoNeutral
	AutoLow
	AutoDrive
	AutoSecond

	// AutoGearCount is the number of automatic selector positions.
	AutoGearCount = int(AutoSecond) + 1
)

var autoGearNames = [AutoGearCount]string{
	"Reverse", "Neutral", "Low", "Drive", "Second",
}

// Valid reports whether g is one of the declared automatic positions.
func (g AutoGear) Valid() bool {
	return int(g) < AutoGearCount
}

func (g AutoGear) String() string {
	if !g.Valid() {
		return fmt.Sprintf("AutoGear(%d)", g)
	}
	return autoGearNames[g]
}

// AutoGears lists every automatic position in ladder order.
func AutoGears() []AutoGear {
	gears := make([]AutoGear, AutoGearCount)
	for i := range gears {
		gears[i] = AutoGear(i)
	}
	return gears
}

// ParseAutoGear accepts a selector name ("Drive") or a short form ("R", "N", "L", "D", "2").
func ParseAutoGear(s string) (AutoGear, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "r":
		return AutoReverse, nil
	case "n":
		return AutoNeutral, nil
	case "l":
		return AutoLow, nil
	case "d":
		return AutoDrive, nil
	case "2":
		return AutoSecond, nil
	}
	for i, name := range autoGearNames {
		if v == strings.ToLower(name) {
			return AutoGear(i), nil
		}
	}
	return AutoNeutral, fmt.Errorf("unknown automatic gear %q", s)
}

func (m TransmissionMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *TransmissionMode) UnmarshalText(b []byte) error {
	v, err := ParseTransmissionMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
