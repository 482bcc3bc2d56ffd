package parser

import (
	"fmt"

	"github.com/OCAP2/drivetrain/pkg/core"
)

// ParseAnalog parses [carID, value] for accelerator, brake and turn commands.
func (p *Parser) ParseAnalog(data []string) (AnalogInput, error) {
	var in AnalogInput

	args, err := p.clean(data, 2, "analog input")
	if err != nil {
		return in, err
	}
	in.CarID = args[0]

	in.Value, err = parseFinite(args[1])
	if err != nil {
		return in, fmt.Errorf("%w: error converting input value: %w", ErrBadArgs, err)
	}
	return in, nil
}

// ParseClutch parses [carID, delta]. The delta may arrive as a float ("-1.0").
func (p *Parser) ParseClutch(data []string) (ClutchInput, error) {
	var in ClutchInput

	args, err := p.clean(data, 2, "clutch")
	if err != nil {
		return in, err
	}
	in.CarID = args[0]

	delta, err := parseIntFromFloat(args[1])
	if err != nil {
		return in, fmt.Errorf("%w: error converting clutch delta: %w", ErrBadArgs, err)
	}
	in.Delta = int(max(-1, min(delta, 1)))
	return in, nil
}

// ParseManualShift parses [carID, gear] for the manual gearbox.
func (p *Parser) ParseManualShift(data []string) (ManualShift, error) {
	var in ManualShift

	args, err := p.clean(data, 2, "manual shift")
	if err != nil {
		return in, err
	}
	in.CarID = args[0]

	in.Gear, err = core.ParseManualGear(args[1])
	if err != nil {
		return in, fmt.Errorf("%w: %w", ErrBadArgs, err)
	}
	return in, nil
}

// ParseAutoShift parses [carID, gear] for the automatic selector.
func (p *Parser) ParseAutoShift(data []string) (AutoShift, error) {
	var in AutoShift

	args, err := p.clean(data, 2, "automatic shift")
	if err != nil {
		return in, err
	}
	in.CarID = args[0]

	in.Gear, err = core.ParseAutoGear(args[1])
	if err != nil {
		return in, fmt.Errorf("%w: %w", ErrBadArgs, err)
	}
	return in, nil
}

// ParseTicks parses [carID, count?]. Count defaults to 1 and must be positive.
func (p *Parser) ParseTicks(data []string) (TickInput, error) {
	in := TickInput{Count: 1}

	args, err := p.clean(data, 1, "tick")
	if err != nil {
		return in, err
	}
	in.CarID = args[0]

	if len(args) > 1 && args[1] != "" {
		in.Count, err = parseUintFromFloat(args[1])
		if err != nil {
			return in, fmt.Errorf("%w: error converting tick count: %w", ErrBadArgs, err)
		}
		if in.Count == 0 {
			return in, fmt.Errorf("%w: tick count must be positive", ErrBadArgs)
		}
	}
	return in, nil
}
