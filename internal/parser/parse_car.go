package parser

import (
	"fmt"
	"strings"

	"github.com/OCAP2/drivetrain/internal/geartable"
	"github.com/OCAP2/drivetrain/pkg/core"
)

// variantScales maps product variant names to gear table scales.
var variantScales = map[string]float64{
	"compact":  geartable.Compact,
	"standard": geartable.Standard,
	"heavy":    geartable.Heavy,
}

// ParseCarID parses the single car id argument of toggle commands.
func (p *Parser) ParseCarID(data []string) (string, error) {
	args, err := p.clean(data, 1, "car id")
	if err != nil {
		return "", err
	}
	return args[0], nil
}

// ParseNewCar parses [carID, mode?, variant?]. The variant is a name
// (compact, standard, heavy) or a positive numeric scale.
func (p *Parser) ParseNewCar(data []string) (NewCar, error) {
	var car NewCar

	args, err := p.clean(data, 1, "new car")
	if err != nil {
		return car, err
	}
	car.CarID = args[0]

	if len(args) > 1 && args[1] != "" {
		car.Mode, err = core.ParseTransmissionMode(args[1])
		if err != nil {
			return car, fmt.Errorf("%w: %w", ErrBadArgs, err)
		}
		car.HasMode = true
	}

	if len(args) > 2 && args[2] != "" {
		v := strings.ToLower(args[2])
		if scale, ok := variantScales[v]; ok {
			car.Scale = scale
		} else {
			scale, err := parseFinite(v)
			if err != nil || scale <= 0 {
				return car, fmt.Errorf("%w: unknown car variant %q", ErrBadArgs, args[2])
			}
			car.Scale = scale
		}
	}

	return car, nil
}
