package drivetrain

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/drivetrain/internal/drivetrain"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type instruments struct {
	ticks  metric.Int64Counter
	stalls metric.Int64Counter
	shifts metric.Int64Counter
	motor  metric.Float64Histogram
}

func newInstruments() (*instruments, error) {
	m := meter()
	in := &instruments{}

	var err error
	in.ticks, err = m.Int64Counter(
		"drivetrain.ticks",
		metric.WithDescription("Total fixed-step ticks executed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}

	in.stalls, err = m.Int64Counter(
		"drivetrain.stalls",
		metric.WithDescription("Engine stalls caused by shifting with the clutch engaged"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stalls counter: %w", err)
	}

	in.shifts, err = m.Int64Counter(
		"drivetrain.shifts",
		metric.WithDescription("Gear-shift requests by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating shifts counter: %w", err)
	}

	in.motor, err = m.Float64Histogram(
		"drivetrain.motor.torque",
		metric.WithDescription("Final motor torque per tick"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating motor torque histogram: %w", err)
	}

	return in, nil
}
