package handlers

import (
	"fmt"

	"github.com/OCAP2/drivetrain/internal/dispatcher"
	"github.com/OCAP2/drivetrain/internal/influx"
	"github.com/OCAP2/drivetrain/internal/util"
	"github.com/OCAP2/drivetrain/pkg/core"
)

func (s *Service) handleAccelerator(e dispatcher.Event) (any, error) {
	in, err := s.deps.Parser.ParseAnalog(e.Args)
	if err != nil {
		return nil, err
	}
	car, err := s.car(e.Args)
	if err != nil {
		return nil, err
	}
	car.Controller.Accelerator(in.Value)
	return nil, nil
}

func (s *Service) handleBrake(e dispatcher.Event) (any, error) {
	in, err := s.deps.Parser.ParseAnalog(e.Args)
	if err != nil {
		return nil, err
	}
	car, err := s.car(e.Args)
	if err != nil {
		return nil, err
	}
	car.Controller.Brake(in.Value)
	return nil, nil
}

func (s *Service) handleTurn(e dispatcher.Event) (any, error) {
	in, err := s.deps.Parser.ParseAnalog(e.Args)
	if err != nil {
		return nil, err
	}
	car, err := s.car(e.Args)
	if err != nil {
		return nil, err
	}
	car.Controller.Turn(in.Value)
	return nil, nil
}

func (s *Service) handleHandBrake(e dispatcher.Event) (any, error) {
	car, err := s.car(e.Args)
	if err != nil {
		return nil, err
	}
	return car.Controller.ToggleHandBrake(), nil
}

func (s *Service) handleEngine(e dispatcher.Event) (any, error) {
	car, err := s.car(e.Args)
	if err != nil {
		return nil, err
	}
	return car.Controller.ToggleEngine(), nil
}

func (s *Service) handleCarType(e dispatcher.Event) (any, error) {
	car, err := s.car(e.Args)
	if err != nil {
		return nil, err
	}
	return car.Controller.ToggleTransmission(), nil
}

func (s *Service) handleClutch(e dispatcher.Event) (any, error) {
	in, err := s.deps.Parser.ParseClutch(e.Args)
	if err != nil {
		return nil, err
	}
	car, err := s.car(e.Args)
	if err != nil {
		return nil, err
	}
	return car.Controller.Clutch(in.Delta), nil
}

func (s *Service) handleShiftManual(e dispatcher.Event) (any, error) {
	in, err := s.deps.Parser.ParseManualShift(e.Args)
	if err != nil {
		return nil, err
	}
	car, err := s.car(e.Args)
	if err != nil {
		return nil, err
	}
	return car.Controller.ShiftManual(in.Gear), nil
}

func (s *Service) handleShiftAuto(e dispatcher.Event) (any, error) {
	in, err := s.deps.Parser.ParseAutoShift(e.Args)
	if err != nil {
		return nil, err
	}
	car, err := s.car(e.Args)
	if err != nil {
		return nil, err
	}
	return car.Controller.ShiftAutomatic(in.Gear), nil
}

func (s *Service) handleGearInfo(e dispatcher.Event) (any, error) {
	car, err := s.car(e.Args)
	if err != nil {
		return nil, err
	}
	car.Controller.RefreshGearInfo()
	return car.Controller.Snapshot(), nil
}

// handleTick runs Count fixed steps of one car and returns their records.
func (s *Service) handleTick(e dispatcher.Event) (any, error) {
	in, err := s.deps.Parser.ParseTicks(e.Args)
	if err != nil {
		return nil, err
	}
	car, err := s.car(e.Args)
	if err != nil {
		return nil, err
	}

	records := make([]core.TickRecord, 0, in.Count)
	for range in.Count {
		res := car.Controller.Step()
		rec := core.TickRecord{
			SessionID: car.Session.ID,
			CarID:     in.CarID,
			Tick:      res.Tick,
			Time:      s.deps.Now(),
			Command:   res.Command,
			Snapshot:  res.Snapshot,
		}
		records = append(records, rec)

		if s.deps.Recorder != nil {
			if err := s.deps.Recorder.RecordTick(rec); err != nil {
				s.deps.Logger.Debug("Dropped tick record", "car", in.CarID, "tick", rec.Tick, "error", err)
			}
		}
	}
	return records, nil
}

func (s *Service) handleState(e dispatcher.Event) (any, error) {
	car, err := s.car(e.Args)
	if err != nil {
		return nil, err
	}
	return car.Controller.State(), nil
}

// handleMetric writes a custom point: [bucket, measurement, tag::k::v..., field::type::k::v...].
func (s *Service) handleMetric(e dispatcher.Event) (any, error) {
	if s.deps.Metrics == nil {
		return nil, ErrMetricsDisabled
	}
	bucket, point, err := influx.ProcessMetricData(e.Args, util.FixEscapeQuotes, util.TrimQuotes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metric: %w", err)
	}
	if err := s.deps.Metrics.WritePoint(bucket, point); err != nil {
		return nil, fmt.Errorf("failed to write metric: %w", err)
	}
	return nil, nil
}
