package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/OCAP2/drivetrain/internal/cache"
	"github.com/OCAP2/drivetrain/internal/dispatcher"
	"github.com/OCAP2/drivetrain/internal/drivetrain"
	"github.com/OCAP2/drivetrain/internal/presentation"
	"github.com/OCAP2/drivetrain/internal/storage"
	"github.com/OCAP2/drivetrain/pkg/core"
)

// handleNewCar builds a controller for the car, opens its recording session
// and returns the session id.
func (s *Service) handleNewCar(e dispatcher.Event) (any, error) {
	req, err := s.deps.Parser.ParseNewCar(e.Args)
	if err != nil {
		return nil, err
	}

	cfg, err := s.deps.Drivetrain.Controller()
	if err != nil {
		return nil, fmt.Errorf("drivetrain config: %w", err)
	}
	if req.HasMode {
		cfg.Initial.Mode = req.Mode
	}
	table, err := s.deps.Drivetrain.Table(req.Scale)
	if err != nil {
		return nil, fmt.Errorf("gear table: %w", err)
	}

	session := core.Session{
		ID:         s.newID(),
		CarID:      req.CarID,
		StartTime:  s.deps.Now(),
		Mode:       cfg.Initial.Mode,
		TableScale: table.Scale(),
		TickRate:   s.deps.Drivetrain.TickRate,
	}

	var sink presentation.Sink
	if s.deps.Sink != nil {
		sink = s.deps.Sink(req.CarID)
	}

	ctrl, err := drivetrain.New(cfg, table,
		drivetrain.WithCarID(req.CarID),
		drivetrain.WithSink(sink),
		drivetrain.WithLogger(s.deps.Logger.With("car", req.CarID)),
		drivetrain.WithClock(s.deps.Now),
		drivetrain.WithTransitionHook(s.transitionHook(session.ID)),
	)
	if err != nil {
		return nil, err
	}

	if err := s.deps.Cars.Add(req.CarID, &cache.Car{Controller: ctrl, Session: session}); err != nil {
		return nil, fmt.Errorf("%w: %s", err, req.CarID)
	}

	if s.deps.Backend != nil {
		if err := s.deps.Backend.StartSession(&session); err != nil {
			s.deps.Logger.Error("Failed to start recording session", "car", req.CarID, "session", session.ID, "error", err)
		}
	}

	s.deps.Logger.Info("Car created",
		"car", req.CarID,
		"session", session.ID,
		"mode", session.Mode.String(),
		"scale", session.TableScale,
	)
	return session.ID, nil
}

// transitionHook forwards controller transitions to the recorder, tagged
// with the session they belong to.
func (s *Service) transitionHook(sessionID string) drivetrain.TransitionHook {
	return func(ev core.StateEvent) {
		if s.deps.Recorder == nil {
			return
		}
		ev.SessionID = sessionID
		if err := s.deps.Recorder.RecordStateEvent(ev); err != nil {
			s.deps.Logger.Warn("Dropped state event", "car", ev.CarID, "kind", string(ev.Kind), "error", err)
		}
	}
}

// handleRemoveCar drops the car, waits for its queued records, closes the
// session and uploads the export when the backend produced one.
func (s *Service) handleRemoveCar(e dispatcher.Event) (any, error) {
	id, err := s.deps.Parser.ParseCarID(e.Args)
	if err != nil {
		return nil, err
	}
	car, err := s.deps.Cars.Remove(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.deps.DrainTimeout)
	defer cancel()

	if s.deps.Recorder != nil {
		if err := s.deps.Recorder.Drain(ctx); err != nil {
			s.deps.Logger.Warn("Records still queued at session end", "car", id, "error", err)
		}
	}

	session := car.Session
	session.EndTime = s.deps.Now()
	if s.deps.Backend == nil {
		return session, nil
	}
	if err := s.deps.Backend.EndSession(&session); err != nil {
		return session, fmt.Errorf("failed to end session %s: %w", session.ID, err)
	}

	s.deps.Logger.Info("Car removed", "car", id, "session", session.ID, "ticks", car.Controller.Ticks())

	if err := s.upload(context.Background(), session.ID); err != nil {
		return session, err
	}
	return session, nil
}

func (s *Service) upload(ctx context.Context, sessionID string) error {
	if s.deps.Uploader == nil {
		return nil
	}
	u, ok := s.deps.Backend.(storage.Uploadable)
	if !ok {
		return nil
	}
	path, ok := u.ExportedFilePath(sessionID)
	if !ok {
		return nil
	}
	meta, _ := u.ExportMetadata(sessionID)

	if err := s.deps.Uploader.Upload(ctx, path, meta); err != nil {
		s.deps.Logger.Error("Failed to upload session, file kept on disk", "session", sessionID, "path", path, "error", err)
		return errors.Join(ErrUploadFailed, err)
	}
	s.deps.Logger.Info("Session uploaded", "session", sessionID, "path", path)
	return nil
}
