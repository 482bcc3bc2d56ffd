// Package runner drives the fixed-step loop: in real time on a ticker, or
// as a deterministic replay of a scripted input sequence.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/OCAP2/drivetrain/internal/cache"
	"github.com/OCAP2/drivetrain/internal/dispatcher"
	"github.com/OCAP2/drivetrain/internal/handlers"
	"github.com/OCAP2/drivetrain/pkg/core"
)

// Dispatcher routes events to handlers. *dispatcher.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(e dispatcher.Event) (any, error)
}

// CarLister lists the cars to tick. *cache.CarCache satisfies it.
type CarLister interface {
	IDs() []string
}

// StepClock is a clock that only moves when Advance is called. Replays share
// it with the handlers so recorded times depend on the tick, not the wall.
type StepClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	n     uint64
}

func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{start: start, step: step}
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start.Add(time.Duration(c.n) * c.step)
}

func (c *StepClock) Advance() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

// Config configures a Runner.
type Config struct {
	TickRate time.Duration
	Logger   *slog.Logger
	// Clock is advanced once per replayed step. Optional.
	Clock *StepClock
	// OnTick receives the records of every real-time step. Optional.
	OnTick func([]core.TickRecord)
}

// Runner ticks every live car once per step.
type Runner struct {
	d    Dispatcher
	cars CarLister
	cfg  Config
}

// New creates a runner. A non-positive tick rate means 20ms.
func New(d Dispatcher, cars CarLister, cfg Config) *Runner {
	if cfg.TickRate <= 0 {
		cfg.TickRate = 20 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{d: d, cars: cars, cfg: cfg}
}

// Run ticks every car at TickRate until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.TickRate)
	defer ticker.Stop()

	r.cfg.Logger.Info("Runner started", "tickRate", r.cfg.TickRate)
	for {
		select {
		case <-ctx.Done():
			r.cfg.Logger.Info("Runner stopped")
			return nil
		case <-ticker.C:
			records, err := r.Step()
			if err != nil {
				r.cfg.Logger.Error("Tick failed", "error", err)
			}
			if r.cfg.OnTick != nil && len(records) > 0 {
				r.cfg.OnTick(records)
			}
		}
	}
}

// Step ticks every live car once, in car id order.
func (r *Runner) Step() ([]core.TickRecord, error) {
	var (
		records []core.TickRecord
		errs    []error
	)
	for _, id := range r.cars.IDs() {
		res, err := r.d.Dispatch(dispatcher.Event{Command: handlers.CmdTick, Args: []string{id}})
		if err != nil {
			// Removed between listing and ticking.
			if errors.Is(err, cache.ErrUnknownCar) {
				continue
			}
			errs = append(errs, fmt.Errorf("car %s: %w", id, err))
			continue
		}
		if recs, ok := res.([]core.TickRecord); ok {
			records = append(records, recs...)
		}
	}
	return records, errors.Join(errs...)
}
