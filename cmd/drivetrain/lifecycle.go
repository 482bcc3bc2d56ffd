package main

import (
	"context"
	"fmt"
	"time"

	"github.com/OCAP2/drivetrain/internal/dispatcher"
)

// registerLifecycleHandlers registers process level commands with the dispatcher.
func registerLifecycleHandlers(d *dispatcher.Dispatcher) {
	d.Register(":VERSION:", func(e dispatcher.Event) (any, error) {
		return []string{CurrentVersion, BuildDate}, nil
	})

	d.Register(":CARS:", func(e dispatcher.Event) (any, error) {
		return CarCache.IDs(), nil
	})

	// :LOG: takes [source, message, level?] from a script or input bridge.
	d.Register(":LOG:", func(e dispatcher.Event) (any, error) {
		if len(e.Args) < 2 {
			return nil, fmt.Errorf(":LOG: needs source and message, got %d args", len(e.Args))
		}
		level := "info"
		if len(e.Args) > 2 {
			level = e.Args[2]
		}
		if SlogManager != nil {
			SlogManager.WriteLog(e.Args[0], e.Args[1], level)
		}
		return "ok", nil
	})

	// :SAVE: flushes buffered log and telemetry output without stopping.
	d.Register(":SAVE:", func(e dispatcher.Event) (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if workerManager != nil {
			if err := workerManager.Drain(ctx); err != nil {
				Logger.Warn("Recorder did not drain", "error", err)
			}
		}
		if OTelProvider != nil {
			if err := OTelProvider.Flush(ctx); err != nil {
				Logger.Warn("Failed to flush OTel provider", "error", err)
			}
		}
		if SlogManager != nil {
			if err := SlogManager.Flush(ctx); err != nil {
				return nil, err
			}
		}
		return "ok", nil
	}, dispatcher.Logged())
}
