package usecase

import (
	"context"
	"io"
	"log/slog"
	"time"

	"WallRelay/internal/ports"
)

// Scheduler wires the interval driver with the relay cycle.
type Scheduler struct {
	driver ports.Scheduler
	relay  *Relay
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring relay cycles.
func NewScheduler(driver ports.Scheduler, relay *Relay, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{driver: driver, relay: relay, logger: log}
}

// Start registers the relay cycle with the provided driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.relay == nil {
		return nil
	}

	return s.driver.Start(ctx, s.Tick)
}

// Tick runs a single cycle and logs its outcome; errors never escape.
// The cycle gets its own context so shutdown never interrupts it midway.
func (s *Scheduler) Tick(trigger time.Time) {
	started := time.Now()
	report, err := s.relay.RunCycle(context.Background())
	if err != nil {
		s.logger.Warn("cycle skipped", "trigger", trigger, "error", err)
		return
	}

	s.logger.Info("cycle done",
		"fetched", report.Fetched,
		"accepted", report.Accepted,
		"skipped", report.Skipped,
		"published", report.Published,
		"failed", report.Failed,
		"watermark", report.Watermark,
		"duration", time.Since(started),
	)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
