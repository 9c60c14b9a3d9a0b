package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"WallRelay/internal/ports"
	"WallRelay/pkg/logger"
)

// CronScheduler runs a job immediately and then every interval. A run that
// is still in progress when the next tick fires makes that tick a no-op.
type CronScheduler struct {
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	stopped chan struct{}
	running sync.WaitGroup
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler with a fixed interval.
func NewCronScheduler(interval time.Duration, log *slog.Logger) *CronScheduler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CronScheduler{interval: interval, logger: log}
}

// Start registers the job and kicks off the first run right away.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if c.interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", c.interval)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	cronLogger := cron.PrintfLogger(logger.Printf(c.logger, "cron", slog.LevelDebug))
	wrapped := cron.NewChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)).
		Then(cron.FuncJob(func() { job(time.Now()) }))

	c.stopped = nil
	c.cron = cron.New(cron.WithLogger(cronLogger))
	c.cron.Schedule(cron.Every(c.interval), wrapped)
	c.cron.Start()

	c.running.Add(1)
	go func() {
		defer c.running.Done()
		wrapped.Run()
	}()

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()

	return nil
}

// Stop halts scheduling and waits for a running job until ctx expires.
// Concurrent callers all wait for the same shutdown.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	if cr := c.cron; cr != nil {
		c.cron = nil
		done := make(chan struct{})
		c.stopped = done
		go func() {
			<-cr.Stop().Done()
			c.running.Wait()
			close(done)
		}()
	}
	done := c.stopped
	c.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
