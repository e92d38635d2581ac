// Package scheduler runs the automatic backup job on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/garagekeeper/internal/logging"
	"github.com/robfig/cron/v3"
)

// ErrDisabled is returned by Start for an empty schedule.
var ErrDisabled = errors.New("automatic backups are disabled")

// ErrAlreadyRunning is returned by Start when the scheduler was started
// before and not stopped.
var ErrAlreadyRunning = errors.New("scheduler already running")

// DefaultJobTimeout bounds a single scheduled run.
const DefaultJobTimeout = 10 * time.Minute

// Job is the work performed on every tick.
type Job func(ctx context.Context) error

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate reports whether schedule is a usable cron expression: five
// standard fields or a descriptor such as "@daily" or "@every 6h".
func Validate(schedule string) error {
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", schedule, err)
	}
	return nil
}

// Scheduler triggers a Job on a cron schedule. Runs never overlap: a tick
// that fires while the previous run is still busy is skipped.
type Scheduler struct {
	job     Job
	logger  logging.Logger
	timeout time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	running bool
}

// New returns a stopped scheduler for job.
func New(job Job, logger logging.Logger) *Scheduler {
	return &Scheduler{job: job, logger: logger, timeout: DefaultJobTimeout}
}

// SetJobTimeout changes how long a single run may take.
func (s *Scheduler) SetJobTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
}

// Start schedules the job. An empty schedule returns ErrDisabled.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		return ErrDisabled
	}
	if err := Validate(schedule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cronLogger{s.logger}),
		cron.WithChain(cron.Recover(cronLogger{s.logger}), cron.SkipIfStillRunning(cronLogger{s.logger})),
	)

	entry, err := c.AddFunc(schedule, s.tick)
	if err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", schedule, err)
	}

	c.Start()
	s.cron, s.entry, s.running = c, entry, true

	s.logger.Info(context.Background(), "backup scheduler started", "schedule", schedule, "next", c.Entry(entry).Next)
	return nil
}

// Stop halts the schedule and waits for a run in progress to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	running := s.running
	s.cron, s.running = nil, false
	s.mu.Unlock()

	if !running {
		return
	}

	<-c.Stop().Done()
	s.logger.Info(context.Background(), "backup scheduler stopped")
}

// Running reports whether Start succeeded and Stop has not been called.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Next returns the time of the next scheduled run, or the zero time when
// the scheduler is stopped.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// RunNow runs the job synchronously, outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) error {
	s.logger.Info(ctx, "manual backup run triggered")
	return s.run(ctx)
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	timeout := s.timeout
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_ = s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) error {
	started := time.Now()
	if err := s.job(ctx); err != nil {
		s.logger.Error(ctx, "scheduled backup failed", "error", err, "elapsed", time.Since(started))
		return err
	}
	s.logger.Info(ctx, "scheduled backup completed", "elapsed", time.Since(started))
	return nil
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	l logging.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(context.Background(), "cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(context.Background(), "cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
