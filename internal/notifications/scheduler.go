package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerConfig contains scheduler configuration.
type SchedulerConfig struct {
	// ProcessSchedule triggers queue passes. Its interval is the effective
	// delay between retries of a job.
	ProcessSchedule string
	PurgeSchedule   string
	PassTimeout     time.Duration
	Retention       time.Duration
}

// DefaultSchedulerConfig returns default scheduler configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		ProcessSchedule: "@every 30s",
		PurgeSchedule:   "@hourly",
		PassTimeout:     2 * time.Minute,
		Retention:       7 * 24 * time.Hour,
	}
}

var scheduleParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler triggers queue passes and retention purges on a cron schedule.
type Scheduler struct {
	config SchedulerConfig
	queue  *Queue
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. An empty schedule disables that job.
func NewScheduler(config SchedulerConfig, queue *Queue) (*Scheduler, error) {
	logger := cronLogger{log: slog.Default().With("component", "notification_scheduler")}

	s := &Scheduler{
		config: config,
		queue:  queue,
		cron: cron.New(
			cron.WithParser(scheduleParser),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if config.ProcessSchedule != "" {
		if _, err := s.cron.AddFunc(config.ProcessSchedule, s.runPass); err != nil {
			return nil, fmt.Errorf("invalid process schedule %q: %w", config.ProcessSchedule, err)
		}
	}

	if config.PurgeSchedule != "" && config.Retention > 0 {
		if _, err := s.cron.AddFunc(config.PurgeSchedule, s.runPurge); err != nil {
			return nil, fmt.Errorf("invalid purge schedule %q: %w", config.PurgeSchedule, err)
		}
	}

	return s, nil
}

// Start starts the cron loop. Running jobs are cancelled when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("starting notification scheduler",
		"process_schedule", s.config.ProcessSchedule,
		"purge_schedule", s.config.PurgeSchedule,
	)

	go func() {
		select {
		case <-ctx.Done():
			s.cancel()
		case <-s.ctx.Done():
		}
	}()

	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	s.cancel()
	<-done.Done()
	slog.Info("notification scheduler stopped")
}

func (s *Scheduler) runPass() {
	ctx := s.ctx
	if s.config.PassTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.PassTimeout)
		defer cancel()
	}

	if _, err := s.queue.ProcessQueue(ctx); err != nil {
		if s.ctx.Err() != nil {
			slog.Info("scheduler stopped during notification pass", "error", err)
			return
		}
		slog.Error("scheduled notification pass failed", "error", err)
	}
}

func (s *Scheduler) runPurge() {
	n, err := s.queue.PurgeTerminal(s.ctx, time.Now().Add(-s.config.Retention))
	if err != nil {
		slog.Error("failed to purge notification jobs", "error", err)
		return
	}
	if n > 0 {
		slog.Info("purged finished notification jobs", "count", n)
	}
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
