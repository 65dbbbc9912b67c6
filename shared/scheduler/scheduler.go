package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vibecheck/shared/monitoring"

	"github.com/robfig/cron/v3"
)

// Job is a unit of background work run on a cron schedule.
type Job interface {
	Name() string
	RunOnce(ctx context.Context) error
}

// Scheduler runs a single job on a cron schedule with seconds precision.
type Scheduler struct {
	schedule string
	monitor  *monitoring.Monitor
	job      Job
	cron     *cron.Cron
}

func New(schedule string, job Job, monitor *monitoring.Monitor) *Scheduler {
	if monitor == nil {
		monitor = monitoring.NewMonitor()
	}
	return &Scheduler{
		schedule: schedule,
		monitor:  monitor,
		job:      job,
		// Prevent overlapping runs
		cron: cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
	}
}

// Start registers the job and blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.RunOnce(ctx); err != nil {
			slog.Error("scheduled job failed", "job", s.job.Name(), "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	slog.Info("scheduler started", "job", s.job.Name(), "schedule", s.schedule)
	s.cron.Start()

	<-ctx.Done()
	slog.Info("scheduler stopped", "job", s.job.Name())
	<-s.cron.Stop().Done()
	return ctx.Err()
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()
	name := s.job.Name()

	err := s.job.RunOnce(ctx)
	s.monitor.RecordJob(name, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("%s run failed: %w", name, err)
	}
	return nil
}
