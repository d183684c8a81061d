package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron          *cron.Cron
	monitor       *QueueMonitorService
	logger        *logrus.Logger
	sweepInterval time.Duration
}

// NewCronService creates a new CronService
func NewCronService(monitor *QueueMonitorService, logger *logrus.Logger, sweepInterval time.Duration) *CronService {
	c := cron.New(cron.WithSeconds())

	return &CronService{
		cron:          c,
		monitor:       monitor,
		logger:        logger,
		sweepInterval: sweepInterval,
	}
}

// Start schedules all background jobs and starts the scheduler
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	// The sweep is the backstop for missed login events; it must stay
	// frequent enough that a stale entry never outlives one session.
	spec := fmt.Sprintf("@every %s", s.sweepInterval)
	_, err := s.cron.AddFunc(spec, s.sweepJob)
	if err != nil {
		return fmt.Errorf("failed to schedule queue sweep job: %w", err)
	}
	s.logger.Infof("Scheduled: queue auto-removal sweep (every %s)", s.sweepInterval)

	s.cron.Start()
	s.logger.Info("Cron service started")

	return nil
}

// Stop stops all cron jobs and waits for running jobs to finish
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// sweepJob runs one reconciliation pass of the queue monitor
func (s *CronService) sweepJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.sweepInterval)
	defer cancel()

	s.monitor.SweepActiveSessions(ctx)
}

// RunSweepNow runs the sweep immediately (admin trigger)
func (s *CronService) RunSweepNow() {
	s.logger.Info("Running queue sweep manually...")
	s.sweepJob()
}

// JobStatus returns the status of scheduled jobs for the admin dashboard
func (s *CronService) JobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
