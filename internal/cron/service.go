package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/dishpatch/merchant-backend/pkg/logger"
	"github.com/dishpatch/merchant-backend/pkg/metrics"
)

// Job is a named unit of scheduled maintenance work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Service runs registered jobs on a fixed interval, one holder at a
// time per job across worker replicas.
type Service struct {
	jobs     []Job
	lock     *RedisLock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
	logg     *logger.Logger
}

// NewService builds the scheduler.
func NewService(lock *RedisLock, jobMetrics *metrics.CronJobMetrics, interval time.Duration, logg *logger.Logger) (*Service, error) {
	if lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	return &Service{
		lock:     lock,
		metrics:  jobMetrics,
		interval: interval,
		logg:     logg,
	}, nil
}

// Register adds a job to the schedule.
func (s *Service) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("job needs a name and a run function")
	}
	for _, existing := range s.jobs {
		if existing.Name == job.Name {
			return fmt.Errorf("job %s already registered", job.Name)
		}
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Run executes all jobs once immediately, then on every tick until the
// context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs each registered job under its distributed lock. Job
// failures are recorded and do not stop the remaining jobs.
func (s *Service) RunOnce(ctx context.Context) {
	for _, job := range s.jobs {
		s.runJob(ctx, job)
	}
}

func (s *Service) runJob(ctx context.Context, job Job) {
	release, acquired, err := s.lock.Acquire(ctx, job.Name)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, fmt.Sprintf("cron lock %s", job.Name), err)
		}
		return
	}
	if !acquired {
		if s.logg != nil {
			s.logg.Debug(ctx, fmt.Sprintf("cron job %s held elsewhere", job.Name))
		}
		return
	}
	defer release()

	started := time.Now()
	err = job.Run(ctx)
	if s.metrics != nil {
		s.metrics.ObserveDuration(job.Name, time.Since(started))
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncFailure(job.Name)
		}
		if s.logg != nil {
			s.logg.Error(ctx, fmt.Sprintf("cron job %s", job.Name), err)
		}
		return
	}
	if s.metrics != nil {
		s.metrics.IncSuccess(job.Name)
	}
}
