package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
	"github.com/angelmondragon/siver-b2b-backend/pkg/metrics"
)

const defaultInterval = time.Hour

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.Cron
	Interval time.Duration
}

// Service runs the registered jobs once at start and then every interval.
// Only the instance holding the lock runs a given cycle.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.Cron
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Lock == nil:
		return nil, errors.New("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = &Registry{}
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: positiveOr(params.Interval, defaultInterval),
	}, nil
}

func positiveOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

// Run blocks until ctx is canceled. Cycle errors are logged, never returned.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "cron cycle failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce runs every job under the lock. A held lock is not an error. Job
// failures are logged and counted; the remaining jobs still run.
func (s *Service) RunOnce(ctx context.Context) error {
	lease, err := s.lock.Acquire(ctx)
	switch {
	case errors.Is(err, ErrLockHeld):
		s.logg.Info(ctx, "another cron instance holds the lock; skipping cycle")
		return nil
	case err != nil:
		return fmt.Errorf("lock acquire: %w", err)
	}
	defer s.release(ctx, lease)

	jobs := s.registry.Jobs()
	failed := 0
	for _, job := range jobs {
		if err := s.runJob(ctx, job); err != nil {
			failed++
		}
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs":   len(jobs),
		"failed": failed,
	}), "cron cycle finished")
	return nil
}

func (s *Service) release(ctx context.Context, lease Lease) {
	err := lease.Release(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrLeaseExpired):
		s.logg.Warn(ctx, "cron lease expired during the cycle; consider a longer SIVER_CRON_LOCK_TTL")
	default:
		s.logg.Error(ctx, "failed to release cron lock", err)
	}
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	start := time.Now()
	err := job.Run(jobCtx)
	elapsed := time.Since(start)
	s.metrics.JobFinished(job.Name(), elapsed, err)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return err
	}
	s.logg.Info(jobCtx, "job completed")
	return nil
}
