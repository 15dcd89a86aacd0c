// Package worker drives the run-to-completion cycle for a single
// processing slot (spec.md §4.5). Grounded on the teacher's
// internal/task/{process_once.go,worker.go}, generalized from a
// single-event claim to a job-with-events claim, and from the
// teacher's full-jitter backoff to the deterministic retry policy in
// internal/retry.
package worker

import (
	"context"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Bo-Simmons/ingest-process-service/internal/aggregate"
	"github.com/Bo-Simmons/ingest-process-service/internal/domain"
	"github.com/Bo-Simmons/ingest-process-service/internal/retry"
	"github.com/Bo-Simmons/ingest-process-service/internal/store/postgres"
	"github.com/Bo-Simmons/ingest-process-service/internal/telemetry"
)

// exit is os.Exit, indirected so tests can observe a fatal exit without
// killing the test binary.
var exit = os.Exit

// Store is the subset of the job store a worker loop needs.
type Store interface {
	ClaimNextJob(ctx context.Context, workerID string, staleLockTimeout time.Duration, now time.Time) (domain.Job, []domain.RawEvent, bool, error)
	ReplaceResultsAndSucceed(ctx context.Context, jobID string, results []domain.ResultRow, now time.Time) error
	ApplyRetryDecision(ctx context.Context, jobID string, terminal bool, availableAt time.Time, failureMessage string, now time.Time) error
}

// Config tunes one worker loop's polling and retry behavior.
type Config struct {
	WorkerID              string
	StaleLockTimeout       time.Duration
	PollDelay              time.Duration
	IdleBackoffMax         time.Duration
	Retry                  retry.Config
}

// Loop runs a single claim→process→commit-or-retry cycle repeatedly
// until ctx is cancelled. It never returns an error: a claim failure is
// retried on the next iteration and a processing failure persists a
// retry decision, per spec.md §7's "loops never re-throw" propagation
// policy. A store error matching postgres.ErrFatal instead ends the
// process through exit(1).
func Loop(ctx context.Context, store Store, cfg Config, logger *zap.Logger) {
	idleDelay := cfg.PollDelay
	if idleDelay <= 0 {
		idleDelay = time.Second
	}
	idleMax := cfg.IdleBackoffMax
	if idleMax <= 0 {
		idleMax = idleDelay
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker loop stopping", zap.Error(ctx.Err()))
			return
		default:
		}

		now := time.Now().UTC()
		job, events, claimed, err := store.ClaimNextJob(ctx, cfg.WorkerID, cfg.StaleLockTimeout, now)
		if err != nil {
			if errors.Is(err, postgres.ErrFatal) {
				logger.Error("fatal store error, exiting", zap.Error(err))
				exit(1)
				return
			}
			logger.Warn("claim failed, retrying next iteration", zap.Error(err))
			if !sleep(ctx, idleDelay) {
				return
			}
			continue
		}
		if !claimed {
			telemetry.WorkerIdleSeconds.Observe(idleDelay.Seconds())
			if !sleep(ctx, idleDelay) {
				return
			}
			idleDelay *= 2
			if idleDelay > idleMax {
				idleDelay = idleMax
			}
			continue
		}

		idleDelay = cfg.PollDelay
		if idleDelay <= 0 {
			idleDelay = time.Second
		}
		telemetry.JobsClaimed.Inc()
		logger.Info("claimed job", zap.String("job_id", job.ID), zap.String("tenant_id", job.TenantID), zap.Int("attempt", job.Attempt))

		results := aggregate.Count(events)
		completedAt := time.Now().UTC()
		if err := store.ReplaceResultsAndSucceed(ctx, job.ID, results, completedAt); err != nil {
			handleFailure(ctx, store, cfg, logger, job, err)
			continue
		}

		telemetry.JobsSucceeded.Inc()
		logger.Info("job succeeded", zap.String("job_id", job.ID), zap.Int("result_rows", len(results)))
	}
}

func handleFailure(ctx context.Context, store Store, cfg Config, logger *zap.Logger, job domain.Job, procErr error) {
	if errors.Is(procErr, postgres.ErrFatal) {
		logger.Error("fatal store error, exiting", zap.Error(procErr))
		exit(1)
		return
	}

	decision := retry.Decide(job.Attempt, cfg.Retry, time.Now().UTC())

	if err := store.ApplyRetryDecision(ctx, job.ID, decision.Terminal, decision.AvailableAt, procErr.Error(), time.Now().UTC()); err != nil {
		if errors.Is(err, postgres.ErrFatal) {
			logger.Error("fatal store error, exiting", zap.Error(err))
			exit(1)
			return
		}
		logger.Error("failed to persist retry decision", zap.String("job_id", job.ID), zap.Error(err))
		return
	}

	if decision.Terminal {
		telemetry.JobsFailedTerminal.Inc()
		logger.Warn("job failed terminally", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(procErr))
		return
	}

	telemetry.JobsRetried.Inc()
	logger.Info("job retry scheduled", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Time("available_at", decision.AvailableAt), zap.Error(procErr))
}

// sleep waits for d or ctx cancellation, returning false on the latter.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
