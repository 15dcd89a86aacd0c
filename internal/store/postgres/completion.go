package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Bo-Simmons/ingest-process-service/internal/domain"
)

// ReplaceResultsAndSucceed implements worker-loop step 4 (spec.md
// §4.5): delete any existing result rows for jobID, insert the fresh
// aggregation output, and flip the job to Succeeded — all in one
// transaction, so no partial result write is ever observable.
func (s *Store) ReplaceResultsAndSucceed(ctx context.Context, jobID string, results []domain.ResultRow, now time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM ingestion_results WHERE job_id = $1`, jobID); err != nil {
		return classify(err)
	}

	if len(results) > 0 {
		batch := &pgx.Batch{}
		for _, r := range results {
			batch.Queue(`
				INSERT INTO ingestion_results (job_id, event_type, count)
				VALUES ($1, $2, $3)
			`, jobID, r.EventType, r.Count)
		}
		br := tx.SendBatch(ctx, batch)
		for range results {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return classify(err)
			}
		}
		if err := br.Close(); err != nil {
			return classify(err)
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE ingestion_jobs
		SET status = $2, processed_at = $3, updated_at = $3,
		    locked_at = NULL, locked_by = NULL, available_at = NULL, error = NULL
		WHERE id = $1
	`, jobID, domain.StatusSucceeded, now)
	if err != nil {
		return classify(err)
	}

	return classify(tx.Commit(ctx))
}

// ApplyRetryDecision persists the retry policy's outcome in a fresh
// transaction, per spec.md §4.4/§4.5 step 5. When terminal is true the
// job becomes Failed with available_at/locked_at/locked_by cleared;
// otherwise it returns to Pending with available_at set to the next
// eligibility time and the lock released.
func (s *Store) ApplyRetryDecision(ctx context.Context, jobID string, terminal bool, availableAt time.Time, failureMessage string, now time.Time) error {
	status := domain.StatusPending
	var availablePtr *time.Time
	if terminal {
		status = domain.StatusFailed
	} else {
		availablePtr = &availableAt
	}

	_, err := s.pool.Exec(ctx, `
		UPDATE ingestion_jobs
		SET status = $2, error = $3, available_at = $4,
		    locked_at = NULL, locked_by = NULL, updated_at = $5
		WHERE id = $1
	`, jobID, status, failureMessage, availablePtr, now)
	return classify(err)
}
