package postgres

import (
	"errors"
	"time"

	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Bo-Simmons/ingest-process-service/internal/domain"
)

// ClaimNextJob implements the claim protocol of spec.md §4.3: one
// transaction selects the oldest eligible job with
// SELECT ... FOR UPDATE SKIP LOCKED, loads its events, flips it to
// Processing, and commits. Grounded on the teacher's
// internal/store/postgres/worker_claim.go, generalized from a single
// polymorphic "events" table to a job with child raw events.
//
// Returns (job, events, true, nil) on a successful claim, or
// (domain.Job{}, nil, false, nil) when there is no eligible job.
func (s *Store) ClaimNextJob(ctx context.Context, workerID string, staleLockTimeout time.Duration, now time.Time) (domain.Job, []domain.RawEvent, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Job{}, nil, false, classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const selectQ = `
		SELECT id
		FROM ingestion_jobs
		WHERE status IN ('pending', 'processing')
		  AND (available_at IS NULL OR available_at <= $1)
		  AND (locked_at IS NULL OR locked_at < $1 - $2 * interval '1 second')
		ORDER BY created_at ASC, id ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`
	var jobID string
	err = tx.QueryRow(ctx, selectQ, now, staleLockTimeout.Seconds()).Scan(&jobID)
	if errors.Is(err, pgx.ErrNoRows) {
		if cErr := tx.Commit(ctx); cErr != nil {
			return domain.Job{}, nil, false, classify(cErr)
		}
		return domain.Job{}, nil, false, nil
	}
	if err != nil {
		return domain.Job{}, nil, false, classify(err)
	}

	eventRows, err := tx.Query(ctx, `
		SELECT id, job_id, tenant_id, type, "timestamp", payload
		FROM raw_events
		WHERE job_id = $1
		ORDER BY id ASC
	`, jobID)
	if err != nil {
		return domain.Job{}, nil, false, classify(err)
	}
	var events []domain.RawEvent
	for eventRows.Next() {
		var e domain.RawEvent
		if err := eventRows.Scan(&e.ID, &e.JobID, &e.TenantID, &e.Type, &e.Timestamp, &e.Payload); err != nil {
			eventRows.Close()
			return domain.Job{}, nil, false, classify(err)
		}
		events = append(events, e)
	}
	if err := eventRows.Err(); err != nil {
		eventRows.Close()
		return domain.Job{}, nil, false, classify(err)
	}
	eventRows.Close()

	const updateQ = `
		UPDATE ingestion_jobs
		SET status = $2, attempt = attempt + 1, locked_at = $3, locked_by = $4, updated_at = $3
		WHERE id = $1
		RETURNING id, tenant_id, idempotency_key, status, attempt, created_at, updated_at,
		          available_at, locked_at, locked_by, error, processed_at
	`
	row := tx.QueryRow(ctx, updateQ, jobID, domain.StatusProcessing, now, workerID)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Unreachable under the current predicate: the SELECT above
		// already holds jobID's row lock via FOR UPDATE SKIP LOCKED, so
		// this UPDATE is guaranteed to affect it. Left in place as a
		// defensive "no work" fallback in case the eligibility predicate
		// above and below ever diverge.
		if cErr := tx.Commit(ctx); cErr != nil {
			return domain.Job{}, nil, false, classify(cErr)
		}
		return domain.Job{}, nil, false, nil
	}
	if err != nil {
		return domain.Job{}, nil, false, classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Job{}, nil, false, classify(err)
	}

	return job, events, true, nil
}
