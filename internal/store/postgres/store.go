// Package postgres implements the job store (spec.md §4.1) against
// Postgres with pgx. It is grounded on the teacher's
// internal/store/postgres/{events.go,worker_claim.go}, generalized from
// a single "events" table to the job/raw-event/result-row model of
// spec.md §3, and enriched with pgxpool per wuchris-ch-distributed-task-scheduler's
// and SirClappington-enq's store packages.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bo-Simmons/ingest-process-service/internal/aggregate"
	"github.com/Bo-Simmons/ingest-process-service/internal/domain"
)

// Store wraps a pgxpool.Pool as the sole transactional job store.
type Store struct {
	pool *pgxpool.Pool
}

// New connects a pool to Postgres.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping reports whether the store is reachable, for /health/ready.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// NewEvent is one event attached to a submission.
type NewEvent struct {
	Type      string
	Timestamp time.Time
	Payload   []byte
}

// CreateJobParams collects the inputs for an atomic job+events insert.
type CreateJobParams struct {
	TenantID       string
	IdempotencyKey string // empty means "no idempotency key"
	Events         []NewEvent
}

// CreateJob inserts a job and its raw events atomically, honoring
// tenant-scoped idempotency per spec.md §4.6. The returned bool is true
// when an existing job was returned instead of a new one being created.
func (s *Store) CreateJob(ctx context.Context, p CreateJobParams) (domain.Job, bool, error) {
	if p.IdempotencyKey != "" {
		if existing, found, err := s.FindByIdempotencyKey(ctx, p.TenantID, p.IdempotencyKey); err != nil {
			return domain.Job{}, false, err
		} else if found {
			return existing, true, nil
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Job{}, false, classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.NewString()
	now := time.Now().UTC()
	var idemKey *string
	if p.IdempotencyKey != "" {
		idemKey = &p.IdempotencyKey
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ingestion_jobs
			(id, tenant_id, idempotency_key, status, attempt, created_at, updated_at, available_at)
		VALUES ($1, $2, $3, $4, 0, $5, $5, $5)
	`, id, p.TenantID, idemKey, domain.StatusPending, now)
	if err != nil {
		classified := classify(err)
		if errors.Is(classified, ErrDuplicate) {
			// Lost the race against a concurrent submission with the
			// same (tenant, key); re-read and return the sibling.
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				return domain.Job{}, false, classify(rbErr)
			}
			existing, found, ferr := s.FindByIdempotencyKey(ctx, p.TenantID, p.IdempotencyKey)
			if ferr != nil {
				return domain.Job{}, false, ferr
			}
			if !found {
				return domain.Job{}, false, fmt.Errorf("idempotency conflict but no existing job found")
			}
			return existing, true, nil
		}
		return domain.Job{}, false, classified
	}

	batch := &pgx.Batch{}
	for _, e := range p.Events {
		payload := e.Payload
		if payload == nil {
			// payload is optional on the wire (spec.md §4.6); a nil slice
			// would bind as SQL NULL against the NOT NULL jsonb column.
			payload = []byte(`{}`)
		}
		batch.Queue(`
			INSERT INTO raw_events (job_id, tenant_id, type, "timestamp", payload)
			VALUES ($1, $2, $3, $4, $5)
		`, id, p.TenantID, e.Type, e.Timestamp, payload)
	}
	br := tx.SendBatch(ctx, batch)
	for range p.Events {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return domain.Job{}, false, classify(err)
		}
	}
	if err := br.Close(); err != nil {
		return domain.Job{}, false, classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Job{}, false, classify(err)
	}

	return domain.Job{
		ID:          id,
		TenantID:    p.TenantID,
		IdempotencyKey: idemKey,
		Status:      domain.StatusPending,
		Attempt:     0,
		CreatedAt:   now,
		UpdatedAt:   now,
		AvailableAt: &now,
	}, false, nil
}

// FindByIdempotencyKey returns the job mapped to (tenant, key) if present.
func (s *Store) FindByIdempotencyKey(ctx context.Context, tenantID, key string) (domain.Job, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, idempotency_key, status, attempt, created_at, updated_at,
		       available_at, locked_at, locked_by, error, processed_at
		FROM ingestion_jobs
		WHERE tenant_id = $1 AND idempotency_key = $2
	`, tenantID, key)

	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Job{}, false, nil
	}
	if err != nil {
		return domain.Job{}, false, classify(err)
	}
	return job, true, nil
}

// GetJob reads a job by id without acquiring any row lock.
func (s *Store) GetJob(ctx context.Context, id string) (domain.Job, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, idempotency_key, status, attempt, created_at, updated_at,
		       available_at, locked_at, locked_by, error, processed_at
		FROM ingestion_jobs
		WHERE id = $1
	`, id)

	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Job{}, ErrNotFound
	}
	if err != nil {
		return domain.Job{}, classify(err)
	}
	return job, nil
}

// GetResults reads a job's result rows, ordered case-insensitively by
// event type ascending (spec.md §8). Sorting happens here rather than
// in SQL: an ORDER BY on the raw column is collation-dependent (a C or
// C.UTF-8 collation sorts "B" before "a"), which would contradict the
// aggregator's ASCII-fold ordering that produced these rows in the
// first place. Returns ErrNotFound if the job itself does not exist.
func (s *Store) GetResults(ctx context.Context, jobID string) ([]domain.ResultRow, error) {
	if _, err := s.GetJob(ctx, jobID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT event_type, count
		FROM ingestion_results
		WHERE job_id = $1
	`, jobID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []domain.ResultRow
	for rows.Next() {
		var r domain.ResultRow
		if err := rows.Scan(&r.EventType, &r.Count); err != nil {
			return nil, classify(err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	sort.Slice(out, func(i, j int) bool {
		return aggregate.FoldASCII(out[i].EventType) < aggregate.FoldASCII(out[j].EventType)
	})
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (domain.Job, error) {
	var j domain.Job
	err := row.Scan(
		&j.ID, &j.TenantID, &j.IdempotencyKey, &j.Status, &j.Attempt,
		&j.CreatedAt, &j.UpdatedAt, &j.AvailableAt, &j.LockedAt, &j.LockedBy,
		&j.Error, &j.ProcessedAt,
	)
	return j, err
}
