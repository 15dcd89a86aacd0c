// Package ingest implements the submission port (C6) and query port
// (C7) of spec.md §4.6/§4.7. Grounded on the teacher's
// internal/task/service.go, generalized from a single webhook event to
// a tenant-scoped batch submission.
package ingest

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/Bo-Simmons/ingest-process-service/internal/domain"
	"github.com/Bo-Simmons/ingest-process-service/internal/store/postgres"
)

// EventInput is one event as received from a client, before it is
// persisted as a domain.RawEvent.
type EventInput struct {
	Type      string
	Timestamp time.Time
	Payload   []byte
}

// SubmitInput collects a submission port request.
type SubmitInput struct {
	TenantID       string
	IdempotencyKey string
	Events         []EventInput
}

// ValidationError reports one or more field-level problems, shaped for
// a 400 response's field→messages map (spec.md §6).
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// Validate checks a SubmitInput against spec.md §4.6's requirements,
// returning a ValidationError naming every offending field.
func Validate(in SubmitInput) error {
	fields := map[string][]string{}
	add := func(field, msg string) {
		fields[field] = append(fields[field], msg)
	}

	if strings.TrimSpace(in.TenantID) == "" {
		add("tenantId", "must not be blank")
	}
	if len(in.Events) == 0 {
		add("events", "must contain at least one event")
	}
	for i, e := range in.Events {
		prefix := eventField(i)
		if strings.TrimSpace(e.Type) == "" {
			add(prefix+".type", "must not be blank")
		}
		if e.Timestamp.IsZero() {
			add(prefix+".timestamp", "must not be the zero value")
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func eventField(i int) string {
	return "events[" + strconv.Itoa(i) + "]"
}

// Store is the subset of the job store the ingest service needs.
type Store interface {
	CreateJob(ctx context.Context, p postgres.CreateJobParams) (domain.Job, bool, error)
	GetJob(ctx context.Context, id string) (domain.Job, error)
	GetResults(ctx context.Context, jobID string) ([]domain.ResultRow, error)
}

// Service implements the submission and query ports.
type Service struct {
	store Store
}

// New constructs a Service over a job store.
func New(store Store) *Service {
	return &Service{store: store}
}

// SubmitResult is the outcome of a submission.
type SubmitResult struct {
	JobID     string
	Duplicate bool
}

// Submit validates and persists a batch submission, per spec.md §4.6.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	if err := Validate(in); err != nil {
		return SubmitResult{}, err
	}

	events := make([]postgres.NewEvent, len(in.Events))
	for i, e := range in.Events {
		events[i] = postgres.NewEvent{Type: e.Type, Timestamp: e.Timestamp, Payload: e.Payload}
	}

	job, duplicate, err := s.store.CreateJob(ctx, postgres.CreateJobParams{
		TenantID:       in.TenantID,
		IdempotencyKey: in.IdempotencyKey,
		Events:         events,
	})
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{JobID: job.ID, Duplicate: duplicate}, nil
}

// GetStatus returns a job's status snapshot, per spec.md §4.7.
func (s *Service) GetStatus(ctx context.Context, jobID string) (domain.Job, error) {
	return s.store.GetJob(ctx, jobID)
}

// GetResults returns a job's result rows, per spec.md §4.7. The store
// returns postgres.ErrNotFound when the job itself does not exist.
func (s *Service) GetResults(ctx context.Context, jobID string) ([]domain.ResultRow, error) {
	return s.store.GetResults(ctx, jobID)
}
