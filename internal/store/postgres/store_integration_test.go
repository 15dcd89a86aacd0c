package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Bo-Simmons/ingest-process-service/internal/domain"
)

func TestCreateJob_IdempotencyKeyDedupes(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	params := CreateJobParams{
		TenantID:       "t-dedupe",
		IdempotencyKey: "k1",
		Events:         []NewEvent{{Type: "a", Timestamp: time.Now().UTC(), Payload: []byte(`{}`)}},
	}

	first, dup1, err := s.CreateJob(ctx, params)
	if err != nil {
		t.Fatal(err)
	}
	if dup1 {
		t.Fatalf("expected first submission to be new")
	}

	second, dup2, err := s.CreateJob(ctx, params)
	if err != nil {
		t.Fatal(err)
	}
	if !dup2 {
		t.Fatalf("expected second submission to be flagged duplicate")
	}
	if second.ID != first.ID {
		t.Fatalf("expected same job id, got %s vs %s", second.ID, first.ID)
	}
}

func TestCreateJob_ConcurrentSameKeyYieldsOneJob(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	params := CreateJobParams{
		TenantID:       "t-dedupe-race",
		IdempotencyKey: "k-race",
		Events:         []NewEvent{{Type: "a", Timestamp: time.Now().UTC(), Payload: []byte(`{}`)}},
	}

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	ids := make([]string, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			job, _, err := s.CreateJob(ctx, params)
			ids[i] = job.ID
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("expected all concurrent submissions to share a job id, got %v", ids)
		}
	}
}

func TestReplaceResultsAndSucceed_IdempotentOnRerun(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	job, _, err := s.CreateJob(ctx, CreateJobParams{
		TenantID: "t-results",
		Events:   []NewEvent{{Type: "a", Timestamp: time.Now().UTC(), Payload: []byte(`{}`)}},
	})
	if err != nil {
		t.Fatal(err)
	}

	results := []domain.ResultRow{{EventType: "a", Count: 1}}
	now := time.Now().UTC()

	if err := s.ReplaceResultsAndSucceed(ctx, job.ID, results, now); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceResultsAndSucceed(ctx, job.ID, results, now); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetResults(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].EventType != "a" || got[0].Count != 1 {
		t.Fatalf("got %+v", got)
	}

	final, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if final.Status != domain.StatusSucceeded || final.ProcessedAt == nil {
		t.Fatalf("got status=%s processed_at=%v", final.Status, final.ProcessedAt)
	}
}

func TestGetResults_OrderedCaseInsensitively(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	job, _, err := s.CreateJob(ctx, CreateJobParams{
		TenantID: "t-case-order",
		Events:   []NewEvent{{Type: "a", Timestamp: time.Now().UTC(), Payload: []byte(`{}`)}},
	})
	if err != nil {
		t.Fatal(err)
	}

	// "B" sorts before "a" under a byte/C-collation comparison but
	// after it under ASCII-fold, which is what must win here.
	results := []domain.ResultRow{
		{EventType: "B", Count: 2},
		{EventType: "a", Count: 1},
	}
	if err := s.ReplaceResultsAndSucceed(ctx, job.ID, results, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetResults(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].EventType != "a" || got[1].EventType != "B" {
		t.Fatalf("got %+v, want [a B] in that order", got)
	}
}

func TestCreateJob_MissingPayloadDefaultsToEmptyObject(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	job, _, err := s.CreateJob(ctx, CreateJobParams{
		TenantID: "t-no-payload",
		Events:   []NewEvent{{Type: "a", Timestamp: time.Now().UTC()}},
	})
	if err != nil {
		t.Fatalf("expected submission without a payload to succeed, got %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected a job id")
	}
}

func TestGetResults_NotFoundForUnknownJob(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.GetResults(ctx, "00000000-0000-0000-0000-000000000000")
	if err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestApplyRetryDecision_TerminalClearsAvailability(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	job, _, err := s.CreateJob(ctx, CreateJobParams{
		TenantID: "t-terminal",
		Events:   []NewEvent{{Type: "a", Timestamp: time.Now().UTC(), Payload: []byte(`{}`)}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := s.ClaimNextJob(ctx, "worker", 300*time.Second, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	if err := s.ApplyRetryDecision(ctx, job.ID, true, time.Time{}, "boom", now); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusFailed {
		t.Fatalf("got status=%s", got.Status)
	}
	if got.AvailableAt != nil || got.LockedAt != nil || got.LockedBy != nil {
		t.Fatalf("expected availability/lock cleared, got %+v", got)
	}
	if got.Error == nil || *got.Error != "boom" {
		t.Fatalf("expected error set, got %v", got.Error)
	}
}
