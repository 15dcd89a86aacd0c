package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Bo-Simmons/ingest-process-service/internal/domain"
	"github.com/Bo-Simmons/ingest-process-service/internal/ingest"
	"github.com/Bo-Simmons/ingest-process-service/internal/store/postgres"
)

type submitEventRequest struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"` // opaque JSON, optional, stored verbatim
}

type submitRequest struct {
	TenantID string               `json:"tenantId"`
	Events   []submitEventRequest `json:"events"`
}

type submitResponse struct {
	JobID     string `json:"jobId"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// SubmitHandler wires POST /v1/ingestions, per spec.md §4.6/§6.
func SubmitHandler(svc *ingest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		events := make([]ingest.EventInput, len(req.Events))
		for i, e := range req.Events {
			events[i] = ingest.EventInput{Type: e.Type, Timestamp: e.Timestamp, Payload: []byte(e.Payload)}
		}

		result, err := svc.Submit(r.Context(), ingest.SubmitInput{
			TenantID:       req.TenantID,
			IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
			Events:         events,
		})
		if err != nil {
			var verr *ingest.ValidationError
			if errors.As(err, &verr) {
				writeValidationError(w, verr.Fields)
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusAccepted, submitResponse{JobID: result.JobID, Duplicate: result.Duplicate})
	}
}

func eventField(i int) string {
	return "events[" + strconv.Itoa(i) + "]"
}

type statusResponse struct {
	JobID       string     `json:"jobId"`
	TenantID    string     `json:"tenantId"`
	Status      string     `json:"status"`
	Attempt     int        `json:"attempt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	AvailableAt *time.Time `json:"availableAt,omitempty"`
	Error       *string    `json:"error,omitempty"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
}

// StatusHandler wires GET /v1/ingestions/{jobId}, per spec.md §4.7/§6.
func StatusHandler(svc *ingest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobId")

		job, err := svc.GetStatus(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, postgres.ErrNotFound) {
				writeError(w, http.StatusNotFound, "job not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, toStatusResponse(job))
	}
}

func toStatusResponse(job domain.Job) statusResponse {
	return statusResponse{
		JobID:       job.ID,
		TenantID:    job.TenantID,
		Status:      string(job.Status),
		Attempt:     job.Attempt,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
		AvailableAt: job.AvailableAt,
		Error:       job.Error,
		ProcessedAt: job.ProcessedAt,
	}
}

type resultRowResponse struct {
	EventType string `json:"eventType"`
	Count     int    `json:"count"`
}

// ResultsHandler wires GET /v1/results/{jobId}, per spec.md §4.7/§6.
func ResultsHandler(svc *ingest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobId")

		rows, err := svc.GetResults(r.Context(), jobID)
		if err != nil {
			if errors.Is(err, postgres.ErrNotFound) {
				writeError(w, http.StatusNotFound, "job not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		out := make([]resultRowResponse, len(rows))
		for i, row := range rows {
			out[i] = resultRowResponse{EventType: row.EventType, Count: row.Count}
		}
		writeJSON(w, http.StatusOK, out)
	}
}
