package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Bo-Simmons/ingest-process-service/internal/ingest"
)

// NewRouter assembles the five-endpoint HTTP surface of spec.md §6.
func NewRouter(svc *ingest.Service, db DBPinger, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(WithRequestID())
	r.Use(Logging(logger))

	r.Post("/v1/ingestions", SubmitHandler(svc))
	r.Get("/v1/ingestions/{jobId}", StatusHandler(svc))
	r.Get("/v1/results/{jobId}", ResultsHandler(svc))
	r.Get("/health/live", LivezHandler())
	r.Get("/health/ready", ReadyzHandler(db))

	return r
}
