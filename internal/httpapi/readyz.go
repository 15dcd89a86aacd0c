package httpapi

import (
	"context"
	"net/http"
	"time"
)

// DBPinger is the readiness dependency: anything that can answer a
// trivial liveness probe against the store, per spec.md §6's
// "SELECT 1" requirement.
type DBPinger interface {
	Ping(ctx context.Context) error
}

func LivezHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	}
}

func ReadyzHandler(db DBPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}
