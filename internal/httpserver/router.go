package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sleepadvice/internal/middleware"
)

type RouterDeps struct {
	Logger     *slog.Logger
	CORSOrigin string
	Sleeps     *SleepHandler
}

// NewRouter wires the shared middleware and the sleep API.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recover(deps.Logger))
	r.Use(middleware.Logging(deps.Logger))
	if deps.CORSOrigin != "" {
		r.Use(middleware.CORS(deps.CORSOrigin))
	}

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/sleeps", deps.Sleeps.Routes)

	return r
}
