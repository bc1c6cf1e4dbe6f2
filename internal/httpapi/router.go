package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/lingocrowd/contribution_control/internal/correction"
	"github.com/lingocrowd/contribution_control/internal/ingest"
	"github.com/lingocrowd/contribution_control/internal/lifecycle"
	"github.com/lingocrowd/contribution_control/internal/store"
	"github.com/lingocrowd/contribution_control/internal/task"
)

type Dependencies struct {
	Store          store.Store
	Tasks          task.Service
	Coordinator    lifecycle.Coordinator
	Corrections    correction.Router
	Ingest         ingest.Pipeline
	Verifier       *Verifier
	Logger         zerolog.Logger
	Middleware     []func(http.Handler) http.Handler
	MaxUploadBytes int64
	// Ping reports whether the database is reachable. Optional.
	Ping func(ctx context.Context) error
}

type Router struct {
	mux     *http.ServeMux
	handler http.Handler
}

func New(deps Dependencies) (*Router, error) {
	if deps.Store == nil || deps.Tasks == nil || deps.Coordinator == nil || deps.Corrections == nil || deps.Ingest == nil {
		return nil, errors.New("all core services must be provided")
	}
	if deps.Verifier == nil {
		return nil, errors.New("jwt verifier is required")
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 200 << 20
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthz(deps.Ping))
	newTaskRoutes(deps).register(mux)
	newContributionRoutes(deps).register(mux)

	var handler http.Handler = mux
	for i := len(deps.Middleware) - 1; i >= 0; i-- {
		handler = deps.Middleware[i](handler)
	}

	return &Router{
		mux:     mux,
		handler: handler,
	}, nil
}

func (r *Router) Handler() http.Handler {
	if r == nil {
		return nil
	}
	return r.handler
}

func healthz(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "database unreachable")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
