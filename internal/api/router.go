// Package api wires the HTTP handlers and middleware into a router.
package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/cashflow-ai/cashflow-backend/internal/api/handlers"
	"github.com/cashflow-ai/cashflow-backend/internal/api/middleware"
	"github.com/cashflow-ai/cashflow-backend/internal/ingest"
	"github.com/cashflow-ai/cashflow-backend/internal/jobs"
	"github.com/cashflow-ai/cashflow-backend/internal/mailbox"
	"github.com/cashflow-ai/cashflow-backend/internal/metrics"
	"github.com/cashflow-ai/cashflow-backend/internal/parser"
)

// Dependencies are the collaborators the router serves.
type Dependencies struct {
	Syncer    *ingest.Syncer
	Engine    *parser.Engine
	Store     jobs.JobStore
	Publisher jobs.Publisher
	Metrics   *metrics.Metrics

	// Defaults supplies server, port and folder for request credentials.
	Defaults mailbox.Credentials

	Log zerolog.Logger
}

// NewRouter returns the full handler chain.
func NewRouter(deps Dependencies) http.Handler {
	syncHandler := handlers.NewSyncHandler(deps.Syncer, deps.Defaults, deps.Log)
	parseHandler := handlers.NewParseHandler(deps.Engine)
	jobsHandler := handlers.NewJobsHandler(deps.Store, deps.Publisher, deps.Defaults, deps.Log)

	mux := http.NewServeMux()
	route := func(pattern, method string, h http.HandlerFunc) {
		var handler http.Handler = middleware.AllowMethod(method, h)
		if deps.Metrics != nil {
			handler = middleware.Metrics(deps.Metrics, pattern, handler)
		}
		mux.Handle(pattern, handler)
	}

	route("/api/health", http.MethodGet, handlers.Health)
	route("/api/sync", http.MethodPost, syncHandler.Sync)
	route("/api/test-connection", http.MethodPost, syncHandler.TestConnection)
	route("/api/parse", http.MethodPost, parseHandler.Parse)
	route("/api/sync/jobs", http.MethodPost, jobsHandler.EnqueueSync)
	route("/api/jobs", http.MethodGet, jobsHandler.ListJobs)
	route("/api/jobs/{id}", http.MethodGet, jobsHandler.GetJob)

	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics.Handler())
	}

	return middleware.Recovery(deps.Log)(
		middleware.RequestID(
			middleware.Logger(deps.Log)(
				middleware.CORS(mux),
			),
		),
	)
}
