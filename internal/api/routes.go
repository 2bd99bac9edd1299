package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// SetupRoutes registers every endpoint under /api/v1.
func SetupRoutes(router *mux.Router, handlers *Handlers) {
	api := router.PathPrefix("/api/v1").Subrouter()

	// Summary management
	summaries := api.PathPrefix("/summaries").Subrouter()
	summaries.HandleFunc("", handlers.ListSummaries).Methods(http.MethodGet)
	summaries.HandleFunc("", handlers.CreateSummary).Methods(http.MethodPost)
	summaries.HandleFunc("/{summaryId}", handlers.GetSummary).Methods(http.MethodGet)
	summaries.HandleFunc("/{summaryId}", handlers.DeleteSummary).Methods(http.MethodDelete)
	summaries.HandleFunc("/{summaryId}/sketches/{index:[0-9]+}", handlers.GetSketch).Methods(http.MethodGet)

	// Queries and accuracy
	summaries.HandleFunc("/{summaryId}/query", handlers.RunQuery).Methods(http.MethodPost)
	summaries.HandleFunc("/{summaryId}/benchmark", handlers.RunBenchmark).Methods(http.MethodPost)
	summaries.HandleFunc("/{summaryId}/sweep", handlers.RunSweep).Methods(http.MethodPost)

	api.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// preflight requests are answered by CORSMiddleware
	api.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}).Methods(http.MethodOptions)
}

// NewRouter wires routes and the middleware stack.
func NewRouter(handlers *Handlers, logger zerolog.Logger) *mux.Router {
	router := mux.NewRouter()
	SetupRoutes(router, handlers)

	router.Use(LoggingMiddleware(logger))
	router.Use(CORSMiddleware)
	router.Use(RecoveryMiddleware(logger))
	return router
}
