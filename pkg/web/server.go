// Package web serves the evolution graph, its metrics and refresh events
// over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/pokegraph/pkg/logging"
	"github.com/ritzau/pokegraph/pkg/pipeline"
	"github.com/ritzau/pokegraph/pkg/pubsub"
	"github.com/ritzau/pokegraph/pkg/telemetry"
)

// Pipeline is what the server needs from the refresh pipeline.
type Pipeline interface {
	Current() *pipeline.Dataset
	Refresh(ctx context.Context, opts pipeline.RefreshOptions) (*pipeline.Dataset, error)
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	pipeline  Pipeline
	publisher pubsub.Publisher
}

// NewPublisher creates the publisher the server streams from, with the
// topic buffering its subscribers expect.
func NewPublisher() *pubsub.SSEPublisher {
	p := pubsub.NewSSEPublisher()

	// dataset_status: buffer last 10 events, replay only the current state
	p.ConfigureTopic(pubsub.TopicDatasetStatus, pubsub.TopicConfig{
		BufferSize: 10,
		ReplayAll:  false,
	})

	// evolution_graph: buffer last 5 events, replay only the current graph
	p.ConfigureTopic(pubsub.TopicEvolutionGraph, pubsub.TopicConfig{
		BufferSize: 5,
		ReplayAll:  false,
	})
	return p
}

// NewServer creates a new web server
func NewServer(p Pipeline, publisher pubsub.Publisher) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		pipeline:  p,
		publisher: publisher,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware, metricsMiddleware)

	// SSE subscription endpoints
	s.router.HandleFunc("/api/subscribe/{topic}", s.handleSubscribe).Methods(http.MethodGet)

	s.router.HandleFunc("/api/graph", s.handleGraph).Methods(http.MethodGet)
	s.router.HandleFunc("/api/metrics", s.handleMetrics).Methods(http.MethodGet)
	s.router.HandleFunc("/api/species/{name}", s.handleSpecies).Methods(http.MethodGet)
	s.router.HandleFunc("/api/cycles", s.handleCycles).Methods(http.MethodGet)
	s.router.HandleFunc("/api/export", s.handleExport).Methods(http.MethodGet)
	s.router.HandleFunc("/api/refresh", s.handleRefresh).Methods(http.MethodPost)

	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.Handle("/metrics", telemetry.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on port until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
	}

	logging.Info("shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// metricsMiddleware counts requests per route template.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		telemetry.RecordRequest(route, rec.status)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher for SSE support
func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.WarnContext(r.Context(), "failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}
