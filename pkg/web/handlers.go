package web

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/gorilla/mux"

	"github.com/ritzau/pokegraph/pkg/analytics"
	"github.com/ritzau/pokegraph/pkg/cycles"
	"github.com/ritzau/pokegraph/pkg/logging"
	"github.com/ritzau/pokegraph/pkg/normalize"
	"github.com/ritzau/pokegraph/pkg/output"
	"github.com/ritzau/pokegraph/pkg/pipeline"
	"github.com/ritzau/pokegraph/pkg/pubsub"
)

// SpeciesLink is one evolution seen from a species.
type SpeciesLink struct {
	Species string `json:"species"`
	Label   string `json:"label"`
}

// SpeciesDetail describes one species and its direct evolutions.
type SpeciesDetail struct {
	Name           string        `json:"name"`
	EvolvesInto    []SpeciesLink `json:"evolves_into"`
	EvolvesFrom    []SpeciesLink `json:"evolves_from"`
	InDegree       int           `json:"in_degree"`
	OutDegree      int           `json:"out_degree"`
	Centrality     float64       `json:"centrality"`
	IsHub          bool          `json:"is_hub"`
	OnLongestChain bool          `json:"on_longest_chain"`
}

// CyclesResponse lists the cycles that make the longest chain undefined.
type CyclesResponse struct {
	HasCycle bool           `json:"has_cycle"`
	Cycles   []cycles.Cycle `json:"cycles"`
}

// RefreshResponse reports the dataset produced by a forced refresh.
type RefreshResponse struct {
	RunID          string `json:"run_id"`
	DatasetVersion string `json:"dataset_version"`
	Fallback       bool   `json:"fallback"`
	Skipped        int    `json:"skipped"`
	NodeCount      int    `json:"node_count"`
	EdgeCount      int    `json:"edge_count"`
}

// HealthResponse is served on /healthz.
type HealthResponse struct {
	Status         string `json:"status"`
	Ready          bool   `json:"ready"`
	DatasetVersion string `json:"dataset_version,omitempty"`
	Fallback       bool   `json:"fallback"`
}

// Endpoint describes one route in the index.
type Endpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// IndexResponse is served on / so a browser opened on the server sees what it offers.
type IndexResponse struct {
	Service   string     `json:"service"`
	Ready     bool       `json:"ready"`
	Endpoints []Endpoint `json:"endpoints"`
}

var endpoints = []Endpoint{
	{http.MethodGet, "/api/graph", "nodes, edges and metrics"},
	{http.MethodGet, "/api/metrics", "metrics only"},
	{http.MethodGet, "/api/species/{name}", "one species and its evolutions"},
	{http.MethodGet, "/api/cycles", "evolution cycles, if any"},
	{http.MethodGet, "/api/export?format=json|yaml|dot", "graph export"},
	{http.MethodPost, "/api/refresh", "reload the database"},
	{http.MethodGet, "/api/subscribe/{topic}", "server-sent events: dataset_status, evolution_graph"},
	{http.MethodGet, "/metrics", "Prometheus metrics"},
	{http.MethodGet, "/healthz", "health check"},
}

var subscribable = map[string]bool{
	pubsub.TopicDatasetStatus:  true,
	pubsub.TopicEvolutionGraph: true,
}

// current returns the dataset or writes 503 if none has been produced yet.
func (s *Server) current(w http.ResponseWriter, r *http.Request) (*pipeline.Dataset, bool) {
	ds := s.pipeline.Current()
	if ds == nil {
		w.Header().Set("Retry-After", "1")
		writeError(w, r, http.StatusServiceUnavailable, "dataset not loaded yet")
		return nil, false
	}
	return ds, true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, IndexResponse{
		Service:   "pokegraph",
		Ready:     s.pipeline.Current() != nil,
		Endpoints: endpoints,
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	if ds, ok := s.current(w, r); ok {
		writeJSON(w, r, http.StatusOK, ds.Payload)
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if ds, ok := s.current(w, r); ok {
		writeJSON(w, r, http.StatusOK, ds.Payload.Metrics)
	}
}

func (s *Server) handleSpecies(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.current(w, r)
	if !ok {
		return
	}

	name := normalize.TitleCase(mux.Vars(r)["name"])
	eg := ds.Graph
	if !eg.HasSpecies(name) {
		writeError(w, r, http.StatusNotFound, fmt.Sprintf("species %q not found", name))
		return
	}

	detail := SpeciesDetail{
		Name:        name,
		EvolvesInto: make([]SpeciesLink, 0),
		EvolvesFrom: make([]SpeciesLink, 0),
		InDegree:    eg.InDegree(name),
		OutDegree:   eg.OutDegree(name),
		IsHub:       ds.Summary.TopHub.Name == name,
	}
	for _, to := range eg.Successors(name) {
		label, _ := eg.Label(name, to)
		detail.EvolvesInto = append(detail.EvolvesInto, SpeciesLink{Species: to, Label: label})
	}
	for _, from := range eg.Predecessors(name) {
		label, _ := eg.Label(from, name)
		detail.EvolvesFrom = append(detail.EvolvesFrom, SpeciesLink{Species: from, Label: label})
	}
	if centrality, ok := analytics.DegreeCentrality(eg); ok {
		detail.Centrality = centrality[name]
	}
	detail.OnLongestChain = slices.Contains(ds.Summary.LongestChain.Path, name)

	writeJSON(w, r, http.StatusOK, detail)
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.current(w, r)
	if !ok {
		return
	}
	found := cycles.FindCycles(ds.Graph)
	writeJSON(w, r, http.StatusOK, CyclesResponse{HasCycle: len(found) > 0, Cycles: found})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := output.FormatJSON
	if q := r.URL.Query().Get("format"); q != "" {
		f, err := output.ParseFormat(q)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		format = f
	}

	ds, ok := s.current(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if err := output.Export(w, ds.Payload, format); err != nil {
		logging.ErrorContext(r.Context(), "export failed", "format", string(format), "error", err)
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ds, err := s.pipeline.Refresh(r.Context(), pipeline.RefreshOptions{Reason: "api request", Force: true})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, fmt.Sprintf("refresh failed: %v", err))
		return
	}

	writeJSON(w, r, http.StatusOK, RefreshResponse{
		RunID:          ds.RunID,
		DatasetVersion: ds.Version,
		Fallback:       ds.Fallback,
		Skipped:        ds.Skipped,
		NodeCount:      ds.Summary.NodeCount,
		EdgeCount:      ds.Summary.EdgeCount,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if ds := s.pipeline.Current(); ds != nil {
		resp.Ready = true
		resp.DatasetVersion = ds.Version
		resp.Fallback = ds.Fallback
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	if !subscribable[topic] {
		writeError(w, r, http.StatusNotFound, fmt.Sprintf("unknown topic %q", topic))
		return
	}

	// Create subscription
	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer sub.Close()

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	// Stream events until the client leaves or the publisher shuts down
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.DebugContext(r.Context(), "SSE client went away", "topic", topic, "error", err)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}
