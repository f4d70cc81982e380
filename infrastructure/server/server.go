// Package server exposes the ingestion, aggregation, and advice pipelines
// over HTTP. Handlers are thin adapters: they decode, delegate to the
// application layer, and map domain errors onto status codes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahrav/go-tactician/internal/application"
	"github.com/ahrav/go-tactician/internal/domain"
	"github.com/ahrav/go-tactician/internal/logging"
	"github.com/ahrav/go-tactician/internal/ports"
)

// Defaults applied when an ingest request omits the corresponding field.
const (
	defaultMatchCount       = 20
	defaultMatchesPerPlayer = 10
	defaultMaxPlayers       = 20
	defaultQueryResults     = 5
	maxQueryResults         = 50
)

// Server wires HTTP routes to the application services.
type Server struct {
	advisor *application.Advisor
	ingest  *application.Ingestor
	stats   *application.StatsService
	indexer *application.Indexer
	tasks   *application.TaskTracker
	source  ports.MatchSource
	log     *logging.Logger
}

// New creates a Server over the given collaborators. The advisor may be
// nil when no LLM credential is configured; /advice then returns 503.
func New(
	advisor *application.Advisor,
	ingest *application.Ingestor,
	stats *application.StatsService,
	indexer *application.Indexer,
	tasks *application.TaskTracker,
	source ports.MatchSource,
	log *logging.Logger,
) *Server {
	return &Server{
		advisor: advisor,
		ingest:  ingest,
		stats:   stats,
		indexer: indexer,
		tasks:   tasks,
		source:  source,
		log:     log,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /advice", s.handleAdvice)
	mux.HandleFunc("POST /data/ingest/player", s.handleIngestPlayer)
	mux.HandleFunc("POST /data/ingest/high-elo", s.handleIngestHighElo)
	mux.HandleFunc("POST /data/compute-stats", s.handleComputeStats)
	mux.HandleFunc("POST /playbooks/add", s.handleAddPlaybook)
	mux.HandleFunc("GET /query/compositions", s.handleQueryCompositions)
	mux.HandleFunc("GET /query/augments", s.handleQueryAugments)
	mux.HandleFunc("GET /query/guides", s.handleQueryGuides)
	mux.HandleFunc("GET /tasks", s.handleListTasks)
	mux.HandleFunc("GET /tasks/{id}", s.handleGetTask)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if s.log != nil {
			s.log.WithRequest(r).
				WithField("duration_ms", time.Since(start).Milliseconds()).
				Debug("request handled")
		}
	})
}

// handleHealth reports store reachability and whether the match-data
// provider credential is configured. An unreachable store degrades the
// status rather than failing the probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	storeOK := true
	if err := s.indexer.Heartbeat(r.Context()); err != nil {
		status = "degraded"
		storeOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":              status,
		"vector_store_ok":     storeOK,
		"riot_api_configured": s.source != nil && s.source.Configured(),
	})
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil {
		writeError(w, http.StatusServiceUnavailable, "no generative model configured")
		return
	}

	var snapshot domain.GameSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	advice, err := s.advisor.Advise(r.Context(), snapshot)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, advice)
}

type ingestPlayerRequest struct {
	PUUID string `json:"puuid"`
	Count int    `json:"count"`
}

func (s *Server) handleIngestPlayer(w http.ResponseWriter, r *http.Request) {
	var req ingestPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.PUUID == "" {
		writeError(w, http.StatusBadRequest, "puuid is required")
		return
	}
	if req.Count <= 0 {
		req.Count = defaultMatchCount
	}

	if isAsync(r) {
		id := s.tasks.Launch("ingest_player", func(ctx context.Context) (any, error) {
			n, err := s.ingest.IngestPlayerMatches(ctx, req.PUUID, req.Count)
			return map[string]any{"matches_ingested": n}, err
		})
		writeJSON(w, http.StatusAccepted, map[string]string{"task_id": id})
		return
	}

	n, err := s.ingest.IngestPlayerMatches(r.Context(), req.PUUID, req.Count)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches_ingested": n})
}

type ingestHighEloRequest struct {
	Platform         string `json:"platform"`
	MatchesPerPlayer int    `json:"matches_per_player"`
	MaxPlayers       int    `json:"max_players"`
}

func (s *Server) handleIngestHighElo(w http.ResponseWriter, r *http.Request) {
	var req ingestHighEloRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Platform == "" {
		writeError(w, http.StatusBadRequest, "platform is required")
		return
	}
	if req.MatchesPerPlayer <= 0 {
		req.MatchesPerPlayer = defaultMatchesPerPlayer
	}
	if req.MaxPlayers <= 0 {
		req.MaxPlayers = defaultMaxPlayers
	}

	if isAsync(r) {
		id := s.tasks.Launch("ingest_high_elo", func(ctx context.Context) (any, error) {
			n, err := s.ingest.IngestLeaderboard(ctx, req.Platform, req.MatchesPerPlayer, req.MaxPlayers)
			return map[string]any{"matches_ingested": n}, err
		})
		writeJSON(w, http.StatusAccepted, map[string]string{"task_id": id})
		return
	}

	n, err := s.ingest.IngestLeaderboard(r.Context(), req.Platform, req.MatchesPerPlayer, req.MaxPlayers)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches_ingested": n})
}

type computeStatsRequest struct {
	VersionTag string `json:"version_tag"`
}

func (s *Server) handleComputeStats(w http.ResponseWriter, r *http.Request) {
	var req computeStatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.VersionTag == "" {
		writeError(w, http.StatusBadRequest, "version_tag is required")
		return
	}

	report, err := s.stats.ComputeAndIndexStats(r.Context(), req.VersionTag)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type addPlaybookRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

func (s *Server) handleAddPlaybook(w http.ResponseWriter, r *http.Request) {
	var req addPlaybookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Title == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	if err := s.indexer.AddPlaybook(r.Context(), req.Title, req.Content, req.Tags); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "added", "title": req.Title})
}

func (s *Server) handleQueryCompositions(w http.ResponseWriter, r *http.Request) {
	text, k, version, ok := queryParams(w, r)
	if !ok {
		return
	}
	results, err := s.indexer.QueryCompositions(r.Context(), text, k, version)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleQueryAugments(w http.ResponseWriter, r *http.Request) {
	text, k, version, ok := queryParams(w, r)
	if !ok {
		return
	}
	results, err := s.indexer.QueryAugments(r.Context(), text, k, version)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleQueryGuides(w http.ResponseWriter, r *http.Request) {
	text, k, _, ok := queryParams(w, r)
	if !ok {
		return
	}
	results, err := s.indexer.QueryGuides(r.Context(), text, k)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tasks": s.tasks.List()})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := s.tasks.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// queryParams parses the shared retrieval query parameters. On failure it
// writes a 400 and returns ok=false.
func queryParams(w http.ResponseWriter, r *http.Request) (text string, k int, version string, ok bool) {
	text = r.URL.Query().Get("q")
	if text == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return "", 0, "", false
	}

	k = defaultQueryResults
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "k must be a positive integer")
			return "", 0, "", false
		}
		if n > maxQueryResults {
			n = maxQueryResults
		}
		k = n
	}
	return text, k, r.URL.Query().Get("version"), true
}

func isAsync(r *http.Request) bool {
	return r.URL.Query().Get("async") == "true"
}

// writeDomainError maps application errors onto HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *domain.ValidationError
		upstream   *ports.UpstreamError
	)
	switch {
	case errors.Is(err, domain.ErrNoData):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validation), errors.Is(err, domain.ErrInvalidSnapshot):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &upstream):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		if s.log != nil {
			s.log.WithRequest(r).WithError(err).Error("request failed")
		}
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
