package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/hexasec/argus/internal/adapter/exporter"
	"github.com/hexasec/argus/internal/core/domain"
	"github.com/hexasec/argus/internal/core/ports"
)

// RestHandler is the thin CRUD/trigger collaborator in front of the
// pipeline: it registers sources and assets, lists incidents and schedules
// fetch jobs. The pipeline itself never goes through this layer.
type RestHandler struct {
	sources     ports.SourceRepository
	assets      ports.AssetRepository
	incidents   ports.IncidentRepository
	dispatcher  ports.Dispatcher
	cefExporter *exporter.CEFExporter
}

func NewRestHandler(
	sources ports.SourceRepository,
	assets ports.AssetRepository,
	incidents ports.IncidentRepository,
	dispatcher ports.Dispatcher,
) *RestHandler {
	return &RestHandler{
		sources:     sources,
		assets:      assets,
		incidents:   incidents,
		dispatcher:  dispatcher,
		cefExporter: exporter.NewCEFExporter(incidents),
	}
}

// Register wires all routes onto the router.
func (h *RestHandler) Register(router *mux.Router) {
	router.HandleFunc("/api/v1/health", h.Health).Methods("GET")

	router.HandleFunc("/api/v1/sources", h.CreateSource).Methods("POST")
	router.HandleFunc("/api/v1/sources", h.ListSources).Methods("GET")
	router.HandleFunc("/api/v1/sources/{id}/run_crawl", h.RunCrawl).Methods("POST")

	router.HandleFunc("/api/v1/assets", h.CreateAsset).Methods("POST")
	router.HandleFunc("/api/v1/assets", h.ListAssets).Methods("GET")

	router.HandleFunc("/api/v1/incidents", h.ListIncidents).Methods("GET")
	router.HandleFunc("/api/v1/incidents/feed", h.GetIncidentFeed).Methods("GET")
	router.HandleFunc("/api/v1/incidents/{id}", h.GetIncident).Methods("GET")
}

func (h *RestHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "argus-api",
	})
}

type sourceRequest struct {
	Name       string         `json:"name"`
	Category   string         `json:"category"`
	URL        string         `json:"url"`
	UseTor     bool           `json:"use_tor"`
	ParserHint string         `json:"parser_hint"`
	Config     map[string]any `json:"config"`
}

func (h *RestHandler) CreateSource(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.URL == "" {
		writeError(w, http.StatusBadRequest, "name and url are required")
		return
	}
	if req.Category == "" {
		req.Category = string(domain.SourceOSINT)
	}

	source := &domain.Source{
		ID:         uuid.New(),
		Name:       req.Name,
		Category:   domain.SourceCategory(req.Category),
		URL:        req.URL,
		UseTor:     req.UseTor,
		ParserHint: req.ParserHint,
		Config:     req.Config,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.sources.Create(ctx, source); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create source")
		return
	}
	writeJSON(w, http.StatusCreated, sourceResponse(source))
}

func (h *RestHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	sources, err := h.sources.List(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sources")
		return
	}

	out := make([]map[string]any, len(sources))
	for i := range sources {
		out[i] = sourceResponse(&sources[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// RunCrawl schedules a fetch job for a registered source and returns the job
// handle. 404 when the source is unregistered.
func (h *RestHandler) RunCrawl(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid source id")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if _, err := h.sources.GetByID(ctx, id); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			writeError(w, http.StatusNotFound, "source not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load source")
		return
	}

	handle, err := h.dispatcher.Enqueue(ctx, ports.StageFetch, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to schedule fetch job")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"message":   "fetch job scheduled",
		"source_id": id.String(),
		"job_id":    handle.JobID.String(),
	})
}

type assetRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Identifier  string `json:"identifier"`
	Criticality int    `json:"criticality"`
}

func (h *RestHandler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Identifier == "" {
		writeError(w, http.StatusBadRequest, "name and identifier are required")
		return
	}
	if req.Criticality < 1 || req.Criticality > 5 {
		writeError(w, http.StatusBadRequest, "criticality must be between 1 and 5")
		return
	}

	asset := &domain.Asset{
		ID:          uuid.New(),
		Name:        req.Name,
		Category:    domain.AssetCategory(req.Category),
		Identifier:  req.Identifier,
		Criticality: req.Criticality,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	if err := h.assets.Create(ctx, asset); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create asset")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":          asset.ID.String(),
		"name":        asset.Name,
		"category":    string(asset.Category),
		"identifier":  asset.Identifier,
		"criticality": asset.Criticality,
	})
}

func (h *RestHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	assets, err := h.assets.List(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list assets")
		return
	}

	out := make([]map[string]any, len(assets))
	for i, a := range assets {
		out[i] = map[string]any{
			"id":          a.ID.String(),
			"name":        a.Name,
			"category":    string(a.Category),
			"identifier":  a.Identifier,
			"criticality": a.Criticality,
			"is_active":   a.Active,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *RestHandler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	incidents, err := h.incidents.List(ctx, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list incidents")
		return
	}

	out := make([]map[string]any, len(incidents))
	for i := range incidents {
		out[i] = incidentResponse(&incidents[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *RestHandler) GetIncident(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid incident id")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	incident, err := h.incidents.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			writeError(w, http.StatusNotFound, "incident not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load incident")
		return
	}
	writeJSON(w, http.StatusOK, incidentResponse(incident))
}

// GetIncidentFeed exports incidents for SIEM ingestion.
func (h *RestHandler) GetIncidentFeed(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	since := r.URL.Query().Get("since") // e.g. "24h", "168h"

	var sinceTime time.Time
	if since != "" {
		duration, err := time.ParseDuration(since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'since' parameter (use a duration like '24h')")
			return
		}
		sinceTime = time.Now().Add(-duration)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	switch format {
	case "cef", "":
		data, err := h.cefExporter.Export(ctx, sinceTime)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to export CEF feed")
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(data))

	default:
		writeError(w, http.StatusBadRequest, "unsupported format (use 'cef')")
	}
}

func sourceResponse(s *domain.Source) map[string]any {
	return map[string]any{
		"id":          s.ID.String(),
		"name":        s.Name,
		"category":    string(s.Category),
		"url":         s.URL,
		"use_tor":     s.UseTor,
		"parser_hint": s.ParserHint,
		"is_active":   s.Active,
		"created_at":  s.CreatedAt.Format(time.RFC3339),
	}
}

func incidentResponse(in *domain.Incident) map[string]any {
	out := map[string]any{
		"id":          in.ID.String(),
		"title":       in.Title,
		"description": in.Description,
		"severity":    in.Severity,
		"category":    in.Category,
		"detected_at": in.DetectedAt.Format(time.RFC3339),
		"detail":      in.Detail,
	}
	if in.ResolvedAt != nil {
		out["resolved_at"] = in.ResolvedAt.Format(time.RFC3339)
	}
	return out
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
