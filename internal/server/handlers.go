package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/logiclamp/leadscout/internal/model"
	"github.com/logiclamp/leadscout/internal/store"
)

const defaultSearchCount = 25

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		zap.L().Warn("server: health check failed", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	f := parseFilter(r)

	leads, err := s.store.ListLeads(r.Context(), f)
	if err != nil {
		zap.L().Error("server: list leads", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}
	total, err := s.store.CountLeads(r.Context(), f)
	if err != nil {
		zap.L().Error("server: count leads", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}
	if leads == nil {
		leads = []model.Lead{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"leads": leads,
		"count": len(leads),
		"total": total,
	})
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lead, err := s.store.GetLead(r.Context(), id)
	if err != nil {
		zap.L().Error("server: get lead", zap.String("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load lead")
		return
	}
	if lead == nil {
		respondError(w, http.StatusNotFound, "lead not found")
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

func (s *Server) handleTopLeads(w http.ResponseWriter, r *http.Request) {
	n := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("n")); err == nil && v > 0 {
		n = v
	}

	leads, err := s.store.TopLeads(r.Context(), n)
	if err != nil {
		zap.L().Error("server: top leads", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list top leads")
		return
	}
	if leads == nil {
		leads = []model.Lead{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"leads": leads,
		"count": len(leads),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		zap.L().Error("server: stats", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

type searchRequest struct {
	City     string `json:"city"`
	State    string `json:"state"`
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// handleSearch launches a scraping batch in the background and responds
// immediately with a correlation id.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		respondError(w, http.StatusServiceUnavailable, "search is not enabled")
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.City == "" || req.State == "" {
		respondError(w, http.StatusBadRequest, "city and state are required")
		return
	}
	if req.Count <= 0 {
		req.Count = defaultSearchCount
	}

	query := model.Query{
		City:     req.City,
		State:    req.State,
		Category: req.Category,
		Limit:    req.Count,
	}
	searchID := uuid.NewString()

	// The batch outlives the request; it runs on the server's lifetime
	// context and stops on shutdown.
	go func() {
		summary, err := s.runner.Run(s.base, query)
		if err != nil {
			zap.L().Error("server: search failed",
				zap.String("search_id", searchID),
				zap.String("location", query.Location()),
				zap.Error(err))
			return
		}
		zap.L().Info("server: search complete",
			zap.String("search_id", searchID),
			zap.String("location", query.Location()),
			zap.Int("found", summary.Found),
			zap.Int("stored", summary.Stored))
	}()

	respondJSON(w, http.StatusAccepted, map[string]any{
		"status":    "accepted",
		"search_id": searchID,
		"location":  query.Location(),
	})
}

func parseFilter(r *http.Request) store.Filter {
	q := r.URL.Query()
	f := store.Filter{
		City:     q.Get("city"),
		State:    q.Get("state"),
		Category: q.Get("category"),
	}
	if v, err := strconv.Atoi(q.Get("min_score")); err == nil && v > 0 {
		f.MinScore = v
	}
	if t := q.Get("territory"); t != "" {
		if b, err := strconv.ParseBool(t); err == nil {
			f.InTerritory = model.BoolPtr(b)
		}
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		f.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		f.Offset = v
	}
	return f
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("server: encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
