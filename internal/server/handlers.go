package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"rfmseg/internal/core"
	"rfmseg/internal/render"
	"rfmseg/internal/segment"

	"github.com/go-chi/chi/v5"
)

// Health check response
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Status response
type StatusResponse struct {
	Version string        `json:"version"`
	Uptime  string        `json:"uptime"`
	Dataset DatasetStatus `json:"dataset"`
}

// DatasetStatus describes the cohort loaded at startup
type DatasetStatus struct {
	BuiltAt       time.Time          `json:"built_at"`
	Customers     int                `json:"customers"`
	CohortSize    int                `json:"cohort_size"`
	CutoffDate    string             `json:"cutoff_date"`
	ReferenceDate string             `json:"reference_date"`
	Predicate     string             `json:"predicate,omitempty"`
	Mean          map[string]float64 `json:"mean"`
	Std           map[string]float64 `json:"std"`
	DefaultK      int                `json:"default_k"`
	KOptions      []int              `json:"k_options"`
}

// Version is reported by /api/status
var Version = "dev"

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if s.dataset == nil || s.dataset.Size() == 0 {
		checks["dataset"] = "empty"
		s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unhealthy",
			Checks: checks,
		})
		return
	}

	checks["dataset"] = "ok"

	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Checks: checks,
	})
}

// handleStatus handles the /api/status endpoint
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	opts := s.dataset.Options()
	columns, mean, std := s.dataset.Stats()

	status := DatasetStatus{
		BuiltAt:       s.dataset.BuiltAt(),
		Customers:     s.dataset.Extracted(),
		CohortSize:    s.dataset.Size(),
		CutoffDate:    opts.Cutoff.Format(core.DateLayout),
		ReferenceDate: opts.Reference.Format(core.DateLayout),
		Predicate:     opts.Predicate,
		Mean:          make(map[string]float64, len(columns)),
		Std:           make(map[string]float64, len(columns)),
		DefaultK:      s.clustering.DefaultK,
		KOptions:      s.clustering.KOptions,
	}
	for i, col := range columns {
		status.Mean[col] = mean[i]
		status.Std[col] = std[i]
	}

	s.respondJSON(w, http.StatusOK, StatusResponse{
		Version: Version,
		Uptime:  time.Since(s.startedAt).String(),
		Dataset: status,
	})
}

// handleSegments handles GET /api/segments?k=N and GET /api/segments/{k}.
// Points are left out unless points=true.
func (s *Server) handleSegments(w http.ResponseWriter, r *http.Request) {
	result, ok := s.runSegmentation(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("points") != "true" {
		trimmed := *result
		trimmed.Points = nil
		result = &trimmed
	}

	s.respondJSON(w, http.StatusOK, result)
}

// handlePoints handles GET /api/segments/{k}/points; format=csv exports them as CSV
func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	result, ok := s.runSegmentation(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("format") == render.FormatCSV {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=segments_k%d.csv", result.K))
		w.WriteHeader(http.StatusOK)
		if err := render.PointsCSV(w, result.Points); err != nil {
			s.log.Error("Failed to write CSV response", "error", err)
		}
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": result.RunID,
		"k":      result.K,
		"points": result.Points,
	})
}

// runSegmentation resolves K from the request and runs the pipeline, writing
// the error response itself when it fails.
func (s *Server) runSegmentation(w http.ResponseWriter, r *http.Request) (*core.SegmentResult, bool) {
	k, err := s.requestedK(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	result, err := segment.Run(s.dataset, k)
	if err != nil {
		if errors.Is(err, core.ErrInvalidParameter) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return nil, false
		}
		s.log.Error("Segmentation failed", "k", k, "error", err)
		s.respondError(w, http.StatusInternalServerError, "segmentation failed")
		return nil, false
	}

	return result, true
}

// requestedK reads K from the path, then the query, then falls back to default_k
func (s *Server) requestedK(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "k")
	if raw == "" {
		raw = r.URL.Query().Get("k")
	}
	if raw == "" {
		return s.clustering.DefaultK, nil
	}

	k, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: k must be an integer, got %q", core.ErrInvalidParameter, raw)
	}
	return k, nil
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError writes a JSON error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"status":  status,
			"message": message,
		},
	})
}
