package web

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/JonMunkholm/medallion/internal/core"
	"github.com/JonMunkholm/medallion/internal/pipeline"
)

// Gold preview bounds.
const (
	defaultGoldLimit = 20
	maxGoldLimit     = 500
)

// GoldPreview is the response of GET /api/gold.
type GoldPreview struct {
	Columns []string         `json:"columns"`
	Total   int              `json:"total"`
	Rows    []map[string]any `json:"rows"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLatestRun serves the manifest of the last successful run.
func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	m, err := s.runner.Manifests().ReadLatest()
	if errors.Is(err, os.ErrNotExist) {
		respondError(w, r, errors.New("no completed run"), http.StatusNotFound)
		return
	}
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleActiveRun reports the run currently holding the runner, if any.
func (s *Server) handleActiveRun(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Status())
}

// handleTriggerRun runs the whole pipeline and answers with its manifest.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	// A client disconnect must not abort a run halfway through a layer.
	ctx := context.WithoutCancel(r.Context())

	m, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		respondError(w, r, err, http.StatusConflict)
	case err != nil:
		respondError(w, r, err, http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, m)
	}
}

// handleGoldPreview serves the first rows of the persisted gold table.
func (s *Server) handleGoldPreview(w http.ResponseWriter, r *http.Request) {
	limit := defaultGoldLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxGoldLimit)
	}

	gold, err := s.runner.Pipeline().ReadGold()
	if errors.Is(err, core.ErrMissingArtifact) {
		respondError(w, r, err, http.StatusNotFound)
		return
	}
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, GoldPreview{
		Columns: gold.ColumnNames(),
		Total:   gold.Len(),
		Rows:    gold.Head(limit).Records(),
	})
}
