package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"jfresolve/models"
	searchpkg "jfresolve/services/search"
)

type searchService interface {
	Search(context.Context, string, []models.MediaKind) ([]models.SearchResult, error)
	Browse(context.Context, models.MediaKind) ([]models.SearchResult, error)
}

var _ searchService = (*searchpkg.Service)(nil)

type SearchHandler struct {
	Service searchService
}

func NewSearchHandler(s searchService) *SearchHandler {
	return &SearchHandler{Service: s}
}

// SearchResponse wraps results so the payload stays extensible.
type SearchResponse struct {
	Items []models.SearchResult `json:"items"`
	Total int                   `json:"total"`
}

// Search handles GET /api/search?query=...&type=movie|series. An absent type
// searches both kinds.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	kinds, ok := kindsFromParam(r.URL.Query().Get("type"))
	if !ok {
		writeError(w, http.StatusBadRequest, "type must be movie or series")
		return
	}

	results, err := h.Service.Search(r.Context(), query, kinds)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Items: results, Total: len(results)})
}

// Browse handles GET /api/browse?type=movie|series, listing the upstream
// addon's catalog instead of running a text search.
func (h *SearchHandler) Browse(w http.ResponseWriter, r *http.Request) {
	kind, err := models.ParseMediaKind(strings.TrimSpace(r.URL.Query().Get("type")))
	if err != nil || kind == models.KindEpisode {
		writeError(w, http.StatusBadRequest, "type must be movie or series")
		return
	}

	results, err := h.Service.Browse(r.Context(), kind)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Items: results, Total: len(results)})
}

func kindsFromParam(param string) ([]models.MediaKind, bool) {
	param = strings.TrimSpace(param)
	if param == "" {
		return []models.MediaKind{models.KindMovie, models.KindSeries}, true
	}
	kind, err := models.ParseMediaKind(param)
	if err != nil || kind == models.KindEpisode {
		return nil, false
	}
	return []models.MediaKind{kind}, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
