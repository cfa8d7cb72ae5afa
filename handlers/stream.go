package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"jfresolve/models"
	"jfresolve/services/addon"
)

type streamResolver interface {
	ResolveStream(ctx context.Context, kind models.MediaKind, externalID string, season, episode int) (string, error)
}

var _ streamResolver = (*addon.Client)(nil)

// StreamHandler answers the redirect URLs written into pointer files: it asks
// the upstream addon for a live stream at play time and 302s the player there.
type StreamHandler struct {
	Addon streamResolver
}

func NewStreamHandler(a streamResolver) *StreamHandler {
	return &StreamHandler{Addon: a}
}

// Redirect handles GET /stream/{kind}/{id} and
// GET /stream/series/{id}/{season}/{episode}.
func (h *StreamHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	// The episode route spells out "series" as a literal; the two-segment
	// route carries the kind as a variable.
	kindVar := vars["kind"]
	if kindVar == "" {
		kindVar = models.KindSeries.Slug()
	}
	kind, err := models.ParseMediaKind(kindVar)
	if err != nil || kind == models.KindEpisode {
		writeError(w, http.StatusBadRequest, "kind must be movie or series")
		return
	}

	externalID := strings.TrimSpace(vars["id"])
	if externalID == "" {
		writeError(w, http.StatusBadRequest, "missing id")
		return
	}

	var season, episode int
	if kind == models.KindSeries {
		season, err = strconv.Atoi(vars["season"])
		if err != nil || season < 1 {
			writeError(w, http.StatusBadRequest, "season must be a positive number")
			return
		}
		episode, err = strconv.Atoi(vars["episode"])
		if err != nil || episode < 1 {
			writeError(w, http.StatusBadRequest, "episode must be a positive number")
			return
		}
	}

	streamURL, err := h.Addon.ResolveStream(r.Context(), kind, externalID, season, episode)
	if err != nil {
		if errors.Is(err, addon.ErrNoStreams) || errors.Is(err, addon.ErrMissingStreamURL) {
			writeError(w, http.StatusNotFound, "no playable stream available")
			return
		}
		log.Printf("[stream] resolving %s/%s failed: %v", kind.Slug(), externalID, err)
		writeError(w, http.StatusBadGateway, "upstream addon unavailable")
		return
	}

	http.Redirect(w, r, streamURL, http.StatusFound)
}
