package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"jfresolve/internal/library"
	"jfresolve/models"
	"jfresolve/services/identity"
	"jfresolve/services/resolver"
)

type resolveService interface {
	Resolve(context.Context, identity.ID) (*resolver.Outcome, error)
}

var _ resolveService = (*resolver.Service)(nil)

type itemGetter interface {
	Get(context.Context, string) (*models.LibraryItem, error)
}

type ItemsHandler struct {
	Resolver resolveService
	Index    itemGetter
	URLs     resolver.URLBuilder
}

func NewItemsHandler(rs resolveService, index itemGetter, urls resolver.URLBuilder) *ItemsHandler {
	return &ItemsHandler{Resolver: rs, Index: index, URLs: urls}
}

// ItemResponse is the detail payload for one library identifier.
type ItemResponse struct {
	State       string                `json:"state"`
	Item        *models.LibraryItem   `json:"item,omitempty"`
	Metadata    *models.ExternalTitle `json:"metadata,omitempty"`
	PlaybackURL string                `json:"playbackUrl,omitempty"`
}

// GetItem handles GET /api/items/{id}. A virtual identifier triggers
// materialization before the response; an identifier in neither the cache
// nor the library is a plain 404 so the host's own handling proceeds.
func (h *ItemsHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	rawID := mux.Vars(r)["id"]
	id, err := identity.Parse(rawID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed item id")
		return
	}

	out, err := h.Resolver.Resolve(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch out.State {
	case resolver.StateResolved:
		writeJSON(w, http.StatusOK, ItemResponse{
			State: out.State.String(),
			Item:  out.Item,
		})
	case resolver.StateEphemeral:
		writeJSON(w, http.StatusOK, ItemResponse{
			State:       out.State.String(),
			Metadata:    out.Ephemeral,
			PlaybackURL: out.PlaybackURL,
		})
	default:
		// Not one of ours. Check the persistent index before giving up so
		// already-materialized items stay addressable after cache eviction.
		item, err := h.Index.Get(r.Context(), rawID)
		if err != nil {
			if errors.Is(err, library.ErrNotFound) {
				writeError(w, http.StatusNotFound, "unknown item")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, ItemResponse{State: resolver.StateResolved.String(), Item: item})
	}
}

// Playback handles GET /api/items/{id}/playback?season=&episode=. It answers
// with the redirect URL the player should open, resolving the item first if
// it is still virtual.
func (h *ItemsHandler) Playback(w http.ResponseWriter, r *http.Request) {
	rawID := mux.Vars(r)["id"]
	id, err := identity.Parse(rawID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed item id")
		return
	}

	out, err := h.Resolver.Resolve(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var item *models.LibraryItem
	switch out.State {
	case resolver.StateResolved:
		item = out.Item
	case resolver.StateEphemeral:
		if out.PlaybackURL == "" {
			writeError(w, http.StatusNotFound, "no playback available")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"playbackUrl": out.PlaybackURL})
		return
	default:
		item, err = h.Index.Get(r.Context(), rawID)
		if err != nil {
			if errors.Is(err, library.ErrNotFound) {
				writeError(w, http.StatusNotFound, "unknown item")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	externalID := itemExternalID(item)
	if externalID == "" {
		writeError(w, http.StatusNotFound, "item carries no provider reference")
		return
	}

	season, episode := 0, 0
	if item.Kind == models.KindSeries {
		q := r.URL.Query()
		season, _ = strconv.Atoi(q.Get("season"))
		episode, _ = strconv.Atoi(q.Get("episode"))
		if season < 1 || episode < 1 {
			writeError(w, http.StatusBadRequest, "season and episode are required for series playback")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"playbackUrl": h.URLs.StreamURL(item.Kind, externalID, season, episode),
	})
}

// itemExternalID picks the provider reference the pointer files were written
// with, so playback URLs match what is already on disk. Addons resolve imdb
// ids, so that cross-reference wins when the item carries one.
func itemExternalID(item *models.LibraryItem) string {
	if id := item.ProviderIDs[models.ProviderIMDB]; id != "" {
		return id
	}
	return item.ProviderIDs[models.ProviderTMDB]
}
