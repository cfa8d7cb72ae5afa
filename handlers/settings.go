package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"jfresolve/config"
)

type cacheClearer interface {
	Clear()
	Len() int
}

type SettingsHandler struct {
	Manager *config.Manager
	Cache   cacheClearer
}

func NewSettingsHandler(m *config.Manager) *SettingsHandler {
	return &SettingsHandler{Manager: m}
}

// SetCache wires the title cache so settings changes and the clear endpoint
// can act on it.
func (h *SettingsHandler) SetCache(c cacheClearer) {
	h.Cache = c
}

func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Manager.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *SettingsHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var s config.Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Manager.Save(s); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	log.Printf("[settings] configuration updated, restart required for server changes")
	writeJSON(w, http.StatusOK, s)
}

// ClearCache handles POST /api/cache/clear, dropping every pending virtual
// title.
func (h *SettingsHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if h.Cache == nil {
		writeError(w, http.StatusInternalServerError, "cache not available")
		return
	}
	dropped := h.Cache.Len()
	h.Cache.Clear()
	log.Printf("[settings] title cache cleared, %d entry(s) dropped", dropped)
	writeJSON(w, http.StatusOK, map[string]int{"dropped": dropped})
}
