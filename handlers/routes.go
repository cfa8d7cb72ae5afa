package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes attaches every handler to the router. Nil handlers are
// skipped so partial deployments (e.g. no addon configured yet) still serve
// what they can.
func RegisterRoutes(r *mux.Router, search *SearchHandler, items *ItemsHandler, stream *StreamHandler, settings *SettingsHandler, logs *LogsHandler, apiMiddleware ...mux.MiddlewareFunc) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(apiMiddleware...)

	api.HandleFunc("/version", NewVersionHandler().GetVersion).Methods(http.MethodGet)
	if logs != nil {
		api.HandleFunc("/logs", logs.Tail).Methods(http.MethodGet)
	}

	if search != nil {
		api.HandleFunc("/search", search.Search).Methods(http.MethodGet)
		api.HandleFunc("/browse", search.Browse).Methods(http.MethodGet)
	}
	if items != nil {
		api.HandleFunc("/items/{id}", items.GetItem).Methods(http.MethodGet)
		api.HandleFunc("/items/{id}/playback", items.Playback).Methods(http.MethodGet)
	}
	if settings != nil {
		api.HandleFunc("/settings", settings.GetSettings).Methods(http.MethodGet)
		api.HandleFunc("/settings", settings.PutSettings).Methods(http.MethodPut)
		api.HandleFunc("/cache/clear", settings.ClearCache).Methods(http.MethodPost)
	}

	if stream != nil {
		r.HandleFunc("/stream/{kind}/{id}", stream.Redirect).Methods(http.MethodGet)
		r.HandleFunc("/stream/series/{id}/{season}/{episode}", stream.Redirect).Methods(http.MethodGet)
	}
}
