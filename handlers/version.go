package handlers

import (
	"net/http"
	"runtime"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

type VersionHandler struct{}

func NewVersionHandler() *VersionHandler {
	return &VersionHandler{}
}

type VersionResponse struct {
	Version string `json:"version"`
	GoArch  string `json:"goArch"`
	GoOS    string `json:"goOs"`
}

func (h *VersionHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version: Version,
		GoArch:  runtime.GOARCH,
		GoOS:    runtime.GOOS,
	})
}
