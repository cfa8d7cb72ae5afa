package library

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Rescanner asks the host's library scanner to pick up a freshly
// materialized folder. It speaks Jellyfin's media-updated endpoint; a nil
// *Rescanner is a valid no-op for setups that rely on periodic scans.
type Rescanner struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func NewRescanner(baseURL, apiKey string, httpc *http.Client) *Rescanner {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Rescanner{
		baseURL: strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
		httpc:   httpc,
	}
}

// Rescan notifies the host that path has new content.
func (r *Rescanner) Rescan(ctx context.Context, path string) error {
	if r == nil || r.baseURL == "" {
		return nil
	}
	jobID := uuid.NewString()

	payload := struct {
		Updates []struct {
			Path       string `json:"Path"`
			UpdateType string `json:"UpdateType"`
		} `json:"Updates"`
	}{}
	payload.Updates = append(payload.Updates, struct {
		Path       string `json:"Path"`
		UpdateType string `json:"UpdateType"`
	}{Path: path, UpdateType: "Created"})

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	endpoint := r.baseURL + "/Library/Media/Updated"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", jobID)
	if r.apiKey != "" {
		req.Header.Set("X-Emby-Token", r.apiKey)
	}

	log.Printf("[library] rescan job %s requesting refresh of %s", jobID, path)
	resp, err := r.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("rescan %s (job %s): %w", path, jobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("rescan %s (job %s): host returned %d: %s", path, jobID, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
