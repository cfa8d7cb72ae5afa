package addon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jfresolve/models"
	"jfresolve/utils"
)

var (
	// ErrNoStreams means the addon answered but its streams array was empty
	// or absent.
	ErrNoStreams = errors.New("addon returned no streams")

	// ErrMissingStreamURL means the first stream entry had no usable url.
	ErrMissingStreamURL = errors.New("addon stream has no url")

	// ErrSeasonEpisodeRequired is a caller error: series stream requests
	// must carry both season and episode.
	ErrSeasonEpisodeRequired = errors.New("season and episode are required for series streams")
)

// Client speaks the Stremio addon protocol: manifest, catalog and stream
// queries against a single configured addon base URL. It never retries; the
// first error is surfaced and the caller decides what to do with it.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient normalizes base (scheme optional, trailing /manifest.json
// tolerated) and wraps it with the given http client.
func NewClient(base string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: NormalizeBase(base), httpc: httpc}
}

// NormalizeBase canonicalizes an addon's advertised location into
// "https://host/path" form: missing schemes get https, trailing slashes and
// a /manifest.json suffix are dropped.
func NormalizeBase(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	base = strings.TrimSuffix(base, "/")
	base = strings.TrimSuffix(base, "/manifest.json")
	return strings.TrimSuffix(base, "/")
}

// BaseURL returns the normalized base this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StreamEndpoint builds the stream request path for an external id.
// Series requests require season and episode; their absence is a caller
// error, never a silent default.
func (c *Client) StreamEndpoint(kind models.MediaKind, externalID string, season, episode int) (string, error) {
	if externalID == "" {
		return "", errors.New("empty stream id")
	}
	switch kind {
	case models.KindSeries:
		if season <= 0 || episode <= 0 {
			return "", ErrSeasonEpisodeRequired
		}
		id := fmt.Sprintf("%s:%d:%d", externalID, season, episode)
		return fmt.Sprintf("%s/stream/series/%s.json", c.baseURL, url.PathEscape(id)), nil
	default:
		return fmt.Sprintf("%s/stream/%s/%s.json", c.baseURL, kind.Slug(), url.PathEscape(externalID)), nil
	}
}

// ResolveStream fetches the stream list for an external id and returns the
// first entry's URL.
func (c *Client) ResolveStream(ctx context.Context, kind models.MediaKind, externalID string, season, episode int) (string, error) {
	endpoint, err := c.StreamEndpoint(kind, externalID, season, episode)
	if err != nil {
		return "", err
	}
	log.Printf("[addon] fetching %s", endpoint)

	var payload struct {
		Streams []models.AddonStream `json:"streams"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return "", err
	}
	if len(payload.Streams) == 0 {
		return "", fmt.Errorf("%s/%s: %w", kind.Slug(), externalID, ErrNoStreams)
	}
	streamURL := strings.TrimSpace(payload.Streams[0].URL)
	if streamURL == "" {
		return "", fmt.Errorf("%s/%s: %w", kind.Slug(), externalID, ErrMissingStreamURL)
	}
	// Some addons hand back URLs with raw spaces.
	if encoded, err := utils.EncodeURLWithSpaces(streamURL); err == nil {
		streamURL = encoded
	}
	return streamURL, nil
}

// Manifest fetches the addon's manifest.
func (c *Client) Manifest(ctx context.Context) (*models.AddonManifest, error) {
	var manifest models.AddonManifest
	if err := c.getJSON(ctx, c.baseURL+"/manifest.json", &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// Catalog fetches one catalog page for the given kind.
func (c *Client) Catalog(ctx context.Context, kind models.MediaKind, catalogID string) ([]models.AddonMeta, error) {
	endpoint := fmt.Sprintf("%s/catalog/%s/%s.json", c.baseURL, kind.Slug(), url.PathEscape(catalogID))
	var payload struct {
		Metas []models.AddonMeta `json:"metas"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Metas, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	if c.baseURL == "" {
		return errors.New("addon base url not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("addon request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("addon %s returned %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode addon response: %w", err)
	}
	return nil
}
