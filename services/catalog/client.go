package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"jfresolve/models"
)

const defaultBaseURL = "https://api.themoviedb.org/3"

var (
	// ErrNotConfigured means no API key was provided; no request is made.
	ErrNotConfigured = errors.New("catalog api key not configured")

	// ErrUpstreamUnavailable wraps network failures and non-success statuses
	// from the catalog.
	ErrUpstreamUnavailable = errors.New("catalog unavailable")
)

// Client is a minimal TMDB v3 client covering the endpoints the resolution
// pipeline needs: search, external ids and season/episode listings.
// Transient failures are retried a few times with backoff; anything that
// still fails is wrapped in ErrUpstreamUnavailable.
type Client struct {
	apiKey   string
	language string
	baseURL  string
	httpc    *http.Client
}

func NewClient(apiKey, language string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	if strings.TrimSpace(language) == "" {
		language = "en-US"
	}
	return &Client{
		apiKey:   strings.TrimSpace(apiKey),
		language: language,
		baseURL:  defaultBaseURL,
		httpc:    httpc,
	}
}

// SetBaseURL points the client at a different endpoint (tests).
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimSuffix(base, "/")
}

// mediaPath returns the TMDB path segment for a kind.
func mediaPath(kind models.MediaKind) string {
	if kind == models.KindSeries {
		return "tv"
	}
	return "movie"
}

// Search queries the catalog for titles of the given kind.
func (c *Client) Search(ctx context.Context, kind models.MediaKind, query string) ([]models.ExternalTitle, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	var resp struct {
		Results []struct {
			ID               int64   `json:"id"`
			Title            string  `json:"title"`
			Name             string  `json:"name"`
			ReleaseDate      string  `json:"release_date"`
			FirstAirDate     string  `json:"first_air_date"`
			Overview         string  `json:"overview"`
			PosterPath       string  `json:"poster_path"`
			BackdropPath     string  `json:"backdrop_path"`
			Popularity       float64 `json:"popularity"`
			GenreIDs         []int   `json:"genre_ids"`
			OriginalLanguage string  `json:"original_language"`
			OriginCountry    []string `json:"origin_country"`
		} `json:"results"`
	}
	params := url.Values{
		"query":    []string{query},
		"language": []string{c.language},
	}
	if err := c.getJSON(ctx, "/search/"+mediaPath(kind), params, &resp); err != nil {
		return nil, err
	}

	titles := make([]models.ExternalTitle, 0, len(resp.Results))
	for _, r := range resp.Results {
		name := strings.TrimSpace(r.Title)
		if name == "" {
			name = strings.TrimSpace(r.Name)
		}
		if name == "" {
			continue
		}
		titles = append(titles, models.ExternalTitle{
			ID:         r.ID,
			Kind:       kind,
			Name:       name,
			Year:       parseYear(r.ReleaseDate, r.FirstAirDate),
			Overview:   strings.TrimSpace(r.Overview),
			Poster:     imageURL(r.PosterPath, "w780"),
			Backdrop:   imageURL(r.BackdropPath, "w1280"),
			Popularity: r.Popularity,
			IsAnime:    classifyAnime(r.GenreIDs, r.OriginalLanguage, r.OriginCountry),
			ProviderIDs: map[string]string{
				models.ProviderTMDB: strconv.FormatInt(r.ID, 10),
			},
		})
	}
	return titles, nil
}

// ExternalIDs returns the cross-reference ids (imdb) for a catalog title.
func (c *Client) ExternalIDs(ctx context.Context, kind models.MediaKind, id int64) (map[string]string, error) {
	var resp struct {
		IMDBID string `json:"imdb_id"`
	}
	path := fmt.Sprintf("/%s/%d/external_ids", mediaPath(kind), id)
	if err := c.getJSON(ctx, path, url.Values{}, &resp); err != nil {
		return nil, err
	}
	ids := map[string]string{models.ProviderTMDB: strconv.FormatInt(id, 10)}
	if imdb := strings.TrimSpace(resp.IMDBID); imdb != "" {
		ids[models.ProviderIMDB] = imdb
	}
	return ids, nil
}

// seriesDetail is the subset of a TMDB tv detail response we need to walk
// the season tree.
type seriesDetail struct {
	Seasons []struct {
		SeasonNumber int `json:"season_number"`
		EpisodeCount int `json:"episode_count"`
	} `json:"seasons"`
}

// SeasonEpisodes lists a single season's episodes.
func (c *Client) SeasonEpisodes(ctx context.Context, seriesID int64, season int) (models.SeasonRef, error) {
	var resp struct {
		Episodes []struct {
			EpisodeNumber int    `json:"episode_number"`
			Name          string `json:"name"`
		} `json:"episodes"`
	}
	path := fmt.Sprintf("/tv/%d/season/%d", seriesID, season)
	if err := c.getJSON(ctx, path, url.Values{"language": []string{c.language}}, &resp); err != nil {
		return models.SeasonRef{}, err
	}
	ref := models.SeasonRef{Number: season}
	for _, ep := range resp.Episodes {
		ref.Episodes = append(ref.Episodes, models.EpisodeRef{
			Number: ep.EpisodeNumber,
			Title:  strings.TrimSpace(ep.Name),
		})
	}
	return ref, nil
}

// SeasonNumbers lists the season numbers a series has, specials included.
func (c *Client) SeasonNumbers(ctx context.Context, seriesID int64) ([]int, error) {
	var resp seriesDetail
	path := fmt.Sprintf("/tv/%d", seriesID)
	if err := c.getJSON(ctx, path, url.Values{"language": []string{c.language}}, &resp); err != nil {
		return nil, err
	}
	numbers := make([]int, 0, len(resp.Seasons))
	for _, s := range resp.Seasons {
		numbers = append(numbers, s.SeasonNumber)
	}
	return numbers, nil
}

// TMDB genre id 16 is Animation.
const genreAnimation = 16

// classifyAnime marks animation titles of Japanese origin as anime.
func classifyAnime(genreIDs []int, originalLanguage string, originCountry []string) bool {
	animated := false
	for _, g := range genreIDs {
		if g == genreAnimation {
			animated = true
			break
		}
	}
	if !animated {
		return false
	}
	if strings.EqualFold(originalLanguage, "ja") {
		return true
	}
	for _, country := range originCountry {
		if strings.EqualFold(country, "JP") {
			return true
		}
	}
	return false
}

func parseYear(dates ...string) int {
	for _, d := range dates {
		if len(d) >= 4 {
			if year, err := strconv.Atoi(d[:4]); err == nil && year > 0 {
				return year
			}
		}
	}
	return 0
}

func imageURL(path, size string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	return "https://image.tmdb.org/t/p/" + size + path
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}
	params.Set("api_key", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				return retry.Unrecoverable(fmt.Errorf("catalog %s returned 404", path))
			}
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				return fmt.Errorf("catalog %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode catalog response: %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		log.Printf("[catalog] %s failed: %v", path, err)
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return nil
}
