package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MediaKind distinguishes the two title categories the pipeline handles.
// It is a closed variant: dispatch on it with a switch, never by comparing
// raw strings from the wire.
type MediaKind int

const (
	KindMovie MediaKind = iota
	KindSeries
	KindEpisode
)

func (k MediaKind) String() string {
	switch k {
	case KindMovie:
		return "Movie"
	case KindSeries:
		return "Series"
	case KindEpisode:
		return "Episode"
	}
	return fmt.Sprintf("MediaKind(%d)", int(k))
}

// Slug returns the lowercase form used in URL paths and canonical identity
// strings ("movie", "series", "episode").
func (k MediaKind) Slug() string {
	return strings.ToLower(k.String())
}

// ParseMediaKind accepts the common spellings seen in client requests and
// addon payloads ("movie", "movies", "tv", "show", "series", ...).
func ParseMediaKind(s string) (MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies", "film", "films":
		return KindMovie, nil
	case "series", "show", "shows", "tv":
		return KindSeries, nil
	case "episode", "episodes":
		return KindEpisode, nil
	}
	return 0, fmt.Errorf("unknown media kind %q", s)
}

func (k MediaKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *MediaKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMediaKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Well-known provider-id map keys.
const (
	ProviderTMDB = "tmdb"
	ProviderIMDB = "imdb"
)

// ExternalTitle is the identity of a discoverable title as returned by the
// metadata catalog. Immutable after creation; owned by the resolution cache
// until consumed or expired.
type ExternalTitle struct {
	ID          int64             `json:"id"`
	Kind        MediaKind         `json:"kind"`
	Name        string            `json:"name"`
	Year        int               `json:"year,omitempty"`
	Overview    string            `json:"overview,omitempty"`
	Poster      string            `json:"poster,omitempty"`
	Backdrop    string            `json:"backdrop,omitempty"`
	Popularity  float64           `json:"popularity,omitempty"`
	IsAnime     bool              `json:"isAnime,omitempty"`
	ProviderIDs map[string]string `json:"providerIds"`
}

// IMDBID returns the cross-reference id used for stream resolution, or "".
func (t ExternalTitle) IMDBID() string {
	return t.ProviderIDs[ProviderIMDB]
}

// ExternalID picks the canonical external id string for the title: its
// numeric catalog id when present, otherwise its imdb cross-reference.
func (t ExternalTitle) ExternalID() string {
	if t.ID > 0 {
		return strconv.FormatInt(t.ID, 10)
	}
	return t.ProviderIDs[ProviderIMDB]
}

// EpisodeRef describes one episode inside a season tree handed to the
// materializer. StreamURL is the resolver URL stored in the pointer file.
type EpisodeRef struct {
	Number      int               `json:"number"`
	Title       string            `json:"title,omitempty"`
	StreamURL   string            `json:"streamUrl"`
	ProviderIDs map[string]string `json:"providerIds,omitempty"`
}

// SeasonRef carries one season's ordered episode list.
type SeasonRef struct {
	Number   int          `json:"number"`
	Episodes []EpisodeRef `json:"episodes"`
}

// LibraryItem is the minimal view of a library entry this pipeline creates
// and matches against. Path is a pointer-file path for movies and a
// season-tree root for series. Virtual entries exist only in the cache.
type LibraryItem struct {
	ID          string            `json:"id"`
	Kind        MediaKind         `json:"kind"`
	Name        string            `json:"name,omitempty"`
	Path        string            `json:"path"`
	ProviderIDs map[string]string `json:"providerIds"`
	Virtual     bool              `json:"virtual"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// SearchResult pairs a cached virtual identifier with the external title it
// was derived from, so clients can reference the item before it exists.
type SearchResult struct {
	LibraryID string        `json:"libraryId"`
	Title     ExternalTitle `json:"title"`
}
