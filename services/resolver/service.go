package resolver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"jfresolve/internal/library"
	"jfresolve/models"
	"jfresolve/services/identity"
	"jfresolve/services/materialize"
	"jfresolve/services/titlecache"
)

// LibraryIndex is the duplicate-detection and promotion surface of the
// library store.
type LibraryIndex interface {
	FindByProviderIDs(ctx context.Context, providerIDs map[string]string) (*models.LibraryItem, error)
	Get(ctx context.Context, id string) (*models.LibraryItem, error)
	Create(ctx context.Context, item models.LibraryItem) error
}

// Rescanner triggers a host rescan of a materialized folder.
type Rescanner interface {
	Rescan(ctx context.Context, path string) error
}

// seriesCatalog is the slice of the catalog client needed to walk a series'
// season tree and enrich provider ids.
type seriesCatalog interface {
	ExternalIDs(ctx context.Context, kind models.MediaKind, id int64) (map[string]string, error)
	SeasonNumbers(ctx context.Context, seriesID int64) ([]int, error)
	SeasonEpisodes(ctx context.Context, seriesID int64, season int) (models.SeasonRef, error)
}

// strmWriter is the materializer surface the orchestrator drives.
type strmWriter interface {
	CreateMovie(destDir string, movie materialize.Movie) (*materialize.ArtifactSet, error)
	CreateSeries(destDir string, series materialize.Series) (*materialize.ArtifactSet, error)
}

// URLBuilder produces the resolver URL written into pointer files. It is a
// collaborator, not part of the orchestration itself: the URLs point back at
// this service's redirect endpoint.
type URLBuilder interface {
	StreamURL(kind models.MediaKind, externalID string, season, episode int) string
}

// State classifies the outcome of one resolution.
type State int

const (
	// StatePassthrough: identifier unknown to the cache; the host request
	// proceeds unmodified.
	StatePassthrough State = iota
	// StateResolved: the identifier now maps to a real library entry.
	StateResolved
	// StateEphemeral: materialization failed; cached metadata is served
	// without persisting anything, and the cache entry survives for a retry.
	StateEphemeral
)

func (s State) String() string {
	switch s {
	case StatePassthrough:
		return "passthrough"
	case StateResolved:
		return "resolved"
	case StateEphemeral:
		return "ephemeral"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome is what one resolution decided.
type Outcome struct {
	State       State
	Item        *models.LibraryItem
	Ephemeral   *models.ExternalTitle
	PlaybackURL string
}

// Options tunes orchestration behavior.
type Options struct {
	// LibraryRoot is the directory materialized trees are written under.
	LibraryRoot string
	// StrictDuplicateCheck makes a failed duplicate-detection query abort
	// the request instead of materializing anyway (which risks creating a
	// duplicate entry during provider outages).
	StrictDuplicateCheck bool
}

// Service is the request-time state machine tying cache, library index,
// catalog and materializer together. Concurrent requests for the same
// identifier coalesce onto a single materialize-and-promote sequence.
type Service struct {
	cache    *titlecache.Cache
	index    LibraryIndex
	rescan   Rescanner
	catalog  seriesCatalog
	writer   strmWriter
	urls     URLBuilder
	opts     Options

	inflightMu sync.Mutex
	inflight   map[identity.ID]*inflightResolution
}

type inflightResolution struct {
	wg      sync.WaitGroup
	outcome *Outcome
	err     error
}

func NewService(cache *titlecache.Cache, index LibraryIndex, rescan Rescanner, catalog seriesCatalog, writer strmWriter, urls URLBuilder, opts Options) *Service {
	return &Service{
		cache:    cache,
		index:    index,
		rescan:   rescan,
		catalog:  catalog,
		writer:   writer,
		urls:     urls,
		opts:     opts,
		inflight: make(map[identity.ID]*inflightResolution),
	}
}

// Resolve decides what an intercepted request referencing id should do.
// Calls for the same identifier are single-flighted: the first caller runs
// the sequence, the rest wait and share its outcome.
func (s *Service) Resolve(ctx context.Context, id identity.ID) (*Outcome, error) {
	s.inflightMu.Lock()
	if in, ok := s.inflight[id]; ok {
		s.inflightMu.Unlock()
		in.wg.Wait()
		return in.outcome, in.err
	}
	in := &inflightResolution{}
	in.wg.Add(1)
	s.inflight[id] = in
	s.inflightMu.Unlock()

	in.outcome, in.err = s.resolve(ctx, id)

	s.inflightMu.Lock()
	delete(s.inflight, id)
	s.inflightMu.Unlock()
	in.wg.Done()

	return in.outcome, in.err
}

func (s *Service) resolve(ctx context.Context, id identity.ID) (*Outcome, error) {
	title, ok := s.cache.Get(id)
	if !ok {
		return &Outcome{State: StatePassthrough}, nil
	}

	providerIDs := s.enrichProviderIDs(ctx, title)

	existing, err := s.index.FindByProviderIDs(ctx, providerIDs)
	switch {
	case err == nil:
		return s.promoteExisting(ctx, id, title, existing)
	case errors.Is(err, library.ErrNotFound):
		// Fall through to materialization.
	default:
		if s.opts.StrictDuplicateCheck {
			return nil, fmt.Errorf("duplicate detection for %s: %w", id, err)
		}
		// Conservative default: a broken library query is treated as "not
		// found" so the request still succeeds, accepting the duplicate risk.
		log.Printf("[resolver] duplicate detection for %s failed, materializing anyway: %v", id, err)
	}

	return s.materialize(ctx, id, title, providerIDs)
}

// promoteExisting redirects the request at an already-materialized entry,
// refreshing a series tree first in case new episodes appeared upstream.
func (s *Service) promoteExisting(ctx context.Context, id identity.ID, title models.ExternalTitle, existing *models.LibraryItem) (*Outcome, error) {
	if existing.Kind == models.KindSeries && title.ID > 0 {
		set, err := s.updateSeries(ctx, title, existing)
		if err != nil {
			log.Printf("[resolver] series update for %s failed: %v", existing.ID, err)
		} else if set.NewEpisodes > 0 {
			log.Printf("[resolver] series %s gained %d episode(s)", existing.ID, set.NewEpisodes)
			if err := s.rescan.Rescan(ctx, existing.Path); err != nil {
				log.Printf("[resolver] rescan of %s failed: %v", existing.Path, err)
			}
		}
	}

	s.cache.Remove(id)
	return &Outcome{State: StateResolved, Item: existing}, nil
}

// materialize writes the artifacts for a virtual title and promotes it to a
// real library entry. Failure keeps the cache entry so a retry is possible.
func (s *Service) materialize(ctx context.Context, id identity.ID, title models.ExternalTitle, providerIDs map[string]string) (*Outcome, error) {
	externalID := title.ExternalID()
	ident := materialize.Identity{
		ID:        id,
		Canonical: identity.Canonical(title.Kind, externalID),
	}
	// The identity stays on the catalog's own id so it matches what search
	// admitted; the URLs baked into pointer files use the imdb
	// cross-reference when known, which is what addons resolve.
	sid := streamID(externalID, providerIDs)

	var (
		set      *materialize.ArtifactSet
		itemPath string
		err      error
	)
	switch title.Kind {
	case models.KindSeries:
		seasons := s.fetchSeasons(ctx, title, sid)
		set, err = s.writer.CreateSeries(s.opts.LibraryRoot, materialize.Series{
			Title:       title.Name,
			Year:        title.Year,
			Seasons:     seasons,
			Identity:    ident,
			ProviderIDs: providerIDs,
		})
		if set != nil {
			itemPath = set.Root
		}
	default:
		streamURL := s.urls.StreamURL(models.KindMovie, sid, 0, 0)
		set, err = s.writer.CreateMovie(s.opts.LibraryRoot, materialize.Movie{
			Title:       title.Name,
			Year:        title.Year,
			StreamURL:   streamURL,
			Identity:    ident,
			ProviderIDs: providerIDs,
		})
		if set != nil {
			folder := filepath.Base(set.Root)
			itemPath = filepath.Join(set.Root, folder+".strm")
		}
	}

	if err != nil || materializationFailed(set) {
		if err == nil {
			err = set.Err()
		}
		log.Printf("[resolver] materialization of %s failed, serving ephemeral metadata: %v", id, err)
		return s.ephemeral(title, sid), nil
	}

	item := models.LibraryItem{
		ID:          id.String(),
		Kind:        title.Kind,
		Name:        title.Name,
		Path:        itemPath,
		ProviderIDs: providerIDs,
		Virtual:     false,
	}
	if err := s.index.Create(ctx, item); err != nil {
		log.Printf("[resolver] promoting %s failed, serving ephemeral metadata: %v", id, err)
		return s.ephemeral(title, sid), nil
	}

	if err := s.rescan.Rescan(ctx, set.Root); err != nil {
		log.Printf("[resolver] rescan of %s failed: %v", set.Root, err)
	}

	s.cache.Remove(id)
	log.Printf("[resolver] %s materialized at %s", id, itemPath)
	return &Outcome{State: StateResolved, Item: &item}, nil
}

// materializationFailed is true when no pointer file reached the disk.
// Partial success (some episodes written) still counts as success, but a
// tree holding only sidecars — an empty season walk, or a movie whose .strm
// write failed after its sidecar landed — must not be promoted: the player
// would find nothing playable and the cached metadata would be lost.
func materializationFailed(set *materialize.ArtifactSet) bool {
	if set == nil {
		return true
	}
	for _, path := range set.Created {
		if strings.HasSuffix(path, ".strm") {
			return false
		}
	}
	for _, path := range set.Skipped {
		if strings.HasSuffix(path, ".strm") {
			return false
		}
	}
	return true
}

// streamID picks the provider reference stream URLs carry. Addons resolve
// imdb ids, so the cross-reference wins over the catalog's numeric id
// whenever one of the maps knows it.
func streamID(fallback string, providerIDs ...map[string]string) string {
	for _, ids := range providerIDs {
		if id := ids[models.ProviderIMDB]; id != "" {
			return id
		}
	}
	return fallback
}

func (s *Service) ephemeral(title models.ExternalTitle, externalID string) *Outcome {
	out := &Outcome{State: StateEphemeral, Ephemeral: &title}
	if title.Kind == models.KindMovie {
		out.PlaybackURL = s.urls.StreamURL(models.KindMovie, externalID, 0, 0)
	}
	return out
}

// enrichProviderIDs makes sure the duplicate-detection map carries the imdb
// cross-reference when the catalog can supply it. Lookup failures only cost
// us match quality, never the request.
func (s *Service) enrichProviderIDs(ctx context.Context, title models.ExternalTitle) map[string]string {
	providerIDs := make(map[string]string, len(title.ProviderIDs)+1)
	for k, v := range title.ProviderIDs {
		providerIDs[k] = v
	}
	if providerIDs[models.ProviderIMDB] != "" || title.ID <= 0 {
		return providerIDs
	}
	ids, err := s.catalog.ExternalIDs(ctx, title.Kind, title.ID)
	if err != nil {
		log.Printf("[resolver] external id lookup for %s/%d failed: %v", title.Kind.Slug(), title.ID, err)
		return providerIDs
	}
	for k, v := range ids {
		if providerIDs[k] == "" {
			providerIDs[k] = v
		}
	}
	return providerIDs
}
