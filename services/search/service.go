package search

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"jfresolve/models"
	"jfresolve/services/identity"
	"jfresolve/services/titlecache"
)

// catalogSearcher is the slice of the catalog client the search flow needs.
type catalogSearcher interface {
	Search(ctx context.Context, kind models.MediaKind, query string) ([]models.ExternalTitle, error)
}

// addonCataloger lists an addon's catalog pages.
type addonCataloger interface {
	Catalog(ctx context.Context, kind models.MediaKind, catalogID string) ([]models.AddonMeta, error)
}

// Service runs discovery queries and primes the resolution cache with every
// result it emits, so a later intercepted request can find the metadata by
// identifier.
type Service struct {
	catalog catalogSearcher
	addon   addonCataloger
	cache   *titlecache.Cache

	// addonCatalogID names the addon catalog browsed by Browse; empty
	// disables the addon side entirely.
	addonCatalogID string
}

func NewService(catalog catalogSearcher, addon addonCataloger, cache *titlecache.Cache, addonCatalogID string) *Service {
	return &Service{
		catalog:        catalog,
		addon:          addon,
		cache:          cache,
		addonCatalogID: strings.TrimSpace(addonCatalogID),
	}
}

// Search fans one query out across the requested kinds concurrently. A
// failing sub-query is logged and skipped; the others still contribute.
// Results are ranked by popularity and cached by derived identifier.
func (s *Service) Search(ctx context.Context, query string, kinds []models.MediaKind) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.SearchResult{}, nil
	}
	if len(kinds) == 0 {
		kinds = []models.MediaKind{models.KindMovie, models.KindSeries}
	}

	var (
		mu     sync.Mutex
		titles []models.ExternalTitle
	)
	p := pool.New().WithMaxGoroutines(len(kinds))
	for _, kind := range kinds {
		kind := kind
		p.Go(func() {
			found, err := s.catalog.Search(ctx, kind, query)
			if err != nil {
				// One broken sub-query must not sink the whole search.
				log.Printf("[search] %s sub-query for %q failed: %v", kind.Slug(), query, err)
				return
			}
			mu.Lock()
			titles = append(titles, found...)
			mu.Unlock()
		})
	}
	p.Wait()

	sort.SliceStable(titles, func(i, j int) bool {
		return titles[i].Popularity > titles[j].Popularity
	})

	results := make([]models.SearchResult, 0, len(titles))
	for _, title := range titles {
		results = append(results, s.admit(title))
	}
	return results, nil
}

// Browse lists the configured addon catalog for a kind, admitting every
// entry into the cache the same way search results are.
func (s *Service) Browse(ctx context.Context, kind models.MediaKind) ([]models.SearchResult, error) {
	if s.addon == nil || s.addonCatalogID == "" {
		return []models.SearchResult{}, nil
	}
	metas, err := s.addon.Catalog(ctx, kind, s.addonCatalogID)
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(metas))
	for _, meta := range metas {
		title := titleFromAddonMeta(kind, meta)
		if title.Name == "" || title.ExternalID() == "" {
			continue
		}
		results = append(results, s.admit(title))
	}
	return results, nil
}

// admit derives the title's identifier, caches it, and returns the pairing.
func (s *Service) admit(title models.ExternalTitle) models.SearchResult {
	id := identity.Identify(title.Kind, title.ExternalID())
	s.cache.Put(id, title)
	return models.SearchResult{LibraryID: id.String(), Title: title}
}

func titleFromAddonMeta(kind models.MediaKind, meta models.AddonMeta) models.ExternalTitle {
	if parsed, err := models.ParseMediaKind(meta.Type); err == nil {
		kind = parsed
	}
	providerIDs := map[string]string{}
	if strings.HasPrefix(meta.ID, "tt") {
		providerIDs[models.ProviderIMDB] = meta.ID
	}
	return models.ExternalTitle{
		Kind:        kind,
		Name:        strings.TrimSpace(meta.Name),
		Poster:      meta.Poster,
		Backdrop:    meta.Background,
		ProviderIDs: providerIDs,
	}
}
