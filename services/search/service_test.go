package search

import (
	"context"
	"errors"
	"testing"

	"jfresolve/models"
	"jfresolve/services/identity"
	"jfresolve/services/titlecache"
)

type fakeCatalog struct {
	byKind map[models.MediaKind][]models.ExternalTitle
	errs   map[models.MediaKind]error
}

func (f *fakeCatalog) Search(ctx context.Context, kind models.MediaKind, query string) ([]models.ExternalTitle, error) {
	if err := f.errs[kind]; err != nil {
		return nil, err
	}
	return f.byKind[kind], nil
}

type fakeAddon struct {
	metas []models.AddonMeta
	err   error
}

func (f *fakeAddon) Catalog(ctx context.Context, kind models.MediaKind, catalogID string) ([]models.AddonMeta, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.metas, nil
}

func movieTitle(id int64, name string, popularity float64) models.ExternalTitle {
	return models.ExternalTitle{
		ID: id, Kind: models.KindMovie, Name: name, Year: 2020, Popularity: popularity,
		ProviderIDs: map[string]string{models.ProviderTMDB: "42"},
	}
}

func TestSearchMergesAndRanks(t *testing.T) {
	cache := titlecache.New(0)
	catalog := &fakeCatalog{byKind: map[models.MediaKind][]models.ExternalTitle{
		models.KindMovie: {movieTitle(1, "Low", 1.0), movieTitle(2, "High", 9.0)},
		models.KindSeries: {{
			ID: 7, Kind: models.KindSeries, Name: "Mid", Popularity: 5.0,
			ProviderIDs: map[string]string{models.ProviderTMDB: "7"},
		}},
	}}
	svc := NewService(catalog, nil, cache, "")

	results, err := svc.Search(context.Background(), "foo", nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Title.Name != "High" || results[1].Title.Name != "Mid" || results[2].Title.Name != "Low" {
		t.Fatalf("unexpected ranking: %v, %v, %v", results[0].Title.Name, results[1].Title.Name, results[2].Title.Name)
	}
}

func TestSearchPopulatesCache(t *testing.T) {
	cache := titlecache.New(0)
	catalog := &fakeCatalog{byKind: map[models.MediaKind][]models.ExternalTitle{
		models.KindMovie: {movieTitle(42, "Foo", 1.0)},
	}}
	svc := NewService(catalog, nil, cache, "")

	results, err := svc.Search(context.Background(), "Foo", []models.MediaKind{models.KindMovie})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	wantID := identity.Identify(models.KindMovie, "42")
	if results[0].LibraryID != wantID.String() {
		t.Fatalf("unexpected library id %s", results[0].LibraryID)
	}
	cached, ok := cache.Get(wantID)
	if !ok {
		t.Fatal("search result should be cached under its identifier")
	}
	if cached.Name != "Foo" {
		t.Fatalf("unexpected cached title %q", cached.Name)
	}
}

func TestSearchSkipsFailedSubquery(t *testing.T) {
	cache := titlecache.New(0)
	catalog := &fakeCatalog{
		byKind: map[models.MediaKind][]models.ExternalTitle{
			models.KindMovie: {movieTitle(42, "Foo", 1.0)},
		},
		errs: map[models.MediaKind]error{
			models.KindSeries: errors.New("catalog down"),
		},
	}
	svc := NewService(catalog, nil, cache, "")

	results, err := svc.Search(context.Background(), "foo", nil)
	if err != nil {
		t.Fatalf("search should not fail when one sub-query fails: %v", err)
	}
	if len(results) != 1 || results[0].Title.Name != "Foo" {
		t.Fatalf("expected the surviving sub-query's result, got %+v", results)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	svc := NewService(&fakeCatalog{}, nil, titlecache.New(0), "")
	results, err := svc.Search(context.Background(), "  ", nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestBrowseAddonCatalog(t *testing.T) {
	cache := titlecache.New(0)
	addon := &fakeAddon{metas: []models.AddonMeta{
		{ID: "tt0042", Type: "movie", Name: "Foo", Poster: "p.jpg"},
		{ID: "no-usable-id", Type: "movie", Name: "Bar"},
		{ID: "tt0043", Type: "movie", Name: ""},
	}}
	svc := NewService(&fakeCatalog{}, addon, cache, "top")

	results, err := svc.Browse(context.Background(), models.KindMovie)
	if err != nil {
		t.Fatalf("browse: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 usable result, got %d", len(results))
	}
	if results[0].Title.ProviderIDs[models.ProviderIMDB] != "tt0042" {
		t.Fatalf("unexpected provider ids: %+v", results[0].Title.ProviderIDs)
	}

	id := identity.Identify(models.KindMovie, "tt0042")
	if _, ok := cache.Get(id); !ok {
		t.Fatal("browse result should be cached")
	}
}

func TestBrowseDisabledWithoutCatalogID(t *testing.T) {
	svc := NewService(&fakeCatalog{}, &fakeAddon{err: errors.New("should not be called")}, titlecache.New(0), "")
	results, err := svc.Browse(context.Background(), models.KindMovie)
	if err != nil {
		t.Fatalf("browse: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result, got %d", len(results))
	}
}
