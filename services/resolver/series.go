package resolver

import (
	"context"
	"log"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"jfresolve/models"
	"jfresolve/services/materialize"
)

// fetchSeasons builds the season tree for a series from the catalog, filling
// every episode's stream URL with the resolver endpoint. One season's failed
// episode listing is logged and skipped; the other seasons still land.
func (s *Service) fetchSeasons(ctx context.Context, title models.ExternalTitle, sid string) []models.SeasonRef {
	numbers, err := s.catalog.SeasonNumbers(ctx, title.ID)
	if err != nil {
		log.Printf("[resolver] season listing for %s/%d failed: %v", title.Kind.Slug(), title.ID, err)
		return nil
	}

	var (
		mu      sync.Mutex
		seasons []models.SeasonRef
	)
	p := pool.New().WithMaxGoroutines(4)
	for _, number := range numbers {
		number := number
		p.Go(func() {
			season, err := s.catalog.SeasonEpisodes(ctx, title.ID, number)
			if err != nil {
				log.Printf("[resolver] episode listing for season %d of %d failed: %v", number, title.ID, err)
				return
			}
			for i := range season.Episodes {
				season.Episodes[i].StreamURL = s.urls.StreamURL(
					models.KindSeries, sid, season.Number, season.Episodes[i].Number)
			}
			mu.Lock()
			seasons = append(seasons, season)
			mu.Unlock()
		})
	}
	p.Wait()

	sort.Slice(seasons, func(i, j int) bool { return seasons[i].Number < seasons[j].Number })
	return seasons
}

// updateSeries re-materializes an existing series tree so upstream episode
// additions become pointer files. Only files that do not yet exist are
// created; the returned set's NewEpisodes count drives the rescan decision.
func (s *Service) updateSeries(ctx context.Context, title models.ExternalTitle, existing *models.LibraryItem) (*materialize.ArtifactSet, error) {
	id, err := parseItemIdentity(existing)
	if err != nil {
		return nil, err
	}

	sid := streamID(title.ExternalID(), existing.ProviderIDs, title.ProviderIDs)
	seasons := s.fetchSeasons(ctx, title, sid)
	return s.writer.CreateSeries(filepath.Dir(existing.Path), materialize.Series{
		Title:       title.Name,
		Year:        title.Year,
		Seasons:     seasons,
		Identity:    id,
		ProviderIDs: existing.ProviderIDs,
	})
}
