package materialize

import (
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"time"

	"jfresolve/models"
	"jfresolve/services/identity"
)

// CreateSeries writes the full season/episode tree for a series under
// destDir. Seasons and episodes are processed in ascending order so a
// partial failure leaves the lowest-numbered content most complete.
//
// Calling it again against an already-materialized folder acts as an update:
// only files for episodes that do not yet exist are created, and
// ArtifactSet.NewEpisodes reports how many pointer files that produced.
// Callers use a zero count to decide a rescan is unnecessary.
func (m *Materializer) CreateSeries(destDir string, series Series) (*ArtifactSet, error) {
	folder := FolderName(series.Title, series.Year)
	root := filepath.Join(destDir, folder)
	set := &ArtifactSet{Root: root}

	if err := m.fs.MkdirAll(root, 0o755); err != nil {
		return set, fmt.Errorf("create series folder %s: %w", root, err)
	}

	if !m.opts.DisableSidecars {
		// Series-level sidecar, written once at the tree root. No stream URL:
		// the root is a folder, not a playable item.
		rootSidecar := filepath.Join(root, folder+strmExt)
		m.writeSidecar(set, rootSidecar, sidecar{
			Version:     sidecarVersion,
			Type:        models.KindSeries.String(),
			Title:       series.Title,
			Year:        nullableYear(series.Year),
			CreatedAt:   m.now().UTC().Format(time.RFC3339),
			LibraryID:   series.Identity.ID.String(),
			Canonical:   series.Identity.Canonical,
			ProviderIDs: series.ProviderIDs,
		})
	}

	seasons := make([]models.SeasonRef, len(series.Seasons))
	copy(seasons, series.Seasons)
	sort.Slice(seasons, func(i, j int) bool { return seasons[i].Number < seasons[j].Number })

	showName := SanitizeName(series.Title)
	for _, season := range seasons {
		if season.Number == 0 && !m.opts.IncludeSpecials {
			continue
		}
		m.writeSeason(set, root, showName, season)
	}

	log.Printf("[materialize] series %q: %d created (%d new episodes), %d skipped, %d failed",
		series.Title, len(set.Created), set.NewEpisodes, len(set.Skipped), len(set.Failed))
	return set, nil
}

func (m *Materializer) writeSeason(set *ArtifactSet, root, showName string, season models.SeasonRef) {
	seasonDir := filepath.Join(root, fmt.Sprintf("Season %02d", season.Number))
	if err := m.fs.MkdirAll(seasonDir, 0o755); err != nil {
		// One broken season must not abort its siblings.
		set.Failed = append(set.Failed, FileError{Path: seasonDir, Err: err})
		return
	}

	episodes := make([]models.EpisodeRef, len(season.Episodes))
	copy(episodes, season.Episodes)
	sort.Slice(episodes, func(i, j int) bool { return episodes[i].Number < episodes[j].Number })

	for _, ep := range episodes {
		base := fmt.Sprintf("%s S%02dE%02d", showName, season.Number, ep.Number)
		if ep.Title != "" {
			base += " " + SanitizeName(ep.Title)
		}
		strmPath := filepath.Join(seasonDir, base+strmExt)

		if m.writeFile(set, strmPath, []byte(ep.StreamURL+"\n")) {
			set.NewEpisodes++
		}

		if !m.opts.DisableSidecars {
			// Episodes carry no externally assigned identity; derive one from
			// what the artifact itself is.
			epID := identity.DeriveArtifact(models.KindEpisode, strmPath, ep.StreamURL)
			m.writeSidecar(set, strmPath, sidecar{
				Version:     sidecarVersion,
				Type:        models.KindEpisode.String(),
				Title:       ep.Title,
				CreatedAt:   m.now().UTC().Format(time.RFC3339),
				LibraryID:   epID.String(),
				StreamURL:   ep.StreamURL,
				ProviderIDs: ep.ProviderIDs,
			})
		}

		if m.opts.WriteNFO {
			m.writeEpisodeNFO(set, strmPath, showName, ep.Title, season.Number, ep.Number)
		}
	}
}
