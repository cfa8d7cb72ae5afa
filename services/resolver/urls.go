package resolver

import (
	"fmt"
	"strings"

	"jfresolve/models"
	"jfresolve/services/identity"
	"jfresolve/services/materialize"
)

// RedirectURLBuilder points pointer files at this service's own redirect
// endpoint, which resolves a live stream URL at playback time.
type RedirectURLBuilder struct {
	// PublicBaseURL is how the host's player reaches this service,
	// e.g. "http://127.0.0.1:8085".
	PublicBaseURL string
}

func (b RedirectURLBuilder) StreamURL(kind models.MediaKind, externalID string, season, episode int) string {
	base := strings.TrimSuffix(b.PublicBaseURL, "/")
	if kind == models.KindSeries {
		return fmt.Sprintf("%s/stream/series/%s/%d/%d", base, externalID, season, episode)
	}
	return fmt.Sprintf("%s/stream/%s/%s", base, kind.Slug(), externalID)
}

// parseItemIdentity rebuilds a materialize.Identity from a stored library
// item so series updates write sidecars under the original identifier.
func parseItemIdentity(item *models.LibraryItem) (materialize.Identity, error) {
	id, err := identity.Parse(item.ID)
	if err != nil {
		return materialize.Identity{}, fmt.Errorf("library item %s: %w", item.ID, err)
	}
	return materialize.Identity{ID: id}, nil
}
