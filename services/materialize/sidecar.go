package materialize

import (
	"encoding/json"
	"fmt"
)

const sidecarVersion = "1"

// sidecar is the JSON companion written next to every pointer file (and once
// at a series root). It carries the identity and provider metadata the
// pointer file itself cannot express.
type sidecar struct {
	Version     string            `json:"version"`
	Type        string            `json:"type"`
	Title       string            `json:"title"`
	Year        *int              `json:"year"`
	CreatedAt   string            `json:"createdAt"`
	LibraryID   string            `json:"libraryId"`
	Canonical   string            `json:"canonical,omitempty"`
	StreamURL   string            `json:"streamUrl,omitempty"`
	ProviderIDs map[string]string `json:"providerIds"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
}

// writeSidecar marshals and writes the sidecar for the given pointer file,
// with the usual skip-if-exists semantics.
func (m *Materializer) writeSidecar(set *ArtifactSet, strmPath string, sc sidecar) {
	if sc.ProviderIDs == nil {
		sc.ProviderIDs = map[string]string{}
	}
	path := m.sidecarPath(strmPath)
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		set.Failed = append(set.Failed, FileError{Path: path, Err: fmt.Errorf("marshal sidecar: %w", err)})
		return
	}
	m.writeFile(set, path, append(data, '\n'))
}
