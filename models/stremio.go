package models

// Stremio addon wire types. The addon protocol is consumed, not owned, so
// these mirror the JSON the network sends and nothing more.

// AddonManifest is the response of GET {base}/manifest.json.
type AddonManifest struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
	Resources   []string `json:"resources"`
	Types       []string `json:"types"`
}

// AddonMeta is one entry of a catalog response's "metas" array.
type AddonMeta struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Name       string `json:"name"`
	Poster     string `json:"poster,omitempty"`
	Background string `json:"background,omitempty"`
}

// AddonStream is one entry of a stream response's "streams" array.
type AddonStream struct {
	URL           string         `json:"url"`
	Title         string         `json:"title,omitempty"`
	Description   string         `json:"description,omitempty"`
	BehaviorHints map[string]any `json:"behaviorHints,omitempty"`
}
