package identity

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"jfresolve/models"
)

// Scheme prefixes every canonical identity string.
const Scheme = "jfresolve"

// ID is the fixed-width library identifier derived from an external
// (kind, id) pair. It is a one-way digest of the canonical string; keep the
// canonical string around if you ever need to recover the pair.
type ID [16]byte

func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether the identifier is the zero value.
func (id ID) IsZero() bool {
	return id == ID{}
}

// Parse decodes the 32-char hex form produced by String.
func Parse(s string) (ID, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return ID{}, fmt.Errorf("parse identifier: %w", err)
	}
	if len(raw) != len(ID{}) {
		return ID{}, fmt.Errorf("parse identifier: want %d bytes, got %d", len(ID{}), len(raw))
	}
	var id ID
	copy(id[:], raw)
	return id, nil
}

// Canonical builds the canonical identity string for an external pair,
// e.g. "jfresolve://movie/42".
func Canonical(kind models.MediaKind, externalID string) string {
	return fmt.Sprintf("%s://%s/%s", Scheme, kind.Slug(), externalID)
}

// Identify derives the stable identifier for an external (kind, id) pair.
// Identical inputs always produce the identical ID; different kinds with the
// same external id never collide on the canonical string. md5 is used as a
// cheap 128-bit digest, not for security.
func Identify(kind models.MediaKind, externalID string) ID {
	return ID(md5.Sum([]byte(Canonical(kind, externalID))))
}

// DeriveArtifact produces an identifier for a generated artifact that has no
// externally assigned identity of its own (episode pointer files). The input
// is the artifact kind, its on-disk path and the stream URL it stores, so
// re-materializing the same file yields the same id.
func DeriveArtifact(kind models.MediaKind, path, streamURL string) ID {
	canonical := fmt.Sprintf("%s://%s/%s#%s", Scheme, kind.Slug(), path, streamURL)
	return ID(md5.Sum([]byte(canonical)))
}

// ParseCanonical decomposes a retained canonical string back into its
// (kind, externalID) pair for diagnostics. It cannot and does not invert the
// hash; only strings produced by Canonical parse successfully.
func ParseCanonical(s string) (models.MediaKind, string, error) {
	rest, ok := strings.CutPrefix(s, Scheme+"://")
	if !ok {
		return 0, "", fmt.Errorf("canonical string %q: missing %s:// prefix", s, Scheme)
	}
	kindPart, idPart, ok := strings.Cut(rest, "/")
	if !ok || idPart == "" {
		return 0, "", fmt.Errorf("canonical string %q: missing external id", s)
	}
	kind, err := models.ParseMediaKind(kindPart)
	if err != nil {
		return 0, "", fmt.Errorf("canonical string %q: %w", s, err)
	}
	return kind, idPart, nil
}
