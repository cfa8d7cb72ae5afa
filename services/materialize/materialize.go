package materialize

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"jfresolve/models"
	"jfresolve/services/identity"
)

const (
	// DefaultSidecarExt replaces the ".strm" extension on sidecar files.
	DefaultSidecarExt = ".jfresolve.json"

	strmExt = ".strm"
	nfoExt  = ".nfo"
)

// Options tunes materializer behavior. The zero value gives sidecars on,
// NFO descriptors off, specials skipped, no overwriting.
type Options struct {
	SidecarExt      string
	DisableSidecars bool
	WriteNFO        bool
	IncludeSpecials bool
	Overwrite       bool
}

// Identity is the pre-computed library identity of the item being written.
type Identity struct {
	ID        identity.ID
	Canonical string
}

// Movie describes one movie to materialize.
type Movie struct {
	Title       string
	Year        int
	StreamURL   string
	Identity    Identity
	ProviderIDs map[string]string
}

// Series describes a series/season/episode tree to materialize.
type Series struct {
	Title       string
	Year        int
	Seasons     []models.SeasonRef
	Identity    Identity
	ProviderIDs map[string]string
}

// FileError records a single failed write inside a best-effort batch.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// ArtifactSet is the outcome of one materialization call. A write failure
// never aborts sibling writes; everything that happened is reported here.
type ArtifactSet struct {
	Root        string
	Created     []string
	Skipped     []string
	Failed      []FileError
	NewEpisodes int
}

// Err summarizes the per-file failures, or nil when everything succeeded or
// was skipped.
func (s *ArtifactSet) Err() error {
	if len(s.Failed) == 0 {
		return nil
	}
	msgs := make([]string, len(s.Failed))
	for i, f := range s.Failed {
		msgs[i] = f.Error()
	}
	return fmt.Errorf("%d write(s) failed: %s", len(s.Failed), strings.Join(msgs, "; "))
}

// Materializer writes pointer files, sidecars and NFO descriptors into a
// library-compatible directory layout. All filesystem access goes through
// the injected afero.Fs so tests can run in memory.
type Materializer struct {
	fs   afero.Fs
	opts Options
	now  func() time.Time
}

func New(fs afero.Fs, opts Options) *Materializer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if opts.SidecarExt == "" {
		opts.SidecarExt = DefaultSidecarExt
	}
	return &Materializer{fs: fs, opts: opts, now: time.Now}
}

// CreateMovie writes the movie's pointer file and sidecar under destDir.
// Existing files are left untouched and reported as skipped unless Overwrite
// is set. Only a failure to create the root folder aborts the call.
func (m *Materializer) CreateMovie(destDir string, movie Movie) (*ArtifactSet, error) {
	folder := FolderName(movie.Title, movie.Year)
	root := filepath.Join(destDir, folder)
	set := &ArtifactSet{Root: root}

	if err := m.fs.MkdirAll(root, 0o755); err != nil {
		return set, fmt.Errorf("create movie folder %s: %w", root, err)
	}

	strmPath := filepath.Join(root, folder+strmExt)
	m.writeFile(set, strmPath, []byte(movie.StreamURL+"\n"))

	if !m.opts.DisableSidecars {
		m.writeSidecar(set, strmPath, sidecar{
			Version:     sidecarVersion,
			Type:        models.KindMovie.String(),
			Title:       movie.Title,
			Year:        nullableYear(movie.Year),
			CreatedAt:   m.now().UTC().Format(time.RFC3339),
			LibraryID:   movie.Identity.ID.String(),
			Canonical:   movie.Identity.Canonical,
			StreamURL:   movie.StreamURL,
			ProviderIDs: movie.ProviderIDs,
		})
	}

	log.Printf("[materialize] movie %q: %d created, %d skipped, %d failed",
		movie.Title, len(set.Created), len(set.Skipped), len(set.Failed))
	return set, nil
}

// writeFile writes data to path unless the file already exists (and
// Overwrite is off). Returns true only when the file was newly written.
func (m *Materializer) writeFile(set *ArtifactSet, path string, data []byte) bool {
	if !m.opts.Overwrite {
		if exists, err := afero.Exists(m.fs, path); err == nil && exists {
			set.Skipped = append(set.Skipped, path)
			return false
		}
	}
	if err := afero.WriteFile(m.fs, path, data, 0o644); err != nil {
		set.Failed = append(set.Failed, FileError{Path: path, Err: err})
		return false
	}
	set.Created = append(set.Created, path)
	return true
}

// sidecarPath swaps the pointer-file extension for the configured sidecar
// suffix.
func (m *Materializer) sidecarPath(strmPath string) string {
	return strings.TrimSuffix(strmPath, strmExt) + m.opts.SidecarExt
}

func nullableYear(year int) *int {
	if year <= 0 {
		return nil
	}
	return &year
}
