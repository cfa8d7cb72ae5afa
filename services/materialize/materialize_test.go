package materialize

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"jfresolve/models"
	"jfresolve/services/identity"
)

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"Foo":                  "Foo",
		"Foo: Bar":             "Foo Bar",
		"What? When* <Why>":    "What When Why",
		"a/b\\c|d\"e":          "a b c d e",
		"  spaced   out  ":     "spaced out",
		"":                     "Unknown",
		"   ":                  "Unknown",
		"???":                  "Unknown",
		"Pokémon":              "Pokémon",
	}
	for input, want := range tests {
		if got := SanitizeName(input); got != want {
			t.Fatalf("SanitizeName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSanitizeNameIdempotent(t *testing.T) {
	for _, input := range []string{"Foo: Bar?", "a/b", "  x  y  ", ""} {
		once := SanitizeName(input)
		if twice := SanitizeName(once); twice != once {
			t.Fatalf("sanitize not idempotent: %q -> %q -> %q", input, once, twice)
		}
	}
}

func TestFolderName(t *testing.T) {
	if got := FolderName("Foo", 2020); got != "Foo (2020)" {
		t.Fatalf("unexpected folder name %q", got)
	}
	if got := FolderName("Foo", 0); got != "Foo (Unknown)" {
		t.Fatalf("unexpected folder name %q", got)
	}
}

func movieIdentity() Identity {
	return Identity{
		ID:        identity.Identify(models.KindMovie, "42"),
		Canonical: identity.Canonical(models.KindMovie, "42"),
	}
}

func TestCreateMovie(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := New(fs, Options{})

	set, err := m.CreateMovie("/library", Movie{
		Title:       "Foo",
		Year:        2020,
		StreamURL:   "https://resolver.local/stream/movie/42",
		Identity:    movieIdentity(),
		ProviderIDs: map[string]string{models.ProviderTMDB: "42", models.ProviderIMDB: "tt0042"},
	})
	require.NoError(t, err)
	require.Empty(t, set.Failed)

	strmPath := "/library/Foo (2020)/Foo (2020).strm"
	data, err := afero.ReadFile(fs, strmPath)
	require.NoError(t, err)
	require.Equal(t, "https://resolver.local/stream/movie/42\n", string(data))

	scData, err := afero.ReadFile(fs, "/library/Foo (2020)/Foo (2020).jfresolve.json")
	require.NoError(t, err)
	var sc map[string]any
	require.NoError(t, json.Unmarshal(scData, &sc))
	require.Equal(t, "Movie", sc["type"])
	require.Equal(t, "Foo", sc["title"])
	require.Equal(t, float64(2020), sc["year"])
	require.Equal(t, "jfresolve://movie/42", sc["canonical"])
	require.Equal(t, identity.Identify(models.KindMovie, "42").String(), sc["libraryId"])
	require.NotEmpty(t, sc["createdAt"])
	require.Len(t, set.Created, 2)
}

func TestCreateMovieIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := New(fs, Options{})
	movie := Movie{Title: "Foo", Year: 2020, StreamURL: "https://r/1", Identity: movieIdentity()}

	first, err := m.CreateMovie("/library", movie)
	require.NoError(t, err)
	require.Len(t, first.Created, 2)

	second, err := m.CreateMovie("/library", movie)
	require.NoError(t, err)
	require.Empty(t, second.Created)
	require.Len(t, second.Skipped, 2)
}

func TestCreateMovieOverwrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	strmPath := "/library/Foo (2020)/Foo (2020).strm"
	require.NoError(t, afero.WriteFile(fs, strmPath, []byte("old\n"), 0o644))

	m := New(fs, Options{Overwrite: true, DisableSidecars: true})
	set, err := m.CreateMovie("/library", Movie{Title: "Foo", Year: 2020, StreamURL: "https://r/new", Identity: movieIdentity()})
	require.NoError(t, err)
	require.Len(t, set.Created, 1)

	data, err := afero.ReadFile(fs, strmPath)
	require.NoError(t, err)
	require.Equal(t, "https://r/new\n", string(data))
}

func testSeries(seasons ...models.SeasonRef) Series {
	return Series{
		Title:   "Foo",
		Year:    2020,
		Seasons: seasons,
		Identity: Identity{
			ID:        identity.Identify(models.KindSeries, "7"),
			Canonical: identity.Canonical(models.KindSeries, "7"),
		},
		ProviderIDs: map[string]string{models.ProviderTMDB: "7"},
	}
}

func episodes(season int, count int) models.SeasonRef {
	ref := models.SeasonRef{Number: season}
	for i := 1; i <= count; i++ {
		ref.Episodes = append(ref.Episodes, models.EpisodeRef{
			Number:    i,
			Title:     fmt.Sprintf("Part %d", i),
			StreamURL: fmt.Sprintf("https://r/series/7/%d/%d", season, i),
		})
	}
	return ref
}

func TestCreateSeriesLayout(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := New(fs, Options{WriteNFO: true})

	set, err := m.CreateSeries("/library", testSeries(episodes(1, 2), episodes(2, 1)))
	require.NoError(t, err)
	require.Empty(t, set.Failed)
	require.Equal(t, 3, set.NewEpisodes)
	require.Equal(t, "/library/Foo (2020)", set.Root)

	for _, path := range []string{
		"/library/Foo (2020)/Foo (2020).jfresolve.json",
		"/library/Foo (2020)/Season 01/Foo S01E01 Part 1.strm",
		"/library/Foo (2020)/Season 01/Foo S01E01 Part 1.jfresolve.json",
		"/library/Foo (2020)/Season 01/Foo S01E01 Part 1.nfo",
		"/library/Foo (2020)/Season 01/Foo S01E02 Part 2.strm",
		"/library/Foo (2020)/Season 02/Foo S02E01 Part 1.strm",
	} {
		exists, err := afero.Exists(fs, path)
		require.NoError(t, err)
		require.True(t, exists, "missing %s", path)
	}

	// Root sidecar has no stream URL.
	scData, err := afero.ReadFile(fs, "/library/Foo (2020)/Foo (2020).jfresolve.json")
	require.NoError(t, err)
	var sc map[string]any
	require.NoError(t, json.Unmarshal(scData, &sc))
	require.Equal(t, "Series", sc["type"])
	_, hasStream := sc["streamUrl"]
	require.False(t, hasStream)
}

func TestCreateSeriesSkipsSpecials(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := New(fs, Options{DisableSidecars: true})

	set, err := m.CreateSeries("/library", testSeries(episodes(0, 2), episodes(1, 1)))
	require.NoError(t, err)
	require.Equal(t, 1, set.NewEpisodes)

	exists, _ := afero.DirExists(fs, "/library/Foo (2020)/Season 00")
	require.False(t, exists)

	withSpecials := New(fs, Options{DisableSidecars: true, IncludeSpecials: true})
	set, err = withSpecials.CreateSeries("/library", testSeries(episodes(0, 2), episodes(1, 1)))
	require.NoError(t, err)
	require.Equal(t, 2, set.NewEpisodes)
}

func TestCreateSeriesUpdateMode(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := New(fs, Options{DisableSidecars: true})

	set, err := m.CreateSeries("/library", testSeries(episodes(1, 3)))
	require.NoError(t, err)
	require.Equal(t, 3, set.NewEpisodes)

	// Nothing upstream changed: no new files, no rescan needed.
	set, err = m.CreateSeries("/library", testSeries(episodes(1, 3)))
	require.NoError(t, err)
	require.Equal(t, 0, set.NewEpisodes)

	// One new episode appeared upstream.
	set, err = m.CreateSeries("/library", testSeries(episodes(1, 4)))
	require.NoError(t, err)
	require.Equal(t, 1, set.NewEpisodes)
	require.Len(t, set.Created, 1)
	require.True(t, strings.HasSuffix(set.Created[0], "Foo S01E04 Part 4.strm"))
}

func TestEpisodeNFOEscaped(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := New(fs, Options{DisableSidecars: true, WriteNFO: true})

	series := testSeries(models.SeasonRef{Number: 1, Episodes: []models.EpisodeRef{
		{Number: 1, Title: "Cats & <Dogs>", StreamURL: "https://r/1"},
	}})
	_, err := m.CreateSeries("/library", series)
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/library/Foo (2020)/Season 01/Foo S01E01 Cats & Dogs.nfo")
	require.NoError(t, err)
	content := string(data)
	require.Contains(t, content, "<episodedetails>")
	require.Contains(t, content, "Cats &amp; &lt;Dogs&gt;")
	require.Contains(t, content, "<season>1</season>")
	require.Contains(t, content, "<episode>1</episode>")
	require.Contains(t, content, "<showtitle>Foo</showtitle>")
}

// failingFs injects a write error for any path containing its marker, while
// everything else behaves normally.
type failingFs struct {
	afero.Fs
	marker string
}

func (f *failingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if strings.Contains(name, f.marker) {
		return nil, fmt.Errorf("disk full")
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func TestCreateSeriesBestEffort(t *testing.T) {
	mem := afero.NewMemMapFs()
	fs := &failingFs{Fs: mem, marker: "S01E02"}
	m := New(fs, Options{DisableSidecars: true})

	set, err := m.CreateSeries("/library", testSeries(episodes(1, 3)))
	require.NoError(t, err)

	// The failed episode is reported, its siblings still land on disk.
	require.Len(t, set.Failed, 1)
	require.Contains(t, set.Failed[0].Path, "S01E02")
	require.Error(t, set.Err())
	require.Equal(t, 2, set.NewEpisodes)

	exists, _ := afero.Exists(mem, filepath.Join("/library/Foo (2020)/Season 01", "Foo S01E01 Part 1.strm"))
	require.True(t, exists)
	exists, _ = afero.Exists(mem, filepath.Join("/library/Foo (2020)/Season 01", "Foo S01E03 Part 3.strm"))
	require.True(t, exists)
}
