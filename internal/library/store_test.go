package library

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"jfresolve/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testItem(id string) models.LibraryItem {
	return models.LibraryItem{
		ID:   id,
		Kind: models.KindMovie,
		Name: "Foo",
		Path: "/library/Foo (2020)/Foo (2020).strm",
		ProviderIDs: map[string]string{
			models.ProviderTMDB: "42",
			models.ProviderIMDB: "tt0042",
		},
	}
}

func TestCreateAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testItem("abc123")))

	got, err := store.Get(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, "Foo", got.Name)
	require.Equal(t, models.KindMovie, got.Kind)
	require.Equal(t, "tt0042", got.ProviderIDs[models.ProviderIMDB])
	require.False(t, got.Virtual)
	require.False(t, got.CreatedAt.IsZero())
}

func TestGetMissing(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFindByProviderIDs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, testItem("abc123")))

	// Any one matching pair is enough.
	got, err := store.FindByProviderIDs(ctx, map[string]string{models.ProviderIMDB: "tt0042"})
	require.NoError(t, err)
	require.Equal(t, "abc123", got.ID)

	got, err = store.FindByProviderIDs(ctx, map[string]string{
		"anidb":             "999",
		models.ProviderTMDB: "42",
	})
	require.NoError(t, err)
	require.Equal(t, "abc123", got.ID)

	_, err = store.FindByProviderIDs(ctx, map[string]string{models.ProviderTMDB: "77"})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.FindByProviderIDs(ctx, map[string]string{models.ProviderTMDB: ""})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCascadesProviderIDs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, testItem("abc123")))
	require.NoError(t, store.Delete(ctx, "abc123"))

	_, err := store.FindByProviderIDs(ctx, map[string]string{models.ProviderTMDB: "42"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRescanner(t *testing.T) {
	var gotPath, gotToken, gotJobID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/Library/Media/Updated", r.URL.Path)
		gotToken = r.Header.Get("X-Emby-Token")
		gotJobID = r.Header.Get("X-Request-Id")
		var payload struct {
			Updates []struct {
				Path       string `json:"Path"`
				UpdateType string `json:"UpdateType"`
			} `json:"Updates"`
		}
		require.NoError(t, readJSON(r, &payload))
		require.Len(t, payload.Updates, 1)
		gotPath = payload.Updates[0].Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	r := NewRescanner(srv.URL, "secret", srv.Client())
	require.NoError(t, r.Rescan(context.Background(), "/library/Foo (2020)"))
	require.Equal(t, "/library/Foo (2020)", gotPath)
	require.Equal(t, "secret", gotToken)
	require.NotEmpty(t, gotJobID, "rescan request should carry its correlation id")
}

func TestRescannerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusUnauthorized)
	}))
	defer srv.Close()

	r := NewRescanner(srv.URL, "", srv.Client())
	err := r.Rescan(context.Background(), "/library/Foo (2020)")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotFound))
}

func TestRescannerNoop(t *testing.T) {
	var r *Rescanner
	require.NoError(t, r.Rescan(context.Background(), "/anywhere"))
}

func readJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}
