package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thunderstore-io/tcli-go/core"
)

func TestFetchCachesArchive(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("zip-bytes"))
	}))
	defer srv.Close()

	home := t.TempDir()
	d := New(srv.Client(), home)
	d.URLTemplate = srv.URL + "/%s/%s/%s/"

	ref, _ := core.NewPackageReference("bbepis", "BepInExPack", core.NewVersion(5, 4, 2113))

	path, err := d.Fetch(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "cache", ref.StrictIdent()+".zip"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "zip-bytes", string(b))

	// Second fetch is served from cache, no further HTTP hit.
	_, err = d.Fetch(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}

func TestFetchNotFoundIsPermanent(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	home := t.TempDir()
	d := New(srv.Client(), home)
	d.URLTemplate = srv.URL + "/%s/%s/%s/"

	ref, _ := core.NewPackageReference("bbepis", "Missing", core.NewVersion(1, 0, 0))

	_, err := d.Fetch(context.Background(), ref)
	require.Error(t, err)
	assert.Equal(t, 1, hits)
}
