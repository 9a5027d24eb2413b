package index

import (
	"compress/gzip"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thunderstore-io/tcli-go/core"
)

func fakeCatalogServer(t *testing.T, entries []core.PackageIndexEntry) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/package-index", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", "Tue, 01 Jul 2025 00:00:00 GMT")
		if r.Method == http.MethodHead {
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		for _, e := range entries {
			fmt.Fprintf(gz, `{"namespace":%q,"name":%q,"version_number":%q,"dependencies":[]}`+"\n",
				e.Namespace, e.Name, e.Version.String())
		}
	})
	return httptest.NewServer(mux)
}

func TestSyncAndRoundTrip(t *testing.T) {
	entries := []core.PackageIndexEntry{
		{Namespace: "bbepis", Name: "BepInExPack", Version: core.NewVersion(5, 4, 2113)},
		{Namespace: "RiskofThunder", Name: "BepInEx_GUI", Version: core.NewVersion(3, 0, 1)},
		{Namespace: "RiskofThunder", Name: "BepInEx_GUI", Version: core.NewVersion(2, 0, 0)},
	}
	srv := fakeCatalogServer(t, entries)
	defer srv.Close()

	home := t.TempDir()
	require.NoError(t, Sync(srv.Client(), srv.URL, home))

	idx := Open(srv.Client(), srv.URL, home)
	defer idx.Close()

	got, err := idx.GetPackage(entries[0].Reference())
	require.NoError(t, err)
	require.Equal(t, entries[0].Reference(), got.Reference())

	_, err = idx.GetPackage(core.PackageReference{Namespace: "nope", Name: "nope", Version: core.NewVersion(1, 0, 0)})
	require.ErrorIs(t, err, ErrPackageNotFound)

	loose, err := idx.GetPackages("RiskofThunder-BepInEx_GUI")
	require.NoError(t, err)
	require.Len(t, loose, 2)
}

func TestRequiresUpdateMissingIndex(t *testing.T) {
	srv := fakeCatalogServer(t, nil)
	defer srv.Close()

	home := t.TempDir()
	need, err := RequiresUpdate(srv.Client(), srv.URL, home)
	require.NoError(t, err)
	require.True(t, need)
}
