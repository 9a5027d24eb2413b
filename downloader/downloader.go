// Package downloader fetches and caches package archives by reference,
// per spec.md §4.4 step 5 and §6 (package archive endpoint).
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/thunderstore-io/tcli-go/core"
)

const cacheDirName = "cache"

// Downloader fetches package archives over HTTP and caches them on disk
// under <home>/cache, keyed by the package's strict identity, grounded on
// golang-dep's source_manager.go identity-keyed cache pattern.
type Downloader struct {
	Client *http.Client
	Home   string
	// URLTemplate is the archive download URL with %s placeholders for
	// namespace, name, version, matching spec.md §6's package archive
	// endpoint shape.
	URLTemplate string
}

// New returns a Downloader rooted at <home>/cache.
func New(client *http.Client, home string) *Downloader {
	return &Downloader{
		Client:      client,
		Home:        home,
		URLTemplate: "https://thunderstore.io/package/download/%s/%s/%s/",
	}
}

func (d *Downloader) cachePath(ref core.PackageReference) string {
	return filepath.Join(d.Home, cacheDirName, ref.StrictIdent()+".zip")
}

// Fetch returns the path to the cached zip archive for ref, downloading it
// first if it is not already cached. Network errors are retried with
// exponential backoff, since spec.md §7 treats them as transient.
func (d *Downloader) Fetch(ctx context.Context, ref core.PackageReference) (string, error) {
	path := d.cachePath(ref)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !os.IsNotExist(err) {
		return "", errors.Wrapf(err, "statting cache entry %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrapf(err, "creating cache directory %s", filepath.Dir(path))
	}

	tmp := path + ".tmp"
	url := fmt.Sprintf(d.URLTemplate, ref.Namespace, ref.Name, ref.Version.String())

	op := func() error {
		return d.downloadOnce(ctx, url, tmp)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		os.Remove(tmp)
		return "", errors.Wrapf(err, "downloading package archive %s", ref)
	}

	if err := os.Rename(tmp, path); err != nil {
		return "", errors.Wrapf(err, "finalizing cache entry %s", path)
	}
	return path, nil
}

func (d *Downloader) downloadOnce(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(errors.Wrap(err, "building download request"))
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "requesting package archive")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return backoff.Permanent(errors.Errorf("package archive not found: %s", url))
	}
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Errorf("package archive download returned %s: %s", resp.Status, string(body))
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return backoff.Permanent(errors.Wrapf(err, "creating %s", dest))
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return errors.Wrap(err, "writing package archive")
	}
	return nil
}
