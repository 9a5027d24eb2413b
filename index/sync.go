// Package index maintains the local, byte-offset-addressed cache of the
// remote package catalog described in spec.md §4.1: a triple of files
// under <home>/index/ — index.json (raw newline-delimited catalog JSON),
// lookup.json (strict reference -> byte range), and header.json (sync
// metadata).
package index

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/thunderstore-io/tcli-go/core"
)

const (
	dirName     = "index"
	rawName     = "index.json"
	lookupName  = "lookup.json"
	headerName  = "header.json"
	catalogPath = "/package-index"
)

// Entry is a byte-offset lookup table entry: the half-open range
// [Start, End) in index.json containing exactly one '\n'-terminated JSON
// line that deserializes to the PackageIndexEntry keyed by this entry.
type Entry struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Header records when the local index was last synchronized from the
// remote catalog.
type Header struct {
	UpdateTime time.Time `json:"update_time"`
}

// Dir returns <home>/index.
func Dir(home string) string {
	return filepath.Join(home, dirName)
}

func rawFile(home string) string    { return filepath.Join(Dir(home), rawName) }
func lookupFile(home string) string { return filepath.Join(Dir(home), lookupName) }
func headerFile(home string) string { return filepath.Join(Dir(home), headerName) }

// catalogMinimal is just enough of PackageIndexEntry's wire shape to
// extract the strict identity for the lookup table without paying for a
// full unmarshal of every line during sync.
type catalogMinimal struct {
	Namespace     string `json:"namespace"`
	Name          string `json:"name"`
	VersionNumber string `json:"version_number"`
}

// Sync fetches the remote catalog and replaces the on-disk index triple.
// The catalog body is a gzip stream of newline-delimited JSON records. The
// new triple is written to temporary files and renamed into place only
// after the full stream has been consumed, so a reader never observes a
// partially-written index: it sees either the complete old triple or the
// complete new one.
func Sync(client *http.Client, baseURL, home string) error {
	if err := os.MkdirAll(Dir(home), 0o755); err != nil {
		return errors.Wrapf(err, "creating index directory %s", Dir(home))
	}

	req, err := http.NewRequest(http.MethodGet, baseURL+catalogPath, nil)
	if err != nil {
		return errors.Wrap(err, "building catalog request")
	}
	// Set Accept-Encoding explicitly: net/http's Transport otherwise
	// auto-negotiates gzip and transparently decompresses the body itself,
	// which would hand us an already-decoded stream here.
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "fetching package catalog")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Errorf("package catalog returned %s: %s", resp.Status, string(body))
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return errors.Wrap(err, "opening gzip catalog stream")
	}
	defer gz.Close()

	rawTmp := rawFile(home) + ".tmp"
	out, err := os.OpenFile(rawTmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "creating %s", rawTmp)
	}
	defer out.Close()

	lookup := make(map[string]Entry)
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var offset int64
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var m catalogMinimal
		if err := json.Unmarshal(line, &m); err != nil {
			return errors.Wrap(err, "decoding catalog line")
		}
		version, err := core.ParseVersion(m.VersionNumber)
		if err != nil {
			return errors.Wrapf(err, "catalog entry %s-%s", m.Namespace, m.Name)
		}
		ref := core.PackageReference{Namespace: m.Namespace, Name: m.Name, Version: version}

		n, err := out.Write(line)
		if err != nil {
			return errors.Wrap(err, "writing index.json")
		}
		if _, err := out.Write([]byte{'\n'}); err != nil {
			return errors.Wrap(err, "writing index.json")
		}

		lookup[ref.StrictIdent()] = Entry{Start: offset, End: offset + int64(n) + 1}
		offset += int64(n) + 1
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "reading catalog stream")
	}
	if err := out.Close(); err != nil {
		return errors.Wrap(err, "closing index.json")
	}

	updateTime, err := remoteUpdateTime(client, baseURL)
	if err != nil {
		return err
	}

	lookupTmp := lookupFile(home) + ".tmp"
	if err := writeJSON(lookupTmp, lookup); err != nil {
		return errors.Wrap(err, "writing lookup.json")
	}
	headerTmp := headerFile(home) + ".tmp"
	if err := writeJSON(headerTmp, Header{UpdateTime: updateTime}); err != nil {
		return errors.Wrap(err, "writing header.json")
	}

	// Rename all three into place last, so a reader that races this sync
	// either sees the old complete triple or the new complete triple.
	if err := os.Rename(rawTmp, rawFile(home)); err != nil {
		return errors.Wrap(err, "finalizing index.json")
	}
	if err := os.Rename(lookupTmp, lookupFile(home)); err != nil {
		return errors.Wrap(err, "finalizing lookup.json")
	}
	if err := os.Rename(headerTmp, headerFile(home)); err != nil {
		return errors.Wrap(err, "finalizing header.json")
	}

	return nil
}

func writeJSON(path string, v interface{}) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// remoteUpdateTime HEADs the catalog endpoint and parses its Last-Modified
// (falling back to Date) header, per spec.md §6.
func remoteUpdateTime(client *http.Client, baseURL string) (time.Time, error) {
	resp, err := client.Head(baseURL + catalogPath)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "fetching catalog timestamp")
	}
	defer resp.Body.Close()

	raw := resp.Header.Get("Last-Modified")
	if raw == "" {
		raw = resp.Header.Get("Date")
	}
	if raw == "" {
		return time.Time{}, errors.New("catalog response has no Last-Modified or Date header")
	}
	t, err := http.ParseTime(raw)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parsing catalog timestamp %q", raw)
	}
	return t, nil
}

// RequiresUpdate reports whether the local index is missing or older than
// the remote catalog.
func RequiresUpdate(client *http.Client, baseURL, home string) (bool, error) {
	f, err := os.Open(headerFile(home))
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, errors.Wrap(err, "reading header.json")
	}
	defer f.Close()

	var h Header
	if err := json.NewDecoder(f).Decode(&h); err != nil {
		return true, nil
	}

	remote, err := remoteUpdateTime(client, baseURL)
	if err != nil {
		return false, err
	}

	return h.UpdateTime.Before(remote), nil
}
