package index

import (
	"encoding/json"
	"net/http"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/thunderstore-io/tcli-go/core"
)

// Index provides random-access lookups into the local package catalog
// cache. A single Index is safe for concurrent use: the underlying file
// handle is read with positional reads (ReadAt), so concurrent queriers
// never race on a shared file offset (spec.md §5).
type Index struct {
	home string

	client  *http.Client
	baseURL string

	mu     sync.Mutex
	loaded bool
	file   *os.File
	strict map[string]Entry
	loose  map[string][]string // loose ident -> strict idents
}

// Open returns an Index rooted at <home>/index. Loading the lookup table
// and opening the index file handle is deferred to first use.
func Open(client *http.Client, baseURL, home string) *Index {
	return &Index{home: home, client: client, baseURL: baseURL}
}

func (idx *Index) ensureLoaded() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.loaded {
		return nil
	}

	if _, err := os.Stat(rawFile(idx.home)); os.IsNotExist(err) {
		if err := Sync(idx.client, idx.baseURL, idx.home); err != nil {
			return errors.Wrap(err, "implicit index sync")
		}
	}

	lf, err := os.Open(lookupFile(idx.home))
	if err != nil {
		return errors.Wrap(err, "opening lookup.json")
	}
	defer lf.Close()

	var strict map[string]Entry
	if err := json.NewDecoder(lf).Decode(&strict); err != nil {
		return errors.Wrap(err, "decoding lookup.json")
	}

	loose := make(map[string][]string)
	for strictIdent := range strict {
		ref, err := core.ParsePackageReference(strictIdent)
		if err != nil {
			continue
		}
		loose[ref.LooseIdent()] = append(loose[ref.LooseIdent()], strictIdent)
	}

	f, err := os.Open(rawFile(idx.home))
	if err != nil {
		return errors.Wrap(err, "opening index.json")
	}

	idx.strict = strict
	idx.loose = loose
	idx.file = f
	idx.loaded = true
	return nil
}

// Close releases the index file handle.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.file != nil {
		return idx.file.Close()
	}
	return nil
}

func (idx *Index) readEntry(e Entry) (core.PackageIndexEntry, error) {
	buf := make([]byte, e.End-e.Start)
	if _, err := idx.file.ReadAt(buf, e.Start); err != nil {
		return core.PackageIndexEntry{}, errors.Wrap(err, "reading index entry")
	}
	var entry core.PackageIndexEntry
	if err := json.Unmarshal(buf, &entry); err != nil {
		return core.PackageIndexEntry{}, errors.Wrap(err, "decoding index entry")
	}
	return entry, nil
}

// ErrPackageNotFound is returned by GetPackage when the catalog has no
// entry for the given reference.
var ErrPackageNotFound = errors.New("package not found in index")

// GetPackage returns the catalog entry for the exact (namespace, name,
// version) triple.
func (idx *Index) GetPackage(ref core.PackageReference) (core.PackageIndexEntry, error) {
	if err := idx.ensureLoaded(); err != nil {
		return core.PackageIndexEntry{}, err
	}

	idx.mu.Lock()
	e, ok := idx.strict[ref.StrictIdent()]
	idx.mu.Unlock()
	if !ok {
		return core.PackageIndexEntry{}, errors.Wrapf(ErrPackageNotFound, "%s", ref)
	}
	return idx.readEntry(e)
}

// GetPackages returns every catalog entry sharing the given loose
// (namespace, name) identity, across all versions.
func (idx *Index) GetPackages(loose string) ([]core.PackageIndexEntry, error) {
	if err := idx.ensureLoaded(); err != nil {
		return nil, err
	}

	idx.mu.Lock()
	idents := append([]string(nil), idx.loose[loose]...)
	idx.mu.Unlock()

	entries := make([]core.PackageIndexEntry, 0, len(idents))
	for _, ident := range idents {
		idx.mu.Lock()
		e := idx.strict[ident]
		idx.mu.Unlock()
		entry, err := idx.readEntry(e)
		if err != nil {
			// A corrupt entry is left out of the result and no error is
			// returned for it, so it does not poison the rest of the lookup.
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
