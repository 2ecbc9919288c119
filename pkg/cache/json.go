package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/matzehuels/peerguard/pkg/httputil"
)

const jsonDocVersion = 1

type jsonDoc struct {
	Version int               `json:"version"`
	Entries map[string]*Entry `json:"entries"`
}

// JSONBackend keeps every entry in a single JSON document.
//
// Each write reads the whole document, modifies it and replaces the file via
// a temporary file and rename, all under one mutex. Readers in other
// processes therefore see either the previous or the next document.
type JSONBackend struct {
	mu   sync.Mutex
	path string
}

// OpenJSON prepares a JSON document backend at path. It fails if the
// directory is not writable or an existing document cannot be decoded.
func OpenJSON(path string) (*JSONBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	b := &JSONBackend{path: path}
	if _, err := b.load(); err != nil {
		return nil, err
	}
	probe, err := os.CreateTemp(filepath.Dir(path), ".probe-*")
	if err != nil {
		return nil, err
	}
	probe.Close()
	os.Remove(probe.Name())
	return b, nil
}

func (b *JSONBackend) Kind() BackendKind { return BackendJSON }

// Path returns the document file.
func (b *JSONBackend) Path() string { return b.path }

func jsonKey(name, target string) string { return target + ":" + name }

func (b *JSONBackend) load() (*jsonDoc, error) {
	doc := &jsonDoc{Version: jsonDocVersion, Entries: map[string]*Entry{}}
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, b.path, err)
	}
	if doc.Entries == nil {
		doc.Entries = map[string]*Entry{}
	}
	return doc, nil
}

func (b *JSONBackend) save(doc *jsonDoc) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return httputil.WriteFileAtomic(b.path, data, 0o644)
}

func (b *JSONBackend) Get(_ context.Context, name, target string) (*Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	doc, err := b.load()
	if err != nil {
		return nil, err
	}
	return doc.Entries[jsonKey(name, target)], nil
}

func (b *JSONBackend) Put(_ context.Context, e *Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	doc, err := b.load()
	if err != nil {
		return err
	}
	doc.Entries[jsonKey(e.PackageName, e.Target)] = e
	return b.save(doc)
}

func (b *JSONBackend) Len(context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	doc, err := b.load()
	if err != nil {
		return 0, err
	}
	return len(doc.Entries), nil
}

func (b *JSONBackend) Clear(context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	doc, err := b.load()
	if err != nil {
		return 0, err
	}
	n := len(doc.Entries)
	return n, b.save(&jsonDoc{Version: jsonDocVersion, Entries: map[string]*Entry{}})
}

func (b *JSONBackend) Close() error { return nil }

var _ Backend = (*JSONBackend)(nil)
