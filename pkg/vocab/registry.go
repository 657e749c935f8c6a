package vocab

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"github.com/mugpeng/droma-registry/pkg/harmonize"
)

// Registry holds every vocabulary found under a directory. It implements
// harmonize.CanonicalSource and can be reloaded while serving.
type Registry struct {
	mu     sync.RWMutex
	vocabs map[string]*Vocabulary
	dir    string
}

// NewRegistry creates an empty registry for dir.
func NewRegistry(dir string) *Registry {
	return &Registry{
		vocabs: make(map[string]*Vocabulary),
		dir:    dir,
	}
}

// Load scans the directory and loads every subdirectory holding a manifest.
// The previous set stays in place if any vocabulary fails to load.
func (r *Registry) Load() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("read vocab dir %s: %w", r.dir, err)
	}

	vocabs := make(map[string]*Vocabulary)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(r.dir, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, "manifest.yaml")); err != nil {
			continue
		}
		v, err := LoadVocabulary(dir)
		if err != nil {
			return fmt.Errorf("load vocabulary %s: %w", entry.Name(), err)
		}
		if _, dup := vocabs[v.Manifest.ID]; dup {
			return fmt.Errorf("duplicate vocabulary id %q in %s", v.Manifest.ID, entry.Name())
		}
		vocabs[v.Manifest.ID] = v
	}

	r.mu.Lock()
	r.vocabs = vocabs
	r.mu.Unlock()
	return nil
}

// Reload reloads every vocabulary from disk.
func (r *Registry) Reload() error {
	return r.Load()
}

// Add registers an already loaded vocabulary, replacing one with the same ID.
func (r *Registry) Add(v *Vocabulary) {
	r.mu.Lock()
	r.vocabs[v.Manifest.ID] = v
	r.mu.Unlock()
}

// FetchCanonicalEntries returns a copy of the entries of every vocabulary of
// kind, in vocabulary ID order, filtered by project when one is given.
func (r *Registry) FetchCanonicalEntries(ctx context.Context, kind harmonize.Kind, project string) ([]harmonize.CanonicalEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []harmonize.CanonicalEntry
	for _, id := range r.sortedIDs() {
		v := r.vocabs[id]
		if v.Manifest.Kind != kind {
			continue
		}
		for _, e := range v.Entries {
			if project != "" && e.Project != project {
				continue
			}
			e.Aliases = slices.Clone(e.Aliases)
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *Registry) sortedIDs() []string {
	ids := make([]string, 0, len(r.vocabs))
	for id := range r.vocabs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Info is the public metadata for a loaded vocabulary.
type Info struct {
	ID        string         `json:"id"`
	Kind      harmonize.Kind `json:"kind"`
	Version   string         `json:"version"`
	Source    string         `json:"source"`
	SourceURL string         `json:"source_url,omitempty"`
	License   string         `json:"license,omitempty"`
	Entries   int            `json:"entries"`
}

// List returns metadata for all loaded vocabularies, sorted by ID.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.vocabs))
	for _, id := range r.sortedIDs() {
		m := r.vocabs[id].Manifest
		infos = append(infos, Info{
			ID:        m.ID,
			Kind:      m.Kind,
			Version:   m.Version,
			Source:    m.Source,
			SourceURL: m.SourceURL,
			License:   m.License,
			Entries:   len(r.vocabs[id].Entries),
		})
	}
	return infos
}

// Count returns the number of loaded vocabularies.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.vocabs)
}

// TotalEntries returns the number of entries across all vocabularies.
func (r *Registry) TotalEntries() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, v := range r.vocabs {
		total += len(v.Entries)
	}
	return total
}
