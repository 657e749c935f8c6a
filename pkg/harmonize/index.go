package harmonize

import (
	"cmp"
	"slices"
	"unicode/utf8"
)

type indexedEntry struct {
	entry   CanonicalEntry
	name    string   // cleaned canonical name
	names   []string // cleaned canonical name and aliases, non-empty and unique
	nameLen int
}

type aliasHit struct {
	pos   int
	alias string
}

// index is a read-only view of one canonical snapshot, built per call.
// Entries are ordered by canonical name, then ID, which fixes every tie.
type index struct {
	entries []indexedEntry
	byName  map[string][]int
	byAlias map[string][]aliasHit
}

func buildIndex(entries []CanonicalEntry, n *Normalizer) *index {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b CanonicalEntry) int {
		return cmp.Or(cmp.Compare(a.CanonicalName, b.CanonicalName), cmp.Compare(a.ID, b.ID))
	})

	ix := &index{
		entries: make([]indexedEntry, 0, len(sorted)),
		byName:  make(map[string][]int),
		byAlias: make(map[string][]aliasHit),
	}
	for pos, e := range sorted {
		name := n.Clean(e.CanonicalName)
		ie := indexedEntry{entry: e, name: name, nameLen: utf8.RuneCountInString(name)}
		seen := make(map[string]bool)
		if name != "" {
			ie.names = append(ie.names, name)
			seen[name] = true
			ix.byName[name] = append(ix.byName[name], pos)
		}
		for _, alias := range e.Aliases {
			key := n.Clean(alias)
			if key == "" {
				continue
			}
			ix.byAlias[key] = append(ix.byAlias[key], aliasHit{pos: pos, alias: alias})
			if !seen[key] {
				ie.names = append(ie.names, key)
				seen[key] = true
			}
		}
		ix.entries = append(ix.entries, ie)
	}
	return ix
}

func (ix *index) empty() bool { return len(ix.entries) == 0 }
