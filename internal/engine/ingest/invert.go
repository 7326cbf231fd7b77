// Package ingest assembles built entries into committed cache state:
// inversion, deduplication, stratification and commit.
package ingest

import (
	"go.trai.ch/relcache/internal/core/domain"
)

// Invert adds the inverse of every edge in entries. For an edge (A, T, B) it
// links A under B.relationships[A.Type], synthesizing a non-authoritative
// placeholder for B when B is not in the batch. Inverting an already inverted
// batch changes nothing.
func Invert(entries []domain.CacheEntry) []domain.CacheEntry {
	out := make([]domain.CacheEntry, 0, len(entries))
	index := make(map[string]int, len(entries))
	for _, e := range entries {
		c := e.Clone()
		if i, ok := index[key(c.Type, c.ID)]; ok {
			out[i] = Merge(out[i], c)
			continue
		}
		index[key(c.Type, c.ID)] = len(out)
		out = append(out, c)
	}

	// Only the original edges are walked; placeholders appended below carry
	// inverse edges exclusively.
	n := len(out)
	for i := range n {
		source := out[i]
		for _, relType := range source.Relationships.Types() {
			for _, target := range source.Relationships.Get(relType) {
				k := key(relType, target)
				j, ok := index[k]
				if !ok {
					placeholder, valid := newPlaceholder(relType, target)
					if !valid {
						continue
					}
					j = len(out)
					index[k] = j
					out = append(out, placeholder)
				}
				out[j].Relationships.Add(source.Type, source.ID)
			}
		}
	}
	return out
}

func newPlaceholder(typ, id string) (domain.CacheEntry, bool) {
	k, err := domain.ParseKey(id)
	if err != nil || k.Type != typ {
		return domain.CacheEntry{}, false
	}
	e := domain.NewEntry(typ, id)
	e.Attributes = k.Attributes()
	return e, true
}

func key(typ, id string) string {
	return typ + "\x00" + id
}
