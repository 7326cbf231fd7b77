package ingest

import (
	"maps"
	"slices"

	"go.trai.ch/relcache/internal/core/domain"
)

// Strata groups entries by type.
type Strata map[string][]domain.CacheEntry

// Stratify partitions entries by type, preserving their order within each type.
func Stratify(entries []domain.CacheEntry) Strata {
	out := make(Strata)
	for _, e := range entries {
		out[e.Type] = append(out[e.Type], e)
	}
	return out
}

// Types returns the sorted types present.
func (s Strata) Types() []string {
	return slices.Sorted(maps.Keys(s))
}

// Len returns the number of entries across all types.
func (s Strata) Len() int {
	n := 0
	for _, entries := range s {
		n += len(entries)
	}
	return n
}

// IDs returns the ids of typ in stratum order.
func (s Strata) IDs(typ string) []string {
	ids := make([]string, len(s[typ]))
	for i, e := range s[typ] {
		ids[i] = e.ID
	}
	return ids
}
