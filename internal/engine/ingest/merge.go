package ingest

import (
	"slices"
	"strings"

	"go.trai.ch/relcache/internal/core/domain"
)

// Merge combines two contributions for the same id. Relationships are unioned
// per type. When exactly one side is authoritative its attributes replace the
// other side's; otherwise attributes are unioned key-wise and the greater
// canonical encoding wins a collision. Merge is commutative and associative.
func Merge(a, b domain.CacheEntry) domain.CacheEntry {
	out := domain.NewEntry(a.Type, a.ID)
	out.Authoritative = a.Authoritative || b.Authoritative

	out.Relationships.Union(a.Relationships)
	out.Relationships.Union(b.Relationships)
	if a.Declared != nil || b.Declared != nil {
		out.Declared = domain.Relationships{}
		out.Declared.Union(a.Declared)
		out.Declared.Union(b.Declared)
	}

	switch {
	case a.Authoritative && !b.Authoritative:
		mergeAttributes(out.Attributes, a.Attributes)
		out.Producer = a.Producer
	case b.Authoritative && !a.Authoritative:
		mergeAttributes(out.Attributes, b.Attributes)
		out.Producer = b.Producer
	default:
		mergeAttributes(out.Attributes, a.Attributes)
		mergeAttributes(out.Attributes, b.Attributes)
		out.Producer = max(a.Producer, b.Producer)
	}
	return out
}

func mergeAttributes(dst, src domain.Attributes) {
	for k, v := range src {
		if cur, ok := dst[k]; ok && cur.Compare(v) >= 0 {
			continue
		}
		dst[k] = v.Clone()
	}
}

// Dedupe collapses entries sharing (type, id) with Merge and orders the result
// by type then id.
func Dedupe(entries []domain.CacheEntry) []domain.CacheEntry {
	merged := make(map[string]domain.CacheEntry, len(entries))
	for _, e := range entries {
		k := key(e.Type, e.ID)
		if cur, ok := merged[k]; ok {
			merged[k] = Merge(cur, e)
			continue
		}
		merged[k] = e.Clone()
	}

	out := make([]domain.CacheEntry, 0, len(merged))
	for _, e := range merged {
		out = append(out, e)
	}
	slices.SortFunc(out, func(x, y domain.CacheEntry) int {
		if c := strings.Compare(x.Type, y.Type); c != 0 {
			return c
		}
		return strings.Compare(x.ID, y.ID)
	})
	return out
}
