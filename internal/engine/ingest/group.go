package ingest

import (
	"go.trai.ch/relcache/internal/core/domain"
)

// Group adds the grouping entries a batch implies: every cluster an entry
// links to becomes a placeholder linked to that entry's applications, so the
// application reaches its clusters once the batch is inverted.
func Group(entries []domain.CacheEntry) []domain.CacheEntry {
	out := append([]domain.CacheEntry(nil), entries...)
	seen := make(map[string]int)
	for _, e := range entries {
		apps := e.Related(domain.TypeApplications)
		if len(apps) == 0 {
			continue
		}
		for _, clusterID := range e.Related(domain.TypeClusters) {
			i, ok := seen[clusterID]
			if !ok {
				placeholder, valid := newPlaceholder(domain.TypeClusters, clusterID)
				if !valid {
					continue
				}
				i = len(out)
				seen[clusterID] = i
				out = append(out, placeholder)
			}
			out[i].Relationships.Add(domain.TypeApplications, apps...)
		}
	}
	return out
}
