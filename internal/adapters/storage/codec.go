// Package storage implements the cache store backends.
package storage

import (
	"encoding/json"
	"slices"

	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/zerr"
)

func encodeEntry(entry domain.CacheEntry) ([]byte, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrEntryMarshalFailed.Error()), "id", entry.ID)
	}
	return data, nil
}

func decodeEntry(data []byte) (domain.CacheEntry, error) {
	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return domain.CacheEntry{}, zerr.Wrap(err, domain.ErrEntryUnmarshalFailed.Error())
	}
	if entry.Attributes == nil {
		entry.Attributes = domain.Attributes{}
	}
	if entry.Relationships == nil {
		entry.Relationships = domain.Relationships{}
	}
	return entry, nil
}

// uniqueSorted returns the distinct ids in ascending order.
func uniqueSorted(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

func filterEntries(entries []domain.CacheEntry, filter domain.RelationshipFilter) []domain.CacheEntry {
	if filter.IsAll() {
		return entries
	}
	for i := range entries {
		entries[i].Relationships = entries[i].Relationships.Filter(filter)
	}
	return entries
}
