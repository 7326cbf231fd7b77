package ports

import (
	"context"

	"go.trai.ch/relcache/internal/core/domain"
)

// CacheStore is the keyed entry store partitioned by entry type.
// Absence is never an error: reads omit ids they cannot find.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type CacheStore interface {
	// Put upserts a single entry.
	Put(ctx context.Context, entry domain.CacheEntry) error

	// PutAll upserts entries of one type.
	PutAll(ctx context.Context, typ string, entries []domain.CacheEntry) error

	// Get retrieves one entry.
	// Returns nil, nil if not found.
	Get(ctx context.Context, typ, id string) (*domain.CacheEntry, error)

	// GetAll retrieves the entries that exist among ids, ordered by id.
	GetAll(ctx context.Context, typ string, ids []string) ([]domain.CacheEntry, error)

	// GetAllFiltered is GetAll with relationships restricted by filter.
	GetAllFiltered(
		ctx context.Context, typ string, ids []string, filter domain.RelationshipFilter,
	) ([]domain.CacheEntry, error)

	// GetAllPattern returns the sorted ids of typ matching pattern.
	GetAllPattern(ctx context.Context, typ string, pattern domain.Pattern) ([]string, error)

	// Evict removes ids of typ. Missing ids are ignored.
	Evict(ctx context.Context, typ string, ids []string) error

	// Types returns the sorted entry types present in the store.
	Types(ctx context.Context) ([]string, error)

	// Close releases the backend.
	Close() error
}

// StoreOpener opens the cache store selected by configuration.
type StoreOpener interface {
	// Open connects to the configured backend.
	Open(ctx context.Context, cfg domain.StoreConfig) (CacheStore, error)
}
