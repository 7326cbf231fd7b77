package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports"
)

// partition holds the entries of one type.
type partition struct {
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry
}

// MemoryStore is an in-process CacheStore.
// Entries are cloned on the way in and out so callers never share state with the store.
type MemoryStore struct {
	partitions *xsync.MapOf[string, *partition]
}

var _ ports.CacheStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{partitions: xsync.NewMapOf[string, *partition]()}
}

func (s *MemoryStore) partition(typ string) *partition {
	p, _ := s.partitions.LoadOrCompute(typ, func() *partition {
		return &partition{entries: make(map[string]domain.CacheEntry)}
	})
	return p
}

// Put upserts a single entry.
func (s *MemoryStore) Put(ctx context.Context, entry domain.CacheEntry) error {
	return s.PutAll(ctx, entry.Type, []domain.CacheEntry{entry})
}

// PutAll upserts entries of one type.
func (s *MemoryStore) PutAll(ctx context.Context, typ string, entries []domain.CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	p := s.partition(typ)
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range entries {
		p.entries[e.ID] = e.Clone()
	}
	return nil
}

// Get retrieves one entry, or nil when absent.
func (s *MemoryStore) Get(ctx context.Context, typ, id string) (*domain.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, ok := s.partitions.Load(typ)
	if !ok {
		return nil, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[id]
	if !ok {
		return nil, nil
	}
	c := e.Clone()
	return &c, nil
}

// GetAll retrieves the entries that exist among ids.
func (s *MemoryStore) GetAll(ctx context.Context, typ string, ids []string) ([]domain.CacheEntry, error) {
	return s.GetAllFiltered(ctx, typ, ids, domain.AllRelationships())
}

// GetAllFiltered retrieves the entries that exist among ids with filtered relationships.
func (s *MemoryStore) GetAllFiltered(
	ctx context.Context, typ string, ids []string, filter domain.RelationshipFilter,
) ([]domain.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, ok := s.partitions.Load(typ)
	if !ok || len(ids) == 0 {
		return []domain.CacheEntry{}, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.CacheEntry, 0, len(ids))
	for _, id := range uniqueSorted(ids) {
		if e, ok := p.entries[id]; ok {
			c := e.Clone()
			c.Relationships = c.Relationships.Filter(filter)
			out = append(out, c)
		}
	}
	return out, nil
}

// GetAllPattern returns the sorted ids of typ matching pattern.
func (s *MemoryStore) GetAllPattern(ctx context.Context, typ string, pattern domain.Pattern) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, ok := s.partitions.Load(typ)
	if !ok {
		return []string{}, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0)
	for id := range p.entries {
		if pattern.Match(id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Evict removes ids of typ.
func (s *MemoryStore) Evict(ctx context.Context, typ string, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, ok := s.partitions.Load(typ)
	if !ok {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		delete(p.entries, id)
	}
	return nil
}

// Types returns the sorted types that hold at least one entry.
func (s *MemoryStore) Types(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	types := make([]string, 0, s.partitions.Size())
	s.partitions.Range(func(typ string, p *partition) bool {
		p.mu.RLock()
		n := len(p.entries)
		p.mu.RUnlock()
		if n > 0 {
			types = append(types, typ)
		}
		return true
	})
	slices.Sort(types)
	return types, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
