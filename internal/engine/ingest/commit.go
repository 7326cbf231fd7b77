package ingest

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports"
	"go.trai.ch/zerr"
	"k8s.io/apimachinery/pkg/util/sets"
)

// maxLockRetries bounds how often Evict re-reads entries whose relationship
// types changed while locks were being acquired.
const maxLockRetries = 3

// Committer writes stratified entries with read-merge-write semantics and
// keeps inverse edges consistent when forward edges disappear.
// Writers touching overlapping types are serialized by per-type locks.
type Committer struct {
	store ports.CacheStore
	locks *xsync.MapOf[string, *sync.Mutex]
}

// NewCommitter creates a Committer over store.
func NewCommitter(store ports.CacheStore) *Committer {
	return &Committer{
		store: store,
		locks: xsync.NewMapOf[string, *sync.Mutex](),
	}
}

// lock acquires the locks of types in sorted order and returns the release func.
func (c *Committer) lock(types sets.Set[string]) func() {
	ordered := sets.List(types)
	held := make([]*sync.Mutex, 0, len(ordered))
	for _, typ := range ordered {
		mu, _ := c.locks.LoadOrCompute(typ, func() *sync.Mutex { return &sync.Mutex{} })
		mu.Lock()
		held = append(held, mu)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

// backlink names the edge target.relationships[sourceType] -> sourceID.
type backlink struct {
	targetType string
	targetID   string
	sourceType string
	sourceID   string
}

// Commit merges strata into the store and returns the number of entries written.
// Authoritative entries replace their attributes and the edges they declared
// before; edges contributed by other entries are kept. Placeholders are
// merged into whatever is stored.
func (c *Committer) Commit(ctx context.Context, strata Strata) (int, error) {
	locked := sets.New(strata.Types()...)
	unlock := c.lock(locked)
	defer func() { unlock() }()

	var stored map[string]map[string]domain.CacheEntry
	for attempt := 0; ; attempt++ {
		var err error
		stored, err = c.readStored(ctx, strata)
		if err != nil {
			return 0, err
		}
		needed := declaredTypes(stored).Union(locked)
		if locked.IsSuperset(needed) || attempt >= maxLockRetries {
			break
		}
		unlock()
		locked = needed
		unlock = c.lock(locked)
	}

	written := 0
	var unlinks []backlink
	for _, typ := range strata.Types() {
		batch := strata[typ]
		results := make([]domain.CacheEntry, 0, len(batch))
		for _, e := range batch {
			s, exists := stored[typ][e.ID]
			switch {
			case !exists:
				results = append(results, e)
			case e.Authoritative:
				merged, dropped := replace(s, e)
				results = append(results, merged)
				unlinks = append(unlinks, dropped...)
			default:
				results = append(results, Merge(s, e))
			}
		}

		if err := c.store.PutAll(ctx, typ, results); err != nil {
			return written, zerr.With(zerr.Wrap(err, domain.ErrCommitFailed.Error()), "type", typ)
		}
		written += len(results)
	}

	relinks, err := c.applyUnlinks(ctx, unlinks, true)
	if err != nil {
		return written, zerr.Wrap(err, domain.ErrCommitFailed.Error())
	}
	if err := c.applyRelinks(ctx, relinks); err != nil {
		return written, zerr.Wrap(err, domain.ErrCommitFailed.Error())
	}
	return written, nil
}

// readStored loads the stored versions of every entry in strata, keyed by type then id.
func (c *Committer) readStored(ctx context.Context, strata Strata) (map[string]map[string]domain.CacheEntry, error) {
	out := make(map[string]map[string]domain.CacheEntry, len(strata))
	for _, typ := range strata.Types() {
		entries, err := c.store.GetAll(ctx, typ, strata.IDs(typ))
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrCommitFailed.Error()), "type", typ)
		}
		byID := make(map[string]domain.CacheEntry, len(entries))
		for _, e := range entries {
			byID[e.ID] = e
		}
		out[typ] = byID
	}
	return out, nil
}

// declaredTypes are the relationship types stored entries declare. Dropping
// one of those edges touches an entry of that type.
func declaredTypes(stored map[string]map[string]domain.CacheEntry) sets.Set[string] {
	types := sets.New[string]()
	for _, byID := range stored {
		for _, e := range byID {
			types.Insert(e.Declared.Types()...)
		}
	}
	return types
}

// replace applies an authoritative entry over its stored version. Only edges
// the stored version declared itself can be dropped.
func replace(stored, fresh domain.CacheEntry) (domain.CacheEntry, []backlink) {
	out := fresh.Clone()
	var dropped []backlink
	for _, relType := range stored.Relationships.Types() {
		for _, target := range stored.Relationships.Get(relType) {
			switch {
			case fresh.Relationships.Has(relType, target):
			case stored.Declared.Has(relType, target):
				dropped = append(dropped, backlink{
					targetType: relType,
					targetID:   target,
					sourceType: fresh.Type,
					sourceID:   fresh.ID,
				})
			default:
				out.Relationships.Add(relType, target)
			}
		}
	}
	return out, dropped
}

// applyUnlinks removes inverse edges and evicts placeholders left without edges.
// With keepDeclared, an edge the target declares itself stays, and the
// returned backlinks restore its inverse on the source.
func (c *Committer) applyUnlinks(ctx context.Context, unlinks []backlink, keepDeclared bool) ([]backlink, error) {
	var relinks []backlink
	for _, typ := range groupTypes(unlinks) {
		group := byTarget(unlinks, typ)
		ids := make([]string, len(group))
		for i, u := range group {
			ids[i] = u.targetID
		}
		targets, err := c.store.GetAll(ctx, typ, ids)
		if err != nil {
			return nil, zerr.With(err, "type", typ)
		}
		index := make(map[string]int, len(targets))
		for i, t := range targets {
			index[t.ID] = i
		}
		for _, u := range group {
			i, ok := index[u.targetID]
			if !ok {
				continue
			}
			if keepDeclared && targets[i].Declared.Has(u.sourceType, u.sourceID) {
				relinks = append(relinks, backlink{
					targetType: u.sourceType,
					targetID:   u.sourceID,
					sourceType: u.targetType,
					sourceID:   u.targetID,
				})
				continue
			}
			targets[i].Relationships.Remove(u.sourceType, u.sourceID)
		}

		var keep []domain.CacheEntry
		var orphans []string
		for _, t := range targets {
			if !t.Authoritative && len(t.Relationships.Types()) == 0 {
				orphans = append(orphans, t.ID)
				continue
			}
			keep = append(keep, t)
		}
		if err := c.store.PutAll(ctx, typ, keep); err != nil {
			return nil, zerr.With(err, "type", typ)
		}
		if len(orphans) > 0 {
			if err := c.store.Evict(ctx, typ, orphans); err != nil {
				return nil, zerr.With(err, "type", typ)
			}
		}
	}
	return relinks, nil
}

// applyRelinks adds each backlink to its target.
func (c *Committer) applyRelinks(ctx context.Context, relinks []backlink) error {
	for _, typ := range groupTypes(relinks) {
		group := byTarget(relinks, typ)
		ids := make([]string, len(group))
		for i, l := range group {
			ids[i] = l.targetID
		}
		targets, err := c.store.GetAll(ctx, typ, ids)
		if err != nil {
			return zerr.With(err, "type", typ)
		}
		index := make(map[string]int, len(targets))
		for i, t := range targets {
			index[t.ID] = i
		}
		for _, l := range group {
			if i, ok := index[l.targetID]; ok {
				targets[i].Relationships.Add(l.sourceType, l.sourceID)
			}
		}
		if err := c.store.PutAll(ctx, typ, targets); err != nil {
			return zerr.With(err, "type", typ)
		}
	}
	return nil
}

func groupTypes(links []backlink) []string {
	types := sets.New[string]()
	for _, l := range links {
		types.Insert(l.targetType)
	}
	return sets.List(types)
}

func byTarget(links []backlink, typ string) []backlink {
	var out []backlink
	for _, l := range links {
		if l.targetType == typ {
			out = append(out, l)
		}
	}
	return out
}

// Evict removes ids of typ and the inverse edges that point at them.
// It returns the number of entries that existed.
func (c *Committer) Evict(ctx context.Context, typ string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	entries, err := c.store.GetAll(ctx, typ, ids)
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrEvictFailed.Error()), "type", typ)
	}
	locked := lockTypes(typ, entries)
	unlock := c.lock(locked)
	defer func() { unlock() }()

	for attempt := 0; ; attempt++ {
		entries, err = c.store.GetAll(ctx, typ, ids)
		if err != nil {
			return 0, zerr.With(zerr.Wrap(err, domain.ErrEvictFailed.Error()), "type", typ)
		}
		needed := lockTypes(typ, entries)
		if locked.IsSuperset(needed) || attempt >= maxLockRetries {
			break
		}
		unlock()
		locked = needed.Union(locked)
		unlock = c.lock(locked)
	}

	var unlinks []backlink
	for _, e := range entries {
		for _, relType := range e.Relationships.Types() {
			for _, target := range e.Relationships.Get(relType) {
				unlinks = append(unlinks, backlink{
					targetType: relType,
					targetID:   target,
					sourceType: typ,
					sourceID:   e.ID,
				})
			}
		}
	}

	if err := c.store.Evict(ctx, typ, ids); err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrEvictFailed.Error()), "type", typ)
	}
	if _, err := c.applyUnlinks(ctx, unlinks, false); err != nil {
		return len(entries), zerr.Wrap(err, domain.ErrEvictFailed.Error())
	}
	return len(entries), nil
}

func lockTypes(typ string, entries []domain.CacheEntry) sets.Set[string] {
	types := sets.New(typ)
	for _, e := range entries {
		types.Insert(e.Relationships.Types()...)
	}
	return types
}
