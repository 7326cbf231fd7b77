// Package traversal follows relationships between cached entries with one
// batched store call per relationship type and hop.
package traversal

import (
	"context"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/sets"
)

var tracer = otel.Tracer("go.trai.ch/relcache/internal/engine/traversal")

// Result holds loaded entries keyed by relationship type.
type Result map[string][]domain.CacheEntry

// All flattens the result ordered by type then id.
func (r Result) All() []domain.CacheEntry {
	types := make([]string, 0, len(r))
	for typ := range r {
		types = append(types, typ)
	}
	slices.Sort(types)

	var out []domain.CacheEntry
	for _, typ := range types {
		out = append(out, r[typ]...)
	}
	return out
}

// Hop is one step of a Plan.
type Hop struct {
	// Types are the relationship types followed from the seeds.
	Types []string
	// Filter restricts the relationships of loaded entries. Nil keeps all.
	Filter *domain.RelationshipFilter
}

// Plan is an ordered list of hops.
type Plan []Hop

// Follow builds a plan of single-type hops that keep only the relationships
// the next hop needs.
func Follow(types ...string) Plan {
	plan := make(Plan, len(types))
	for i, typ := range types {
		plan[i] = Hop{Types: []string{typ}}
		if i+1 < len(types) {
			f := domain.IncludeRelationships(types[i+1])
			plan[i].Filter = &f
		}
	}
	return plan
}

// Engine loads related entries from a store.
type Engine struct {
	store ports.CacheStore
}

// New creates an Engine over store.
func New(store ports.CacheStore) *Engine {
	return &Engine{store: store}
}

// RelationshipsOf returns the sorted, deduplicated ids entry links to under relTypes.
func RelationshipsOf(entry domain.CacheEntry, relTypes ...string) []string {
	ids := sets.New[string]()
	for _, relType := range relTypes {
		ids.Insert(entry.Related(relType)...)
	}
	return sets.List(ids)
}

// Load fetches, for every relationship type, the union of targets of all
// entries with a single store call.
func (e *Engine) Load(ctx context.Context, relTypes []string, entries []domain.CacheEntry) (Result, error) {
	return e.load(ctx, relTypes, entries, nil)
}

// LoadFiltered is Load with the relationships of loaded entries restricted by filter.
func (e *Engine) LoadFiltered(
	ctx context.Context, relTypes []string, entries []domain.CacheEntry, filter domain.RelationshipFilter,
) (Result, error) {
	return e.load(ctx, relTypes, entries, &filter)
}

func (e *Engine) load(
	ctx context.Context, relTypes []string, entries []domain.CacheEntry, filter *domain.RelationshipFilter,
) (Result, error) {
	types := sets.List(sets.New(relTypes...))
	loaded := make([][]domain.CacheEntry, len(types))

	g, ctx := errgroup.WithContext(ctx)
	for i, relType := range types {
		ids := sets.New[string]()
		for _, entry := range entries {
			ids.Insert(entry.Related(relType)...)
		}
		if ids.Len() == 0 {
			continue
		}
		g.Go(func() error {
			var err error
			if filter == nil {
				loaded[i], err = e.store.GetAll(ctx, relType, sets.List(ids))
			} else {
				loaded[i], err = e.store.GetAllFiltered(ctx, relType, sets.List(ids), *filter)
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make(Result, len(types))
	for i, relType := range types {
		result[relType] = loaded[i]
	}
	return result, nil
}

// MapByRelationship indexes targets by the ids of sourceType they link back to.
// A target related to several sources appears under each of them.
func MapByRelationship(targets []domain.CacheEntry, sourceType string) map[string][]domain.CacheEntry {
	out := make(map[string][]domain.CacheEntry)
	for _, t := range targets {
		for _, source := range t.Related(sourceType) {
			out[source] = append(out[source], t)
		}
	}
	for _, list := range out {
		slices.SortFunc(list, func(a, b domain.CacheEntry) int { return strings.Compare(a.ID, b.ID) })
	}
	return out
}

// Walk executes plan starting from seeds. Each hop uses every entry loaded by
// the previous hop as its seeds. The returned slice has one Result per hop.
// Missing targets shrink the results; they never fail the walk.
func (e *Engine) Walk(ctx context.Context, seeds []domain.CacheEntry, plan Plan) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "traversal.walk", trace.WithAttributes(
		attribute.Int("relcache.seeds", len(seeds)),
		attribute.Int("relcache.hops", len(plan)),
	))
	defer span.End()

	results := make([]Result, 0, len(plan))
	current := seeds
	for i, hop := range plan {
		result, err := e.hop(ctx, i, hop, current)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		results = append(results, result)
		current = result.All()
	}
	return results, nil
}

func (e *Engine) hop(ctx context.Context, index int, hop Hop, seeds []domain.CacheEntry) (Result, error) {
	ctx, span := tracer.Start(ctx, "traversal.hop", trace.WithAttributes(
		attribute.Int("relcache.hop", index),
		attribute.StringSlice("relcache.types", hop.Types),
		attribute.Int("relcache.seeds", len(seeds)),
	))
	defer span.End()

	result, err := e.load(ctx, hop.Types, seeds, hop.Filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("relcache.loaded", len(result.All())))
	return result, nil
}
