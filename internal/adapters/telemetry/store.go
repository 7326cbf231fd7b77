package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports"
)

var storeTracer = otel.Tracer("go.trai.ch/relcache/internal/adapters/telemetry")

// InstrumentedStore decorates a cache store with spans and call counters.
type InstrumentedStore struct {
	next    ports.CacheStore
	metrics *Metrics
}

var _ ports.CacheStore = (*InstrumentedStore)(nil)

// InstrumentStore wraps next.
func InstrumentStore(next ports.CacheStore, metrics *Metrics) *InstrumentedStore {
	return &InstrumentedStore{next: next, metrics: metrics}
}

func (s *InstrumentedStore) start(
	ctx context.Context, op, typ string, ids int,
) (context.Context, func(error)) {
	ctx, span := storeTracer.Start(ctx, "store."+op, trace.WithAttributes(
		attribute.String("relcache.type", typ),
		attribute.Int("relcache.ids", ids),
	))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.metrics.storeCall(op, typ, err)
	}
}

// Put implements ports.CacheStore.
func (s *InstrumentedStore) Put(ctx context.Context, entry domain.CacheEntry) error {
	ctx, done := s.start(ctx, "put", entry.Type, 1)
	err := s.next.Put(ctx, entry)
	done(err)
	return err
}

// PutAll implements ports.CacheStore.
func (s *InstrumentedStore) PutAll(ctx context.Context, typ string, entries []domain.CacheEntry) error {
	ctx, done := s.start(ctx, "put_all", typ, len(entries))
	err := s.next.PutAll(ctx, typ, entries)
	done(err)
	return err
}

// Get implements ports.CacheStore.
func (s *InstrumentedStore) Get(ctx context.Context, typ, id string) (*domain.CacheEntry, error) {
	ctx, done := s.start(ctx, "get", typ, 1)
	e, err := s.next.Get(ctx, typ, id)
	done(err)
	return e, err
}

// GetAll implements ports.CacheStore.
func (s *InstrumentedStore) GetAll(ctx context.Context, typ string, ids []string) ([]domain.CacheEntry, error) {
	ctx, done := s.start(ctx, "get_all", typ, len(ids))
	entries, err := s.next.GetAll(ctx, typ, ids)
	done(err)
	return entries, err
}

// GetAllFiltered implements ports.CacheStore.
func (s *InstrumentedStore) GetAllFiltered(
	ctx context.Context, typ string, ids []string, filter domain.RelationshipFilter,
) ([]domain.CacheEntry, error) {
	ctx, done := s.start(ctx, "get_all_filtered", typ, len(ids))
	entries, err := s.next.GetAllFiltered(ctx, typ, ids, filter)
	done(err)
	return entries, err
}

// GetAllPattern implements ports.CacheStore.
func (s *InstrumentedStore) GetAllPattern(ctx context.Context, typ string, pattern domain.Pattern) ([]string, error) {
	ctx, done := s.start(ctx, "get_all_pattern", typ, 0)
	ids, err := s.next.GetAllPattern(ctx, typ, pattern)
	done(err)
	return ids, err
}

// Evict implements ports.CacheStore.
func (s *InstrumentedStore) Evict(ctx context.Context, typ string, ids []string) error {
	ctx, done := s.start(ctx, "evict", typ, len(ids))
	err := s.next.Evict(ctx, typ, ids)
	done(err)
	return err
}

// Types implements ports.CacheStore.
func (s *InstrumentedStore) Types(ctx context.Context) ([]string, error) {
	ctx, done := s.start(ctx, "types", "", 0)
	types, err := s.next.Types(ctx)
	done(err)
	return types, err
}

// Close implements ports.CacheStore.
func (s *InstrumentedStore) Close() error {
	return s.next.Close()
}
