package ingest

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports"
	"go.trai.ch/relcache/internal/engine/builder"
	"go.trai.ch/zerr"
	"k8s.io/apimachinery/pkg/util/sets"
)

// maxPages guards against sources that never return a short page.
const maxPages = 100_000

var tracer = otel.Tracer("go.trai.ch/relcache/internal/engine/ingest")

// PassResult summarizes one ingestion pass.
type PassResult struct {
	Scope     ports.Scope
	Committed int
	Evicted   int
	Rejected  int
	Duration  time.Duration
}

// Agent runs ingestion passes for one resource adapter.
type Agent struct {
	adapter   ports.ResourceAdapter
	builder   *builder.Builder
	committer *Committer
	store     ports.CacheStore
	logger    ports.Logger
	options   builder.Options
	pageSize  int
}

// NewAgent creates an Agent.
func NewAgent(
	adapter ports.ResourceAdapter,
	b *builder.Builder,
	committer *Committer,
	store ports.CacheStore,
	logger ports.Logger,
	options builder.Options,
	pageSize int,
) *Agent {
	return &Agent{
		adapter:   adapter,
		builder:   b,
		committer: committer,
		store:     store,
		logger:    logger,
		options:   options,
		pageSize:  pageSize,
	}
}

// Scope returns the slice the agent is authoritative for.
func (a *Agent) Scope() ports.Scope {
	return a.adapter.Scope()
}

// Run performs a full pass: list everything, commit it, then evict the
// authoritative entries of the scope that were not listed. A source failure
// aborts the pass before anything is committed or evicted.
func (a *Agent) Run(ctx context.Context) (PassResult, error) {
	scope := a.adapter.Scope()
	start := time.Now()
	ctx, span := a.startSpan(ctx, "ingest.pass", scope)
	defer span.End()

	result := PassResult{Scope: scope}
	raws, err := a.listAll(ctx, "")
	if err != nil {
		return a.fail(span, result, start, err)
	}

	entries, rejected := a.build(raws)
	result.Rejected = rejected

	strata := Stratify(Dedupe(Invert(Group(entries))))

	fresh := sets.New(strata.IDs(scope.Type)...)
	existing, err := a.store.GetAllPattern(ctx, scope.Type, scope.Pattern())
	if err != nil {
		return a.fail(span, result, start, err)
	}
	candidates := sets.New(existing...).Difference(fresh)

	result.Committed, err = a.committer.Commit(ctx, strata)
	if err != nil {
		return a.fail(span, result, start, err)
	}

	stale, err := a.staleAuthoritative(ctx, scope, sets.List(candidates))
	if err != nil {
		return a.fail(span, result, start, err)
	}
	result.Evicted, err = a.committer.Evict(ctx, scope.Type, stale)
	if err != nil {
		return a.fail(span, result, start, err)
	}

	result.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("relcache.committed", result.Committed),
		attribute.Int("relcache.evicted", result.Evicted),
		attribute.Int("relcache.rejected", result.Rejected),
	)
	return result, nil
}

// Refresh performs an on-demand pass for a single resource. When the source no
// longer reports it, or it can no longer be built, exactly its own entry is
// evicted.
func (a *Agent) Refresh(ctx context.Context, name string) (PassResult, error) {
	scope := a.adapter.Scope()
	start := time.Now()
	ctx, span := a.startSpan(ctx, "ingest.refresh", scope)
	defer span.End()
	span.SetAttributes(attribute.String("relcache.name", name))

	result := PassResult{Scope: scope}
	id, err := domain.Key{Type: scope.Type, Account: scope.Account, Region: scope.Region, Name: name}.ID()
	if err != nil {
		return a.fail(span, result, start, err)
	}

	raws, err := a.listAll(ctx, name)
	if err != nil {
		return a.fail(span, result, start, err)
	}
	matching := raws[:0]
	for _, raw := range raws {
		if raw.Name == name {
			matching = append(matching, raw)
		}
	}

	entries, rejected := a.build(matching)
	result.Rejected = rejected
	if len(entries) == 0 {
		stale, err := a.staleAuthoritative(ctx, scope, []string{id})
		if err != nil {
			return a.fail(span, result, start, err)
		}
		result.Evicted, err = a.committer.Evict(ctx, scope.Type, stale)
		if err != nil {
			return a.fail(span, result, start, err)
		}
		result.Duration = time.Since(start)
		return result, nil
	}

	strata := Stratify(Dedupe(Invert(Group(entries))))
	result.Committed, err = a.committer.Commit(ctx, strata)
	if err != nil {
		return a.fail(span, result, start, err)
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (a *Agent) startSpan(ctx context.Context, name string, scope ports.Scope) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("relcache.kind", scope.Kind),
		attribute.String("relcache.type", scope.Type),
		attribute.String("relcache.account", scope.Account),
		attribute.String("relcache.region", scope.Region),
	))
}

func (a *Agent) fail(span trace.Span, result PassResult, start time.Time, err error) (PassResult, error) {
	result.Duration = time.Since(start)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return result, zerr.With(err, "scope", result.Scope.String())
}

// listAll pages through the source until a short or empty page.
func (a *Agent) listAll(ctx context.Context, name string) ([]ports.RawResource, error) {
	var all []ports.RawResource
	for page := 0; page < maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, err := a.adapter.List(ctx, ports.ListRequest{Page: page, PageSize: a.pageSize, Name: name})
		if err != nil {
			return nil, zerr.With(fmt.Errorf("%w: %w", domain.ErrUpstreamFailure, err), "page", page)
		}
		all = append(all, items...)
		if a.pageSize <= 0 || len(items) < a.pageSize {
			break
		}
	}
	return all, nil
}

// build converts and builds raws, dropping the ones that cannot be used.
// The entries are claimed by the agent's kind.
func (a *Agent) build(raws []ports.RawResource) ([]domain.CacheEntry, int) {
	resources := make([]domain.Resource, 0, len(raws))
	rejected := 0
	for _, raw := range raws {
		r, err := a.adapter.Convert(raw)
		if err != nil {
			rejected++
			a.logger.Error(zerr.With(zerr.Wrap(err, domain.ErrConvertFailed.Error()), "name", raw.Name))
			continue
		}
		resources = append(resources, r)
	}
	entries, dropped := a.builder.BuildAll(resources, a.options)
	kind := a.adapter.Scope().Kind
	for i := range entries {
		entries[i].Claim(kind)
	}
	return entries, rejected + dropped
}

// staleAuthoritative keeps the candidates that this agent's kind produced.
// Placeholders synthesized from other agents' edges and entries of another
// kind sharing the type are left alone.
func (a *Agent) staleAuthoritative(ctx context.Context, scope ports.Scope, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	entries, err := a.store.GetAllFiltered(ctx, scope.Type, candidates, domain.NoRelationships())
	if err != nil {
		return nil, err
	}
	stale := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Authoritative && (e.Producer == "" || e.Producer == scope.Kind) {
			stale = append(stale, e.ID)
		}
	}
	return stale, nil
}
