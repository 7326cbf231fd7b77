package ingest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/relcache/internal/adapters/storage"
	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports"
	"go.trai.ch/relcache/internal/core/ports/mocks"
	"go.trai.ch/relcache/internal/engine/builder"
	"go.trai.ch/relcache/internal/engine/ingest"
	"go.uber.org/mock/gomock"
)

var sgScope = ports.Scope{
	Kind:    domain.TypeServerGroups,
	Type:    domain.TypeServerGroups,
	Account: "acct1",
	Region:  "us-east-1",
}

var errUpstream = errors.New("connection refused")

type agentFixture struct {
	agent   *ingest.Agent
	adapter *mocks.MockResourceAdapter
	logger  *mocks.MockLogger
	store   *storage.MemoryStore
}

func newAgent(t *testing.T, pageSize int) *agentFixture {
	t.Helper()
	return newScopedAgent(t, sgScope, storage.NewMemoryStore(), pageSize)
}

// newScopedAgent creates an agent for scope writing into store.
func newScopedAgent(t *testing.T, scope ports.Scope, store *storage.MemoryStore, pageSize int) *agentFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	adapter := mocks.NewMockResourceAdapter(ctrl)
	logger := mocks.NewMockLogger(ctrl)

	adapter.EXPECT().Scope().Return(scope).AnyTimes()
	adapter.EXPECT().Convert(gomock.Any()).DoAndReturn(func(raw ports.RawResource) (domain.Resource, error) {
		if raw.Name == "broken" {
			return domain.Resource{}, errors.New("missing body")
		}
		return domain.Resource{
			Type:    scope.Type,
			Account: scope.Account,
			Region:  scope.Region,
			Name:    raw.Name,
			Siblings: []domain.Ref{
				{Type: domain.TypeLoadBalancers, Account: "acct1", Region: "us-east-1", Name: "foo-main-elb"},
			},
		}, nil
	}).AnyTimes()

	namer, err := builder.NewNamer(64)
	require.NoError(t, err)
	agent := ingest.NewAgent(
		adapter,
		builder.New(logger, namer),
		ingest.NewCommitter(store),
		store,
		logger,
		builder.Options{},
		pageSize,
	)
	return &agentFixture{agent: agent, adapter: adapter, logger: logger, store: store}
}

func raws(names ...string) []ports.RawResource {
	out := make([]ports.RawResource, len(names))
	for i, n := range names {
		out[i] = ports.RawResource{Name: n, Document: map[string]any{"name": n}}
	}
	return out
}

func (f *agentFixture) ids(t *testing.T, typ string) []string {
	t.Helper()
	k := domain.Key{Type: typ, Account: "acct1", Region: "us-east-1", Name: "*"}
	ids, err := f.store.GetAllPattern(context.Background(), typ, domain.NewPattern(k.String()))
	require.NoError(t, err)
	return ids
}

func sgKey(name string) string {
	return "serverGroups:acct1:us-east-1:" + name
}

func TestAgent_Run_Tracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	f := newAgent(t, 10)
	gomock.InOrder(
		f.adapter.EXPECT().List(gomock.Any(), gomock.Any()).Return(raws("foo-main-v001"), nil),
		f.adapter.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, errUpstream),
	)

	_, err := f.agent.Run(context.Background())
	require.NoError(t, err)
	_, err = f.agent.Run(context.Background())
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "ingest.pass", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestAgent_Run(t *testing.T) {
	t.Parallel()
	f := newAgent(t, 10)
	f.adapter.EXPECT().
		List(gomock.Any(), ports.ListRequest{Page: 0, PageSize: 10}).
		Return(raws("foo-main-v001", "foo-main-v002"), nil)

	result, err := f.agent.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, result.Committed)
	assert.Zero(t, result.Evicted)
	assert.Zero(t, result.Rejected)

	assert.Equal(t, []string{sgKey("foo-main-v001"), sgKey("foo-main-v002")}, f.ids(t, domain.TypeServerGroups))

	app, err := f.store.Get(context.Background(), domain.TypeApplications, appID)
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, []string{sgKey("foo-main-v001"), sgKey("foo-main-v002")}, app.Related(domain.TypeServerGroups))
}

func TestAgent_Run_EvictsWhatDisappeared(t *testing.T) {
	t.Parallel()
	f := newAgent(t, 10)
	gomock.InOrder(
		f.adapter.EXPECT().List(gomock.Any(), gomock.Any()).Return(raws("foo-main-v001", "foo-main-v002"), nil),
		f.adapter.EXPECT().List(gomock.Any(), gomock.Any()).Return(raws("foo-main-v001"), nil),
	)

	_, err := f.agent.Run(context.Background())
	require.NoError(t, err)
	result, err := f.agent.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Evicted)

	assert.Equal(t, []string{sgKey("foo-main-v001")}, f.ids(t, domain.TypeServerGroups))

	lb, err := f.store.Get(context.Background(), domain.TypeLoadBalancers, lbID)
	require.NoError(t, err)
	require.NotNil(t, lb)
	assert.Equal(t, []string{sgKey("foo-main-v001")}, lb.Related(domain.TypeServerGroups),
		"inverse edges of evicted entries are removed")
}

func TestAgent_Run_KeepsForeignPlaceholders(t *testing.T) {
	t.Parallel()
	f := newAgent(t, 10)
	f.adapter.EXPECT().List(gomock.Any(), gomock.Any()).Return(raws("foo-main-v001"), nil)

	// An instance agent references a server group this agent has not seen yet.
	instance := authoritative(domain.TypeInstances, instanceID)
	instance.Relationships.Add(domain.TypeServerGroups, sgKey("foo-main-v009"))
	instance.Claim(domain.TypeInstances)
	commit(t, ingest.NewCommitter(f.store), instance)

	_, err := f.agent.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{sgKey("foo-main-v001"), sgKey("foo-main-v009")}, f.ids(t, domain.TypeServerGroups))
}

func TestAgent_Run_KindsSharingAType(t *testing.T) {
	t.Parallel()
	store := storage.NewMemoryStore()
	rsScope := ports.Scope{Kind: "ReplicaSet", Type: domain.TypeServerGroups, Account: "acct1", Region: "us-east-1"}
	ssScope := ports.Scope{Kind: "StatefulSet", Type: domain.TypeServerGroups, Account: "acct1", Region: "us-east-1"}
	rs := newScopedAgent(t, rsScope, store, 10)
	ss := newScopedAgent(t, ssScope, store, 10)
	rs.adapter.EXPECT().List(gomock.Any(), ports.ListRequest{Page: 0, PageSize: 10}).Return(raws("foo-web-v001"), nil).Times(2)
	ss.adapter.EXPECT().List(gomock.Any(), ports.ListRequest{Page: 0, PageSize: 10}).Return(raws("foo-db-v001"), nil).Times(2)
	rs.adapter.EXPECT().
		List(gomock.Any(), ports.ListRequest{Page: 0, PageSize: 10, Name: "foo-db-v001"}).
		Return(nil, nil)

	for range 2 {
		result, err := ss.agent.Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, result.Evicted)

		result, err = rs.agent.Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, result.Evicted, "a pass only evicts entries of its own kind")
	}

	result, err := rs.agent.Refresh(context.Background(), "foo-db-v001")
	require.NoError(t, err)
	assert.Zero(t, result.Evicted, "an on-demand pass only evicts entries of its own kind")

	assert.Equal(t, []string{sgKey("foo-db-v001"), sgKey("foo-web-v001")}, rs.ids(t, domain.TypeServerGroups))
	db, err := store.Get(context.Background(), domain.TypeServerGroups, sgKey("foo-db-v001"))
	require.NoError(t, err)
	require.NotNil(t, db)
	assert.Equal(t, "StatefulSet", db.Producer)

	lb, err := store.Get(context.Background(), domain.TypeLoadBalancers, lbID)
	require.NoError(t, err)
	require.NotNil(t, lb)
	assert.Equal(t, []string{sgKey("foo-db-v001"), sgKey("foo-web-v001")}, lb.Related(domain.TypeServerGroups))
}

func TestAgent_Run_UpstreamFailureLeavesCacheUntouched(t *testing.T) {
	t.Parallel()
	f := newAgent(t, 2)
	gomock.InOrder(
		f.adapter.EXPECT().List(gomock.Any(), gomock.Any()).Return(raws("foo-main-v001"), nil),
		f.adapter.EXPECT().List(gomock.Any(), ports.ListRequest{Page: 0, PageSize: 2}).Return(raws("foo-main-v003", "foo-main-v004"), nil),
		f.adapter.EXPECT().List(gomock.Any(), ports.ListRequest{Page: 1, PageSize: 2}).Return(nil, errUpstream),
	)

	_, err := f.agent.Run(context.Background())
	require.NoError(t, err)

	result, err := f.agent.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
	assert.ErrorIs(t, err, errUpstream)
	assert.Zero(t, result.Committed)
	assert.Zero(t, result.Evicted)

	assert.Equal(t, []string{sgKey("foo-main-v001")}, f.ids(t, domain.TypeServerGroups))
}

func TestAgent_Run_Paging(t *testing.T) {
	t.Parallel()
	f := newAgent(t, 2)
	gomock.InOrder(
		f.adapter.EXPECT().List(gomock.Any(), ports.ListRequest{Page: 0, PageSize: 2}).Return(raws("foo-main-v001", "foo-main-v002"), nil),
		f.adapter.EXPECT().List(gomock.Any(), ports.ListRequest{Page: 1, PageSize: 2}).Return(raws("foo-main-v003", "foo-main-v004"), nil),
		f.adapter.EXPECT().List(gomock.Any(), ports.ListRequest{Page: 2, PageSize: 2}).Return(raws("foo-main-v005"), nil),
	)

	_, err := f.agent.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.ids(t, domain.TypeServerGroups), 5)
}

func TestAgent_Run_RejectsUnconvertible(t *testing.T) {
	t.Parallel()
	f := newAgent(t, 10)
	f.adapter.EXPECT().List(gomock.Any(), gomock.Any()).Return(raws("foo-main-v001", "broken"), nil)
	f.logger.EXPECT().Error(gomock.Any()).Times(1)

	result, err := f.agent.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rejected)
	assert.Equal(t, []string{sgKey("foo-main-v001")}, f.ids(t, domain.TypeServerGroups))
}

func TestAgent_Refresh(t *testing.T) {
	t.Parallel()
	f := newAgent(t, 10)
	gomock.InOrder(
		f.adapter.EXPECT().List(gomock.Any(), gomock.Any()).Return(raws("foo-main-v001", "foo-main-v002"), nil),
		f.adapter.EXPECT().
			List(gomock.Any(), ports.ListRequest{Page: 0, PageSize: 10, Name: "foo-main-v003"}).
			Return(raws("foo-main-v003"), nil),
		f.adapter.EXPECT().
			List(gomock.Any(), ports.ListRequest{Page: 0, PageSize: 10, Name: "foo-main-v002"}).
			Return(nil, nil),
	)

	_, err := f.agent.Run(context.Background())
	require.NoError(t, err)

	result, err := f.agent.Refresh(context.Background(), "foo-main-v003")
	require.NoError(t, err)
	assert.Positive(t, result.Committed)
	assert.Len(t, f.ids(t, domain.TypeServerGroups), 3, "an on-demand pass does not evict the rest of the scope")

	result, err = f.agent.Refresh(context.Background(), "foo-main-v002")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Evicted)
	assert.Equal(t, []string{sgKey("foo-main-v001"), sgKey("foo-main-v003")}, f.ids(t, domain.TypeServerGroups))
}

func TestAgent_Refresh_EvictsWhatCanNoLongerBeBuilt(t *testing.T) {
	t.Parallel()
	f := newAgent(t, 10)
	commit(t, ingest.NewCommitter(f.store), produced(domain.TypeServerGroups, sgKey("broken"), nil))
	f.adapter.EXPECT().
		List(gomock.Any(), ports.ListRequest{Page: 0, PageSize: 10, Name: "broken"}).
		Return(raws("broken"), nil)
	f.logger.EXPECT().Error(gomock.Any()).Times(1)

	result, err := f.agent.Refresh(context.Background(), "broken")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rejected)
	assert.Equal(t, 1, result.Evicted)
	assert.Empty(t, f.ids(t, domain.TypeServerGroups))
}

func TestAgent_Refresh_MalformedName(t *testing.T) {
	t.Parallel()
	f := newAgent(t, 10)

	_, err := f.agent.Refresh(context.Background(), "bad:name")
	assert.ErrorIs(t, err, domain.ErrMalformedKey)
}
