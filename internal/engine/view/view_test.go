package view_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/relcache/internal/adapters/storage"
	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports/mocks"
	"go.trai.ch/relcache/internal/engine/builder"
	"go.trai.ch/relcache/internal/engine/ingest"
	"go.trai.ch/relcache/internal/engine/view"
	"go.uber.org/mock/gomock"
)

var (
	sgRef = domain.Ref{Type: domain.TypeServerGroups, Account: "acct1", Region: "us-east-1", Name: "foo-main-v001"}
	lbRef = domain.Ref{Type: domain.TypeLoadBalancers, Account: "acct1", Region: "us-east-1", Name: "foo-main-elb"}
)

// populate ingests one server group with one healthy instance behind one
// load balancer.
func populate(t *testing.T) *storage.MemoryStore {
	t.Helper()
	ctrl := gomock.NewController(t)
	namer, err := builder.NewNamer(16)
	require.NoError(t, err)
	b := builder.New(mocks.NewMockLogger(ctrl), namer)

	sg, err := b.Build(domain.Resource{
		Type: sgRef.Type, Account: sgRef.Account, Region: sgRef.Region, Name: sgRef.Name,
		Siblings: []domain.Ref{lbRef},
	}, builder.Options{Clustered: true})
	require.NoError(t, err)

	instance, err := b.Build(domain.Resource{
		Type: domain.TypeInstances, Account: "acct1", Region: "us-east-1", Name: "i-1",
		Attributes: domain.Attributes{"health": domain.String("Up")},
		Owners:     []domain.Ref{sgRef},
		Moniker:    &domain.Moniker{App: "foo"},
	}, builder.Options{})
	require.NoError(t, err)

	lb, err := b.Build(domain.Resource{
		Type: lbRef.Type, Account: lbRef.Account, Region: lbRef.Region, Name: lbRef.Name,
	}, builder.Options{})
	require.NoError(t, err)

	store := storage.NewMemoryStore()
	strata := ingest.Stratify(ingest.Dedupe(ingest.Invert(ingest.Group([]domain.CacheEntry{sg, instance, lb}))))
	_, err = ingest.NewCommitter(store).Commit(context.Background(), strata)
	require.NoError(t, err)
	return store
}

func TestClusterDetails(t *testing.T) {
	t.Parallel()
	v := view.New(populate(t))

	clusters, err := v.ClusterDetails(context.Background(), "foo")
	require.NoError(t, err)

	elb := view.LoadBalancer{
		ID:      "loadBalancers:acct1:us-east-1:foo-main-elb",
		Name:    "foo-main-elb",
		Account: "acct1",
		Region:  "us-east-1",
	}
	want := []view.Cluster{{
		ID:      "clusters:acct1:foo-main",
		Name:    "foo-main",
		Account: "acct1",
		ServerGroups: []view.ServerGroup{{
			ID:      "serverGroups:acct1:us-east-1:foo-main-v001",
			Name:    "foo-main-v001",
			Account: "acct1",
			Region:  "us-east-1",
			Instances: []view.Instance{{
				ID:      "instances:acct1:us-east-1:i-1",
				Name:    "i-1",
				Account: "acct1",
				Region:  "us-east-1",
				Health:  "Up",
			}},
			LoadBalancers: []view.LoadBalancer{elb},
		}},
		LoadBalancers: []view.LoadBalancer{elb},
	}}
	if diff := cmp.Diff(want, clusters); diff != "" {
		t.Errorf("ClusterDetails mismatch (-want +got):\n%s", diff)
	}
}

func TestClusterDetails_BatchedCalls(t *testing.T) {
	t.Parallel()
	mem := populate(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockCacheStore(ctrl)
	store.EXPECT().Get(gomock.Any(), domain.TypeApplications, "applications:foo").DoAndReturn(mem.Get).Times(1)
	store.EXPECT().GetAllFiltered(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(mem.GetAllFiltered).Times(4)

	clusters, err := view.New(store).ClusterDetails(context.Background(), "foo")
	require.NoError(t, err)
	require.Len(t, clusters, 1)
}

func TestClusterDetails_UnknownApplication(t *testing.T) {
	t.Parallel()
	v := view.New(populate(t))

	clusters, err := v.ClusterDetails(context.Background(), "bar")
	require.NoError(t, err)
	assert.Empty(t, clusters)

	_, err = v.ClusterDetails(context.Background(), "bad:name")
	assert.ErrorIs(t, err, domain.ErrMalformedKey)
}

func TestApplication(t *testing.T) {
	t.Parallel()
	v := view.New(populate(t))

	app, err := v.Application(context.Background(), "foo")
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, map[string][]string{"acct1": {"foo-main"}}, app.Clusters)
	assert.Equal(t, 1, app.ServerGroups)
	assert.Equal(t, 1, app.LoadBalancers)

	missing, err := v.Application(context.Background(), "bar")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInstance(t *testing.T) {
	t.Parallel()
	v := view.New(populate(t))

	inst, err := v.Instance(context.Background(), "acct1", "us-east-1", "i-1")
	require.NoError(t, err)
	require.NotNil(t, inst)
	assert.Equal(t, "Up", inst.Health)
	assert.Equal(t, []string{"foo-main-v001"}, inst.ServerGroups)

	missing, err := v.Instance(context.Background(), "acct1", "us-east-1", "i-9")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestKeys(t *testing.T) {
	t.Parallel()
	v := view.New(populate(t))

	keys, err := v.Keys(context.Background(), domain.TypeServerGroups, "serverGroups:acct1:*:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"serverGroups:acct1:us-east-1:foo-main-v001"}, keys)
}
