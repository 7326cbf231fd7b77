package builder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/engine/builder"
)

func TestNamer_Derive(t *testing.T) {
	t.Parallel()

	namer, err := builder.NewNamer(16)
	require.NoError(t, err)

	tests := []struct {
		name string
		want domain.Moniker
	}{
		{"foo", domain.Moniker{App: "foo", Cluster: "foo", Sequence: -1}},
		{"foo-main", domain.Moniker{App: "foo", Stack: "main", Cluster: "foo-main", Sequence: -1}},
		{"foo-main-v001", domain.Moniker{App: "foo", Stack: "main", Cluster: "foo-main", Sequence: 1}},
		{"foo-main-canary-east-v012", domain.Moniker{
			App: "foo", Stack: "main", Detail: "canary-east", Cluster: "foo-main-canary-east", Sequence: 12,
		}},
		{"foo--edge-v003", domain.Moniker{App: "foo", Detail: "edge", Cluster: "foo--edge", Sequence: 3}},
		{"foo-v1", domain.Moniker{App: "foo", Stack: "v1", Cluster: "foo-v1", Sequence: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, namer.Derive(tt.name))
			assert.Equal(t, tt.want, namer.Derive(tt.name), "memoized result must match")
		})
	}
}

func TestNamer_Resolve(t *testing.T) {
	t.Parallel()

	namer, err := builder.NewNamer(0)
	require.NoError(t, err)

	m := namer.Resolve("i-1", &domain.Moniker{App: "foo"})
	assert.Equal(t, "foo", m.App)
	assert.Empty(t, m.Cluster, "a cluster derived for another app is discarded")

	m = namer.Resolve("foo-main-v002", &domain.Moniker{App: "foo"})
	assert.Equal(t, "foo-main", m.Cluster)
	assert.Equal(t, 2, m.Sequence)

	m = namer.Resolve("web-7d9f", &domain.Moniker{App: "shop", Cluster: "shop-web"})
	assert.Equal(t, "shop-web", m.Cluster)
}
