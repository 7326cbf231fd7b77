package source_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/relcache/internal/adapters/source"
	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const serverGroupsYAML = `
- name: foo-main-v001
  attributes:
    capacity: 3
    zones: [a, b]
  siblings:
    - type: loadBalancers
      region: us-east-1
      name: foo-main-elb
  artifact: registry.example.com/foo:1.2.0
- name: foo-main-v002
- name: bar-v003
  app: bar
  cluster: bar-canary
`

const moreServerGroupsYAML = `
name: foo-main-v004
---
name: foo-main-v005
`

func fixtureConfig(dir string) domain.AgentConfig {
	return domain.AgentConfig{
		Kind:     "serverGroups",
		Provider: domain.ProviderFixture,
		Type:     domain.TypeServerGroups,
		Account:  "acct1",
		Region:   "us-east-1",
		Sources:  []string{filepath.Join(dir, "*.yaml")},
	}
}

func TestFixtureAdapter_List(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", serverGroupsYAML)
	writeFile(t, dir, "b.yaml", moreServerGroupsYAML)
	writeFile(t, dir, "ignored.txt", "name: nope")

	adapter := source.NewFixtureAdapter(fixtureConfig(dir))

	all, err := adapter.List(t.Context(), ports.ListRequest{})
	require.NoError(t, err)
	names := make([]string, 0, len(all))
	for _, raw := range all {
		names = append(names, raw.Name)
	}
	assert.Equal(t, []string{"foo-main-v001", "foo-main-v002", "bar-v003", "foo-main-v004", "foo-main-v005"}, names)

	page, err := adapter.List(t.Context(), ports.ListRequest{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "foo-main-v005", page[0].Name)

	past, err := adapter.List(t.Context(), ports.ListRequest{Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, past)

	one, err := adapter.List(t.Context(), ports.ListRequest{Name: "bar-v003"})
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "bar-v003", one[0].Name)
}

func TestFixtureAdapter_Convert(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", serverGroupsYAML)
	cfg := fixtureConfig(dir)
	adapter := source.NewFixtureAdapter(cfg)

	assert.Equal(t, ports.Scope{
		Kind:    "serverGroups",
		Type:    domain.TypeServerGroups,
		Account: "acct1",
		Region:  "us-east-1",
	}, adapter.Scope())

	raws, err := adapter.List(t.Context(), ports.ListRequest{})
	require.NoError(t, err)
	require.Len(t, raws, 3)

	r, err := adapter.Convert(raws[0])
	require.NoError(t, err)
	assert.Equal(t, "foo-main-v001", r.Name)
	assert.Equal(t, domain.TypeServerGroups, r.Type)
	assert.Equal(t, "registry.example.com/foo:1.2.0", r.Artifact)
	assert.Nil(t, r.Moniker)
	assert.Equal(t, []domain.Ref{{Type: domain.TypeLoadBalancers, Account: "acct1", Region: "us-east-1", Name: "foo-main-elb"}}, r.Siblings)
	assert.True(t, r.Attributes["capacity"].Equal(domain.Number(3)))
	assert.True(t, r.Attributes["zones"].Equal(domain.List(domain.String("a"), domain.String("b"))))

	r, err = adapter.Convert(raws[2])
	require.NoError(t, err)
	require.NotNil(t, r.Moniker)
	assert.Equal(t, "bar", r.Moniker.App)
	assert.Equal(t, "bar-canary", r.Moniker.Cluster)
}

func TestFixtureAdapter_ParseError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: [unterminated\n")

	_, err := source.NewFixtureAdapter(fixtureConfig(dir)).List(t.Context(), ports.ListRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrSourceParseFailed.Error())
}

func TestFixtureAdapter_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := source.NewFixtureAdapter(fixtureConfig(t.TempDir())).List(ctx, ports.ListRequest{})
	require.Error(t, err)
}

func TestFactory(t *testing.T) {
	dir := t.TempDir()

	a, err := source.Factory{}.New(fixtureConfig(dir))
	require.NoError(t, err)
	assert.IsType(t, &source.FixtureAdapter{}, a)

	a, err = source.Factory{}.New(domain.AgentConfig{Provider: domain.ProviderKubernetes, Kind: "Pod", Account: "k8s"})
	require.NoError(t, err)
	assert.IsType(t, &source.KubernetesAdapter{}, a)

	_, err = source.Factory{}.New(domain.AgentConfig{Provider: "aws"})
	require.ErrorIs(t, err, domain.ErrUnknownProvider)

	_, err = source.Factory{}.New(domain.AgentConfig{Provider: domain.ProviderKubernetes, Kind: "ConfigMap"})
	require.ErrorIs(t, err, domain.ErrUnknownProvider)
}
