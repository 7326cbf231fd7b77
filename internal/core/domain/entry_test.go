package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/relcache/internal/core/domain"
)

func TestRelationships_SetSemantics(t *testing.T) {
	t.Parallel()

	r := domain.Relationships{}
	r.Add(domain.TypeInstances, "instances:a:r:i-2", "instances:a:r:i-1", "instances:a:r:i-1")

	assert.Equal(t, []string{"instances:a:r:i-1", "instances:a:r:i-2"}, r.Get(domain.TypeInstances))
	assert.True(t, r.Has(domain.TypeInstances, "instances:a:r:i-1"))
	assert.Nil(t, r.Get(domain.TypeLoadBalancers))

	r.Remove(domain.TypeInstances, "instances:a:r:i-1", "instances:a:r:i-2")
	assert.Empty(t, r.Types(), "empty relationship types are dropped")
}

func TestRelationships_Filter(t *testing.T) {
	t.Parallel()

	r := domain.Relationships{}
	r.Add(domain.TypeInstances, "instances:a:r:i-1")
	r.Add(domain.TypeLoadBalancers, "loadBalancers:a:r:lb")

	assert.Equal(t, []string{domain.TypeInstances, domain.TypeLoadBalancers}, r.Filter(domain.AllRelationships()).Types())
	assert.Empty(t, r.Filter(domain.NoRelationships()).Types())
	assert.Equal(t, []string{domain.TypeLoadBalancers}, r.Filter(domain.IncludeRelationships(domain.TypeLoadBalancers, "missing")).Types())

	filtered := r.Filter(domain.AllRelationships())
	filtered.Add(domain.TypeInstances, "instances:a:r:i-9")
	assert.False(t, r.Has(domain.TypeInstances, "instances:a:r:i-9"), "filter must copy")
}

func TestCacheEntry_JSON(t *testing.T) {
	t.Parallel()

	e := domain.NewEntry(domain.TypeServerGroups, "serverGroups:acct1:us-east-1:foo-main-v001")
	e.Attributes["name"] = domain.String("foo-main-v001")
	e.Relationships.Add(domain.TypeInstances, "instances:acct1:us-east-1:i-2", "instances:acct1:us-east-1:i-1")
	e.Authoritative = true

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "serverGroups:acct1:us-east-1:foo-main-v001",
		"type": "serverGroups",
		"attributes": {"name": "foo-main-v001"},
		"relationships": {"instances": ["instances:acct1:us-east-1:i-1", "instances:acct1:us-east-1:i-2"]},
		"authoritative": true
	}`, string(data))

	var back domain.CacheEntry
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, e.ID, back.ID)
	assert.True(t, e.Relationships.Equal(back.Relationships))
	assert.True(t, back.Attributes["name"].Equal(domain.String("foo-main-v001")))
}

func TestCacheEntry_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	e := domain.NewEntry(domain.TypeApplications, "applications:foo")
	e.Relationships.Add(domain.TypeClusters, "clusters:acct1:foo-main")

	c := e.Clone()
	c.Relationships.Add(domain.TypeClusters, "clusters:acct1:foo-canary")
	c.Attributes["x"] = domain.Bool(true)

	assert.Len(t, e.Related(domain.TypeClusters), 1)
	assert.NotContains(t, e.Attributes, "x")
}

func TestCacheEntry_Claim(t *testing.T) {
	t.Parallel()

	e := domain.NewEntry(domain.TypeServerGroups, "serverGroups:k8s:default:foo-db-v001")
	e.Relationships.Add(domain.TypeApplications, "applications:foo")
	e.Claim("StatefulSet")

	c := e.Clone()
	c.Relationships.Add(domain.TypeLoadBalancers, "loadBalancers:k8s:default:foo-db")
	c.Declared.Add(domain.TypeLoadBalancers, "loadBalancers:k8s:default:foo-db")

	assert.Equal(t, "StatefulSet", c.Producer)
	assert.True(t, e.Declared.Has(domain.TypeApplications, "applications:foo"))
	assert.False(t, e.Declared.Has(domain.TypeLoadBalancers, "loadBalancers:k8s:default:foo-db"))

	data, err := json.Marshal(c)
	require.NoError(t, err)
	var back domain.CacheEntry
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "StatefulSet", back.Producer)
	assert.True(t, back.Declared.Equal(c.Declared))
}
