// Package view assembles read-only summaries from the cache.
package view

import (
	"context"
	"slices"
	"strings"

	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports"
	"go.trai.ch/relcache/internal/engine/traversal"
	"k8s.io/apimachinery/pkg/util/sets"
)

// HealthUnknown is reported for instances without a health attribute.
const HealthUnknown = "Unknown"

// Instance summarizes one instance.
type Instance struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Account      string   `json:"account"`
	Region       string   `json:"region"`
	Health       string   `json:"health"`
	ServerGroups []string `json:"serverGroups,omitempty"`
}

// LoadBalancer summarizes one load balancer.
type LoadBalancer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Account string `json:"account"`
	Region  string `json:"region"`
}

// ServerGroup is a server group with its instances and load balancers.
type ServerGroup struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Account       string         `json:"account"`
	Region        string         `json:"region"`
	Instances     []Instance     `json:"instances"`
	LoadBalancers []LoadBalancer `json:"loadBalancers"`
}

// Cluster is a cluster with its server groups and the union of their load balancers.
type Cluster struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Account       string         `json:"account"`
	ServerGroups  []ServerGroup  `json:"serverGroups"`
	LoadBalancers []LoadBalancer `json:"loadBalancers"`
}

// Application summarizes an application.
type Application struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Clusters maps account to sorted cluster names.
	Clusters      map[string][]string `json:"clusters"`
	ServerGroups  int                 `json:"serverGroups"`
	LoadBalancers int                 `json:"loadBalancers"`
}

// Views answers queries over a cache store. It never writes.
type Views struct {
	store  ports.CacheStore
	engine *traversal.Engine
}

// New creates Views over store.
func New(store ports.CacheStore) *Views {
	return &Views{store: store, engine: traversal.New(store)}
}

// clusterPlan walks application -> clusters -> serverGroups -> {instances, loadBalancers}.
func clusterPlan() traversal.Plan {
	clusters := domain.IncludeRelationships(domain.TypeServerGroups)
	serverGroups := domain.IncludeRelationships(domain.TypeInstances, domain.TypeLoadBalancers)
	leaves := domain.IncludeRelationships(domain.TypeServerGroups)
	return traversal.Plan{
		{Types: []string{domain.TypeClusters}, Filter: &clusters},
		{Types: []string{domain.TypeServerGroups}, Filter: &serverGroups},
		{Types: []string{domain.TypeInstances, domain.TypeLoadBalancers}, Filter: &leaves},
	}
}

// ClusterDetails returns the clusters of app ordered by id. An unknown
// application yields no clusters.
func (v *Views) ClusterDetails(ctx context.Context, app string) ([]Cluster, error) {
	appEntry, err := v.application(ctx, app)
	if err != nil || appEntry == nil {
		return nil, err
	}

	results, err := v.engine.Walk(ctx, []domain.CacheEntry{*appEntry}, clusterPlan())
	if err != nil {
		return nil, err
	}

	serverGroups := make(map[string]domain.CacheEntry)
	for _, sg := range results[1][domain.TypeServerGroups] {
		serverGroups[sg.ID] = sg
	}
	instancesBySG := traversal.MapByRelationship(results[2][domain.TypeInstances], domain.TypeServerGroups)
	lbsBySG := traversal.MapByRelationship(results[2][domain.TypeLoadBalancers], domain.TypeServerGroups)

	clusters := make([]Cluster, 0, len(results[0][domain.TypeClusters]))
	for _, c := range results[0][domain.TypeClusters] {
		name, account, _ := describe(c)
		cluster := Cluster{ID: c.ID, Name: name, Account: account}
		lbIDs := sets.New[string]()
		for _, sgID := range c.Related(domain.TypeServerGroups) {
			sg, ok := serverGroups[sgID]
			if !ok {
				continue
			}
			summary := serverGroupOf(sg, instancesBySG[sgID], lbsBySG[sgID])
			for _, lb := range summary.LoadBalancers {
				if !lbIDs.Has(lb.ID) {
					lbIDs.Insert(lb.ID)
					cluster.LoadBalancers = append(cluster.LoadBalancers, lb)
				}
			}
			cluster.ServerGroups = append(cluster.ServerGroups, summary)
		}
		slices.SortFunc(cluster.LoadBalancers, func(a, b LoadBalancer) int { return strings.Compare(a.ID, b.ID) })
		clusters = append(clusters, cluster)
	}
	return clusters, nil
}

// Application returns the summary of app, or nil when it is not cached.
func (v *Views) Application(ctx context.Context, app string) (*Application, error) {
	appEntry, err := v.application(ctx, app)
	if err != nil || appEntry == nil {
		return nil, err
	}

	out := &Application{
		ID:            appEntry.ID,
		Name:          app,
		Clusters:      make(map[string][]string),
		ServerGroups:  len(appEntry.Related(domain.TypeServerGroups)),
		LoadBalancers: len(appEntry.Related(domain.TypeLoadBalancers)),
	}
	for _, id := range appEntry.Related(domain.TypeClusters) {
		k, err := domain.ParseKey(id)
		if err != nil {
			continue
		}
		out.Clusters[k.Account] = append(out.Clusters[k.Account], k.Name)
	}
	return out, nil
}

// Instance returns one instance with the names of its server groups, or nil
// when it is not cached.
func (v *Views) Instance(ctx context.Context, account, region, name string) (*Instance, error) {
	id, err := domain.Key{Type: domain.TypeInstances, Account: account, Region: region, Name: name}.ID()
	if err != nil {
		return nil, err
	}
	e, err := v.store.Get(ctx, domain.TypeInstances, id)
	if err != nil || e == nil {
		return nil, err
	}
	out := instanceOf(*e)
	for _, sgID := range e.Related(domain.TypeServerGroups) {
		if k, err := domain.ParseKey(sgID); err == nil {
			out.ServerGroups = append(out.ServerGroups, k.Name)
		}
	}
	return &out, nil
}

// Keys returns the ids of typ matching pattern.
func (v *Views) Keys(ctx context.Context, typ, pattern string) ([]string, error) {
	return v.store.GetAllPattern(ctx, typ, domain.NewPattern(pattern))
}

func (v *Views) application(ctx context.Context, app string) (*domain.CacheEntry, error) {
	id, err := domain.Key{Type: domain.TypeApplications, Name: app}.ID()
	if err != nil {
		return nil, err
	}
	return v.store.Get(ctx, domain.TypeApplications, id)
}

func serverGroupOf(sg domain.CacheEntry, instances, lbs []domain.CacheEntry) ServerGroup {
	name, account, region := describe(sg)
	out := ServerGroup{
		ID:            sg.ID,
		Name:          name,
		Account:       account,
		Region:        region,
		Instances:     make([]Instance, 0, len(instances)),
		LoadBalancers: make([]LoadBalancer, 0, len(lbs)),
	}
	for _, i := range instances {
		out.Instances = append(out.Instances, instanceOf(i))
	}
	for _, lb := range lbs {
		lbName, lbAccount, lbRegion := describe(lb)
		out.LoadBalancers = append(out.LoadBalancers, LoadBalancer{
			ID: lb.ID, Name: lbName, Account: lbAccount, Region: lbRegion,
		})
	}
	return out
}

func instanceOf(e domain.CacheEntry) Instance {
	name, account, region := describe(e)
	health, ok := e.Attributes.Str("health")
	if !ok || health == "" {
		health = HealthUnknown
	}
	return Instance{ID: e.ID, Name: name, Account: account, Region: region, Health: health}
}

// describe reads the self-descriptive fields, falling back to the key.
func describe(e domain.CacheEntry) (name, account, region string) {
	k, _ := domain.ParseKey(e.ID)
	name, account, region = k.Name, k.Account, k.Region
	if s, ok := e.Attributes.Str("name"); ok {
		name = s
	}
	return name, account, region
}
