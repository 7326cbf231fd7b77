package ports

import (
	"context"

	"go.trai.ch/relcache/internal/core/domain"
)

// Scope is the slice of the cache an adapter is authoritative for.
type Scope struct {
	// Kind names the adapter, e.g. "serverGroups" or "Pod".
	Kind string
	// Type is the entry type the adapter produces.
	Type    string
	Account string
	Region  string
}

// Pattern returns the id pattern covering the whole scope.
func (s Scope) Pattern() domain.Pattern {
	k := domain.Key{Type: s.Type, Account: s.Account, Region: s.Region, Name: "*"}
	return domain.NewPattern(k.String())
}

// String identifies the scope in logs and shard assignment.
func (s Scope) String() string {
	return s.Kind + "/" + s.Account + "/" + s.Region
}

// ListRequest selects a page of upstream resources.
type ListRequest struct {
	// Page is zero based.
	Page     int
	PageSize int
	// Name narrows the listing to a single resource when set.
	Name string
}

// RawResource is one upstream document before conversion.
type RawResource struct {
	Name     string
	Document map[string]any
}

// ResourceAdapter lists upstream resources and converts them for the builder.
//
//go:generate mockgen -source=source.go -destination=mocks/mock_source.go -package=mocks
type ResourceAdapter interface {
	// Scope returns the slice the adapter owns.
	Scope() Scope

	// List returns one page. A page shorter than PageSize is the last one.
	List(ctx context.Context, req ListRequest) ([]RawResource, error)

	// Convert turns a raw document into a builder input.
	Convert(raw RawResource) (domain.Resource, error)
}

// AdapterFactory creates the resource adapter configured for an agent.
type AdapterFactory interface {
	// New returns the adapter for cfg.
	New(cfg domain.AgentConfig) (ResourceAdapter, error)
}
