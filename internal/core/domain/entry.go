package domain

import (
	"encoding/json"
	"slices"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Well-known entry types.
const (
	TypeApplications         = "applications"
	TypeClusters             = "clusters"
	TypeServerGroups         = "serverGroups"
	TypeServerGroupManagers  = "serverGroupManagers"
	TypeInstances            = "instances"
	TypeLoadBalancers        = "loadBalancers"
	TypeArtifacts            = "artifacts"
	TypeSecurityGroups       = "securityGroups"
	TypeTargetGroups         = "targetGroups"
	TypeLaunchConfigurations = "launchConfigurations"
)

// Relationships maps a relationship type to the ids it points at.
// The relationship type of an edge is the type of its target entry.
type Relationships map[string]sets.Set[string]

// Add links ids under relType.
func (r Relationships) Add(relType string, ids ...string) {
	if len(ids) == 0 {
		return
	}
	s, ok := r[relType]
	if !ok {
		s = sets.New[string]()
		r[relType] = s
	}
	s.Insert(ids...)
}

// Remove unlinks ids from relType, dropping the type when it becomes empty.
func (r Relationships) Remove(relType string, ids ...string) {
	s, ok := r[relType]
	if !ok {
		return
	}
	s.Delete(ids...)
	if s.Len() == 0 {
		delete(r, relType)
	}
}

// Has reports whether id is linked under relType.
func (r Relationships) Has(relType, id string) bool {
	return r[relType].Has(id)
}

// Get returns the sorted ids linked under relType.
func (r Relationships) Get(relType string) []string {
	s, ok := r[relType]
	if !ok {
		return nil
	}
	return sets.List(s)
}

// Types returns the sorted relationship types present.
func (r Relationships) Types() []string {
	types := make([]string, 0, len(r))
	for t, s := range r {
		if s.Len() > 0 {
			types = append(types, t)
		}
	}
	slices.Sort(types)
	return types
}

// Union adds every edge of other to r.
func (r Relationships) Union(other Relationships) {
	for t, s := range other {
		r.Add(t, s.UnsortedList()...)
	}
}

// Clone returns a deep copy.
func (r Relationships) Clone() Relationships {
	out := make(Relationships, len(r))
	for t, s := range r {
		out[t] = s.Clone()
	}
	return out
}

// Filter returns a copy restricted according to f.
func (r Relationships) Filter(f RelationshipFilter) Relationships {
	switch {
	case f.all:
		return r.Clone()
	case len(f.include) == 0:
		return Relationships{}
	}
	out := make(Relationships, len(f.include))
	for _, t := range f.include {
		if s, ok := r[t]; ok {
			out[t] = s.Clone()
		}
	}
	return out
}

// Equal reports whether r and other hold the same edges.
func (r Relationships) Equal(other Relationships) bool {
	if !slices.Equal(r.Types(), other.Types()) {
		return false
	}
	for t, s := range r {
		if !s.Equal(other[t]) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes each set as a sorted array.
func (r Relationships) MarshalJSON() ([]byte, error) {
	out := make(map[string][]string, len(r))
	for t, s := range r {
		if s.Len() > 0 {
			out[t] = sets.List(s)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes arrays into sets.
func (r *Relationships) UnmarshalJSON(data []byte) error {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Relationships, len(raw))
	for t, ids := range raw {
		out.Add(t, ids...)
	}
	*r = out
	return nil
}

// RelationshipFilter restricts which relationship types a read returns.
type RelationshipFilter struct {
	all     bool
	include []string
}

// AllRelationships keeps every relationship type.
func AllRelationships() RelationshipFilter { return RelationshipFilter{all: true} }

// NoRelationships drops every relationship type.
func NoRelationships() RelationshipFilter { return RelationshipFilter{} }

// IncludeRelationships keeps only the named relationship types.
func IncludeRelationships(types ...string) RelationshipFilter {
	return RelationshipFilter{include: slices.Clone(types)}
}

// IsAll reports whether the filter keeps everything.
func (f RelationshipFilter) IsAll() bool { return f.all }

// CacheEntry is one node of the relationship graph.
type CacheEntry struct {
	ID            string        `json:"id"`
	Type          string        `json:"type"`
	Attributes    Attributes    `json:"attributes"`
	Relationships Relationships `json:"relationships"`
	// Authoritative is set when the entry was produced by the owner of its type
	// rather than synthesized from an inverse edge.
	Authoritative bool `json:"authoritative"`
	// Declared holds the forward edges the producer itself reported. Every other
	// edge in Relationships was contributed as an inverse by another entry.
	Declared Relationships `json:"declared,omitempty"`
	// Producer is the kind of the agent that produced an authoritative entry.
	Producer string `json:"producer,omitempty"`
}

// NewEntry returns an empty entry for the given type and id.
func NewEntry(typ, id string) CacheEntry {
	return CacheEntry{
		ID:            id,
		Type:          typ,
		Attributes:    Attributes{},
		Relationships: Relationships{},
	}
}

// Clone returns a deep copy of the entry.
func (e CacheEntry) Clone() CacheEntry {
	out := e
	out.Attributes = e.Attributes.Clone()
	if out.Attributes == nil {
		out.Attributes = Attributes{}
	}
	out.Relationships = e.Relationships.Clone()
	if e.Declared != nil {
		out.Declared = e.Declared.Clone()
	}
	return out
}

// Claim marks the entry as produced by kind, recording its current
// relationships as the edges it declares.
func (e *CacheEntry) Claim(kind string) {
	e.Producer = kind
	e.Declared = e.Relationships.Clone()
}

// Related returns the sorted ids linked under relType.
func (e CacheEntry) Related(relType string) []string {
	return e.Relationships.Get(relType)
}
