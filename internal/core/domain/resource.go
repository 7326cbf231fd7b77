package domain

// Ref points at another resource by key.
type Ref struct {
	Type    string `yaml:"type" json:"type"`
	Account string `yaml:"account,omitempty" json:"account,omitempty"`
	Region  string `yaml:"region,omitempty" json:"region,omitempty"`
	Name    string `yaml:"name" json:"name"`
}

// Key returns the key the reference points at.
func (r Ref) Key() Key {
	return Key{Type: r.Type, Account: r.Account, Region: r.Region, Name: r.Name}
}

// Resource is the provider-neutral description handed to the entry builder.
type Resource struct {
	Type       string
	Account    string
	Region     string
	Name       string
	Attributes Attributes
	Owners     []Ref
	Siblings   []Ref
	// Artifact is a container image reference, if any.
	Artifact string
	// Moniker overrides the naming convention when set.
	Moniker *Moniker
}

// Key returns the key identifying the resource.
func (r Resource) Key() Key {
	return Key{Type: r.Type, Account: r.Account, Region: r.Region, Name: r.Name}
}

// Moniker groups a resource under an application and cluster.
type Moniker struct {
	App      string
	Stack    string
	Detail   string
	Cluster  string
	Sequence int
}

// Value encodes the moniker as an attribute.
func (m Moniker) Value() Value {
	fields := map[string]Value{
		"app":     String(m.App),
		"cluster": String(m.Cluster),
	}
	if m.Stack != "" {
		fields["stack"] = String(m.Stack)
	}
	if m.Detail != "" {
		fields["detail"] = String(m.Detail)
	}
	if m.Sequence >= 0 {
		fields["sequence"] = Number(float64(m.Sequence))
	}
	return Map(fields)
}
