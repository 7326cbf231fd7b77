package source

import (
	"context"

	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// fixtureResource is one generic resource document.
type fixtureResource struct {
	Name       string         `yaml:"name"`
	Attributes map[string]any `yaml:"attributes"`
	Owners     []domain.Ref   `yaml:"owners"`
	Siblings   []domain.Ref   `yaml:"siblings"`
	Artifact   string         `yaml:"artifact"`
	App        string         `yaml:"app"`
	Cluster    string         `yaml:"cluster"`
}

// FixtureAdapter lists generic resource documents of one type from YAML files.
type FixtureAdapter struct {
	cfg domain.AgentConfig
}

var _ ports.ResourceAdapter = (*FixtureAdapter)(nil)

// NewFixtureAdapter creates a FixtureAdapter.
func NewFixtureAdapter(cfg domain.AgentConfig) *FixtureAdapter {
	return &FixtureAdapter{cfg: cfg}
}

// Scope implements ports.ResourceAdapter.
func (a *FixtureAdapter) Scope() ports.Scope {
	return ports.Scope{
		Kind:    a.cfg.Kind,
		Type:    a.cfg.Type,
		Account: a.cfg.Account,
		Region:  a.cfg.Region,
	}
}

// List implements ports.ResourceAdapter.
func (a *FixtureAdapter) List(ctx context.Context, req ports.ListRequest) ([]ports.RawResource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files, err := expand(a.cfg.Sources)
	if err != nil {
		return nil, err
	}
	docs, err := decodeFiles(files)
	if err != nil {
		return nil, err
	}

	raws := make([]ports.RawResource, 0, len(docs))
	for _, doc := range docs {
		name, _ := doc["name"].(string)
		if req.Name != "" && name != req.Name {
			continue
		}
		raws = append(raws, ports.RawResource{Name: name, Document: doc})
	}
	return paginate(raws, req), nil
}

// Convert implements ports.ResourceAdapter.
func (a *FixtureAdapter) Convert(raw ports.RawResource) (domain.Resource, error) {
	data, err := yaml.Marshal(raw.Document)
	if err != nil {
		return domain.Resource{}, zerr.Wrap(err, domain.ErrSourceParseFailed.Error())
	}
	var doc fixtureResource
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return domain.Resource{}, zerr.Wrap(err, domain.ErrSourceParseFailed.Error())
	}

	r := domain.Resource{
		Type:       a.cfg.Type,
		Account:    a.cfg.Account,
		Region:     a.cfg.Region,
		Name:       doc.Name,
		Attributes: attributes(doc.Attributes),
		Owners:     a.defaults(doc.Owners),
		Siblings:   a.defaults(doc.Siblings),
		Artifact:   doc.Artifact,
	}
	if doc.App != "" || doc.Cluster != "" {
		r.Moniker = &domain.Moniker{App: doc.App, Cluster: doc.Cluster}
	}
	return r, nil
}

// defaults fills the account of regional references from the agent.
func (a *FixtureAdapter) defaults(refs []domain.Ref) []domain.Ref {
	out := make([]domain.Ref, len(refs))
	for i, ref := range refs {
		if ref.Account == "" && ref.Region != "" {
			ref.Account = a.cfg.Account
		}
		out[i] = ref
	}
	return out
}
