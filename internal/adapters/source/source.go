// Package source implements file-backed resource adapters.
package source

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"

	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Factory creates adapters by provider.
type Factory struct{}

var _ ports.AdapterFactory = Factory{}

// New implements ports.AdapterFactory.
func (Factory) New(cfg domain.AgentConfig) (ports.ResourceAdapter, error) {
	switch cfg.Provider {
	case domain.ProviderFixture, "":
		return NewFixtureAdapter(cfg), nil
	case domain.ProviderKubernetes:
		a, err := NewKubernetesAdapter(cfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownProvider, "cannot create adapter"), "provider", string(cfg.Provider))
	}
}

// expand returns the sorted files matched by globs.
func expand(globs []string) ([]string, error) {
	var files []string
	for _, glob := range globs {
		matches, err := filepath.Glob(glob)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrSourceReadFailed.Error()), "glob", glob)
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// decodeFiles decodes every YAML document of every file in order.
func decodeFiles(files []string) ([]map[string]any, error) {
	var docs []map[string]any
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrSourceReadFailed.Error()), "file", file)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		for {
			var node yaml.Node
			err := dec.Decode(&node)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, zerr.With(zerr.Wrap(err, domain.ErrSourceParseFailed.Error()), "file", file)
			}
			found, err := documents(&node)
			if err != nil {
				return nil, zerr.With(zerr.Wrap(err, domain.ErrSourceParseFailed.Error()), "file", file)
			}
			docs = append(docs, found...)
		}
	}
	return docs, nil
}

// documents accepts a mapping or a sequence of mappings.
func documents(node *yaml.Node) ([]map[string]any, error) {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	switch node.Kind {
	case yaml.SequenceNode:
		var docs []map[string]any
		if err := node.Decode(&docs); err != nil {
			return nil, err
		}
		return docs, nil
	case yaml.MappingNode:
		var doc map[string]any
		if err := node.Decode(&doc); err != nil {
			return nil, err
		}
		return []map[string]any{doc}, nil
	default:
		return nil, nil
	}
}

// paginate returns page req.Page of items. A non-positive page size returns everything.
func paginate(items []ports.RawResource, req ports.ListRequest) []ports.RawResource {
	if req.PageSize <= 0 {
		if req.Page > 0 {
			return nil
		}
		return items
	}
	start := req.Page * req.PageSize
	if start >= len(items) {
		return nil
	}
	end := min(start+req.PageSize, len(items))
	return items[start:end]
}

// attributes converts a decoded YAML map into attributes.
func attributes(m map[string]any) domain.Attributes {
	attrs := make(domain.Attributes, len(m))
	for k, v := range m {
		attrs[k] = domain.FromAny(v)
	}
	return attrs
}
