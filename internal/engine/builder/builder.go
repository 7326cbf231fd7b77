// Package builder turns provider-neutral resource descriptions into cache entries.
package builder

import (
	"errors"

	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports"
	"go.trai.ch/zerr"
)

// Options tunes how entries of one agent are linked.
type Options struct {
	// Clustered links entries to clusters:<account>:<cluster>.
	Clustered bool
}

// Builder produces authoritative cache entries.
type Builder struct {
	logger ports.Logger
	namer  *Namer
}

// New creates a Builder.
func New(logger ports.Logger, namer *Namer) *Builder {
	return &Builder{logger: logger, namer: namer}
}

// Build produces the entry for r. The result is a pure function of r and opts.
func (b *Builder) Build(r domain.Resource, opts Options) (domain.CacheEntry, error) {
	id, err := r.Key().ID()
	if err != nil {
		return domain.CacheEntry{}, err
	}

	moniker := b.moniker(r)
	if moniker.App == "" {
		return domain.CacheEntry{}, zerr.With(zerr.Wrap(domain.ErrMissingApplication, "cannot build entry"), "id", id)
	}
	appID, err := domain.Key{Type: domain.TypeApplications, Name: moniker.App}.ID()
	if err != nil {
		return domain.CacheEntry{}, zerr.With(err, "id", id)
	}

	entry := domain.NewEntry(r.Type, id)
	entry.Authoritative = true
	for k, v := range r.Attributes {
		entry.Attributes[k] = v.Clone()
	}
	for k, v := range r.Key().Attributes() {
		entry.Attributes[k] = v
	}
	entry.Attributes["moniker"] = moniker.Value()

	entry.Relationships.Add(domain.TypeApplications, appID)

	if opts.Clustered && moniker.Cluster != "" && r.Account != "" {
		clusterID, err := domain.Key{Type: domain.TypeClusters, Account: r.Account, Name: moniker.Cluster}.ID()
		if err != nil {
			b.logger.Warn("skipping cluster link of " + id + ": " + err.Error())
		} else {
			entry.Relationships.Add(domain.TypeClusters, clusterID)
		}
	}

	for _, ref := range append(append([]domain.Ref(nil), r.Owners...), r.Siblings...) {
		target, err := ref.Key().ID()
		if err != nil {
			b.logger.Warn("skipping link of " + id + ": " + err.Error())
			continue
		}
		entry.Relationships.Add(ref.Type, target)
	}

	if r.Artifact != "" {
		key, err := ArtifactKey(r.Artifact)
		if err == nil {
			var artifactID string
			artifactID, err = key.ID()
			if err == nil {
				entry.Relationships.Add(domain.TypeArtifacts, artifactID)
			}
		}
		if err != nil {
			b.logger.Warn("skipping artifact link of " + id + ": " + err.Error())
		}
	}

	return entry, nil
}

// moniker resolves the grouping of r. An instance without an explicit moniker
// is grouped under the server group owning it, as instance names such as i-1
// carry no application.
func (b *Builder) moniker(r domain.Resource) domain.Moniker {
	if r.Moniker == nil && r.Type == domain.TypeInstances {
		for _, owner := range r.Owners {
			if owner.Type == domain.TypeServerGroups {
				m := b.namer.Derive(owner.Name)
				m.Sequence = -1
				return m
			}
		}
	}
	return b.namer.Resolve(r.Name, r.Moniker)
}

// BuildAll builds every resource, dropping and logging the ones that are rejected.
// It returns the entries and the number of rejected resources.
func (b *Builder) BuildAll(resources []domain.Resource, opts Options) ([]domain.CacheEntry, int) {
	entries := make([]domain.CacheEntry, 0, len(resources))
	rejected := 0
	for _, r := range resources {
		entry, err := b.Build(r, opts)
		if err != nil {
			rejected++
			b.logger.Error(err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, rejected
}

// IsRejection reports whether err rejects a single resource rather than the batch.
func IsRejection(err error) bool {
	return errors.Is(err, domain.ErrMalformedKey) || errors.Is(err, domain.ErrMissingApplication)
}
