package builder

import (
	"regexp"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.trai.ch/relcache/internal/core/domain"
)

// DefaultNamerSize bounds the number of memoized names.
const DefaultNamerSize = 4096

// pushPattern matches the version suffix appended to every deployment of a cluster.
var pushPattern = regexp.MustCompile(`^(.+)-v(\d{3,})$`)

// Namer derives monikers from resource names following the
// app-stack-detail-vNNN convention.
type Namer struct {
	cache *lru.Cache[string, domain.Moniker]
}

// NewNamer returns a Namer memoizing up to size names.
func NewNamer(size int) (*Namer, error) {
	if size <= 0 {
		size = DefaultNamerSize
	}
	cache, err := lru.New[string, domain.Moniker](size)
	if err != nil {
		return nil, err
	}
	return &Namer{cache: cache}, nil
}

// Derive parses name into a moniker. Sequence is -1 when the name has no version suffix.
func (n *Namer) Derive(name string) domain.Moniker {
	if m, ok := n.cache.Get(name); ok {
		return m
	}
	m := parseMoniker(name)
	n.cache.Add(name, m)
	return m
}

func parseMoniker(name string) domain.Moniker {
	m := domain.Moniker{Cluster: name, Sequence: -1}
	if match := pushPattern.FindStringSubmatch(name); match != nil {
		m.Cluster = match[1]
		if seq, err := strconv.Atoi(match[2]); err == nil {
			m.Sequence = seq
		}
	}

	parts := strings.SplitN(m.Cluster, "-", 3)
	m.App = parts[0]
	if len(parts) > 1 {
		m.Stack = parts[1]
	}
	if len(parts) > 2 {
		m.Detail = parts[2]
	}
	return m
}

// Resolve completes an explicit moniker with what can be derived from name.
// The derived cluster is only used when it belongs to the same application.
func (n *Namer) Resolve(name string, explicit *domain.Moniker) domain.Moniker {
	derived := n.Derive(name)
	if explicit == nil {
		return derived
	}
	m := *explicit
	if m.App == "" {
		m.App = derived.App
	}
	if m.Cluster == "" && derived.App == m.App {
		m.Cluster = derived.Cluster
	}
	m.Sequence = derived.Sequence
	return m
}
