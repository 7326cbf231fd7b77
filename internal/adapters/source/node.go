package source

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/relcache/internal/core/ports"
)

// NodeID is the unique identifier for the adapter factory Graft node.
const NodeID graft.ID = "adapter.source_factory"

func init() {
	graft.Register(graft.Node[ports.AdapterFactory]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.AdapterFactory, error) {
			return Factory{}, nil
		},
	})
}
