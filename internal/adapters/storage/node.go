package storage

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/relcache/internal/core/ports"
)

// NodeID is the unique identifier for the store opener Graft node.
const NodeID graft.ID = "adapter.store_opener"

func init() {
	graft.Register(graft.Node[ports.StoreOpener]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.StoreOpener, error) {
			return Opener{}, nil
		},
	})
}
