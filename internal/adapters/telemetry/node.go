package telemetry

import (
	"context"

	"github.com/grindlemire/graft"
)

// NodeID is the unique identifier for the metrics Graft node.
const NodeID graft.ID = "adapter.metrics"

func init() {
	graft.Register(graft.Node[*Metrics]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Metrics, error) {
			return NewMetrics(), nil
		},
	})
}
