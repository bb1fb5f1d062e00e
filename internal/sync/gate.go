package sync

import (
	"context"

	"github.com/rs/zerolog"
)

// NodeCounter counts nodes carrying a label.
type NodeCounter interface {
	CountNodes(ctx context.Context, label string) (int64, error)
}

// Gate decides whether an entity type's batch should be reloaded. It is
// deliberately coarse: any existing node of the type skips the whole batch,
// so it cannot detect partial loads or drive incremental refresh.
type Gate struct {
	store NodeCounter
	log   zerolog.Logger
}

func NewGate(store NodeCounter, log zerolog.Logger) *Gate {
	return &Gate{store: store, log: log}
}

// ShouldSkip reports whether at least one node of the entity type already
// exists in the graph.
func (g *Gate) ShouldSkip(ctx context.Context, entity EntityType) (bool, error) {
	count, err := g.store.CountNodes(ctx, string(entity))
	if err != nil {
		return false, err
	}
	if count > 0 {
		g.log.Warn().
			Str("entity", string(entity)).
			Int64("existing", count).
			Msg("existing nodes found, skipping load for this entity type")
		return true, nil
	}
	return false, nil
}
