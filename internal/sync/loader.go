package sync

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/medigraph/medigraph/internal/platform/errs"
	"github.com/medigraph/medigraph/internal/platform/graph"
)

var rowsLoaded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "medigraph_rows_loaded_total",
	Help: "Rows upserted into the graph, labelled by entity type.",
}, []string{"entity"})

// Applier applies a batch of merge operations atomically.
type Applier interface {
	Apply(ctx context.Context, ops []graph.Op) error
}

// Loader upserts one entity type's batch into the graph. The unit of
// atomicity is a single row: all of a row's merges run in one transaction,
// and a row failure aborts the remaining rows of the batch while
// already-applied rows persist.
type Loader struct {
	store Applier
	log   zerolog.Logger
}

func NewLoader(store Applier, log zerolog.Logger) *Loader {
	return &Loader{store: store, log: log}
}

const progressEvery = 500

// Upsert applies each row's merge plan in order and returns the number of
// rows applied. Rows with a nil plan (e.g. observations missing ids) are
// skipped.
func (l *Loader) Upsert(ctx context.Context, entity EntityType, rows []Row) (int, error) {
	total := len(rows)
	applied := 0

	for i, row := range rows {
		ops := row.Ops()
		if ops == nil {
			continue
		}
		if err := l.store.Apply(ctx, ops); err != nil {
			return applied, &errs.RowUpsertError{Entity: string(entity), Row: i + 1, Err: err}
		}
		applied++
		rowsLoaded.WithLabelValues(string(entity)).Inc()

		if (i+1)%progressEvery == 0 || i+1 == total {
			l.log.Info().
				Str("entity", string(entity)).
				Int("loaded", i+1).
				Int("total", total).
				Msg("load progress")
		}
	}

	return applied, nil
}
