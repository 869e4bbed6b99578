// Package maintenance holds the scheduled compaction pass that keeps the
// frequency tables bounded: exponential time decay keyed on learn-batch
// age, followed by eviction of entries that decayed below the floor, then
// persistence of the compacted state.
package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/cognicore/kotoba/pkg/kotoba/ngram"
	"github.com/cognicore/kotoba/pkg/kotoba/store"
)

// Options tunes one compaction run.
type Options struct {
	// HalfLifeBatches is the decay half-life measured in learn batches.
	// Zero disables decay (and therefore eviction).
	HalfLifeBatches uint64

	// MinFreq is the eviction floor: entries whose decayed frequency
	// falls below it are removed.
	MinFreq float64

	// BatchID labels the persisted snapshot.
	BatchID string
}

// Result summarizes a compaction run.
type Result struct {
	ngram.CompactStats
	Saved bool
}

// Compactor runs decay/eviction over a model and persists the result.
type Compactor struct {
	Model *ngram.Model
	Store store.Store
}

// Compact applies decay and eviction, then saves the compacted snapshot.
// Frequencies only ever decrease here; the learn path is the only one
// that raises them. The saved snapshot carries no vector section: decay
// changes the frequency distribution the vectors were derived from, so
// they are regenerated on the next build instead of persisted stale.
func (c *Compactor) Compact(ctx context.Context, opts Options) (Result, error) {
	var res Result
	if c.Model == nil {
		return res, errors.New("compactor: no model")
	}

	res.CompactStats = c.Model.DecayEvict(opts.HalfLifeBatches, opts.MinFreq)

	if c.Store == nil {
		return res, nil
	}
	snap := store.FromState(c.Model.Export(), opts.BatchID, time.Now())
	if err := c.Store.SaveSnapshot(ctx, snap); err != nil {
		return res, err
	}
	res.Saved = true
	return res, nil
}
