package lsh

import (
	"fmt"
	"hash/fnv"

	"github.com/cognicore/kotoba/pkg/kotoba/config"
)

// Index is a banded MinHash index over term vectors.
type Index struct {
	cfg   config.LSHConfig
	salts []uint64

	// one bucket table per band: bucket key -> member terms
	bands []map[uint64][]string
	sigs  map[string][]uint64
}

// New creates an empty index. The hash family is derived from the seed,
// so two indexes built with the same seed and vectors agree bucket for
// bucket.
func New(cfg config.LSHConfig, seed int64) *Index {
	ix := &Index{
		cfg:   cfg,
		salts: newSalts(cfg.Hashes, seed),
	}
	ix.reset()
	return ix
}

func (ix *Index) reset() {
	ix.bands = make([]map[uint64][]string, ix.cfg.Bands)
	for i := range ix.bands {
		ix.bands[i] = make(map[uint64][]string)
	}
	ix.sigs = make(map[string][]uint64)
}

// Insert adds or replaces a term's vector in the index. The vector is
// converted to sparse string features first; a vector with no usable
// features is an error the caller logs and survives.
func (ix *Index) Insert(term string, vec []float64) error {
	features := sparseFeatures(vec, ix.cfg.Buckets)
	if len(features) == 0 {
		return fmt.Errorf("%w: term %q", ErrNoFeatures, term)
	}

	sig := signature(features, ix.salts)
	ix.sigs[term] = sig

	rows := ix.cfg.Hashes / ix.cfg.Bands
	for b := 0; b < ix.cfg.Bands; b++ {
		key := bandKey(b, sig[b*rows:(b+1)*rows])
		ix.bands[b][key] = append(ix.bands[b][key], term)
	}
	return nil
}

// Query returns the candidate terms sharing at least one band bucket with
// the given term. The term itself is excluded. A term that was never
// indexed yields no candidates, which callers treat as an index miss and
// answer exhaustively.
func (ix *Index) Query(term string) []string {
	sig, ok := ix.sigs[term]
	if !ok {
		return nil
	}

	rows := ix.cfg.Hashes / ix.cfg.Bands
	seen := make(map[string]struct{})
	var out []string
	for b := 0; b < ix.cfg.Bands; b++ {
		key := bandKey(b, sig[b*rows:(b+1)*rows])
		for _, cand := range ix.bands[b][key] {
			if cand == term {
				continue
			}
			if _, dup := seen[cand]; dup {
				continue
			}
			seen[cand] = struct{}{}
			out = append(out, cand)
		}
	}
	return out
}

// Contains reports whether the term has been indexed.
func (ix *Index) Contains(term string) bool {
	_, ok := ix.sigs[term]
	return ok
}

// Rebuild clears the index and re-inserts every vector, returning the
// number of terms that failed to index.
func (ix *Index) Rebuild(vectors map[string][]float64) int {
	ix.reset()
	failures := 0
	for term, vec := range vectors {
		if err := ix.Insert(term, vec); err != nil {
			failures++
		}
	}
	return failures
}

// Size returns the number of indexed terms.
func (ix *Index) Size() int { return len(ix.sigs) }

// bandKey hashes one signature band into its bucket key.
func bandKey(band int, rows []uint64) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	buf[0] = byte(band)
	h.Write(buf[:1])
	for _, r := range rows {
		for i := 0; i < 8; i++ {
			buf[i] = byte(r >> (8 * i))
		}
		h.Write(buf[:])
	}
	return h.Sum64()
}
