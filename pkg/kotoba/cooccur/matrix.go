// Package cooccur builds a sparse term-term co-occurrence matrix from the
// n-gram tables (or an external relationship graph), scores pairs with a
// PPMI + TF-IDF hybrid, projects terms into fixed-size dense vectors via
// random projection, and serves approximate similarity queries through a
// MinHash/LSH index with exhaustive fallback.
package cooccur

import (
	"github.com/cognicore/kotoba/pkg/kotoba/config"
	"github.com/cognicore/kotoba/pkg/kotoba/lsh"
)

// Stats is the read-only slice of the n-gram model the engine consumes.
// *ngram.Model satisfies it.
type Stats interface {
	Range(fn func(key string, freq float64) bool)
	Tokens(key string) []string
	DocFreq(term string) int64
	TotalDocs() int64
}

// RelationGraph is an externally maintained term-relationship graph:
// term -> related term -> weight.
type RelationGraph map[string]map[string]float64

// BuildStats summarizes a matrix build.
type BuildStats struct {
	PairCount int
	TermCount int
}

// Engine owns the co-occurrence matrix, the derived vectors, the LSH
// index, and the similarity cache. The cache is an explicit field of this
// one instance, invalidated on every rebuild, rather than process-global
// state.
type Engine struct {
	cfg    config.CooccurConfig
	lshCfg config.LSHConfig
	seed   int64

	termID      map[string]int
	terms       []string
	adj         []map[int]float64 // symmetric upper+lower adjacency
	mass        []float64         // per-term total co-occurrence weight
	totalWeight float64

	vectors  map[string][]float64
	dims     int
	projRows map[int][]float64 // random projection rows, generated once

	index        *lsh.Index
	indexHealthy bool
	simCache     map[string]float64

	stats Stats // document-frequency source for TF-IDF scoring
}

// NewEngine creates an engine over the given statistics source.
func NewEngine(cfg config.CooccurConfig, lshCfg config.LSHConfig, seed int64, stats Stats) *Engine {
	return &Engine{
		cfg:      cfg,
		lshCfg:   lshCfg,
		seed:     seed,
		stats:    stats,
		termID:   make(map[string]int),
		vectors:  make(map[string][]float64),
		projRows: make(map[int][]float64),
		simCache: make(map[string]float64),
	}
}

// BuildMatrix rebuilds the co-occurrence matrix wholesale by scanning all
// stored n-grams: every pair of distinct tokens within windowSize
// positions of each other inside an n-gram accumulates the n-gram's
// weight. Previous matrix contents are discarded, and all derived state
// (vectors, index, similarity cache) is invalidated.
func (e *Engine) BuildMatrix(windowSize int) BuildStats {
	if windowSize < 1 {
		windowSize = e.cfg.WindowSize
	}
	e.resetMatrix()

	e.stats.Range(func(key string, freq float64) bool {
		tokens := e.stats.Tokens(key)
		if len(tokens) < 2 {
			return true
		}
		for i := 0; i < len(tokens); i++ {
			for j := i + 1; j < len(tokens) && j-i <= windowSize; j++ {
				if tokens[i] == tokens[j] {
					continue
				}
				e.addPair(tokens[i], tokens[j], freq)
			}
		}
		return true
	})

	return e.buildStats()
}

// BuildFromRelations consumes an externally maintained relationship graph
// instead of the n-gram windows. Weights below zero are ignored.
func (e *Engine) BuildFromRelations(graph RelationGraph) BuildStats {
	e.resetMatrix()
	for term, neighbors := range graph {
		for other, w := range neighbors {
			if term == other || w <= 0 {
				continue
			}
			// The graph may list both directions; halve so a symmetric
			// input does not double-count.
			e.addPair(term, other, w/2)
		}
	}
	return e.buildStats()
}

func (e *Engine) resetMatrix() {
	e.termID = make(map[string]int)
	e.terms = nil
	e.adj = nil
	e.mass = nil
	e.totalWeight = 0
	e.invalidateDerived()
}

// invalidateDerived drops everything computed from the matrix.
func (e *Engine) invalidateDerived() {
	e.vectors = make(map[string][]float64)
	e.projRows = make(map[int][]float64)
	e.simCache = make(map[string]float64)
	e.index = nil
	e.indexHealthy = false
	e.dims = 0
}

func (e *Engine) id(term string) int {
	if id, ok := e.termID[term]; ok {
		return id
	}
	id := len(e.terms)
	e.termID[term] = id
	e.terms = append(e.terms, term)
	e.adj = append(e.adj, make(map[int]float64))
	e.mass = append(e.mass, 0)
	return id
}

func (e *Engine) addPair(a, b string, w float64) {
	ia, ib := e.id(a), e.id(b)
	e.adj[ia][ib] += w
	e.adj[ib][ia] += w
	// Per-term totals are accumulated here, in one pass with the build,
	// so scoring never needs a per-pair rescan of the matrix.
	e.mass[ia] += w
	e.mass[ib] += w
	e.totalWeight += w
}

func (e *Engine) buildStats() BuildStats {
	pairs := 0
	for i, neighbors := range e.adj {
		for j := range neighbors {
			if i < j {
				pairs++
			}
		}
	}
	return BuildStats{PairCount: pairs, TermCount: len(e.terms)}
}

// TermCount returns the current vocabulary size of the matrix.
func (e *Engine) TermCount() int { return len(e.terms) }

// Weight returns the accumulated co-occurrence weight of a pair.
func (e *Engine) Weight(a, b string) float64 {
	ia, ok := e.termID[a]
	if !ok {
		return 0
	}
	ib, ok := e.termID[b]
	if !ok {
		return 0
	}
	return e.adj[ia][ib]
}
