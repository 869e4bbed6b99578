package cooccur

import (
	"context"
	"log"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"unicode/utf8"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cognicore/kotoba/pkg/kotoba/lsh"
)

// VectorStats summarizes a vector generation pass.
type VectorStats struct {
	VectorCount   int
	Dimensions    int
	PairsScored   int
	PairsFiltered int
	IndexFailures int
}

type pair struct {
	i, j int
	w    float64
}

type scoredNeighbor struct {
	id    int
	score float64
}

// GenerateVectors derives a dense vector per term from the co-occurrence
// matrix:
//
//  1. pairs are filtered to the top percentile of the weight distribution
//     (with an absolute floor) to bound the computation;
//  2. survivors are scored with a PPMI + TF-IDF hybrid blended through a
//     frequency-adaptive sigmoid, plus a small diversity bonus;
//  3. each term's top-K neighbors form a sparse original vector that is
//     L2-normalized and pushed through a seeded random projection into the
//     adaptive output dimensionality;
//  4. every projected vector is inserted into the MinHash/LSH index, with
//     insert failures logged and tolerated (queries fall back to
//     exhaustive search).
//
// Scoring runs in batches with a cooperative yield between them; once
// started, a pass runs to completion unless the context is cancelled
// between batches.
func (e *Engine) GenerateVectors(ctx context.Context) (VectorStats, error) {
	var stats VectorStats
	if len(e.terms) == 0 {
		return stats, nil
	}

	e.invalidateDerived()
	e.dims = e.adaptiveDims()

	pairs, cutoff := e.filteredPairs()
	stats.PairsFiltered = len(pairs)

	neighbors := make(map[int][]scoredNeighbor)
	cutoffWeight := cutoff
	for start := 0; start < len(pairs); start += e.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		end := start + e.cfg.BatchSize
		if end > len(pairs) {
			end = len(pairs)
		}
		for _, p := range pairs[start:end] {
			score := e.hybridScore(p, cutoffWeight)
			if score <= 0 {
				continue
			}
			neighbors[p.i] = append(neighbors[p.i], scoredNeighbor{p.j, score})
			neighbors[p.j] = append(neighbors[p.j], scoredNeighbor{p.i, score})
			stats.PairsScored++
		}
		// Yield between batches so a heavy pass cannot monopolize the
		// scheduler.
		runtime.Gosched()
	}

	e.index = lsh.New(e.lshCfg, e.seed)
	e.indexHealthy = true
	for id, term := range e.terms {
		vec := e.projectTerm(neighbors[id])
		e.vectors[term] = vec
		if err := e.index.Insert(term, vec); err != nil {
			stats.IndexFailures++
			log.Printf("cooccur: lsh insert failed for %q: %v", term, err)
		}
	}
	if stats.IndexFailures > 0 && stats.IndexFailures == len(e.terms) {
		e.indexHealthy = false
	}

	stats.VectorCount = len(e.vectors)
	stats.Dimensions = e.dims
	return stats, nil
}

// filteredPairs returns the unique pairs surviving the percentile filter,
// and the cutoff used.
func (e *Engine) filteredPairs() ([]pair, float64) {
	var all []pair
	for i, row := range e.adj {
		for j, w := range row {
			if i < j {
				all = append(all, pair{i, j, w})
			}
		}
	}
	if len(all) == 0 {
		return nil, 0
	}

	weights := make([]float64, len(all))
	for k, p := range all {
		weights[k] = p.w
	}
	sort.Float64s(weights)
	cutoff := stat.Quantile(e.cfg.PairPercentile, stat.Empirical, weights, nil)
	if cutoff < e.cfg.PairFloor {
		cutoff = e.cfg.PairFloor
	}

	kept := all[:0]
	for _, p := range all {
		if p.w >= cutoff {
			kept = append(kept, p)
		}
	}
	// Deterministic scoring order.
	sort.Slice(kept, func(a, b int) bool {
		if kept[a].i != kept[b].i {
			return kept[a].i < kept[b].i
		}
		return kept[a].j < kept[b].j
	})
	return kept, cutoff
}

// hybridScore combines PPMI and a TF-IDF-like score for one pair. The
// blend weight adapts to the pair's frequency through a sigmoid centered
// on the percentile cutoff rather than a fixed split: pairs well above
// the cutoff lean on PPMI, pairs near it on TF-IDF.
func (e *Engine) hybridScore(p pair, cutoffWeight float64) float64 {
	ppmi := e.ppmi(p)
	tfidf := e.pairTFIDF(p)

	sig := 1 / (1 + math.Exp(-(p.w-cutoffWeight)/(cutoffWeight+1)))
	wPMI := 0.35 + 0.3*sig

	// Squash both components into [0,1) so the blend is scale-free.
	score := wPMI*(ppmi/(1+ppmi)) + (1-wPMI)*(tfidf/(1+tfidf))
	return score + e.diversityBonus(p)
}

// ppmi is positive pointwise mutual information over co-occurrence mass,
// zeroed below the minimum support threshold.
func (e *Engine) ppmi(p pair) float64 {
	if p.w < e.cfg.MinSupportPMI || e.totalWeight == 0 {
		return 0
	}
	joint := p.w / e.totalWeight
	p1 := e.mass[p.i] / e.totalWeight
	p2 := e.mass[p.j] / e.totalWeight
	if p1 == 0 || p2 == 0 {
		return 0
	}
	v := math.Log2(joint / (p1 * p2))
	if v < 0 {
		return 0
	}
	return v
}

// pairTFIDF scores a pair by its weight relative to the heavier member's
// mass, boosted by the rarer member's inverse document frequency.
func (e *Engine) pairTFIDF(p pair) float64 {
	maxMass := math.Max(e.mass[p.i], e.mass[p.j])
	if maxMass == 0 {
		return 0
	}
	tf := p.w / maxMass

	df := e.stats.DocFreq(e.terms[p.i])
	if d := e.stats.DocFreq(e.terms[p.j]); d < df || df == 0 {
		df = d
	}
	idf := 1.0
	if total := e.stats.TotalDocs(); total > 0 {
		idf = math.Log(float64(1+total)/float64(1+df)) + 1
	}
	return tf * idf
}

// diversityBonus slightly rewards pairs of dissimilar terms so vectors do
// not collapse onto near-duplicates: string-length difference plus
// co-occurrence mass difference, both normalized.
func (e *Engine) diversityBonus(p pair) float64 {
	la := utf8.RuneCountInString(e.terms[p.i])
	lb := utf8.RuneCountInString(e.terms[p.j])
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	lenPart := 0.0
	if maxLen > 0 {
		lenPart = math.Abs(float64(la-lb)) / float64(maxLen)
	}
	massPart := math.Abs(e.mass[p.i]-e.mass[p.j]) / (e.mass[p.i] + e.mass[p.j] + 1)
	return 0.05 * (lenPart + massPart)
}

// adaptiveDims sizes the output dimensionality from the vocabulary within
// the configured bounds.
func (e *Engine) adaptiveDims() int {
	d := int(2 * math.Sqrt(float64(len(e.terms))))
	if d < e.cfg.DimMin {
		d = e.cfg.DimMin
	}
	if d > e.cfg.DimMax {
		d = e.cfg.DimMax
	}
	return d
}

// projectTerm assembles a term's original sparse vector from its top-K
// neighbor scores, L2-normalizes it, and projects it into e.dims
// dimensions.
func (e *Engine) projectTerm(neighbors []scoredNeighbor) []float64 {
	out := make([]float64, e.dims)
	if len(neighbors) == 0 {
		return out
	}

	sort.Slice(neighbors, func(a, b int) bool {
		if neighbors[a].score != neighbors[b].score {
			return neighbors[a].score > neighbors[b].score
		}
		return neighbors[a].id < neighbors[b].id
	})
	if len(neighbors) > e.cfg.TopK {
		neighbors = neighbors[:e.cfg.TopK]
	}

	norm := 0.0
	for _, n := range neighbors {
		norm += n.score * n.score
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return out
	}

	for _, n := range neighbors {
		row := e.projectionRow(n.id)
		floats.AddScaled(out, n.score/norm, row)
	}
	return out
}

// projectionRow returns the random projection row for an original
// dimension (a term id). Rows are generated once from the engine seed and
// reused for every subsequent pass.
func (e *Engine) projectionRow(id int) []float64 {
	if row, ok := e.projRows[id]; ok {
		return row
	}
	rng := rand.New(rand.NewSource(e.seed + int64(id)*0x9E3779B9))
	row := make([]float64, e.dims)
	scale := 1 / math.Sqrt(float64(e.dims))
	for k := range row {
		row[k] = rng.NormFloat64() * scale
	}
	e.projRows[id] = row
	return row
}

// VectorState is the portable form of the derived vector space, carried
// in snapshots so a restart can serve similarity queries without
// regenerating the projection.
type VectorState struct {
	Dims    int
	Vectors map[string][]float64
}

// ExportVectors copies the current vectors for persistence. An engine
// with no generated vectors exports a zero state.
func (e *Engine) ExportVectors() VectorState {
	if e.dims == 0 || len(e.vectors) == 0 {
		return VectorState{}
	}
	out := VectorState{Dims: e.dims, Vectors: make(map[string][]float64, len(e.vectors))}
	for term, vec := range e.vectors {
		out.Vectors[term] = append([]float64(nil), vec...)
	}
	return out
}

// RestoreVectors replaces the derived vector space with a previously
// exported one and rebuilds the LSH index over it. The co-occurrence
// matrix is not part of the state; similarity queries need only the
// vectors, and the next matrix build discards the restored space like
// any other derived data. Vectors whose length disagrees with Dims are
// skipped.
func (e *Engine) RestoreVectors(vs VectorState) VectorStats {
	var stats VectorStats
	if vs.Dims <= 0 || len(vs.Vectors) == 0 {
		return stats
	}

	e.invalidateDerived()
	e.dims = vs.Dims
	e.index = lsh.New(e.lshCfg, e.seed)
	e.indexHealthy = true
	for term, vec := range vs.Vectors {
		if term == "" || len(vec) != vs.Dims {
			continue
		}
		v := append([]float64(nil), vec...)
		e.vectors[term] = v
		if err := e.index.Insert(term, v); err != nil {
			stats.IndexFailures++
			log.Printf("cooccur: lsh insert failed for %q: %v", term, err)
		}
	}
	if stats.IndexFailures > 0 && stats.IndexFailures == len(e.vectors) {
		e.indexHealthy = false
	}
	stats.VectorCount = len(e.vectors)
	stats.Dimensions = e.dims
	return stats
}

// Vector returns the projected vector for a term, if one exists.
func (e *Engine) Vector(term string) ([]float64, bool) {
	v, ok := e.vectors[term]
	return v, ok
}

// VectorCount returns the number of generated vectors.
func (e *Engine) VectorCount() int { return len(e.vectors) }

// Dimensions returns the current projection dimensionality.
func (e *Engine) Dimensions() int { return e.dims }
