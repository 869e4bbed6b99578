package cooccur

import (
	"math"
	"sort"
	"unicode/utf8"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SimilarTerm is one result of a similarity query.
type SimilarTerm struct {
	Term       string
	Similarity float64
}

// Similarity returns the hybrid similarity of two terms in [0,1]:
// cosine similarity of their vectors blended with a simplified
// word-mover's-distance term (Euclidean vector distance plus a crude
// token-length frequency cost). Symmetric, cached by unordered pair key.
func (e *Engine) Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	key := pairCacheKey(a, b)
	if s, ok := e.simCache[key]; ok {
		return s
	}

	s := e.computeSimilarity(a, b)
	e.simCache[key] = s
	return s
}

func (e *Engine) computeSimilarity(a, b string) float64 {
	va, okA := e.vectors[a]
	vb, okB := e.vectors[b]
	if !okA || !okB {
		return 0
	}

	na := floats.Norm(va, 2)
	nb := floats.Norm(vb, 2)
	if na == 0 || nb == 0 {
		return 0
	}

	// Random projection can flip signs; fold cosine into [0,1].
	cos := floats.Dot(va, vb) / (na * nb)
	cos = (cos + 1) / 2

	diff := make([]float64, len(va))
	floats.SubTo(diff, va, vb)
	dist := floats.Norm(diff, 2)

	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	lenCost := 0.0
	if la+lb > 0 {
		lenCost = math.Abs(float64(la-lb)) / float64(la+lb)
	}

	wmd := 1 / (1 + dist + lenCost)

	s := e.cfg.CosineWeight*cos + e.cfg.WMDWeight*wmd
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// SimilarTerms returns the candidates semantically similar to target,
// strongest first. The LSH index shortlists candidates; when the index is
// unavailable or the term missed indexing, the search degrades to
// exhaustive pairwise similarity. A non-positive threshold requests the
// dynamic threshold derived from the candidate similarity distribution.
// The target itself never appears in the results.
func (e *Engine) SimilarTerms(target string, candidates []string, threshold float64) []SimilarTerm {
	pool := e.shortlist(target, candidates)
	if len(pool) == 0 {
		return nil
	}

	sims := make([]SimilarTerm, 0, len(pool))
	for _, cand := range pool {
		if cand == target {
			continue
		}
		sims = append(sims, SimilarTerm{cand, e.Similarity(target, cand)})
	}
	if len(sims) == 0 {
		return nil
	}

	if threshold <= 0 {
		threshold = e.dynamicThreshold(sims)
	}

	out := sims[:0]
	for _, s := range sims {
		if s.Similarity >= threshold {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Term < out[j].Term
	})
	return out
}

// shortlist narrows the candidate set via the LSH index when it is
// healthy, otherwise answers with the full candidate list (exhaustive
// fallback). With no explicit candidates the whole vocabulary is eligible.
func (e *Engine) shortlist(target string, candidates []string) []string {
	full := candidates
	if len(full) == 0 {
		full = make([]string, 0, len(e.vectors))
		for term := range e.vectors {
			full = append(full, term)
		}
		sort.Strings(full)
	}

	if e.index == nil || !e.indexHealthy || !e.index.Contains(target) {
		return full
	}

	bucketed := e.index.Query(target)
	if len(bucketed) == 0 {
		return full
	}
	allowed := make(map[string]struct{}, len(bucketed))
	for _, t := range bucketed {
		allowed[t] = struct{}{}
	}

	var out []string
	for _, c := range full {
		if _, ok := allowed[c]; ok {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		// The shortlist missed every candidate; answer exhaustively
		// rather than returning nothing for an index artifact.
		return full
	}
	return out
}

// dynamicThreshold derives a cut from the empirical similarity
// distribution: the midpoint of the median and third quartile, clamped to
// the configured bounds. A single global constant misbehaves across
// corpora of different densities.
func (e *Engine) dynamicThreshold(sims []SimilarTerm) float64 {
	vals := make([]float64, len(sims))
	for i, s := range sims {
		vals[i] = s.Similarity
	}
	sort.Float64s(vals)

	median := stat.Quantile(0.5, stat.Empirical, vals, nil)
	q3 := stat.Quantile(0.75, stat.Empirical, vals, nil)
	t := (median + q3) / 2

	if t < e.cfg.ThresholdMin {
		t = e.cfg.ThresholdMin
	}
	if t > e.cfg.ThresholdMax {
		t = e.cfg.ThresholdMax
	}
	return t
}

func pairCacheKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "\x00" + b
}
