package predict

import (
	"sort"

	"github.com/cognicore/kotoba/internal/jptext"
	"github.com/cognicore/kotoba/pkg/kotoba/ingest"
)

// fallback runs the tiered cold-start chain, in order:
//
//  1. the single most frequent known context, confidence capped by its
//     relative frequency;
//  2. the stored multi-token n-gram with the best blend of token overlap
//     and frequency;
//  3. when relevance stays below the floor, a candidate whose POS profile
//     is compatible with the input's (interrogative input prefers
//     verb/copula candidates);
//  4. a pseudo-random learned n-gram at a fixed low confidence, so the
//     chain never answers empty.
func (p *Predictor) fallback(tokens []ingest.Token, base []string) Prediction {
	if pred, ok := p.frequentContext(); ok {
		return pred
	}
	if pred, ok := p.overlapCandidate(base); ok {
		return pred
	}
	if pred, ok := p.posProfileCandidate(tokens, base); ok {
		return pred
	}
	return p.randomCandidate()
}

// frequentContext picks the most frequent discovered context label.
func (p *Predictor) frequentContext() (Prediction, bool) {
	labels := p.model.ContextLabels()
	if len(labels) == 0 {
		return Prediction{}, false
	}

	bestLabel := ""
	var bestFreq, total int64
	for label, freq := range labels {
		total += freq
		switch {
		case bestLabel == "":
			bestLabel, bestFreq = label, freq
		case freq > bestFreq:
			bestLabel, bestFreq = label, freq
		case freq == bestFreq && label < bestLabel:
			bestLabel = label
		}
	}

	conf := float64(bestFreq) / float64(total)
	if conf > p.cfg.FrequentContextCap {
		conf = p.cfg.FrequentContextCap
	}
	return Prediction{
		Category:   bestLabel,
		Confidence: conf,
		Fallback:   true,
		Tier:       TierFrequentContext,
	}, true
}

// overlapCandidate scans high-frequency multi-token n-grams for the one
// most relevant to the input, blending Jaccard similarity with frequency.
// The lexicon, when present, expands the input tokens with synonyms and
// contextually related terms before the overlap is measured.
func (p *Predictor) overlapCandidate(base []string) (Prediction, bool) {
	expanded := p.expandTokens(base)
	if len(expanded) == 0 {
		return Prediction{}, false
	}

	maxFreq := 0.0
	p.model.Range(func(key string, freq float64) bool {
		if freq > maxFreq {
			maxFreq = freq
		}
		return true
	})
	if maxFreq == 0 {
		return Prediction{}, false
	}

	bestKey := ""
	bestRel := 0.0
	p.model.Range(func(key string, freq float64) bool {
		gram := p.model.Tokens(key)
		if len(gram) < 2 {
			return true
		}
		rel := 0.7*jaccard(gram, expanded) + 0.3*(freq/maxFreq)
		if rel > bestRel || (rel == bestRel && key < bestKey) {
			bestRel = rel
			bestKey = key
		}
		return true
	})

	if bestKey == "" || bestRel < p.cfg.MinRelevance {
		return Prediction{}, false
	}

	gram := p.model.Tokens(bestKey)
	conf := bestRel * p.cfg.FrequentContextCap
	return Prediction{
		Category:   bestKey,
		NextWord:   gram[len(gram)-1],
		Confidence: conf,
		Fallback:   true,
		Tier:       TierOverlap,
	}, true
}

// posProfileCandidate prefers, among the highest-frequency multi-token
// n-grams, one whose grammatical profile suits the input rather than
// picking blindly.
func (p *Predictor) posProfileCandidate(tokens []ingest.Token, base []string) (Prediction, bool) {
	var inputProfile jptext.POSProfile
	if hasPOS(tokens) {
		inputProfile = jptext.ProfileFromPOS(base, ingest.POSTags(tokens))
	} else {
		inputProfile = jptext.ProfileFromSurfaces(base)
	}

	type entry struct {
		key  string
		freq float64
	}
	var top []entry
	p.model.Range(func(key string, freq float64) bool {
		if len(p.model.Tokens(key)) >= 2 {
			top = append(top, entry{key, freq})
		}
		return true
	})
	if len(top) == 0 {
		return Prediction{}, false
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].freq != top[j].freq {
			return top[i].freq > top[j].freq
		}
		return top[i].key < top[j].key
	})
	if len(top) > 50 {
		top = top[:50]
	}

	for _, e := range top {
		gram := p.model.Tokens(e.key)
		if jptext.Compatible(inputProfile, jptext.ProfileFromSurfaces(gram)) {
			return Prediction{
				Category:   e.key,
				NextWord:   gram[len(gram)-1],
				Confidence: p.cfg.LastResortConfidence,
				Fallback:   true,
				Tier:       TierPOSProfile,
			}, true
		}
	}
	return Prediction{}, false
}

// randomCandidate is the absolute last resort: any learned n-gram,
// pseudo-randomly chosen with the predictor's seeded RNG. An empty model
// yields the unknown category.
func (p *Predictor) randomCandidate() Prediction {
	var keys []string
	p.model.Range(func(key string, _ float64) bool {
		keys = append(keys, key)
		return true
	})
	if len(keys) == 0 {
		return Prediction{
			Category:   UnknownCategory,
			Confidence: p.cfg.LastResortConfidence,
			Fallback:   true,
			Tier:       TierEmpty,
		}
	}
	sort.Strings(keys)
	key := keys[p.rng.Intn(len(keys))]
	gram := p.model.Tokens(key)
	return Prediction{
		Category:   key,
		NextWord:   gram[len(gram)-1],
		Confidence: p.cfg.LastResortConfidence,
		Fallback:   true,
		Tier:       TierRandom,
	}
}

// expandTokens widens the input token set through the lexicon's synonym
// and co-occurrence network, when one is configured.
func (p *Predictor) expandTokens(base []string) []string {
	if p.lex == nil {
		return base
	}
	out := make([]string, 0, len(base)*2)
	seen := make(map[string]struct{}, len(base)*2)
	add := func(t string) {
		if t == "" {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, t := range base {
		add(t)
		add(p.lex.Normalize(t))
		for _, rel := range p.lex.Related(t) {
			add(rel.Token)
		}
	}
	return out
}

func hasPOS(tokens []ingest.Token) bool {
	for _, t := range tokens {
		if t.POS != "" {
			return true
		}
	}
	return false
}
