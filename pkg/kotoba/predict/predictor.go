// Package predict scores learned context labels against input text and
// produces a best-matching category plus a predicted next token, with a
// tiered fallback chain for cold-start and unseen-vocabulary inputs.
package predict

import (
	"math"
	"math/rand"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cognicore/kotoba/pkg/kotoba/config"
	"github.com/cognicore/kotoba/pkg/kotoba/ingest"
	"github.com/cognicore/kotoba/pkg/kotoba/lexicon"
	"github.com/cognicore/kotoba/pkg/kotoba/ngram"
)

// UnknownCategory is returned when absolutely nothing has been learned.
const UnknownCategory = "unknown"

// Prediction is the result of a context prediction.
type Prediction struct {
	Category   string
	NextWord   string // empty when no continuation was found
	Confidence float64
	Fallback   bool
	Tier       string // which fallback tier produced the result, if any
}

// Fallback tier names, in escalation order.
const (
	TierFrequentContext = "frequent-context"
	TierOverlap         = "overlap"
	TierPOSProfile      = "pos-profile"
	TierRandom          = "random"
	TierEmpty           = "empty"
)

// Predictor scores contexts against a shared n-gram model. Results are
// cached per input text in a bounded LRU, invalidated on every learn.
type Predictor struct {
	cfg   config.PredictConfig
	model *ngram.Model
	cache *lru.Cache[string, Prediction]
	rng   *rand.Rand
	lex   *lexicon.Lexicon // optional; biases fallback candidates
}

// New creates a Predictor over the given model. lex may be nil.
func New(cfg config.PredictConfig, model *ngram.Model, seed int64, lex *lexicon.Lexicon) (*Predictor, error) {
	cache, err := lru.New[string, Prediction](cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Predictor{
		cfg:   cfg,
		model: model,
		cache: cache,
		rng:   rand.New(rand.NewSource(seed)),
		lex:   lex,
	}, nil
}

// Invalidate drops all cached predictions. Called after every learn batch
// because any new n-gram can change any score.
func (p *Predictor) Invalidate() {
	p.cache.Purge()
}

// Predict scores every known context label against the tokenized input and
// returns the best match. It never fails: when nothing scores above zero
// the fallback chain always produces a usable prediction.
func (p *Predictor) Predict(tokens []ingest.Token) Prediction {
	base := ingest.BaseForms(tokens)
	key := strings.Join(base, p.model.Separator())
	if cached, ok := p.cache.Get(key); ok {
		return cached
	}

	pred := p.predict(tokens, base)
	p.cache.Add(key, pred)
	return pred
}

func (p *Predictor) predict(tokens []ingest.Token, base []string) Prediction {
	bestLabel, confidence := p.scoreContexts(base)
	next := p.bestContinuation(base)

	if bestLabel != "" {
		return Prediction{
			Category:   bestLabel,
			NextWord:   next,
			Confidence: confidence,
		}
	}

	pred := p.fallback(tokens, base)
	if pred.NextWord == "" {
		pred.NextWord = next
	}
	return pred
}

// scoreContexts computes, for every discovered context label, a weighted
// sum over the input's n-grams of
//
//	KN(gram, n) × TFIDF(gram) × log(1 + contextFreq) × n
//
// gated by token overlap between the label and the input, normalized by
// the total. Returns the winning label and its normalized score, or ""
// when nothing scored above zero.
func (p *Predictor) scoreContexts(base []string) (string, float64) {
	labels := p.model.ContextLabels()
	if len(labels) == 0 || len(base) == 0 {
		return "", 0
	}

	inputSet := make(map[string]struct{}, len(base))
	for _, t := range base {
		inputSet[t] = struct{}{}
	}

	// The per-order input evidence is label-independent; compute it once.
	evidence := 0.0
	maxOrder := p.model.MaxOrder()
	for n := 1; n <= maxOrder && n <= len(base); n++ {
		for i := 0; i+n <= len(base); i++ {
			gram := strings.Join(base[i:i+n], p.model.Separator())
			evidence += p.model.KneserNey(gram, n) * p.model.TFIDF(gram) * float64(n)
		}
	}
	if evidence == 0 {
		return "", 0
	}

	type scored struct {
		label string
		score float64
	}
	var results []scored
	total := 0.0
	for label, freq := range labels {
		overlap := labelOverlap(label, inputSet)
		if overlap == 0 {
			continue
		}
		s := evidence * math.Log(1+float64(freq)) * overlap
		if s > 0 {
			results = append(results, scored{label, s})
			total += s
		}
	}
	if len(results) == 0 || total == 0 {
		return "", 0
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].label < results[j].label
	})
	conf := results[0].score / total
	if conf > 1 {
		conf = 1
	}
	return results[0].label, conf
}

// bestContinuation searches stored n-grams whose prefix matches the
// trailing 1..ContinuationDepth tokens of the input, scored by
// frequency × matched order × Kneser-Ney probability.
func (p *Predictor) bestContinuation(base []string) string {
	if len(base) == 0 {
		return ""
	}

	sep := p.model.Separator()
	best := ""
	bestScore := 0.0

	depth := p.cfg.ContinuationDepth
	if depth > len(base) {
		depth = len(base)
	}
	for k := depth; k >= 1; k-- {
		prefix := strings.Join(base[len(base)-k:], sep)
		for _, tok := range p.model.Continuations(prefix) {
			key := prefix + sep + tok
			order := k + 1
			score := p.model.Freq(key) * float64(order) * p.model.KneserNey(key, order)
			if score > bestScore {
				bestScore = score
				best = tok
			}
		}
	}
	return best
}

// labelOverlap measures how much of the label's token material appears in
// the input. Labels are derived from learned tokens, so this is the
// cluster-membership signal.
func labelOverlap(label string, inputSet map[string]struct{}) float64 {
	parts := strings.Split(label, ":")
	if len(parts) == 0 {
		return 0
	}
	hit := 0
	for _, part := range parts {
		if _, ok := inputSet[part]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(parts))
}

// jaccard computes Jaccard similarity of two token slices.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}
	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
