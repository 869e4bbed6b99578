package bandit

import (
	"math"
	"sort"
	"strings"

	"github.com/cognicore/kotoba/pkg/kotoba/config"
)

// ContextScorer scores how well a candidate extends an n-gram context.
// *ngram.Model satisfies it.
type ContextScorer interface {
	KneserNey(key string, order int) float64
	Separator() string
	MaxOrder() int
}

// SemanticScorer provides term-term similarity. *cooccur.Engine satisfies
// it.
type SemanticScorer interface {
	Similarity(a, b string) float64
}

// Options tunes one selection call.
type Options struct {
	// SemanticRerank enables the semantic-similarity component.
	SemanticRerank bool
	// MaxCandidates bounds how many contextually filtered candidates are
	// offered to the bandit. Zero means all.
	MaxCandidates int
}

// Candidate is one scored selection candidate.
type Candidate struct {
	Term          string
	ContextScore  float64 // Kneser-Ney fit of context + term
	SemanticScore float64 // mean similarity to the context tokens
	BanditScore   float64 // normalized UCB value
	Hybrid        float64 // fused final score, always finite
}

// Metadata describes how a selection was made.
type Metadata struct {
	BanditChoice       string
	InfiniteArms       int
	FilteredCandidates int
	SemanticRerankUsed bool
}

// Selection is the result of a bandit-assisted vocabulary selection.
type Selection struct {
	SelectedTerm string
	Results      []Candidate
	Metadata     Metadata
}

// Selector fuses contextual, semantic, and bandit evidence. sem may be
// nil, in which case the semantic component is skipped.
type Selector struct {
	cfg    config.BanditConfig
	bandit Bandit
	ctx    ContextScorer
	sem    SemanticScorer
}

// NewSelector creates a selector around a bandit collaborator.
func NewSelector(cfg config.BanditConfig, b Bandit, ctx ContextScorer, sem SemanticScorer) *Selector {
	return &Selector{cfg: cfg, bandit: b, ctx: ctx, sem: sem}
}

// Select scores the candidates against the n-gram context, optionally
// re-ranks them semantically, lets the bandit pick from the filtered set,
// and fuses everything into a hybrid score per candidate. Every returned
// score is finite; infinite UCB values are normalized away before
// blending.
func (s *Selector) Select(contextTokens, candidates []string, opts Options) Selection {
	if len(candidates) == 0 {
		return Selection{}
	}

	scored := make([]Candidate, 0, len(candidates))
	for _, cand := range candidates {
		c := Candidate{Term: cand, ContextScore: s.contextScore(contextTokens, cand)}
		if opts.SemanticRerank && s.sem != nil {
			c.SemanticScore = s.semanticScore(contextTokens, cand)
		}
		scored = append(scored, c)
	}

	filtered := filterByContext(scored, opts.MaxCandidates)

	terms := make([]string, len(filtered))
	raw := make(map[string]float64, len(filtered))
	infinite := 0
	for i, c := range filtered {
		terms[i] = c.Term
		v := s.bandit.UCBValue(c.Term)
		if math.IsInf(v, 1) {
			infinite++
		}
		raw[c.Term] = v
	}
	normalized := NormalizeUCB(raw, s.cfg.InfinityScale)

	banditChoice := s.bandit.SelectVocabulary(terms)

	maxCtx := 0.0
	for _, c := range filtered {
		if c.ContextScore > maxCtx {
			maxCtx = c.ContextScore
		}
	}
	for i := range filtered {
		c := &filtered[i]
		c.BanditScore = normalized[c.Term]
		ctxNorm := 0.0
		if maxCtx > 0 {
			ctxNorm = c.ContextScore / maxCtx
		}
		c.Hybrid = s.cfg.WeightBandit*c.BanditScore +
			s.cfg.WeightSemantic*c.SemanticScore +
			s.cfg.WeightContext*ctxNorm
	}

	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Hybrid != filtered[j].Hybrid {
			return filtered[i].Hybrid > filtered[j].Hybrid
		}
		return filtered[i].Term < filtered[j].Term
	})

	return Selection{
		SelectedTerm: filtered[0].Term,
		Results:      filtered,
		Metadata: Metadata{
			BanditChoice:       banditChoice,
			InfiniteArms:       infinite,
			FilteredCandidates: len(filtered),
			SemanticRerankUsed: opts.SemanticRerank && s.sem != nil,
		},
	}
}

// contextScore is the Kneser-Ney probability of the candidate extending
// the trailing context.
func (s *Selector) contextScore(contextTokens []string, cand string) float64 {
	if len(contextTokens) == 0 {
		return 0
	}
	order := len(contextTokens) + 1
	if mo := s.ctx.MaxOrder(); order > mo {
		order = mo
		contextTokens = contextTokens[len(contextTokens)-(order-1):]
	}
	key := strings.Join(append(append([]string{}, contextTokens...), cand), s.ctx.Separator())
	return s.ctx.KneserNey(key, order)
}

// semanticScore is the mean similarity of the candidate to the context
// tokens.
func (s *Selector) semanticScore(contextTokens []string, cand string) float64 {
	if len(contextTokens) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range contextTokens {
		sum += s.sem.Similarity(t, cand)
	}
	return sum / float64(len(contextTokens))
}

// filterByContext orders candidates by how well they extend the context
// and truncates to limit. Zero-score candidates survive when the limit
// allows; the bandit term can still promote them.
func filterByContext(scored []Candidate, limit int) []Candidate {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].ContextScore != scored[j].ContextScore {
			return scored[i].ContextScore > scored[j].ContextScore
		}
		return scored[i].Term < scored[j].Term
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
