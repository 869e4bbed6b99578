// Package bandit provides the UCB vocabulary-selection collaborator and
// the score-fusion selector that blends bandit, semantic, and contextual
// n-gram evidence into one finite hybrid score per candidate.
package bandit

import (
	"math"
	"sort"
)

// Bandit is the collaborator boundary the selector depends on. The
// in-repo UCB1 implementation satisfies it; an external bandit can be
// substituted.
type Bandit interface {
	// SelectVocabulary picks one term from the candidates.
	SelectVocabulary(candidates []string) string
	// UCBValue returns the raw UCB score of a term. It is +Inf for an arm
	// that has never been tried; callers must normalize before blending.
	UCBValue(term string) float64
	// Reward credits a term with feedback in [0,1].
	Reward(term string, r float64)
}

// UCB1 is a classic upper-confidence-bound bandit over vocabulary terms.
type UCB1 struct {
	exploration float64
	counts      map[string]int64
	rewards     map[string]float64
	totalPulls  int64
}

// NewUCB1 creates a bandit with the given exploration constant.
func NewUCB1(exploration float64) *UCB1 {
	return &UCB1{
		exploration: exploration,
		counts:      make(map[string]int64),
		rewards:     make(map[string]float64),
	}
}

// UCBValue implements Bandit. A never-tried arm scores +Inf so it always
// wins selection once; finite arms score mean reward plus the exploration
// bonus.
func (u *UCB1) UCBValue(term string) float64 {
	n := u.counts[term]
	if n == 0 {
		return math.Inf(1)
	}
	mean := u.rewards[term] / float64(n)
	if u.totalPulls == 0 {
		return mean
	}
	return mean + u.exploration*math.Sqrt(math.Log(float64(u.totalPulls))/float64(n))
}

// SelectVocabulary implements Bandit: the candidate with the highest UCB
// value, ties broken lexicographically for determinism. Selection counts
// as a pull.
func (u *UCB1) SelectVocabulary(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	sorted := make([]string, len(candidates))
	copy(sorted, candidates)
	sort.Strings(sorted)

	best := sorted[0]
	bestVal := u.UCBValue(best)
	for _, c := range sorted[1:] {
		if v := u.UCBValue(c); v > bestVal {
			best, bestVal = c, v
		}
	}

	u.counts[best]++
	u.totalPulls++
	return best
}

// Reward credits a term with a reward in [0,1].
func (u *UCB1) Reward(term string, r float64) {
	if r < 0 {
		r = 0
	}
	if r > 1 {
		r = 1
	}
	if u.counts[term] == 0 {
		u.counts[term] = 1
		u.totalPulls++
	}
	u.rewards[term] += r
}

// Pulls returns how many times a term has been selected.
func (u *UCB1) Pulls(term string) int64 { return u.counts[term] }

// NormalizeUCB maps raw UCB values into finite [0,1] scores. Infinite
// values (never-tried arms) are replaced with infinityScale times the
// maximum finite value before normalization, so downstream blending never
// sees NaN or Inf. With no finite values at all, every infinite arm maps
// to 1.
func NormalizeUCB(raw map[string]float64, infinityScale float64) map[string]float64 {
	maxFinite := 0.0
	hasFinite := false
	for _, v := range raw {
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			hasFinite = true
			if v > maxFinite {
				maxFinite = v
			}
		}
	}

	substitute := 1.0
	if hasFinite && maxFinite > 0 {
		substitute = maxFinite * infinityScale
	}

	ceiling := substitute
	if ceiling == 0 {
		ceiling = 1
	}

	out := make(map[string]float64, len(raw))
	for term, v := range raw {
		switch {
		case math.IsInf(v, 1):
			v = substitute
		case math.IsInf(v, -1), math.IsNaN(v):
			v = 0
		}
		n := v / ceiling
		if n < 0 {
			n = 0
		}
		if n > 1 {
			n = 1
		}
		out[term] = n
	}
	return out
}
