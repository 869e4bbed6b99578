package ngram

import (
	"math"
	"strings"
)

// KneserNey returns the smoothed conditional probability of the final
// token of the n-gram given its prefix, in [0,1].
//
// Order 1 is the continuation-probability base case: how many distinct
// contexts the token has followed, over the total continuation mass. For
// higher orders the discounted main term is combined with a lambda-weighted
// backoff; when the prefix was never observed the computation backs off by
// dropping the EARLIEST token, mirroring true Kneser-Ney backoff direction.
//
// Every intermediate probability is rounded to six decimals. Unrounded
// float arithmetic accumulating over the backoff recursion made repeated
// queries look non-deterministic in production, so rounding is part of the
// contract, not cosmetics.
func (m *Model) KneserNey(key string, order int) float64 {
	tokens := strings.Split(strings.TrimSpace(key), m.cfg.Separator)
	return m.kneserNey(tokens, order)
}

func (m *Model) kneserNey(tokens []string, order int) float64 {
	if order < 1 || len(tokens) == 0 {
		return m.cfg.Epsilon
	}
	if order == 1 || len(tokens) == 1 {
		return m.continuationProb(tokens[len(tokens)-1])
	}
	if len(tokens) > order {
		tokens = tokens[len(tokens)-order:]
	}

	prefix := strings.Join(tokens[:len(tokens)-1], m.cfg.Separator)
	prefixFreq := m.freq[prefix]
	if prefixFreq == 0 {
		// Unseen prefix: back off by dropping the earliest token.
		return m.kneserNey(tokens[1:], order-1)
	}

	key := strings.Join(tokens, m.cfg.Separator)
	d := m.Discount()

	main := math.Max(m.freq[key]-d, 0) / prefixFreq
	lambda := d * float64(m.ContinuationCount(prefix)) / prefixFreq
	backoff := m.kneserNey(tokens[1:], order-1)

	p := round6(main + lambda*backoff)
	return clampProb(p, m.cfg.Epsilon)
}

// continuationProb is the order-1 Kneser-Ney probability: the token's
// distinct-left-context count over the system-wide continuation total,
// floored at epsilon so downstream log() calls never see zero.
func (m *Model) continuationProb(token string) float64 {
	total := m.totalLeftContinuations()
	if total == 0 {
		return m.cfg.Epsilon
	}
	p := round6(float64(m.leftContinuationCount(token)) / float64(total))
	return clampProb(p, m.cfg.Epsilon)
}

// Discount estimates the Kneser-Ney discount from the observed sparsity of
// the table using the standard singleton/doubleton estimate
// n1/(n1 + 2*n2), clamped to the configured bounds. A table with no
// low-count entries (no data) gets the maximum discount. The value is
// cached until the next mutation.
func (m *Model) Discount() float64 {
	if !m.discountDirty && m.discountCached > 0 {
		return m.discountCached
	}
	m.discountCached = m.computeDiscount()
	m.discountDirty = false
	return m.discountCached
}

func (m *Model) computeDiscount() float64 {
	var n1, n2 int
	for _, f := range m.freq {
		switch {
		case f < 1.5:
			n1++
		case f < 2.5:
			n2++
		}
	}
	if n1+n2 == 0 {
		return m.cfg.DiscountMax
	}
	d := float64(n1) / (float64(n1) + 2*float64(n2))
	if d < m.cfg.DiscountMin {
		return m.cfg.DiscountMin
	}
	if d > m.cfg.DiscountMax {
		return m.cfg.DiscountMax
	}
	return round6(d)
}

// round6 rounds to six decimal places.
func round6(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}

// clampProb pins p into [epsilon, 1], guarding NaN and infinities.
func clampProb(p, epsilon float64) float64 {
	if math.IsNaN(p) || p < epsilon {
		return epsilon
	}
	if p > 1 {
		return 1
	}
	return p
}
