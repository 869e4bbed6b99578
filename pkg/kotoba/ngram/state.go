package ngram

import (
	"math"
	"sort"
	"strings"
)

// State is a plain snapshot of every persisted table. Maps stay maps here;
// the store layer owns the array-of-pairs wire schema.
type State struct {
	Freq              map[string]float64
	Continuations     map[string][]string
	LeftContinuations map[string][]string
	DocFreq           map[string]int64
	ContextFreq       map[string]int64
	LastSeen          map[string]uint64
	TotalDocs         int64
	BatchSeq          uint64
}

// Empty reports whether the state carries no learned data.
func (s State) Empty() bool {
	return len(s.Freq) == 0 && len(s.DocFreq) == 0 && s.TotalDocs == 0
}

// Export copies the model's tables into a State.
func (m *Model) Export() State {
	s := State{
		Freq:              make(map[string]float64, len(m.freq)),
		Continuations:     make(map[string][]string, len(m.continuation)),
		LeftContinuations: make(map[string][]string, len(m.leftCont)),
		DocFreq:           make(map[string]int64, len(m.docFreq)),
		ContextFreq:       make(map[string]int64, len(m.contextFreq)),
		LastSeen:          make(map[string]uint64, len(m.lastSeen)),
		TotalDocs:         m.totalDocs,
		BatchSeq:          m.batchSeq,
	}
	for k, v := range m.freq {
		s.Freq[k] = v
	}
	for k, set := range m.continuation {
		s.Continuations[k] = setToSlice(set)
	}
	for k, set := range m.leftCont {
		s.LeftContinuations[k] = setToSlice(set)
	}
	for k, v := range m.docFreq {
		s.DocFreq[k] = v
	}
	for k, v := range m.contextFreq {
		s.ContextFreq[k] = v
	}
	for k, v := range m.lastSeen {
		s.LastSeen[k] = v
	}
	return s
}

// Restore replaces the model's tables with the snapshot contents and
// recomputes every derived aggregate.
func (m *Model) Restore(s State) {
	m.freq = make(map[string]float64, len(s.Freq))
	for k, v := range s.Freq {
		m.freq[k] = v
	}
	m.continuation = make(map[string]map[string]struct{}, len(s.Continuations))
	for k, vals := range s.Continuations {
		m.continuation[k] = sliceToSet(vals)
	}
	m.leftCont = make(map[string]map[string]struct{}, len(s.LeftContinuations))
	for k, vals := range s.LeftContinuations {
		m.leftCont[k] = sliceToSet(vals)
	}
	m.docFreq = make(map[string]int64, len(s.DocFreq))
	for k, v := range s.DocFreq {
		m.docFreq[k] = v
	}
	m.contextFreq = make(map[string]int64, len(s.ContextFreq))
	for k, v := range s.ContextFreq {
		m.contextFreq[k] = v
	}
	m.lastSeen = make(map[string]uint64, len(s.LastSeen))
	for k, v := range s.LastSeen {
		m.lastSeen[k] = v
	}
	m.totalDocs = s.TotalDocs
	m.batchSeq = s.BatchSeq
	m.recomputeDerived()
	m.connectors.Observe(m.docFreq, m.totalDocs)
}

// CompactStats summarizes one decay/eviction pass. Every examined entry
// is counted at most once: Decayed covers entries that were lowered and
// kept, Evicted covers entries that were removed.
type CompactStats struct {
	Examined int
	Decayed  int
	Evicted  int
}

// DecayEvict applies an exponential time-decay multiplier keyed on how
// many learn batches ago each n-gram was last reinforced, then evicts
// entries whose frequency fell below minFreq. Counts are only ever lowered
// here. Continuation sets are rebuilt from the surviving table so their
// type statistics stay consistent.
func (m *Model) DecayEvict(halfLifeBatches uint64, minFreq float64) CompactStats {
	stats := CompactStats{Examined: len(m.freq)}
	if halfLifeBatches == 0 {
		return stats
	}

	for key, f := range m.freq {
		last := m.lastSeen[key]
		age := m.batchSeq - last
		lowered := false
		if age > 0 {
			factor := math.Pow(0.5, float64(age)/float64(halfLifeBatches))
			nf := f * factor
			if nf < f {
				m.freq[key] = nf
				lowered = true
			}
		}
		if m.freq[key] < minFreq {
			delete(m.freq, key)
			delete(m.lastSeen, key)
			stats.Evicted++
		} else if lowered {
			stats.Decayed++
		}
	}

	m.rebuildContinuations()
	m.recomputeDerived()
	return stats
}

// rebuildContinuations re-derives both continuation-set tables from the
// surviving n-gram keys.
func (m *Model) rebuildContinuations() {
	m.continuation = make(map[string]map[string]struct{})
	m.leftCont = make(map[string]map[string]struct{})
	for key := range m.freq {
		tokens := strings.Split(key, m.cfg.Separator)
		if len(tokens) < 2 {
			continue
		}
		prefix := strings.Join(tokens[:len(tokens)-1], m.cfg.Separator)
		addToSet(m.continuation, prefix, tokens[len(tokens)-1])
		suffix := leftMarker + strings.Join(tokens[1:], m.cfg.Separator)
		addToSet(m.leftCont, suffix, tokens[0])
	}
}

// recomputeDerived refreshes the cached aggregates after a bulk mutation.
func (m *Model) recomputeDerived() {
	m.unigramMass = 0
	for k, v := range m.freq {
		if !strings.Contains(k, m.cfg.Separator) {
			m.unigramMass += v
		}
	}
	m.leftContTotal = 0
	for _, set := range m.leftCont {
		m.leftContTotal += len(set)
	}
	m.discountDirty = true
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func sliceToSet(vals []string) map[string]struct{} {
	set := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		set[v] = struct{}{}
	}
	return set
}
