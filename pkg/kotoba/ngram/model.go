// Package ngram maintains the variable-order n-gram frequency model:
// weighted n-gram counts, continuation sets for Kneser-Ney smoothing,
// document frequencies for TF-IDF, and statistically discovered context
// labels.
package ngram

import (
	"log"
	"math"
	"sort"
	"strings"

	"github.com/cognicore/kotoba/pkg/kotoba/config"
	"github.com/cognicore/kotoba/pkg/kotoba/ingest"
)

// leftMarker prefixes keys of the reversed-suffix continuation sets, which
// record the distinct tokens observed *before* a suffix.
const leftMarker = "←"

// ContextInfo is the caller-supplied hint accompanying a learn call.
type ContextInfo struct {
	// Label, when non-empty, overrides statistical label derivation.
	Label string
	// Source identifies where the text came from; informational only.
	Source string
}

// LearnStats summarizes the side effects of one learn call.
type LearnStats struct {
	TokensIn    int
	NgramsAdded int
	Label       string
	Filtered    bool // true when the whole input was filtered away
}

// Model is the n-gram frequency model. It is not safe for concurrent
// mutation; callers serialize learn calls.
type Model struct {
	cfg    config.NgramConfig
	filter *ingest.Filter

	freq         map[string]float64            // n-gram key -> weighted count
	continuation map[string]map[string]struct{} // prefix -> distinct following tokens
	leftCont     map[string]map[string]struct{} // leftMarker+suffix -> distinct preceding tokens
	docFreq      map[string]int64
	totalDocs    int64
	contextFreq  map[string]int64
	lastSeen     map[string]uint64 // n-gram key -> batch sequence of last reinforcement
	batchSeq     uint64
	unigramMass  float64 // running sum of unigram weights, kept for TF-IDF

	discountDirty  bool
	discountCached float64
	leftContTotal  int

	connectors *ConnectorSet
}

// NewModel creates an empty model.
func NewModel(cfg config.NgramConfig) *Model {
	return &Model{
		cfg:          cfg,
		filter:       ingest.NewFilter(),
		freq:         make(map[string]float64),
		continuation: make(map[string]map[string]struct{}),
		leftCont:     make(map[string]map[string]struct{}),
		docFreq:      make(map[string]int64),
		contextFreq:  make(map[string]int64),
		lastSeen:     make(map[string]uint64),
		connectors:   NewConnectorSet(cfg),
	}
}

// Filter exposes the model's noise filter for callers that pre-clean text.
func (m *Model) Filter() *ingest.Filter { return m.filter }

// Learn updates every table from one tokenized document. Frequencies only
// ever grow here; decay happens in the maintenance compaction pass.
func (m *Model) Learn(tokens []ingest.Token, info ContextInfo) LearnStats {
	base := ingest.BaseForms(tokens)
	if len(base) == 0 {
		log.Printf("ngram: learn input fully filtered, nothing stored (source %q)", info.Source)
		return LearnStats{Filtered: true}
	}

	m.batchSeq++
	m.totalDocs++
	m.discountDirty = true

	seen := make(map[string]struct{}, len(base))
	for _, t := range base {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		m.docFreq[t]++
	}

	m.connectors.Observe(m.docFreq, m.totalDocs)

	stats := LearnStats{TokensIn: len(base)}
	for n := m.cfg.MinOrder; n <= m.cfg.MaxOrder; n++ {
		for i := 0; i+n <= len(base); i++ {
			gram := base[i : i+n]
			if !m.filter.AcceptNgram(gram, n) {
				continue
			}

			key := strings.Join(gram, m.cfg.Separator)
			w := m.weight(gram, n)
			m.freq[key] += w
			m.lastSeen[key] = m.batchSeq
			if n == 1 {
				m.unigramMass += w
			}
			stats.NgramsAdded++

			if n > 1 {
				prefix := strings.Join(gram[:n-1], m.cfg.Separator)
				addToSet(m.continuation, prefix, gram[n-1])

				suffix := leftMarker + strings.Join(gram[1:], m.cfg.Separator)
				if addToSet(m.leftCont, suffix, gram[0]) {
					m.leftContTotal++
				}
			}
		}
	}

	if stats.NgramsAdded == 0 {
		// Everything was filtered; do not invent a context label for noise.
		log.Printf("ngram: learn input fully filtered, nothing stored (source %q)", info.Source)
		stats.Filtered = true
		return stats
	}

	label := info.Label
	if label == "" {
		label = m.deriveLabel(base)
	}
	if label != "" {
		m.contextFreq[label]++
		stats.Label = label
	}
	return stats
}

// weight computes the multiplicative learn weight of an n-gram: base 1.0,
// a connector bonus when the gram contains a discovered connector token,
// and a structure-preservation factor for high orders.
func (m *Model) weight(gram []string, n int) float64 {
	w := 1.0
	if bonus, ok := m.connectors.Bonus(gram); ok {
		w *= bonus
	}
	if m.cfg.PreserveStructure && n >= 3 {
		w *= m.cfg.StructureBonus
	}
	return w
}

// deriveLabel builds a context label from token statistics: the two most
// distinctive tokens by TF-IDF, joined. Labels are discovered, not drawn
// from a fixed taxonomy.
func (m *Model) deriveLabel(tokens []string) string {
	type scored struct {
		token string
		score float64
	}
	uniq := make(map[string]struct{}, len(tokens))
	var cands []scored
	for _, t := range tokens {
		if _, ok := uniq[t]; ok {
			continue
		}
		uniq[t] = struct{}{}
		if m.filter.AcceptNgram([]string{t}, 1) {
			cands = append(cands, scored{t, m.tokenTFIDF(t)})
		}
	}
	if len(cands) == 0 {
		return ""
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].token < cands[j].token
	})
	if len(cands) == 1 {
		return cands[0].token
	}
	return cands[0].token + ":" + cands[1].token
}

// Freq returns the weighted frequency of an n-gram key.
func (m *Model) Freq(key string) float64 { return m.freq[key] }

// Range iterates over every stored n-gram until fn returns false.
func (m *Model) Range(fn func(key string, freq float64) bool) {
	for k, v := range m.freq {
		if !fn(k, v) {
			return
		}
	}
}

// ContinuationCount returns the number of distinct tokens observed after
// the given prefix.
func (m *Model) ContinuationCount(prefix string) int {
	return len(m.continuation[prefix])
}

// Continuations returns the distinct tokens observed after the prefix.
func (m *Model) Continuations(prefix string) []string {
	set := m.continuation[prefix]
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// leftContinuationCount returns the number of distinct tokens observed
// before the given token (the Kneser-Ney continuation count).
func (m *Model) leftContinuationCount(token string) int {
	return len(m.leftCont[leftMarker+token])
}

// totalLeftContinuations is the system-wide continuation mass, maintained
// incrementally because the base case of every backoff recursion needs it.
func (m *Model) totalLeftContinuations() int {
	return m.leftContTotal
}

// DocFreq returns the number of learned documents containing the term.
func (m *Model) DocFreq(term string) int64 { return m.docFreq[term] }

// TotalDocs returns the number of learned documents.
func (m *Model) TotalDocs() int64 { return m.totalDocs }

// ContextLabels returns a copy of the discovered context-label frequencies.
func (m *Model) ContextLabels() map[string]int64 {
	out := make(map[string]int64, len(m.contextFreq))
	for k, v := range m.contextFreq {
		out[k] = v
	}
	return out
}

// Separator returns the configured n-gram join separator.
func (m *Model) Separator() string { return m.cfg.Separator }

// MaxOrder returns the configured maximum n-gram order.
func (m *Model) MaxOrder() int { return m.cfg.MaxOrder }

// Size returns the number of stored n-gram entries.
func (m *Model) Size() int { return len(m.freq) }

// Tokens splits an n-gram key back into tokens.
func (m *Model) Tokens(key string) []string {
	return strings.Split(key, m.cfg.Separator)
}

// tokenTFIDF scores a single token: term frequency over the unigram mass
// times a smoothed inverse document frequency. All divisions are guarded
// so an empty model yields zero, never NaN.
func (m *Model) tokenTFIDF(token string) float64 {
	if m.unigramMass == 0 {
		return 0
	}
	tf := m.freq[token] / m.unigramMass
	idf := 1.0
	if m.totalDocs > 0 {
		idf = math.Log(float64(1+m.totalDocs)/float64(1+m.docFreq[token])) + 1
	}
	return tf * idf
}

// TFIDF scores an n-gram key as the mean TF-IDF of its member tokens.
func (m *Model) TFIDF(key string) float64 {
	tokens := m.Tokens(key)
	if len(tokens) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range tokens {
		sum += m.tokenTFIDF(t)
	}
	return sum / float64(len(tokens))
}

// LastSeen returns the batch sequence at which the n-gram was last
// reinforced, and whether it exists.
func (m *Model) LastSeen(key string) (uint64, bool) {
	seq, ok := m.lastSeen[key]
	return seq, ok
}

// BatchSeq returns the current learn-batch sequence number.
func (m *Model) BatchSeq() uint64 { return m.batchSeq }

// addToSet inserts val into the named set, reporting whether it was new.
func addToSet(m map[string]map[string]struct{}, key, val string) bool {
	set, ok := m[key]
	if !ok {
		set = make(map[string]struct{})
		m[key] = set
	}
	if _, ok := set[val]; ok {
		return false
	}
	set[val] = struct{}{}
	return true
}
