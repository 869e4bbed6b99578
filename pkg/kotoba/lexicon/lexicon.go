// Package lexicon is the optional dictionary collaborator: a synonym
// network plus a PMI-gated co-occurrence neighborhood, used only to bias
// fallback candidate selection. The core never requires it.
package lexicon

import (
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Related is a contextually associated token with its statistical support.
type Related struct {
	Token   string
	PMI     float64 // pointwise mutual information with the head token
	Support int64   // number of co-occurrences backing the association
}

// Lexicon stores vocabulary relations:
//   - synonym groups: variants mapped to one canonical form (犬 ↔ イヌ)
//   - related tokens: statistically associated neighbors with PMI scores
type Lexicon struct {
	// canonical -> all variants, including the canonical itself
	synonyms map[string][]string
	// variant -> canonical
	reverseIndex map[string]string
	// token -> associated tokens, strongest first
	related map[string][]Related

	// minPMI gates which associations Related returns. Associations below
	// the significance floor exist in the table but are not surfaced.
	minPMI float64
	// minSupport is the co-occurrence count floor for the same gate.
	minSupport int64
}

// New creates an empty lexicon with the given significance gates.
func New(minPMI float64, minSupport int64) *Lexicon {
	return &Lexicon{
		synonyms:     make(map[string][]string),
		reverseIndex: make(map[string]string),
		related:      make(map[string][]Related),
		minPMI:       minPMI,
		minSupport:   minSupport,
	}
}

// LoadFromYAML loads synonym groups from a YAML file.
//
// Expected format:
//
//	synonyms:
//	  - canonical: 犬
//	    variants: [イヌ, わんこ]
//	  - canonical: 猫
//	    variants: [ネコ, にゃんこ]
func LoadFromYAML(path string, minPMI float64, minSupport int64) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg struct {
		Synonyms []struct {
			Canonical string   `yaml:"canonical"`
			Variants  []string `yaml:"variants"`
		} `yaml:"synonyms"`
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	lex := New(minPMI, minSupport)
	for _, entry := range cfg.Synonyms {
		canonical := strings.TrimSpace(entry.Canonical)
		if canonical == "" {
			continue
		}
		variants := make([]string, 0, len(entry.Variants)+1)
		variants = append(variants, canonical)
		for _, v := range entry.Variants {
			v = strings.TrimSpace(v)
			if v != "" && v != canonical {
				variants = append(variants, v)
			}
		}
		lex.AddSynonymGroup(canonical, variants)
	}
	return lex, nil
}

// AddSynonymGroup registers a canonical form with its variants.
func (l *Lexicon) AddSynonymGroup(canonical string, variants []string) {
	l.synonyms[canonical] = variants
	for _, v := range variants {
		l.reverseIndex[v] = canonical
	}
}

// AddRelated records a statistical association for a token. Entries are
// kept sorted by PMI descending.
func (l *Lexicon) AddRelated(token string, rel Related) {
	entries := append(l.related[token], rel)
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].PMI != entries[j].PMI {
			return entries[i].PMI > entries[j].PMI
		}
		return entries[i].Token < entries[j].Token
	})
	l.related[token] = entries
}

// Normalize maps a variant to its canonical form; unknown tokens pass
// through unchanged.
func (l *Lexicon) Normalize(token string) string {
	if canonical, ok := l.reverseIndex[token]; ok {
		return canonical
	}
	return token
}

// Variants returns the full synonym group of a token, or nil.
func (l *Lexicon) Variants(token string) []string {
	canonical := l.Normalize(token)
	group := l.synonyms[canonical]
	out := make([]string, len(group))
	copy(out, group)
	return out
}

// Related returns the statistically significant associations of a token,
// strongest first. Associations failing the PMI or support gate are
// withheld.
func (l *Lexicon) Related(token string) []Related {
	var out []Related
	for _, rel := range l.related[l.Normalize(token)] {
		if rel.PMI >= l.minPMI && rel.Support >= l.minSupport {
			out = append(out, rel)
		}
	}
	return out
}

// Size returns the number of synonym groups and related-token heads.
func (l *Lexicon) Size() (groups, heads int) {
	return len(l.synonyms), len(l.related)
}
