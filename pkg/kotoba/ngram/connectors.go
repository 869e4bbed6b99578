package ngram

import (
	"unicode/utf8"

	"github.com/cognicore/kotoba/internal/jptext"
	"github.com/cognicore/kotoba/pkg/kotoba/config"
)

// bootstrapConnectors is the documented cold-start fallback. It is used
// only while statistical discovery has produced nothing, and can be
// disabled entirely via NgramConfig.ConnectorBootstrap.
var bootstrapConnectors = []string{"そして", "しかし", "だから", "また", "でも"}

// ConnectorSet tracks logical-connector tokens discovered from document
// frequency statistics. A connector earns an n-gram a weight bonus because
// connectives carry discourse structure worth preserving.
type ConnectorSet struct {
	cfg        config.NgramConfig
	discovered map[string]float64 // token -> strength in (0,1]
}

// NewConnectorSet creates an empty connector set.
func NewConnectorSet(cfg config.NgramConfig) *ConnectorSet {
	return &ConnectorSet{
		cfg:        cfg,
		discovered: make(map[string]float64),
	}
}

// Observe re-derives the discovered set from current document frequencies.
// A connector candidate is a short, purely Japanese function-word-shaped
// token that appears across a large share of documents.
func (c *ConnectorSet) Observe(docFreq map[string]int64, totalDocs int64) {
	if totalDocs == 0 {
		return
	}
	for token, df := range docFreq {
		if df < c.cfg.ConnectorMinDF {
			continue
		}
		if utf8.RuneCountInString(token) > 4 {
			continue
		}
		if !jptext.HasJapanese(token) {
			continue
		}
		share := float64(df) / float64(totalDocs)
		if share < 0.2 {
			continue
		}
		if share > 1 {
			share = 1
		}
		c.discovered[token] = share
	}
}

// Bonus returns the multiplicative weight bonus for an n-gram containing a
// connector, and whether any connector was present. The bonus scales with
// the connector's discovered strength inside the configured range.
func (c *ConnectorSet) Bonus(gram []string) (float64, bool) {
	best := 0.0
	found := false
	for _, t := range gram {
		if s, ok := c.strength(t); ok {
			found = true
			if s > best {
				best = s
			}
		}
	}
	if !found {
		return 1, false
	}
	span := c.cfg.ConnectorBonusMax - c.cfg.ConnectorBonusMin
	return c.cfg.ConnectorBonusMin + span*best, true
}

// strength looks a token up in the discovered set, falling back to the
// bootstrap list only when discovery is empty and bootstrap is enabled.
func (c *ConnectorSet) strength(token string) (float64, bool) {
	if s, ok := c.discovered[token]; ok {
		return s, true
	}
	if len(c.discovered) == 0 && c.cfg.ConnectorBootstrap {
		for _, b := range bootstrapConnectors {
			if token == b {
				return 0.5, true
			}
		}
	}
	return 0, false
}

// Discovered returns the current discovered connector tokens.
func (c *ConnectorSet) Discovered() map[string]float64 {
	out := make(map[string]float64, len(c.discovered))
	for k, v := range c.discovered {
		out[k] = v
	}
	return out
}
