package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/kotoba/pkg/kotoba/internalerr"
)

// Config holds every tunable of the statistical core.
//
// The historical implementation randomized several of these weights at
// construction time. Here every knob is a named, documented value so a run
// is reproducible given the same Config and Seed.
type Config struct {
	// Seed drives every RNG in the engine (projection matrices, MinHash
	// salts, last-resort fallback picks).
	Seed int64 `yaml:"seed"`

	Ngram   NgramConfig   `yaml:"ngram"`
	Predict PredictConfig `yaml:"predict"`
	Cooccur CooccurConfig `yaml:"cooccur"`
	LSH     LSHConfig     `yaml:"lsh"`
	Bandit  BanditConfig  `yaml:"bandit"`
}

// NgramConfig controls the frequency model and Kneser-Ney smoothing.
type NgramConfig struct {
	MinOrder  int    `yaml:"min_order"`
	MaxOrder  int    `yaml:"max_order"`
	Separator string `yaml:"separator"`

	// ConnectorBonusMin/Max bound the multiplicative weight applied to an
	// n-gram containing a discovered connector token. Both must be >= 1.
	ConnectorBonusMin float64 `yaml:"connector_bonus_min"`
	ConnectorBonusMax float64 `yaml:"connector_bonus_max"`

	// StructureBonus is applied to n-grams of order >= 3 when
	// PreserveStructure is enabled.
	StructureBonus    float64 `yaml:"structure_bonus"`
	PreserveStructure bool    `yaml:"preserve_structure"`

	// DiscountMin/Max clamp the dynamically estimated Kneser-Ney discount.
	DiscountMin float64 `yaml:"discount_min"`
	DiscountMax float64 `yaml:"discount_max"`

	// Epsilon is the probability floor returned instead of zero.
	Epsilon float64 `yaml:"epsilon"`

	// ConnectorMinDF is the document-frequency floor a token must reach
	// before connector discovery will consider it.
	ConnectorMinDF int64 `yaml:"connector_min_df"`

	// ConnectorBootstrap enables the cold-start fallback connector list
	// used only while discovery has not produced anything. Disable it in
	// contexts that require strictly discovered statistics.
	ConnectorBootstrap bool `yaml:"connector_bootstrap"`
}

// PredictConfig controls context prediction and its fallback chain.
type PredictConfig struct {
	// CacheSize bounds the LRU cache of prediction results.
	CacheSize int `yaml:"cache_size"`

	// MinRelevance is the floor below which the token-overlap fallback is
	// abandoned in favor of POS-profile matching.
	MinRelevance float64 `yaml:"min_relevance"`

	// FrequentContextCap caps the confidence of the most-frequent-context
	// fallback tier.
	FrequentContextCap float64 `yaml:"frequent_context_cap"`

	// LastResortConfidence is the fixed confidence of the pseudo-random
	// final fallback tier.
	LastResortConfidence float64 `yaml:"last_resort_confidence"`

	// ContinuationDepth is how many trailing tokens (1..N) are tried as
	// prefixes during next-word search.
	ContinuationDepth int `yaml:"continuation_depth"`
}

// CooccurConfig controls the co-occurrence matrix and vector generation.
type CooccurConfig struct {
	WindowSize int `yaml:"window_size"`

	// PairPercentile keeps only pairs above this percentile of the
	// co-occurrence weight distribution (0..1).
	PairPercentile float64 `yaml:"pair_percentile"`

	// PairFloor is the absolute minimum weight a pair must have to
	// survive filtering regardless of percentile.
	PairFloor float64 `yaml:"pair_floor"`

	// MinSupportPMI zeroes PPMI for pairs seen fewer than this many times.
	MinSupportPMI float64 `yaml:"min_support_pmi"`

	// TopK bounds how many ranked co-terms feed each term's vector.
	TopK int `yaml:"top_k"`

	// DimMin/DimMax bound the adaptive projection dimensionality.
	DimMin int `yaml:"dim_min"`
	DimMax int `yaml:"dim_max"`

	// BatchSize is the number of pairs scored between cooperative yields.
	BatchSize int `yaml:"batch_size"`

	// CosineWeight/WMDWeight blend the two similarity components.
	CosineWeight float64 `yaml:"cosine_weight"`
	WMDWeight    float64 `yaml:"wmd_weight"`

	// ThresholdMin/Max clamp the dynamically derived similarity threshold.
	ThresholdMin float64 `yaml:"threshold_min"`
	ThresholdMax float64 `yaml:"threshold_max"`
}

// LSHConfig controls the MinHash/LSH index.
type LSHConfig struct {
	Hashes  int `yaml:"hashes"`
	Bands   int `yaml:"bands"`
	Buckets int `yaml:"buckets"`
}

// BanditConfig controls UCB selection and score fusion.
type BanditConfig struct {
	// Exploration is the UCB1 exploration constant.
	Exploration float64 `yaml:"exploration"`

	// InfinityScale replaces an infinite UCB value (never-tried arm) with
	// this multiple of the maximum finite value among peers.
	InfinityScale float64 `yaml:"infinity_scale"`

	// Fusion weights for the final hybrid score. They should sum to 1.
	WeightBandit   float64 `yaml:"weight_bandit"`
	WeightSemantic float64 `yaml:"weight_semantic"`
	WeightContext  float64 `yaml:"weight_context"`
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		Seed: 1,
		Ngram: NgramConfig{
			MinOrder:           1,
			MaxOrder:           3,
			Separator:          " ",
			ConnectorBonusMin:  1.1,
			ConnectorBonusMax:  1.5,
			StructureBonus:     1.2,
			PreserveStructure:  true,
			DiscountMin:        0.5,
			DiscountMax:        0.95,
			Epsilon:            1e-6,
			ConnectorMinDF:     3,
			ConnectorBootstrap: true,
		},
		Predict: PredictConfig{
			CacheSize:            1000,
			MinRelevance:         0.25,
			FrequentContextCap:   0.2,
			LastResortConfidence: 0.1,
			ContinuationDepth:    3,
		},
		Cooccur: CooccurConfig{
			WindowSize:     3,
			PairPercentile: 0.85,
			PairFloor:      2,
			MinSupportPMI:  2,
			TopK:           20,
			DimMin:         20,
			DimMax:         100,
			BatchSize:      5000,
			CosineWeight:   0.8,
			WMDWeight:      0.2,
			ThresholdMin:   0.3,
			ThresholdMax:   0.8,
		},
		LSH: LSHConfig{
			Hashes:  32,
			Bands:   8,
			Buckets: 4,
		},
		Bandit: BanditConfig{
			Exploration:    1.414213562373095,
			InfinityScale:  1.5,
			WeightBandit:   0.4,
			WeightSemantic: 0.3,
			WeightContext:  0.3,
		},
	}
}

// Load reads a YAML config file, layered over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks internal consistency of the configuration.
func (c Config) Validate() error {
	n := c.Ngram
	if n.MinOrder < 1 || n.MaxOrder < n.MinOrder {
		return fmt.Errorf("%w: ngram orders %d..%d", internalerr.ErrInvalidConfig, n.MinOrder, n.MaxOrder)
	}
	if n.ConnectorBonusMin < 1 || n.ConnectorBonusMax < n.ConnectorBonusMin {
		return fmt.Errorf("%w: connector bonus range", internalerr.ErrInvalidConfig)
	}
	if n.DiscountMin <= 0 || n.DiscountMax >= 1 || n.DiscountMax < n.DiscountMin {
		return fmt.Errorf("%w: discount bounds must satisfy 0 < min <= max < 1", internalerr.ErrInvalidConfig)
	}
	if n.Epsilon <= 0 {
		return fmt.Errorf("%w: epsilon must be positive", internalerr.ErrInvalidConfig)
	}

	co := c.Cooccur
	if co.WindowSize < 1 {
		return fmt.Errorf("%w: window size", internalerr.ErrInvalidConfig)
	}
	if co.PairPercentile < 0 || co.PairPercentile >= 1 {
		return fmt.Errorf("%w: pair percentile must be in [0,1)", internalerr.ErrInvalidConfig)
	}
	if co.DimMin < 1 || co.DimMax < co.DimMin {
		return fmt.Errorf("%w: projection dimension bounds", internalerr.ErrInvalidConfig)
	}
	if co.BatchSize < 1 {
		return fmt.Errorf("%w: batch size", internalerr.ErrInvalidConfig)
	}
	if co.ThresholdMin < 0 || co.ThresholdMax > 1 || co.ThresholdMax < co.ThresholdMin {
		return fmt.Errorf("%w: similarity threshold bounds", internalerr.ErrInvalidConfig)
	}

	l := c.LSH
	if l.Hashes < 1 || l.Bands < 1 || l.Hashes%l.Bands != 0 {
		return fmt.Errorf("%w: lsh hashes must divide evenly into bands", internalerr.ErrInvalidConfig)
	}

	b := c.Bandit
	if b.Exploration < 0 || b.InfinityScale < 1 {
		return fmt.Errorf("%w: bandit exploration/infinity scale", internalerr.ErrInvalidConfig)
	}
	if b.WeightBandit < 0 || b.WeightSemantic < 0 || b.WeightContext < 0 {
		return fmt.Errorf("%w: bandit fusion weights must be non-negative", internalerr.ErrInvalidConfig)
	}

	if c.Predict.CacheSize < 1 {
		return fmt.Errorf("%w: prediction cache size", internalerr.ErrInvalidConfig)
	}
	if c.Predict.ContinuationDepth < 1 {
		return fmt.Errorf("%w: continuation depth", internalerr.ErrInvalidConfig)
	}
	return nil
}
