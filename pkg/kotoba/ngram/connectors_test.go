package ngram

import (
	"testing"

	"github.com/cognicore/kotoba/pkg/kotoba/config"
)

func connectorConfig() config.NgramConfig {
	cfg := testConfig()
	cfg.ConnectorMinDF = 2
	return cfg
}

func TestConnectorDiscovery(t *testing.T) {
	cfg := connectorConfig()
	cs := NewConnectorSet(cfg)

	// しかし appears in well over 20% of documents.
	df := map[string]int64{
		"しかし": 8,
		"猫":   3,
		"長すぎる接続詞候補": 9,
	}
	cs.Observe(df, 10)

	if _, ok := cs.Bonus([]string{"しかし", "猫"}); !ok {
		t.Error("high-share short Japanese token should be discovered as connector")
	}
	if _, ok := cs.Bonus([]string{"長すぎる接続詞候補"}); ok {
		t.Error("long tokens must not become connectors")
	}
	if _, ok := cs.Bonus([]string{"猫"}); ok {
		t.Error("low-share tokens must not become connectors")
	}
}

func TestConnectorBonusBounds(t *testing.T) {
	cfg := connectorConfig()
	cs := NewConnectorSet(cfg)
	cs.Observe(map[string]int64{"しかし": 9, "また": 5}, 10)

	for _, tok := range []string{"しかし", "また"} {
		bonus, ok := cs.Bonus([]string{tok})
		if !ok {
			t.Fatalf("%s should carry a bonus", tok)
		}
		if bonus < cfg.ConnectorBonusMin || bonus > cfg.ConnectorBonusMax {
			t.Errorf("bonus %f for %s outside [%f, %f]",
				bonus, tok, cfg.ConnectorBonusMin, cfg.ConnectorBonusMax)
		}
	}
}

func TestConnectorBootstrapOnlyWhenEmpty(t *testing.T) {
	cfg := connectorConfig()
	cfg.ConnectorBootstrap = true
	cs := NewConnectorSet(cfg)

	// Nothing discovered yet: the bootstrap list applies.
	if _, ok := cs.Bonus([]string{"そして"}); !ok {
		t.Error("bootstrap connector should apply before discovery")
	}

	// Once discovery produces a set, bootstrap entries no longer apply
	// unless they were discovered themselves.
	cs.Observe(map[string]int64{"しかし": 9}, 10)
	if _, ok := cs.Bonus([]string{"そして"}); ok {
		t.Error("bootstrap list must yield to discovered statistics")
	}
}

func TestConnectorBootstrapDisabled(t *testing.T) {
	cfg := connectorConfig()
	cfg.ConnectorBootstrap = false
	cs := NewConnectorSet(cfg)
	if _, ok := cs.Bonus([]string{"そして"}); ok {
		t.Error("bootstrap disabled: no bonus without discovery")
	}
}
