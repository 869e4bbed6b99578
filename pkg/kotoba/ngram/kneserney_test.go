package ngram

import (
	"math"
	"testing"
)

func TestKneserNeyEmptyModelReturnsEpsilon(t *testing.T) {
	cfg := testConfig()
	m := NewModel(cfg)

	for _, key := range []string{"猫", "猫 が", "猫 が 好き"} {
		p := m.KneserNey(key, len(m.Tokens(key)))
		if p != cfg.Epsilon {
			t.Errorf("KneserNey(%q) on empty model = %g, want epsilon %g", key, p, cfg.Epsilon)
		}
	}
}

func TestKneserNeyBounds(t *testing.T) {
	cfg := testConfig()
	m := NewModel(cfg)
	m.Learn(toks("猫", "が", "好き", "です"), ContextInfo{})
	m.Learn(toks("犬", "も", "好き", "です"), ContextInfo{})
	m.Learn(toks("猫", "は", "かわいい"), ContextInfo{})

	keys := []string{
		"猫", "好き", "未知語",
		"猫 が", "が 好き", "未知 語順",
		"猫 が 好き", "犬 も 好き", "全く 見ない 列",
	}
	for _, key := range keys {
		order := len(m.Tokens(key))
		p := m.KneserNey(key, order)
		if math.IsNaN(p) || math.IsInf(p, 0) {
			t.Fatalf("KneserNey(%q) = %v, must be finite", key, p)
		}
		if p < cfg.Epsilon || p > 1 {
			t.Errorf("KneserNey(%q) = %g outside [epsilon, 1]", key, p)
		}
	}
}

func TestKneserNeyObservedBeatsUnseen(t *testing.T) {
	m := NewModel(testConfig())
	for i := 0; i < 5; i++ {
		m.Learn(toks("猫", "が", "好き"), ContextInfo{})
	}

	seen := m.KneserNey("猫 が 好き", 3)
	unseen := m.KneserNey("猫 が 走る", 3)
	if seen <= unseen {
		t.Errorf("observed trigram %g should outscore unseen %g", seen, unseen)
	}
}

func TestKneserNeyUnseenPrefixBacksOff(t *testing.T) {
	m := NewModel(testConfig())
	m.Learn(toks("猫", "が", "好き"), ContextInfo{})
	m.Learn(toks("犬", "が", "好き"), ContextInfo{})

	// The prefix 象 は was never observed, so the trigram probability must
	// equal the lower-order estimate with the earliest token dropped.
	backoff := m.KneserNey("象 は 好き", 3)
	lower := m.KneserNey("は 好き", 2)
	if backoff != lower {
		t.Errorf("unseen-prefix probability %g should equal lower-order %g", backoff, lower)
	}
}

func TestContinuationProbFavorsVersatileTokens(t *testing.T) {
	m := NewModel(testConfig())
	// 好き follows three distinct left contexts; 走る follows one.
	m.Learn(toks("猫", "が", "好き"), ContextInfo{})
	m.Learn(toks("犬", "も", "好き"), ContextInfo{})
	m.Learn(toks("鳥", "は", "好き"), ContextInfo{})
	m.Learn(toks("馬", "が", "走る"), ContextInfo{})

	versatile := m.KneserNey("好き", 1)
	narrow := m.KneserNey("走る", 1)
	if versatile <= narrow {
		t.Errorf("continuation prob of versatile token %g should exceed narrow %g", versatile, narrow)
	}
}

func TestDiscountWithinBounds(t *testing.T) {
	cfg := testConfig()
	m := NewModel(cfg)
	m.Learn(toks("猫", "が", "好き"), ContextInfo{})
	m.Learn(toks("犬", "も", "好き"), ContextInfo{})

	d := m.Discount()
	if d < cfg.DiscountMin || d > cfg.DiscountMax {
		t.Errorf("discount %g outside [%g, %g]", d, cfg.DiscountMin, cfg.DiscountMax)
	}
}

func TestDiscountEmptyModel(t *testing.T) {
	cfg := testConfig()
	m := NewModel(cfg)
	if d := m.Discount(); d != cfg.DiscountMax {
		t.Errorf("empty-model discount = %g, want max %g", d, cfg.DiscountMax)
	}
}

func TestRound6(t *testing.T) {
	if got := round6(0.1234567); got != 0.123457 {
		t.Errorf("round6 = %v", got)
	}
	if got := round6(0.5); got != 0.5 {
		t.Errorf("round6 should be exact on short decimals, got %v", got)
	}
}
