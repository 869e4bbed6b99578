package bandit

import (
	"math"
	"testing"
)

func TestUCBValueUntriedIsInfinite(t *testing.T) {
	u := NewUCB1(math.Sqrt2)
	if v := u.UCBValue("猫"); !math.IsInf(v, 1) {
		t.Errorf("untried arm UCB = %v, want +Inf", v)
	}
}

func TestSelectVocabularyTriesEveryArmOnce(t *testing.T) {
	u := NewUCB1(math.Sqrt2)
	candidates := []string{"猫", "犬", "鳥"}

	picked := make(map[string]bool)
	for range candidates {
		picked[u.SelectVocabulary(candidates)] = true
	}
	if len(picked) != len(candidates) {
		t.Errorf("first rounds should explore every arm, picked %v", picked)
	}
}

func TestSelectVocabularyFavorsRewardedArm(t *testing.T) {
	u := NewUCB1(0.1)
	candidates := []string{"猫", "犬"}

	// Prime both arms, then reward only one heavily.
	u.SelectVocabulary(candidates)
	u.SelectVocabulary(candidates)
	for i := 0; i < 20; i++ {
		u.Reward("猫", 1.0)
	}

	wins := 0
	for i := 0; i < 10; i++ {
		if u.SelectVocabulary(candidates) == "猫" {
			wins++
		}
	}
	if wins < 8 {
		t.Errorf("rewarded arm won %d/10, want a clear majority", wins)
	}
}

func TestSelectVocabularyEmpty(t *testing.T) {
	u := NewUCB1(math.Sqrt2)
	if got := u.SelectVocabulary(nil); got != "" {
		t.Errorf("empty candidates should select nothing, got %q", got)
	}
}

func TestRewardClamped(t *testing.T) {
	u := NewUCB1(0)
	u.Reward("猫", 5)
	u.Reward("犬", -3)

	if v := u.UCBValue("猫"); v > 1 {
		t.Errorf("over-range reward should clamp to 1, UCB = %f", v)
	}
	if v := u.UCBValue("犬"); v != 0 {
		t.Errorf("negative reward should clamp to 0, UCB = %f", v)
	}
}

func TestNormalizeUCBNoInfiniteLeak(t *testing.T) {
	raw := map[string]float64{
		"新語": math.Inf(1),
		"猫":  0.8,
		"犬":  0.4,
	}
	out := NormalizeUCB(raw, 1.5)

	for term, v := range out {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			t.Fatalf("normalized value for %s = %v, must be finite", term, v)
		}
		if v < 0 || v > 1 {
			t.Errorf("normalized value for %s = %f outside [0,1]", term, v)
		}
	}
	// The untried arm maps to the ceiling, above every finite peer.
	if out["新語"] != 1 {
		t.Errorf("infinite arm should normalize to 1, got %f", out["新語"])
	}
	if out["猫"] <= out["犬"] {
		t.Error("normalization must preserve finite ordering")
	}
}

func TestNormalizeUCBAllInfinite(t *testing.T) {
	raw := map[string]float64{"猫": math.Inf(1), "犬": math.Inf(1)}
	out := NormalizeUCB(raw, 1.5)
	for term, v := range out {
		if v != 1 {
			t.Errorf("with no finite peers %s should map to 1, got %f", term, v)
		}
	}
}
