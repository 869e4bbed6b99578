package predict

import (
	"testing"

	"github.com/cognicore/kotoba/pkg/kotoba/config"
	"github.com/cognicore/kotoba/pkg/kotoba/ingest"
	"github.com/cognicore/kotoba/pkg/kotoba/ngram"
)

func toks(words ...string) []ingest.Token {
	out := make([]ingest.Token, len(words))
	for i, w := range words {
		out[i] = ingest.Token{Surface: w, BaseForm: w}
	}
	return out
}

func newTestPredictor(t *testing.T) (*Predictor, *ngram.Model) {
	t.Helper()
	cfg := config.Default()
	model := ngram.NewModel(cfg.Ngram)
	p, err := New(cfg.Predict, model, cfg.Seed, nil)
	if err != nil {
		t.Fatal(err)
	}
	return p, model
}

func TestPredictLearnedContext(t *testing.T) {
	p, model := newTestPredictor(t)

	// Two sentences sharing the 好き です pattern.
	model.Learn(toks("猫", "が", "好き", "です", "。"), ngram.ContextInfo{})
	model.Learn(toks("犬", "も", "好き", "です", "。"), ngram.ContextInfo{})
	model.Learn(toks("猫", "が", "好き", "です", "。"), ngram.ContextInfo{})

	pred := p.Predict(toks("猫", "が"))
	if pred.Category == "" || pred.Category == UnknownCategory {
		t.Fatalf("expected a learned context, got %q", pred.Category)
	}
	if pred.Confidence <= 0 {
		t.Error("confidence should be positive for learned material")
	}
	if pred.NextWord != "好き" {
		t.Errorf("next word = %q, want 好き", pred.NextWord)
	}
}

func TestPredictConfidenceBounds(t *testing.T) {
	p, model := newTestPredictor(t)
	model.Learn(toks("猫", "が", "好き"), ngram.ContextInfo{})
	model.Learn(toks("天気", "は", "晴れ"), ngram.ContextInfo{})

	for _, input := range [][]string{
		{"猫", "が"}, {"天気"}, {"全く", "未知", "の", "入力"},
	} {
		pred := p.Predict(toks(input...))
		if pred.Confidence < 0 || pred.Confidence > 1 {
			t.Errorf("Predict(%v) confidence %f outside [0,1]", input, pred.Confidence)
		}
	}
}

func TestPredictEmptyModelNeverFails(t *testing.T) {
	p, _ := newTestPredictor(t)

	pred := p.Predict(toks("何", "か"))
	if pred.Category != UnknownCategory {
		t.Errorf("empty model category = %q, want %q", pred.Category, UnknownCategory)
	}
	if !pred.Fallback || pred.Tier != TierEmpty {
		t.Error("empty model must report the empty fallback tier")
	}
	if pred.Confidence > 0.2 {
		t.Errorf("cold-start confidence %f should be low", pred.Confidence)
	}
}

func TestPredictUnseenVocabularyFallsBack(t *testing.T) {
	p, model := newTestPredictor(t)
	model.Learn(toks("猫", "が", "好き", "です"), ngram.ContextInfo{})

	pred := p.Predict(toks("飛行機", "の", "切符"))
	if pred.Category == "" {
		t.Fatal("fallback must always produce a category")
	}
	if !pred.Fallback {
		t.Error("unseen vocabulary should go through the fallback chain")
	}
	if pred.Confidence > 0.2 {
		t.Errorf("fallback confidence %f should stay low", pred.Confidence)
	}
}

func TestPredictCacheInvalidation(t *testing.T) {
	p, model := newTestPredictor(t)
	model.Learn(toks("猫", "が", "好き"), ngram.ContextInfo{})

	first := p.Predict(toks("猫", "が"))
	// Cached: identical input returns the identical result.
	if again := p.Predict(toks("猫", "が")); again != first {
		t.Error("repeated prediction should be served from cache")
	}

	// New learning changes the statistics; after invalidation the result
	// may differ and must reflect the new model.
	model.Learn(toks("猫", "が", "いる"), ngram.ContextInfo{})
	p.Invalidate()
	fresh := p.Predict(toks("猫", "が"))
	if fresh.Category == "" {
		t.Error("post-invalidation prediction should still succeed")
	}
}

func TestPredictDeterministic(t *testing.T) {
	run := func() Prediction {
		cfg := config.Default()
		model := ngram.NewModel(cfg.Ngram)
		p, err := New(cfg.Predict, model, cfg.Seed, nil)
		if err != nil {
			t.Fatal(err)
		}
		model.Learn(toks("猫", "が", "好き"), ngram.ContextInfo{})
		return p.Predict(toks("未知", "の", "入力"))
	}

	a, b := run(), run()
	if a != b {
		t.Errorf("same seed and corpus must predict identically: %+v vs %+v", a, b)
	}
}

func TestJaccard(t *testing.T) {
	cases := []struct {
		a, b []string
		want float64
	}{
		{[]string{"猫", "犬"}, []string{"猫", "犬"}, 1},
		{[]string{"猫"}, []string{"犬"}, 0},
		{[]string{"猫", "犬"}, []string{"犬", "鳥"}, 1.0 / 3.0},
		{nil, nil, 0},
	}
	for _, c := range cases {
		if got := jaccard(c.a, c.b); got != c.want {
			t.Errorf("jaccard(%v, %v) = %f, want %f", c.a, c.b, got, c.want)
		}
	}
}
