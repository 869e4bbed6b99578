package ngram

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/cognicore/kotoba/pkg/kotoba/config"
	"github.com/cognicore/kotoba/pkg/kotoba/ingest"
)

func testConfig() config.NgramConfig {
	return config.Default().Ngram
}

func toks(words ...string) []ingest.Token {
	out := make([]ingest.Token, len(words))
	for i, w := range words {
		out[i] = ingest.Token{Surface: w, BaseForm: w}
	}
	return out
}

func TestLearnBasicCounts(t *testing.T) {
	m := NewModel(testConfig())

	stats := m.Learn(toks("猫", "が", "好き"), ContextInfo{})
	if stats.Filtered {
		t.Fatal("valid Japanese input should not be filtered")
	}
	if stats.NgramsAdded == 0 {
		t.Fatal("expected n-grams to be added")
	}

	if m.Freq("猫") == 0 {
		t.Error("unigram 猫 should have frequency")
	}
	if m.Freq("猫 が") == 0 {
		t.Error("bigram 猫 が should have frequency")
	}
	if m.Freq("猫 が 好き") == 0 {
		t.Error("trigram should have frequency")
	}
}

func TestLearnRepetitionGrowsFrequency(t *testing.T) {
	m := NewModel(testConfig())

	m.Learn(toks("猫", "が", "好き"), ContextInfo{})
	f1 := m.Freq("猫 が")
	m.Learn(toks("猫", "が", "好き"), ContextInfo{})
	f2 := m.Freq("猫 が")

	if f2 <= f1 {
		t.Errorf("frequency should grow on repeated learning: %f then %f", f1, f2)
	}
}

func TestLearnEmptyInput(t *testing.T) {
	m := NewModel(testConfig())
	stats := m.Learn(nil, ContextInfo{})
	if !stats.Filtered {
		t.Error("empty input should report filtered")
	}
	if m.TotalDocs() != 0 {
		t.Error("empty input should not count as a document")
	}
}

func TestLearnSymbolNoiseFiltered(t *testing.T) {
	m := NewModel(testConfig())
	m.Learn(toks("!!!", "???"), ContextInfo{})
	if m.Freq("!!!") != 0 {
		t.Error("symbol runs must not enter the frequency table")
	}
}

func TestLearnFilteredInputLogged(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	m := NewModel(testConfig())
	stats := m.Learn(toks("!!!", "???"), ContextInfo{Source: "chat"})
	if !stats.Filtered {
		t.Fatal("symbol noise should report filtered")
	}
	if !strings.Contains(buf.String(), "fully filtered") {
		t.Errorf("fully filtered input should leave a log line, got %q", buf.String())
	}
}

func TestDocFreqNeverExceedsTotalDocs(t *testing.T) {
	m := NewModel(testConfig())

	docs := [][]string{
		{"猫", "が", "好き"},
		{"猫", "は", "かわいい"},
		{"犬", "も", "好き"},
	}
	for _, d := range docs {
		m.Learn(toks(d...), ContextInfo{})
	}

	total := m.TotalDocs()
	if total != 3 {
		t.Fatalf("total docs = %d, want 3", total)
	}
	for _, term := range []string{"猫", "犬", "好き", "が"} {
		if df := m.DocFreq(term); df > total {
			t.Errorf("doc freq of %s = %d exceeds total %d", term, df, total)
		}
	}
	// 猫 appears in two documents; repetition inside one doc counts once.
	if df := m.DocFreq("猫"); df != 2 {
		t.Errorf("doc freq of 猫 = %d, want 2", df)
	}
}

func TestContinuationSets(t *testing.T) {
	m := NewModel(testConfig())
	m.Learn(toks("猫", "が", "好き"), ContextInfo{})
	m.Learn(toks("猫", "が", "いる"), ContextInfo{})

	conts := m.Continuations("猫 が")
	if len(conts) != 2 {
		t.Fatalf("continuations of 猫 が = %v, want two entries", conts)
	}
	if m.ContinuationCount("猫 が") != 2 {
		t.Error("continuation count should be distinct-token count")
	}

	// Same continuation twice still counts once.
	m.Learn(toks("猫", "が", "好き"), ContextInfo{})
	if m.ContinuationCount("猫 が") != 2 {
		t.Error("continuation count must be type-based, not token-based")
	}
}

func TestContextLabelDerived(t *testing.T) {
	m := NewModel(testConfig())
	stats := m.Learn(toks("猫", "が", "好き", "です"), ContextInfo{})
	if stats.Label == "" {
		t.Fatal("expected a derived context label")
	}
	if _, ok := m.ContextLabels()[stats.Label]; !ok {
		t.Error("derived label should be recorded in context frequencies")
	}
}

func TestContextLabelOverride(t *testing.T) {
	m := NewModel(testConfig())
	stats := m.Learn(toks("猫", "が", "好き"), ContextInfo{Label: "動物"})
	if stats.Label != "動物" {
		t.Errorf("label = %q, want explicit override", stats.Label)
	}
}

func TestStructureBonusWeighting(t *testing.T) {
	cfg := testConfig()
	cfg.PreserveStructure = true
	m := NewModel(cfg)
	m.Learn(toks("猫", "が", "好き"), ContextInfo{})

	tri := m.Freq("猫 が 好き")
	uni := m.Freq("猫")
	if tri <= uni {
		t.Errorf("trigram weight %f should exceed unigram weight %f under structure bonus", tri, uni)
	}
}

func TestTFIDFGuardsEmptyModel(t *testing.T) {
	m := NewModel(testConfig())
	if v := m.TFIDF("猫"); v != 0 {
		t.Errorf("TF-IDF on empty model = %f, want 0", v)
	}
}

func TestTokensRoundTrip(t *testing.T) {
	m := NewModel(testConfig())
	key := strings.Join([]string{"猫", "が", "好き"}, m.Separator())
	got := m.Tokens(key)
	if len(got) != 3 || got[0] != "猫" || got[2] != "好き" {
		t.Errorf("Tokens(%q) = %v", key, got)
	}
}
