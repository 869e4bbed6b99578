package ingest

import (
	"context"
	"testing"
)

func TestSpaceTokenizer(t *testing.T) {
	tokens, err := SpaceTokenizer{}.ProcessText(context.Background(), "猫 が  好き")
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 3 {
		t.Fatalf("tokens = %v, want 3", tokens)
	}
	if tokens[0].Surface != "猫" || tokens[2].Surface != "好き" {
		t.Errorf("unexpected surfaces: %v", tokens)
	}
	for _, tok := range tokens {
		if tok.POS != "" {
			t.Error("whitespace fallback must not invent POS tags")
		}
		if tok.BaseForm != tok.Surface {
			t.Error("fallback base form should equal the surface")
		}
	}
}

func TestSpaceTokenizerEmpty(t *testing.T) {
	tokens, err := SpaceTokenizer{}.ProcessText(context.Background(), "   ")
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 0 {
		t.Errorf("blank input tokens = %v, want none", tokens)
	}
}

func TestBaseFormsFallBackToSurface(t *testing.T) {
	tokens := []Token{
		{Surface: "走っ", BaseForm: "走る"},
		{Surface: "た"},
	}
	got := BaseForms(tokens)
	if got[0] != "走る" || got[1] != "た" {
		t.Errorf("BaseForms = %v", got)
	}
}

func TestSurfacesAndPOSTags(t *testing.T) {
	tokens := []Token{
		{Surface: "猫", POS: "名詞"},
		{Surface: "走る", POS: "動詞"},
	}
	if s := Surfaces(tokens); s[0] != "猫" || s[1] != "走る" {
		t.Errorf("Surfaces = %v", s)
	}
	if p := POSTags(tokens); p[0] != "名詞" || p[1] != "動詞" {
		t.Errorf("POSTags = %v", p)
	}
}
