package lexicon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalize(t *testing.T) {
	lex := New(0, 0)
	lex.AddSynonymGroup("犬", []string{"犬", "イヌ", "わんこ"})

	if got := lex.Normalize("イヌ"); got != "犬" {
		t.Errorf("Normalize(イヌ) = %q, want 犬", got)
	}
	if got := lex.Normalize("犬"); got != "犬" {
		t.Errorf("canonical form should normalize to itself, got %q", got)
	}
	if got := lex.Normalize("象"); got != "象" {
		t.Errorf("unknown token must pass through, got %q", got)
	}
}

func TestVariants(t *testing.T) {
	lex := New(0, 0)
	lex.AddSynonymGroup("犬", []string{"犬", "イヌ"})

	vs := lex.Variants("イヌ")
	if len(vs) != 2 {
		t.Fatalf("variants = %v, want group of two", vs)
	}
	if lex.Variants("象") != nil && len(lex.Variants("象")) != 0 {
		t.Error("unknown token should have no variants")
	}
}

func TestRelatedGating(t *testing.T) {
	lex := New(1.0, 3)
	lex.AddRelated("猫", Related{Token: "魚", PMI: 2.5, Support: 10})
	lex.AddRelated("猫", Related{Token: "机", PMI: 0.2, Support: 10}) // weak PMI
	lex.AddRelated("猫", Related{Token: "月", PMI: 3.0, Support: 1})  // weak support

	rels := lex.Related("猫")
	if len(rels) != 1 || rels[0].Token != "魚" {
		t.Fatalf("Related(猫) = %v, want only the significant association", rels)
	}
}

func TestRelatedOrderedByPMI(t *testing.T) {
	lex := New(0, 0)
	lex.AddRelated("猫", Related{Token: "机", PMI: 1.0, Support: 5})
	lex.AddRelated("猫", Related{Token: "魚", PMI: 2.0, Support: 5})

	rels := lex.Related("猫")
	if len(rels) != 2 || rels[0].Token != "魚" {
		t.Errorf("Related should be strongest-first, got %v", rels)
	}
}

func TestRelatedThroughSynonym(t *testing.T) {
	lex := New(0, 0)
	lex.AddSynonymGroup("犬", []string{"犬", "イヌ"})
	lex.AddRelated("犬", Related{Token: "散歩", PMI: 1.5, Support: 4})

	if rels := lex.Related("イヌ"); len(rels) != 1 {
		t.Errorf("variant lookup should resolve through the canonical form, got %v", rels)
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	doc := `synonyms:
  - canonical: 犬
    variants: [イヌ, わんこ]
  - canonical: 猫
    variants: [ネコ]
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	lex, err := LoadFromYAML(path, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := lex.Normalize("わんこ"); got != "犬" {
		t.Errorf("Normalize(わんこ) = %q, want 犬", got)
	}
	groups, _ := lex.Size()
	if groups != 2 {
		t.Errorf("groups = %d, want 2", groups)
	}
}

func TestLoadFromYAMLMissingFile(t *testing.T) {
	if _, err := LoadFromYAML(filepath.Join(t.TempDir(), "absent.yaml"), 0, 0); err == nil {
		t.Error("missing file should error")
	}
}
