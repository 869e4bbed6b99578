// Package jptext provides small helpers for classifying Japanese text:
// script detection, symbol-run checks, and coarse part-of-speech profiles.
package jptext

import (
	"strings"
	"unicode"
)

// HasJapanese reports whether s contains at least one hiragana, katakana,
// or kanji rune.
func HasJapanese(s string) bool {
	for _, r := range s {
		if IsJapanese(r) {
			return true
		}
	}
	return false
}

// IsJapanese reports whether r belongs to one of the Japanese scripts.
func IsJapanese(r rune) bool {
	switch {
	case r >= 0x3040 && r <= 0x309F: // hiragana
		return true
	case r >= 0x30A0 && r <= 0x30FF: // katakana
		return true
	case r >= 0x31F0 && r <= 0x31FF: // katakana phonetic extensions
		return true
	case unicode.Is(unicode.Han, r):
		return true
	}
	return false
}

// IsSymbolRun reports whether s consists entirely of symbols, punctuation,
// and digits, with no letters of any script.
func IsSymbolRun(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// IsASCIIOnly reports whether every rune of s is in the ASCII range.
func IsASCIIOnly(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}

// Interrogative markers that end or punctuate a Japanese question.
var interrogatives = []string{"か", "？", "?", "どう", "なぜ", "何", "誰", "いつ", "どこ"}

// IsInterrogative reports whether the token sequence looks like a question.
func IsInterrogative(tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	joined := strings.Join(tokens, "")
	for _, m := range interrogatives {
		if strings.Contains(joined, m) {
			return true
		}
	}
	return false
}

// POSProfile is a coarse grammatical profile of a token sequence.
type POSProfile struct {
	HasVerb    bool
	HasCopula  bool
	HasNoun    bool
	Question   bool
	TokenCount int
}

// Copula surface forms recognized without morphological analysis.
var copulae = map[string]struct{}{
	"です": {}, "だ": {}, "である": {}, "ます": {}, "でした": {}, "だった": {},
}

// ProfileFromPOS builds a profile from part-of-speech tags. Tags follow the
// conventional Japanese tagset prefixes (動詞, 名詞, 助動詞).
func ProfileFromPOS(surfaces, tags []string) POSProfile {
	p := POSProfile{TokenCount: len(surfaces), Question: IsInterrogative(surfaces)}
	for i, tag := range tags {
		switch {
		case strings.HasPrefix(tag, "動詞"):
			p.HasVerb = true
		case strings.HasPrefix(tag, "名詞"):
			p.HasNoun = true
		case strings.HasPrefix(tag, "助動詞"):
			p.HasCopula = true
		}
		if i < len(surfaces) {
			if _, ok := copulae[surfaces[i]]; ok {
				p.HasCopula = true
			}
		}
	}
	return p
}

// ProfileFromSurfaces builds a best-effort profile when no POS tags are
// available (whitespace-fallback tokenization).
func ProfileFromSurfaces(surfaces []string) POSProfile {
	p := POSProfile{TokenCount: len(surfaces), Question: IsInterrogative(surfaces)}
	for _, s := range surfaces {
		if _, ok := copulae[s]; ok {
			p.HasCopula = true
		}
		// Verb-ish endings in plain form.
		if strings.HasSuffix(s, "る") || strings.HasSuffix(s, "た") || strings.HasSuffix(s, "う") {
			p.HasVerb = true
		}
	}
	return p
}

// Compatible reports whether a candidate profile suits an input profile:
// interrogative input favors candidates carrying a verb or copula.
func Compatible(input, candidate POSProfile) bool {
	if input.Question {
		return candidate.HasVerb || candidate.HasCopula
	}
	return true
}
