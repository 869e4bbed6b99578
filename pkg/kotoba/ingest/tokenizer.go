package ingest

import (
	"context"
	"strings"
)

// Token is a single morpheme produced by the morphological collaborator.
type Token struct {
	Surface   string
	BaseForm  string
	POS       string // e.g. 名詞, 動詞
	POSDetail string // e.g. 一般, 自立
}

// Tokenizer is the external morphological-analysis boundary. The engine
// treats it as a black box that may fail; callers fall back to whitespace
// splitting when it does.
type Tokenizer interface {
	ProcessText(ctx context.Context, text string) ([]Token, error)
}

// SpaceTokenizer is the degraded fallback tokenizer: it splits on
// whitespace and reports no part-of-speech information.
type SpaceTokenizer struct{}

// ProcessText implements Tokenizer by naive whitespace splitting.
func (SpaceTokenizer) ProcessText(_ context.Context, text string) ([]Token, error) {
	fields := strings.Fields(text)
	tokens := make([]Token, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, Token{Surface: f, BaseForm: f})
	}
	return tokens, nil
}

// Surfaces extracts the surface forms of a token slice.
func Surfaces(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Surface
	}
	return out
}

// BaseForms extracts the base forms, falling back to the surface when the
// analyzer supplied none.
func BaseForms(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		if t.BaseForm != "" {
			out[i] = t.BaseForm
		} else {
			out[i] = t.Surface
		}
	}
	return out
}

// POSTags extracts the part-of-speech tags of a token slice.
func POSTags(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.POS
	}
	return out
}
