package ingest

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/cognicore/kotoba/internal/jptext"
)

// Filter strips non-linguistic noise from learning text before it reaches
// tokenization: markup, URLs, filesystem paths, and symbol runs. Unfiltered
// noise dominates low-order n-gram statistics, so this runs on every learn
// call.
type Filter struct {
	urlRe    *regexp.Regexp
	pathRe   *regexp.Regexp
	symbolRe *regexp.Regexp
}

// NewFilter creates a Filter with the standard noise patterns.
func NewFilter() *Filter {
	return &Filter{
		urlRe:    regexp.MustCompile(`https?://[^\s　]+|www\.[^\s　]+`),
		pathRe:   regexp.MustCompile(`(?:[A-Za-z]:)?(?:[\\/][\w.\-]+){2,}[\\/]?`),
		symbolRe: regexp.MustCompile(`[!-/:-@\[-` + "`" + `{-~]{3,}`),
	}
}

// Clean returns text with markup and noise removed. The result may be
// empty, which callers treat as a no-op learn.
func (f *Filter) Clean(text string) string {
	text = stripHTML(text)
	text = f.urlRe.ReplaceAllString(text, " ")
	text = f.pathRe.ReplaceAllString(text, " ")
	text = f.symbolRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// AcceptNgram reports whether a candidate n-gram should enter the
// frequency table. An n-gram is rejected when its token count deviates from
// the requested order by more than one, or when it carries no Japanese
// script at all (pure ASCII or symbol runs).
func (f *Filter) AcceptNgram(tokens []string, order int) bool {
	diff := len(tokens) - order
	if diff < -1 || diff > 1 {
		return false
	}
	joined := strings.Join(tokens, "")
	if joined == "" {
		return false
	}
	if jptext.IsSymbolRun(joined) {
		return false
	}
	if jptext.IsASCIIOnly(joined) && !jptext.HasJapanese(joined) {
		return false
	}
	return true
}

// stripHTML extracts the text content of an HTML fragment. Plain text
// passes through unchanged; a parse failure returns the input as-is since
// the downstream regex filters still apply.
func stripHTML(text string) string {
	if !strings.ContainsRune(text, '<') {
		return text
	}

	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return text
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}
