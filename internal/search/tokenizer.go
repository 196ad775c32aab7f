package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxTokenLength is the longest token, in runes, that is indexed
const MaxTokenLength = 64

// Token is one normalized term and the rune offset of the source word it came from
type Token struct {
	Term  string
	Start int
}

// normalizer folds case and strips accents. Transformers and casers carry
// state, so each tokenizer owns its own.
type normalizer struct {
	t     transform.Transformer
	caser cases.Caser
}

func newNormalizer() *normalizer {
	return &normalizer{
		t:     transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		caser: cases.Fold(),
	}
}

func (n *normalizer) normalize(word string) string {
	stripped, _, err := transform.String(n.t, word)
	if err != nil {
		stripped = word
	}
	return n.caser.String(stripped)
}

// Tokenize splits text into normalized index terms, in order, duplicates kept
func Tokenize(text string) []string {
	toks := scan(text)
	terms := make([]string, len(toks))
	for i, tok := range toks {
		terms[i] = tok.Term
	}
	return terms
}

// QueryTerms returns the distinct terms of a query in first-seen order
func QueryTerms(query string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, term := range Tokenize(query) {
		if !seen[term] {
			seen[term] = true
			terms = append(terms, term)
		}
	}
	return terms
}

// scan walks the words of text. A word is a run of letters, digits and
// combining marks; each is normalized and may split further when
// compatibility decomposition introduces punctuation.
func scan(text string) []Token {
	n := newNormalizer()
	var tokens []Token

	emit := func(word string, start int) {
		for _, piece := range strings.FieldsFunc(n.normalize(word), isSeparator) {
			if utf8.RuneCountInString(piece) > MaxTokenLength || isStopword(piece) {
				continue
			}
			tokens = append(tokens, Token{Term: piece, Start: start})
		}
	}

	wordStart := -1
	var b strings.Builder
	pos := 0
	for _, r := range text {
		if isWordRune(r) {
			if wordStart < 0 {
				wordStart = pos
				b.Reset()
			}
			b.WriteRune(r)
		} else if wordStart >= 0 {
			emit(b.String(), wordStart)
			wordStart = -1
		}
		pos++
	}
	if wordStart >= 0 {
		emit(b.String(), wordStart)
	}
	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
