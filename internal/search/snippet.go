package search

import (
	"strings"
	"unicode"
)

const ellipsis = "..."

// Snippet excerpts at most length runes of text around the first word that
// normalizes to term. Whitespace is collapsed and clipped sides are marked
// with an ellipsis. An empty or missing term excerpts from the start.
func Snippet(text, term string, length int) string {
	if length <= 0 {
		length = DefaultSnippetLength
	}
	runes := []rune(collapseSpace(text))
	if len(runes) <= length {
		return string(runes)
	}

	center := 0
	if term != "" {
		for _, tok := range scan(string(runes)) {
			if tok.Term == term {
				center = tok.Start
				break
			}
		}
	}

	start := center - length/2
	if start < 0 {
		start = 0
	}
	end := start + length
	if end > len(runes) {
		end = len(runes)
		start = end - length
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString(ellipsis)
	}
	b.WriteString(strings.TrimSpace(string(runes[start:end])))
	if end < len(runes) {
		b.WriteString(ellipsis)
	}
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
