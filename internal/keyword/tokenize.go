// Package keyword provides the tokenizer and inverted index behind local keyword search.
package keyword

import (
	"sort"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	bleveunicode "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

var (
	wordTokenizer = bleveunicode.NewUnicodeTokenizer()
	lowerFilter   = lowercase.NewLowerCaseFilter()
)

// Tokenize returns the sorted unique lowercase alphanumeric tokens of text. Documents
// and queries go through the same function so their token sets are comparable.
func Tokenize(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	stream := lowerFilter.Filter(wordTokenizer.Tokenize([]byte(text)))

	seen := make(map[string]struct{}, len(stream))
	for _, tok := range stream {
		// Unicode word segmentation keeps "react.memo" or "don't" together; split those further.
		parts := strings.FieldsFunc(string(tok.Term), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		for _, p := range parts {
			seen[p] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(seen))
	for t := range seen {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}
