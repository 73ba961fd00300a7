package sotu

import (
	_ "embed"
	"strings"
)

//go:embed stopwords/english.txt
var englishStopwords string

var stopwords = loadStopwords(englishStopwords)

func loadStopwords(list string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(list) {
		words[strings.ToLower(w)] = struct{}{}
	}
	return words
}

// IsStopword reports whether a lowercased word is on the English stopword list.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}
