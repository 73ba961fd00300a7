package sotu

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Metric scores the surface similarity of two strings, normalized to [0, 1]
// with 1 meaning identical. A Metric must be safe for concurrent use. The
// built-in metrics are total over all string pairs and never return an error;
// the error return exists so callers can plug in fallible comparators.
type Metric func(a, b string) (float64, error)

// JaroWinkler scores two strings with the Jaro similarity boosted by shared
// prefix length (up to four runes, scaling factor 0.1). Two empty strings
// score 1; one empty string scores 0.
func JaroWinkler(a, b string) (float64, error) {
	ra, rb := []rune(a), []rune(b)
	j := jaro(ra, rb)
	if j == 0 {
		return 0, nil
	}

	prefix := 0
	for prefix < len(ra) && prefix < len(rb) && prefix < 4 {
		if ra[prefix] != rb[prefix] {
			break
		}
		prefix++
	}

	return j + float64(prefix)*0.1*(1-j), nil
}

// jaro computes the base Jaro similarity over rune slices.
func jaro(a, b []rune) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	window := max(len(a), len(b))/2 - 1
	if window < 0 {
		window = 0
	}

	matchedA := make([]bool, len(a))
	matchedB := make([]bool, len(b))

	matches := 0
	for i := range a {
		lo := max(0, i-window)
		hi := min(len(b), i+window+1)
		for j := lo; j < hi; j++ {
			if matchedB[j] || a[i] != b[j] {
				continue
			}
			matchedA[i] = true
			matchedB[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0
	}

	// Count half-transpositions between matched runes in order.
	halfTranspositions := 0
	j := 0
	for i := range a {
		if !matchedA[i] {
			continue
		}
		for !matchedB[j] {
			j++
		}
		if a[i] != b[j] {
			halfTranspositions++
		}
		j++
	}
	transpositions := float64(halfTranspositions) / 2

	m := float64(matches)
	return (m/float64(len(a)) + m/float64(len(b)) + (m-transpositions)/m) / 3
}

// NormalizedLevenshtein scores two strings as one minus the edit distance
// divided by the longer rune length. Two empty strings score 1; one empty
// string scores 0.
func NormalizedLevenshtein(a, b string) (float64, error) {
	if a == b {
		return 1, nil
	}
	if len(a) == 0 || len(b) == 0 {
		return 0, nil
	}

	dist := levenshtein.ComputeDistance(a, b)
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	return 1 - float64(dist)/float64(maxLen), nil
}
