package sotu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJaroWinklerKnownValues(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"MARTHA", "MARHTA", 0.9611},
		{"DIXON", "DICKSONX", 0.8133},
		{"DWAYNE", "DUANE", 0.8400},
	}
	for _, c := range cases {
		got, err := JaroWinkler(c.a, c.b)
		require.NoError(t, err)
		assert.InDelta(t, c.want, got, 1e-4, "JaroWinkler(%q, %q)", c.a, c.b)
	}
}

func TestJaroWinklerIdentical(t *testing.T) {
	got, err := JaroWinkler("washington", "washington")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestJaroWinklerDegenerateInputs(t *testing.T) {
	got, err := JaroWinkler("", "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got, "two empty strings are identical")

	got, err = JaroWinkler("union", "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	got, err = JaroWinkler("", "union")
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestJaroWinklerNoCommonRunes(t *testing.T) {
	got, err := JaroWinkler("abc", "xyz")
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestJaroWinklerSymmetric(t *testing.T) {
	ab, err := JaroWinkler("congress", "progress")
	require.NoError(t, err)
	ba, err := JaroWinkler("progress", "congress")
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestJaroWinklerRange(t *testing.T) {
	pairs := [][2]string{
		{"the union is strong", "the state of the union"},
		{"a", "ab"},
		{"economy", "economic"},
		{"short", "a considerably longer string of words"},
	}
	for _, p := range pairs {
		got, err := JaroWinkler(p[0], p[1])
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}

func TestNormalizedLevenshtein(t *testing.T) {
	got, err := NormalizedLevenshtein("kitten", "sitting")
	require.NoError(t, err)
	assert.InDelta(t, 1.0-3.0/7.0, got, 1e-9)

	got, err = NormalizedLevenshtein("same", "same")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = NormalizedLevenshtein("", "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = NormalizedLevenshtein("word", "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}
