package sotu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanTextsBasicNormalization(t *testing.T) {
	got := CleanTexts([]string{"The CAT sat on the mat!"})
	assert.Equal(t, []string{"cat sat mat"}, got)
}

func TestCleanTextsStripsPunctuationAndControlCharacters(t *testing.T) {
	got := CleanTexts([]string{"Fellow-citizens:\r\n\tof the Senate,\nand House of Representatives."})
	assert.Equal(t, []string{"fellow citizens senate house representatives"}, got)
}

func TestCleanTextsStripsDiacritics(t *testing.T) {
	got := CleanTexts([]string{"Café olé naïve"})
	assert.Equal(t, []string{"cafe ole naive"}, got)
}

func TestCleanTextsDropsStopwordContractions(t *testing.T) {
	got := CleanTexts([]string{"Don't they know we won't surrender"})
	assert.Equal(t, []string{"know surrender"}, got)
}

func TestCleanTextsPreservesLengthAndOrder(t *testing.T) {
	docs := []string{"First Speech", "", "Third Speech"}
	got := CleanTexts(docs)
	assert.Len(t, got, len(docs))
	assert.Equal(t, "first speech", got[0])
	assert.Equal(t, "", got[1])
	assert.Equal(t, "third speech", got[2])

	// Input is not mutated.
	assert.Equal(t, []string{"First Speech", "", "Third Speech"}, docs)
}

func TestCleanTextsStopwordOnlyInput(t *testing.T) {
	got := CleanTexts([]string{"and the of to in"})
	assert.Equal(t, []string{""}, got)
}

func TestIsStopword(t *testing.T) {
	assert.True(t, IsStopword("the"))
	assert.True(t, IsStopword("don't"))
	assert.False(t, IsStopword("union"))
	assert.False(t, IsStopword("congress"))
}
