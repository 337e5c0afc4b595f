package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	sentences := splitSentences("Alpha one. Beta two? Gamma three!")
	assert.Equal(t, []string{"Alpha one.", "Beta two?", "Gamma three!"}, sentences)
}

func TestSplitSentences_Empty(t *testing.T) {
	assert.Nil(t, splitSentences(""))
	assert.Nil(t, splitSentences("   "))
}

func TestSplitSentences_NoTerminalPunctuation(t *testing.T) {
	assert.Equal(t, []string{"just one fragment with no ending"}, splitSentences("just one fragment with no ending"))
}

func TestSplitter_SingleWindow(t *testing.T) {
	s := NewSplitter(100, 10)
	passages := s.Split("Short sentence one. Short sentence two.")
	require.Len(t, passages, 1)
	assert.Equal(t, "Short sentence one. Short sentence two.", passages[0])
}

func TestSplitter_WindowBoundary(t *testing.T) {
	// Each sentence is exactly 5 words; a 12-word window holds two
	// sentences (10 words) before a third would overflow it.
	sentence := "one two three four five."
	text := strings.Repeat(sentence+" ", 5)
	s := NewSplitter(12, 0)

	passages := s.Split(text)
	require.Len(t, passages, 3)
	for _, p := range passages[:2] {
		assert.Equal(t, 10, len(strings.Fields(p)))
	}
}

func TestSplitter_Overlap(t *testing.T) {
	sentence := "one two three four five."
	text := strings.Repeat(sentence+" ", 4)
	s := NewSplitter(12, 3)

	passages := s.Split(text)
	require.GreaterOrEqual(t, len(passages), 2)

	firstWords := strings.Fields(passages[0])
	secondWords := strings.Fields(passages[1])
	wantOverlap := firstWords[len(firstWords)-3:]
	assert.Equal(t, wantOverlap, secondWords[:3])
}

func TestSplitter_Defaults(t *testing.T) {
	s := NewSplitter(0, 0)
	assert.Equal(t, DefaultWindowWords, s.WindowWords)

	s = NewSplitter(10, 10)
	assert.Less(t, s.OverlapWords, s.WindowWords)

	s = NewSplitter(10, -1)
	assert.Zero(t, s.OverlapWords)
}

func TestSplitter_NoPassagesForEmptyText(t *testing.T) {
	s := NewSplitter(100, 10)
	assert.Nil(t, s.Split(""))
}
