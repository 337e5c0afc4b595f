// Package chunk windows raw passage text into the overlapping,
// sentence-aware passages the writer embeds and ingests (spec.md §6:
// "text_chunk_size", "text_overlap"). original_source's only text
// windowing lives in its PDF extractor
// (original_source/src/processes/process_file.py's
// extract_text_from_pdf): split on sentence boundaries, accumulate
// sentences into a window of at most text_chunk_size words, and seed
// the next window with the last text_overlap words of the one just
// closed. This package generalizes that algorithm to any text file
// instead of a PDF-specific one, since passage extraction itself is an
// external collaborator spec.md §1 carves out of scope — this is a
// convenience for the CLI's ingest path, not a core [MODULE].
package chunk

import (
	"regexp"
	"strings"
)

// sentenceEnd matches a sentence-terminating punctuation mark followed
// by whitespace. Go's regexp package has no lookbehind, so unlike
// original_source's `re.split(r'(?<=[.?!])\s+', text)` this is applied
// with FindAllStringIndex and the punctuation is kept on the left side
// of each split by hand below.
var sentenceEnd = regexp.MustCompile(`[.?!]\s+`)

// DefaultWindowWords and DefaultOverlapWords match spec.md §6's
// text_chunk_size/text_overlap defaults (300 words, 50 words).
const (
	DefaultWindowWords  = 300
	DefaultOverlapWords = 50
)

// Splitter windows text into word-bounded, sentence-aligned passages.
type Splitter struct {
	WindowWords  int
	OverlapWords int
}

// NewSplitter builds a Splitter from the configured window/overlap
// sizes, falling back to spec.md §6's defaults for zero or
// out-of-range values.
func NewSplitter(windowWords, overlapWords int) *Splitter {
	if windowWords <= 0 {
		windowWords = DefaultWindowWords
	}
	if overlapWords < 0 || overlapWords >= windowWords {
		overlapWords = DefaultOverlapWords
		if overlapWords >= windowWords {
			overlapWords = 0
		}
	}
	return &Splitter{WindowWords: windowWords, OverlapWords: overlapWords}
}

// Split breaks text into passages along sentence boundaries. A passage
// closes when the next sentence would take it past WindowWords words,
// and seeds the following passage with its own trailing OverlapWords
// words, so no sentence is stranded at a hard word-count cutoff.
// Sentences are never cut, so a passage can exceed WindowWords: a
// sentence longer than the window is kept whole, and the sentence that
// follows an overlap seed is added without checking the window.
func (s *Splitter) Split(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var passages []string
	var current []string
	currentWords := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		passages = append(passages, strings.Join(current, " "))
	}

	for _, sentence := range sentences {
		words := strings.Fields(sentence)
		if currentWords+len(words) > s.WindowWords && len(current) > 0 {
			flush()
			current, currentWords = s.seedOverlap(current)
		}
		current = append(current, sentence)
		currentWords += len(words)
	}
	flush()

	return passages
}

// seedOverlap returns the next passage's starting sentences: the
// trailing OverlapWords words of the passage just closed, or nothing
// if overlap is disabled.
func (s *Splitter) seedOverlap(closed []string) ([]string, int) {
	if s.OverlapWords <= 0 {
		return nil, 0
	}
	tail := strings.Fields(strings.Join(closed, " "))
	if len(tail) > s.OverlapWords {
		tail = tail[len(tail)-s.OverlapWords:]
	}
	return []string{strings.Join(tail, " ")}, len(tail)
}

// splitSentences breaks text into sentences on '.', '?', or '!'
// followed by whitespace, the same basic heuristic
// original_source/src/processes/process_file.py uses.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		end := loc[0] + 1 // keep the punctuation, drop the trailing whitespace run
		sentences = append(sentences, text[start:end])
		start = loc[1]
	}
	if start < len(text) {
		sentences = append(sentences, strings.TrimSpace(text[start:]))
	}
	return sentences
}
