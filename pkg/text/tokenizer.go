package text

import (
	"strings"
	"unicode"
)

// Word-level Jaccard similarity with n-gram shingles. The factuality
// checker scores a model response against its reference fact with this;
// overlap must survive punctuation and formatting drift between the two.

// Tokenizer normalizes free text into shingle sets for overlap scoring.
type Tokenizer struct {
	StopWords   map[string]bool
	Stemming    bool
	ShingleSize int
}

// DefaultStopWords returns the filler words dropped before shingling.
// Reference facts are short; function words would dominate the overlap
// score if kept.
func DefaultStopWords() map[string]bool {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "will", "with",
	}
	stopWords := make(map[string]bool, len(words))
	for _, w := range words {
		stopWords[w] = true
	}
	return stopWords
}

// NewTokenizer builds a tokenizer. A shingle size of 0 or less falls
// back to bigrams, which is what the factuality checker uses.
func NewTokenizer(useStopWords, useStemming bool, shingleSize int) *Tokenizer {
	var stopWords map[string]bool
	if useStopWords {
		stopWords = DefaultStopWords()
	}
	if shingleSize <= 0 {
		shingleSize = 2
	}
	return &Tokenizer{
		StopWords:   stopWords,
		Stemming:    useStemming,
		ShingleSize: shingleSize,
	}
}

// Tokenize splits text into lowercase words. Anything that is not a
// letter or digit delimits; punctuation and emoji never become tokens.
func (t *Tokenizer) Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		word := strings.ToLower(f)
		if t.Stemming {
			word = t.stem(word)
		}
		if t.StopWords != nil && t.StopWords[word] {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// Shingles joins consecutive tokens into n-grams. A token run shorter
// than the shingle size collapses to a single shingle so that short
// reference facts still produce a comparable set.
func (t *Tokenizer) Shingles(tokens []string) []string {
	if len(tokens) < t.ShingleSize {
		if len(tokens) == 0 {
			return []string{}
		}
		return []string{strings.Join(tokens, " ")}
	}

	shingles := make([]string, 0, len(tokens)-t.ShingleSize+1)
	for i := 0; i <= len(tokens)-t.ShingleSize; i++ {
		shingles = append(shingles, strings.Join(tokens[i:i+t.ShingleSize], " "))
	}
	return shingles
}

// Jaccard computes set similarity between two shingle slices, in [0, 1].
// Two empty sets count as a perfect match.
func (t *Tokenizer) Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	setA := make(map[string]bool, len(a))
	for _, shingle := range a {
		setA[shingle] = true
	}

	intersection := 0
	union := make(map[string]bool, len(a)+len(b))
	for shingle := range setA {
		union[shingle] = true
	}
	for _, shingle := range b {
		if setA[shingle] {
			intersection++
		}
		union[shingle] = true
	}

	return float64(intersection) / float64(len(union))
}

// stem strips common English suffixes. Crude but enough to line up
// "flagged" with "flag" in a reference fact; words under four runes
// pass through untouched.
func (t *Tokenizer) stem(word string) string {
	if len(word) < 4 {
		return word
	}
	for _, suffix := range []string{"ing", "ed", "ly", "es", "s"} {
		if strings.HasSuffix(word, suffix) {
			stemmed := word[:len(word)-len(suffix)]
			if len(stemmed) >= 2 {
				return stemmed
			}
		}
	}
	return word
}

// ComputeOverlap tokenizes both texts, shingles them, and returns their
// Jaccard similarity.
func (t *Tokenizer) ComputeOverlap(text1, text2 string) float64 {
	shingles1 := t.Shingles(t.Tokenize(text1))
	shingles2 := t.Shingles(t.Tokenize(text2))
	return t.Jaccard(shingles1, shingles2)
}
