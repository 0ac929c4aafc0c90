package factual

import (
	"math"
	"strings"
)

// responseConsistency estimates how trustworthy a response is without a
// reference fact. Specific, direct, low-repetition answers score high;
// hedged or repetitive answers score low.
func responseConsistency(response string) float64 {
	specificity := measureSpecificity(response)
	density := measureFactualDensity(response)
	repetition := measureRepetition(response)

	consistency := specificity*0.5 + density*0.3 + (1.0-repetition)*0.2
	if consistency < 0 {
		consistency = 0
	}
	if consistency > 1 {
		consistency = 1
	}
	return consistency
}

// measureSpecificity counts concrete markers (numbers, capitalized
// entities) against hedges ("maybe", "possibly", ...).
func measureSpecificity(txt string) float64 {
	lower := strings.ToLower(txt)

	hedges := []string{"maybe", "perhaps", "possibly", "might", "could", "may", "uncertain"}
	hedgeCount := 0
	for _, hedge := range hedges {
		hedgeCount += strings.Count(lower, hedge)
	}

	specificMarkers := 0
	words := strings.Fields(txt)
	for _, word := range words {
		if len(word) > 0 && word[0] >= '0' && word[0] <= '9' {
			specificMarkers++
		}
		if len(word) > 1 && word[0] >= 'A' && word[0] <= 'Z' {
			specificMarkers++
		}
	}

	if len(words) == 0 {
		return 0
	}
	specificity := float64(specificMarkers-hedgeCount) / float64(len(words))
	if specificity < 0 {
		specificity = 0
	}
	if specificity > 1 {
		specificity = 1
	}
	return specificity
}

// measureFactualDensity favors short direct sentences over meandering
// prose.
func measureFactualDensity(txt string) float64 {
	words := strings.Fields(txt)
	if len(words) == 0 {
		return 0
	}
	sentences := float64(strings.Count(txt, ".") + 1)
	wordsPerSentence := float64(len(words)) / sentences
	return 1.0 / (1.0 + math.Log(wordsPerSentence+1)/5.0)
}

// measureRepetition scores the fraction of repeated words. Repeated
// phrasing correlates with fabricated content.
func measureRepetition(txt string) float64 {
	words := strings.Fields(strings.ToLower(txt))
	if len(words) < 2 {
		return 0
	}

	wordCounts := make(map[string]int)
	for _, word := range words {
		if len(word) <= 2 {
			continue
		}
		wordCounts[word]++
	}

	totalOccurrences := 0
	for _, count := range wordCounts {
		totalOccurrences += count
	}
	if totalOccurrences == 0 {
		return 0
	}
	return float64(totalOccurrences-len(wordCounts)) / float64(totalOccurrences)
}
