package validate

import "strings"

// Generic trade words that carry no identity signal when comparing names.
var nameStopWords = map[string]bool{
	"restaurant": true,
	"cafe":       true,
	"hotel":      true,
	"foods":      true,
	"kitchen":    true,
	"the":        true,
	"a":          true,
	"an":         true,
	"and":        true,
	"by":         true,
}

// NameSimilarity scores how closely a found place name matches the expected
// one, in [0,1]. It takes the best of four strategies: exact match, substring
// containment ratio, stop-word-filtered token overlap, and in-order character
// matching. The score is informational evidence, never an acceptance gate.
func NameSimilarity(found, expected string) float64 {
	foundClean := strings.ToLower(strings.TrimSpace(found))
	expectedClean := strings.ToLower(strings.TrimSpace(expected))

	if foundClean == "" || expectedClean == "" {
		return 0
	}
	if foundClean == expectedClean {
		return 1.0
	}

	best := 0.0

	if strings.Contains(foundClean, expectedClean) || strings.Contains(expectedClean, foundClean) {
		shorter := len(expectedClean)
		longer := len(foundClean)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		if longer > 0 {
			best = max(best, float64(shorter)/float64(longer))
		}
	}

	best = max(best, tokenOverlap(expectedClean, foundClean))
	best = max(best, orderedCharRatio(expectedClean, foundClean))

	return best
}

func tokenOverlap(expected, found string) float64 {
	expectedWords := filterStopWords(tokenSet(expected))
	foundWords := filterStopWords(tokenSet(found))

	if len(expectedWords) == 0 || len(foundWords) == 0 {
		return 0
	}

	overlap := 0
	for w := range expectedWords {
		if foundWords[w] {
			overlap++
		}
	}

	maxLen := len(expectedWords)
	if len(foundWords) > maxLen {
		maxLen = len(foundWords)
	}
	return float64(overlap) / float64(maxLen)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

// filterStopWords drops trade words unless that would empty the set.
func filterStopWords(words map[string]bool) map[string]bool {
	filtered := make(map[string]bool)
	for w := range words {
		if !nameStopWords[w] {
			filtered[w] = true
		}
	}
	if len(filtered) == 0 {
		return words
	}
	return filtered
}

// orderedCharRatio counts characters of expected appearing in order within
// found, normalized by the longer length.
func orderedCharRatio(expected, found string) float64 {
	matching := 0
	expIdx := 0
	for _, ch := range found {
		if expIdx < len(expected) && byte(ch) == expected[expIdx] {
			matching++
			expIdx++
		}
	}

	longer := len(expected)
	if len(found) > longer {
		longer = len(found)
	}
	if longer == 0 {
		return 0
	}
	return float64(matching) / float64(longer)
}
