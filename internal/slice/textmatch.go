package slice

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// maxDerivedEntries is spec §4.8 step 1's "up to k candidate entries".
const maxDerivedEntries = 5

// fuzzyMatchThreshold is the minimum Jaro-Winkler similarity (0-1) a
// taskText token must clear against a symbol's name or summary to count as
// a candidate entry, the same threshold-gated similarity shape
// standardbeagle-lci/internal/semantic/fuzzy_matcher.go applies to its
// translation-dictionary lookups.
const fuzzyMatchThreshold = 0.80

type scoredCandidate struct {
	symbolID string
	score    float64
}

// deriveEntries full-text matches taskText against symbol names and
// summaries, returning up to maxDerivedEntries candidate symbolIds ordered
// by descending match score (spec §4.8 step 1).
func deriveEntries(taskText string, candidates []symbolText) []string {
	tokens := tokenize(taskText)
	if len(tokens) == 0 {
		return nil
	}

	scored := make([]scoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		best := 0.0
		for _, tok := range tokens {
			if s := similarity(tok, strings.ToLower(c.name)); s > best {
				best = s
			}
			if c.summary != "" {
				if s := containsScore(tok, strings.ToLower(c.summary)); s > best {
					best = s
				}
			}
		}
		if best >= fuzzyMatchThreshold {
			scored = append(scored, scoredCandidate{symbolID: c.symbolID, score: best})
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].symbolID < scored[j].symbolID
	})

	if len(scored) > maxDerivedEntries {
		scored = scored[:maxDerivedEntries]
	}

	ids := make([]string, len(scored))
	for i, s := range scored {
		ids[i] = s.symbolID
	}
	return ids
}

// symbolText is the minimal projection deriveEntries needs from a symbol.
type symbolText struct {
	symbolID string
	name     string
	summary  string
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r == '_')
	})
	var tokens []string
	for _, f := range fields {
		if len(f) >= 3 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	score, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		return 0
	}
	return float64(score)
}

// containsScore gives a substring hit inside free-text prose (a summary) a
// strong fixed score rather than running Jaro-Winkler over the whole
// sentence, which degrades badly on length mismatch.
func containsScore(token, text string) float64 {
	if strings.Contains(text, token) {
		return 0.85
	}
	return 0
}
