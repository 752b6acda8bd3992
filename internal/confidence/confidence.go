// Package confidence calibrates an edge's resolution strategy into the
// numeric confidence score persisted on the edge row (spec §4.5), the way
// SimplyLiz-CodeMCP/internal/envelope/confidence.go calibrates a
// completeness score into a named tier for its response envelope — the
// same "named quality level -> numeric/ordinal score" shape, generalized
// here from a lookup table over one input to baseline-plus-penalty
// arithmetic over two.
package confidence

// Strategy mirrors lang.ResolutionResult.Strategy; duplicated as its own
// type so this package has no import on internal/lang for a three-string
// enum.
type Strategy string

const (
	StrategyExact      Strategy = "exact"
	StrategyHeuristic  Strategy = "heuristic"
	StrategyUnresolved Strategy = "unresolved"
)

// baseline confidence per strategy before any ambiguity penalty (spec
// §4.5).
var baseline = map[Strategy]float64{
	StrategyExact:      0.92,
	StrategyHeuristic:  0.72,
	StrategyUnresolved: 0.20,
}

const maxAmbiguityPenalty = 0.35
const ambiguityPenaltyPerCandidate = 0.04

// Calibrate computes an edge's final confidence score. baseConfidence, when
// non-nil, overrides the strategy's baseline before the ambiguity penalty
// is applied (spec §4.5: "Any explicit baseConfidence override replaces
// the baseline before penalty").
func Calibrate(strategy Strategy, candidateCount int, baseConfidence *float64) float64 {
	base, ok := baseline[strategy]
	if !ok {
		base = baseline[StrategyUnresolved]
	}
	if baseConfidence != nil {
		base = *baseConfidence
	}

	score := base
	if candidateCount > 1 {
		penalty := float64(candidateCount) * ambiguityPenaltyPerCandidate
		if penalty > maxAmbiguityPenalty {
			penalty = maxAmbiguityPenalty
		}
		score -= penalty
	}

	return clamp(score, 0, 1)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
