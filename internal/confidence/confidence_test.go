package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalibrate_Baselines(t *testing.T) {
	assert.InDelta(t, 0.92, Calibrate(StrategyExact, 0, nil), 1e-9)
	assert.InDelta(t, 0.72, Calibrate(StrategyHeuristic, 0, nil), 1e-9)
	assert.InDelta(t, 0.20, Calibrate(StrategyUnresolved, 0, nil), 1e-9)
}

func TestCalibrate_AmbiguityPenalty(t *testing.T) {
	// Seed scenario 1 (spec §8): nameToSymbolIds["foo"] has 3 candidates,
	// heuristic base 0.72 -> 0.72 - min(0.35, 3*0.04) = 0.60.
	got := Calibrate(StrategyHeuristic, 3, nil)
	assert.InDelta(t, 0.60, got, 1e-9)
}

func TestCalibrate_PenaltyIsCapped(t *testing.T) {
	got := Calibrate(StrategyHeuristic, 50, nil)
	assert.InDelta(t, 0.72-maxAmbiguityPenalty, got, 1e-9)
}

func TestCalibrate_NoPenaltyForSingleCandidate(t *testing.T) {
	got := Calibrate(StrategyExact, 1, nil)
	assert.InDelta(t, 0.92, got, 1e-9)
}

func TestCalibrate_BaseConfidenceOverride(t *testing.T) {
	override := 0.5
	got := Calibrate(StrategyExact, 0, &override)
	assert.InDelta(t, 0.5, got, 1e-9)
}

func TestCalibrate_ClampedToUnitInterval(t *testing.T) {
	low := -0.2
	assert.Equal(t, 0.0, Calibrate(StrategyUnresolved, 0, &low))

	high := 1.5
	assert.Equal(t, 1.0, Calibrate(StrategyExact, 0, &high))
}
