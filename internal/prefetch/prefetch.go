// Package prefetch learns a first-order bigram model over tool-call
// sequences per task type, and predicts the next tool a caller is likely
// to invoke (spec §4.11). It has no direct teacher analogue — none of the
// pack's example repos models a usage-prediction loop — so it is written
// fresh against the already-migrated prefetch_bigrams table, in the same
// repository-over-storage shape internal/delta and internal/metrics use
// for their own derived-state computations.
package prefetch

import (
	"github.com/sdlctl/sdlctl/internal/storage"
)

// Config is spec §4.11's gating configuration.
type Config struct {
	Enabled                 bool
	MinSamplesForPrediction int
	ConfidenceThreshold     float64
	FallbackToDeterministic bool
	RetrainIntervalMs       int
}

// DefaultConfig matches spec §4.11's implied defaults: disabled gates
// nothing until a repo has accumulated enough signal to be worth trusting.
var DefaultConfig = Config{
	Enabled:                 true,
	MinSamplesForPrediction: 5,
	ConfidenceThreshold:     0.6,
	FallbackToDeterministic: true,
	RetrainIntervalMs:       300000,
}

// Prediction is the model's recommendation for the next tool to call.
type Prediction struct {
	Tool       string
	Confidence float64
	Source     string // "bigram" | "deterministic"
}

// Model predicts the next tool call from observed (prev, curr) tool
// transitions, add-1 smoothed per task type.
type Model struct {
	bigrams *storage.PrefetchRepository
	cfg     Config
	nextRung map[string]string
}

// New builds a Model over the persisted bigram counts. nextRung is the
// deterministic "next rung" table consulted when the bigram model has
// too little data or too low confidence (spec §4.11).
func New(bigrams *storage.PrefetchRepository, cfg Config, nextRung map[string]string) *Model {
	if nextRung == nil {
		nextRung = DefaultNextRung
	}
	return &Model{bigrams: bigrams, cfg: cfg, nextRung: nextRung}
}

// DefaultNextRung is the deterministic fallback: each tool's natural
// "lower-tier" successor in the slice→card→raw-code escalation ladder
// spec §6's nextBestAction field also encodes.
var DefaultNextRung = map[string]string{
	"getSlice":    "getCard",
	"getCard":     "getSkeleton",
	"getSkeleton": "getRawCode",
	"getDelta":    "getCard",
}

// Observe records one (prev, curr) tool transition for (repoID, taskType),
// the training step the prefetch loop runs after every tool call.
func (m *Model) Observe(repoID, taskType, prev, curr string) error {
	if prev == "" {
		return nil
	}
	return m.bigrams.Increment(repoID, taskType, prev, curr)
}

// PredictNextTool returns the argmax successor of curr given (repoID,
// taskType)'s observed transitions, add-1 smoothed, falling back to the
// deterministic next-rung table when there isn't enough data or the
// bigram model's confidence doesn't clear the threshold (spec §4.11).
func (m *Model) PredictNextTool(repoID, taskType, curr string) (*Prediction, error) {
	if !m.cfg.Enabled {
		return nil, nil
	}

	total, err := m.bigrams.TotalSamples(repoID, taskType)
	if err != nil {
		return nil, err
	}
	if total < m.cfg.MinSamplesForPrediction {
		return m.fallback(curr), nil
	}

	successors, err := m.bigrams.SuccessorCounts(repoID, taskType, curr)
	if err != nil {
		return nil, err
	}
	if len(successors) == 0 {
		return m.fallback(curr), nil
	}

	vocab := len(successors)
	sum := 0
	for _, s := range successors {
		sum += s.Count
	}
	denom := float64(sum + vocab) // add-1 smoothing over the observed vocabulary

	var best storage.PrefetchBigram
	bestProb := -1.0
	for _, s := range successors {
		prob := (float64(s.Count) + 1.0) / denom
		if prob > bestProb || (prob == bestProb && s.To < best.To) {
			bestProb = prob
			best = s
		}
	}

	if bestProb < m.cfg.ConfidenceThreshold {
		return m.fallback(curr), nil
	}

	return &Prediction{Tool: best.To, Confidence: bestProb, Source: "bigram"}, nil
}

func (m *Model) fallback(curr string) *Prediction {
	if !m.cfg.FallbackToDeterministic {
		return nil
	}
	next, ok := m.nextRung[curr]
	if !ok {
		return nil
	}
	return &Prediction{Tool: next, Confidence: 1.0, Source: "deterministic"}
}
