package slice

import (
	"encoding/json"
	"math"
)

// proseCharsPerToken is spec §4.8 step 3's prose estimator: "1 token per 3.5
// characters".
const proseCharsPerToken = 3.5

// estimateTokens costs a card's structural fields (symbolId, file, range,
// kind/name/exported/visibility, deps, metrics, detailLevel,
// astFingerprint) at 1 JSON character per token, and its prose fields
// (summary, invariants, sideEffects — free text, not machine-parsed
// identifiers) at one token per 3.5 characters, then ceils the sum (spec
// §4.8 step 3).
func estimateTokens(card SymbolCard) int {
	structural := card
	structural.Summary = ""
	structural.Invariants = nil
	structural.SideEffects = nil

	structuralJSON, err := json.Marshal(structural)
	structuralChars := 0
	if err == nil {
		structuralChars = len(structuralJSON)
	}

	proseChars := len(card.Summary)
	for _, inv := range card.Invariants {
		proseChars += len(inv)
	}
	for _, se := range card.SideEffects {
		proseChars += len(se)
	}

	total := float64(structuralChars) + float64(proseChars)/proseCharsPerToken
	return int(math.Ceil(total))
}
