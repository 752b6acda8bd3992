package delta

import (
	"encoding/json"
	"sort"
)

// diffStringSets parses two JSON string arrays and returns the added/removed
// sets between them (spec §4.7: "invariantDiff and sideEffectDiff (added/
// removed sets over parsed string arrays)"). Malformed or empty JSON is
// treated as an empty set rather than an error — a symbol that predates
// invariant extraction has "[]", not malformed JSON, but defensive parsing
// keeps a corrupt row from wedging delta computation.
func diffStringSets(fromJSON, toJSON string) *SetDiff {
	from := parseStringSet(fromJSON)
	to := parseStringSet(toJSON)

	diff := &SetDiff{}
	for v := range to {
		if !from[v] {
			diff.Added = append(diff.Added, v)
		}
	}
	for v := range from {
		if !to[v] {
			diff.Removed = append(diff.Removed, v)
		}
	}
	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	return diff
}

func parseStringSet(raw string) map[string]bool {
	set := map[string]bool{}
	if raw == "" {
		return set
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return set
	}
	for _, v := range values {
		set[v] = true
	}
	return set
}
