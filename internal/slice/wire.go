package slice

import (
	"bytes"
	"encoding/json"

	"github.com/klauspost/compress/zstd"
)

// EncodeCompact renders a slice in spec §6's compact wire format:
// abbreviated field names, empty arrays omitted. It does not compress;
// CompressJSON below does, mirroring
// SimplyLiz-CodeMCP/internal/api/handlers_upload.go's use of
// github.com/klauspost/compress, generalized from decoding an uploaded
// request body to encoding an outgoing response body.
func EncodeCompact(s *ContextSlice) (map[string]interface{}, error) {
	out := map[string]interface{}{
		"rid": s.RepoID,
		"vid": s.VersionID,
		"b":   map[string]interface{}{"mc": s.Budget.MaxCards, "mt": s.Budget.MaxEstimatedTokens},
	}
	if len(s.StartSymbols) > 0 {
		out["ss"] = s.StartSymbols
	}
	if len(s.SymbolIndex) > 0 {
		out["si"] = s.SymbolIndex
	}
	if len(s.Cards) > 0 {
		cards := make([]map[string]interface{}, len(s.Cards))
		for i, c := range s.Cards {
			cards[i] = encodeCompactCard(c)
		}
		out["c"] = cards
	}
	if len(s.Edges) > 0 {
		edges := make([][]interface{}, len(s.Edges))
		for i, e := range s.Edges {
			edges[i] = []interface{}{e.FromIdx, e.ToIdx, e.Type, e.ConfidenceX100}
		}
		out["e"] = edges
	}
	if len(s.Frontier) > 0 {
		frontier := make([]map[string]interface{}, len(s.Frontier))
		for i, f := range s.Frontier {
			frontier[i] = map[string]interface{}{"sid": f.SymbolID, "s": f.Score, "w": f.Why}
		}
		out["f"] = frontier
	}
	out["t"] = encodeCompactTruncation(s.Truncation)
	return out, nil
}

func encodeCompactCard(c SymbolCard) map[string]interface{} {
	card := map[string]interface{}{
		"sid": c.SymbolID,
		"f":   c.File,
		"r":   []int{c.Range[0], c.Range[1], c.Range[2], c.Range[3]},
		"k":   c.Kind,
		"n":   c.Name,
		"x":   c.Exported,
		"v":   c.Visibility,
		"dl":  c.DetailLevel,
		"af":  c.AstFingerprint,
	}
	if c.Summary != "" {
		card["sum"] = c.Summary
	}
	if len(c.Invariants) > 0 {
		card["inv"] = c.Invariants
	}
	if len(c.SideEffects) > 0 {
		card["se"] = c.SideEffects
	}
	deps := map[string]interface{}{}
	if len(c.Deps.Imports) > 0 {
		deps["i"] = c.Deps.Imports
	}
	if len(c.Deps.Calls) > 0 {
		deps["c"] = c.Deps.Calls
	}
	if len(deps) > 0 {
		card["d"] = deps
	}
	card["m"] = map[string]interface{}{
		"fi": c.Metrics.FanIn, "fo": c.Metrics.FanOut, "ch": c.Metrics.Churn30d, "t": c.Metrics.TestRefs,
	}
	return card
}

func encodeCompactTruncation(t Truncation) map[string]interface{} {
	out := map[string]interface{}{
		"tr": t.Truncated,
		"dc": t.DroppedCards,
		"de": t.DroppedEdges,
	}
	if t.HowToResume != nil {
		out["res"] = map[string]interface{}{"t": t.HowToResume.Type, "v": t.HowToResume.Value}
	}
	return out
}

// DecodeCompact reverses EncodeCompact, the decode half of spec §8's
// round-trip invariant (encode ∘ decode = id on the set of non-empty
// fields).
func DecodeCompact(raw map[string]interface{}) (*ContextSlice, error) {
	// Normalize through JSON so EncodeCompact's typed values ([]string,
	// []map[string]interface{}, int) decode the same way as a map read
	// back off the wire.
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var normalized map[string]interface{}
	if err := json.Unmarshal(data, &normalized); err != nil {
		return nil, err
	}
	raw = normalized

	s := &ContextSlice{}
	s.RepoID, _ = raw["rid"].(string)
	s.VersionID, _ = raw["vid"].(string)
	if b, ok := raw["b"].(map[string]interface{}); ok {
		s.Budget.MaxCards = asInt(b["mc"])
		s.Budget.MaxEstimatedTokens = asInt(b["mt"])
	}
	s.StartSymbols = asStringSlice(raw["ss"])
	s.SymbolIndex = asStringSlice(raw["si"])

	if rawCards, ok := raw["c"].([]interface{}); ok {
		s.Cards = make([]SymbolCard, 0, len(rawCards))
		for _, rc := range rawCards {
			cm, ok := rc.(map[string]interface{})
			if !ok {
				continue
			}
			s.Cards = append(s.Cards, decodeCompactCard(cm))
		}
	}

	if rawEdges, ok := raw["e"].([]interface{}); ok {
		s.Edges = make([]WireEdge, 0, len(rawEdges))
		for _, re := range rawEdges {
			tuple, ok := re.([]interface{})
			if !ok || len(tuple) != 4 {
				continue
			}
			typeName, _ := tuple[2].(string)
			s.Edges = append(s.Edges, WireEdge{
				FromIdx:        asInt(tuple[0]),
				ToIdx:          asInt(tuple[1]),
				Type:           typeName,
				ConfidenceX100: asInt(tuple[3]),
			})
		}
	}

	if rawFrontier, ok := raw["f"].([]interface{}); ok {
		s.Frontier = make([]FrontierEntry, 0, len(rawFrontier))
		for _, rf := range rawFrontier {
			fm, ok := rf.(map[string]interface{})
			if !ok {
				continue
			}
			score, _ := fm["s"].(float64)
			symbolID, _ := fm["sid"].(string)
			why, _ := fm["w"].(string)
			s.Frontier = append(s.Frontier, FrontierEntry{SymbolID: symbolID, Score: score, Why: why})
		}
	}

	if tm, ok := raw["t"].(map[string]interface{}); ok {
		tr, _ := tm["tr"].(bool)
		s.Truncation = Truncation{Truncated: tr, DroppedCards: asInt(tm["dc"]), DroppedEdges: asInt(tm["de"])}
		if rm, ok := tm["res"].(map[string]interface{}); ok {
			t, _ := rm["t"].(string)
			v, _ := rm["v"].(string)
			s.Truncation.HowToResume = &Resume{Type: t, Value: v}
		}
	}

	return s, nil
}

func decodeCompactCard(cm map[string]interface{}) SymbolCard {
	c := SymbolCard{
		SymbolID:       asString(cm["sid"]),
		File:           asString(cm["f"]),
		Kind:           asString(cm["k"]),
		Name:           asString(cm["n"]),
		Visibility:     asString(cm["v"]),
		DetailLevel:    asString(cm["dl"]),
		AstFingerprint: asString(cm["af"]),
		Summary:        asString(cm["sum"]),
	}
	if x, ok := cm["x"].(bool); ok {
		c.Exported = x
	}
	if r, ok := cm["r"].([]interface{}); ok && len(r) == 4 {
		c.Range = Range{asInt(r[0]), asInt(r[1]), asInt(r[2]), asInt(r[3])}
	}
	c.Invariants = asStringSlice(cm["inv"])
	c.SideEffects = asStringSlice(cm["se"])
	if d, ok := cm["d"].(map[string]interface{}); ok {
		c.Deps.Imports = asStringSlice(d["i"])
		c.Deps.Calls = asStringSlice(d["c"])
	}
	if m, ok := cm["m"].(map[string]interface{}); ok {
		c.Metrics = CardMetrics{FanIn: asInt(m["fi"]), FanOut: asInt(m["fo"]), Churn30d: asInt(m["ch"]), TestRefs: asInt(m["t"])}
	}
	return c
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asStringSlice(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// CompressJSON zstd-compresses a marshaled payload for transport,
// the way handlers_upload.go treats a request body's Content-Encoding as an
// orthogonal transport concern from the payload's own shape.
func CompressJSON(v interface{}) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := enc.Write(body); err != nil {
		enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecompressJSON reverses CompressJSON.
func DecompressJSON(compressed []byte, v interface{}) error {
	dec, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return err
	}
	defer dec.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(dec); err != nil {
		return err
	}
	return json.Unmarshal(buf.Bytes(), v)
}
