package slice

import (
	"sort"

	sdlerrors "github.com/sdlctl/sdlctl/internal/errors"
)

// frontierItem is one pending symbol in the BFS priority queue.
type frontierItem struct {
	symbolID string
	score    float64
	why      string
}

// Build runs spec §4.8's slice algorithm: derive or accept entry symbols,
// expand the call/import graph breadth-first by descending edge score,
// admit cards until the budget is exhausted, and record how a caller can
// resume past the cutoff.
func (b *Builder) Build(req Request) (*ContextSlice, error) {
	budget := req.Budget
	if budget.MaxCards == 0 && budget.MaxEstimatedTokens == 0 {
		budget = DefaultBudget
	}

	entries := req.EntrySymbols
	if len(entries) == 0 {
		derived, err := b.deriveEntriesFromText(req.RepoID, req.TaskText)
		if err != nil {
			return nil, err
		}
		entries = derived
	}
	if len(entries) == 0 {
		return nil, sdlerrors.NewNoEntriesError(req.EntrySymbols)
	}

	files, err := b.files.ListByVersion(req.VersionID)
	if err != nil {
		return nil, sdlerrors.New(sdlerrors.DatabaseError, "loading files for slice", err)
	}
	relPathByFileID := make(map[string]string, len(files))
	for _, f := range files {
		relPathByFileID[f.FileID] = f.RelPath
	}

	visited := map[string]bool{}
	frontier := make([]frontierItem, 0, len(entries))
	sortedEntries := append([]string(nil), entries...)
	sort.Strings(sortedEntries)
	for _, id := range sortedEntries {
		frontier = append(frontier, frontierItem{symbolID: id, score: 1.0, why: "entry"})
	}

	var cards []SymbolCard
	cardIndex := map[string]int{}
	type pendingEdge struct {
		from, to, kind string
		confidence     float64
	}
	var pendingEdges []pendingEdge

	tokenTotal := 0
	droppedCards := 0
	droppedEdges := 0
	truncated := false
	var resumeFrontier []FrontierEntry

	for len(frontier) > 0 {
		sort.Slice(frontier, func(i, j int) bool {
			if frontier[i].score != frontier[j].score {
				return frontier[i].score > frontier[j].score
			}
			return frontier[i].symbolID < frontier[j].symbolID
		})
		item := frontier[0]
		frontier = frontier[1:]

		if visited[item.symbolID] {
			continue
		}

		if budget.MaxCards > 0 && len(cards) >= budget.MaxCards {
			truncated = true
			droppedCards++
			resumeFrontier = append(resumeFrontier, FrontierEntry{SymbolID: item.symbolID, Score: item.score, Why: item.why})
			continue
		}

		sym, err := b.symbols.Get(item.symbolID)
		if err != nil {
			return nil, sdlerrors.New(sdlerrors.DatabaseError, "loading symbol for slice", err)
		}
		if sym == nil {
			continue
		}

		card, err := b.buildCard(req.VersionID, *sym, relPathByFileID)
		if err != nil {
			return nil, sdlerrors.New(sdlerrors.DatabaseError, "building symbol card", err)
		}

		cost := estimateTokens(card)
		if budget.MaxEstimatedTokens > 0 && tokenTotal+cost > budget.MaxEstimatedTokens && len(cards) > 0 {
			truncated = true
			droppedCards++
			resumeFrontier = append(resumeFrontier, FrontierEntry{SymbolID: item.symbolID, Score: item.score, Why: item.why})
			continue
		}

		visited[item.symbolID] = true
		cardIndex[item.symbolID] = len(cards)
		cards = append(cards, card)
		tokenTotal += cost

		out, err := b.edges.OutgoingFrom(req.VersionID, item.symbolID)
		if err != nil {
			return nil, sdlerrors.New(sdlerrors.DatabaseError, "loading outgoing edges for slice", err)
		}
		in, err := b.edges.IncomingTo(req.VersionID, item.symbolID)
		if err != nil {
			return nil, sdlerrors.New(sdlerrors.DatabaseError, "loading incoming edges for slice", err)
		}

		for _, e := range out {
			if !e.ToSymbolID.Valid {
				continue
			}
			pendingEdges = append(pendingEdges, pendingEdge{from: item.symbolID, to: e.ToSymbolID.String, kind: e.Kind, confidence: e.Confidence})
			if visited[e.ToSymbolID.String] {
				continue
			}
			next := item.score * e.Confidence * typeWeight(e.Kind)
			frontier = append(frontier, frontierItem{symbolID: e.ToSymbolID.String, score: next, why: "called by " + truncateLabel(item.symbolID)})
		}
		for _, e := range in {
			pendingEdges = append(pendingEdges, pendingEdge{from: e.FromSymbolID, to: item.symbolID, kind: e.Kind, confidence: e.Confidence})
			if visited[e.FromSymbolID] {
				continue
			}
			next := item.score * e.Confidence * typeWeight(e.Kind)
			frontier = append(frontier, frontierItem{symbolID: e.FromSymbolID, score: next, why: "calls " + truncateLabel(item.symbolID)})
		}
	}

	symbolIndex := make([]string, len(cards))
	for id, idx := range cardIndex {
		symbolIndex[idx] = id
	}

	seenEdge := map[[3]string]bool{}
	var wireEdges []WireEdge
	for _, pe := range pendingEdges {
		fromIdx, fromOK := cardIndex[pe.from]
		toIdx, toOK := cardIndex[pe.to]
		if !fromOK || !toOK {
			droppedEdges++
			continue
		}
		key := [3]string{pe.from, pe.to, pe.kind}
		if seenEdge[key] {
			continue
		}
		seenEdge[key] = true
		wireEdges = append(wireEdges, WireEdge{FromIdx: fromIdx, ToIdx: toIdx, Type: pe.kind, ConfidenceX100: int(pe.confidence * 100)})
	}

	var resume *Resume
	if truncated && len(resumeFrontier) > 0 {
		sort.Slice(resumeFrontier, func(i, j int) bool {
			if resumeFrontier[i].Score != resumeFrontier[j].Score {
				return resumeFrontier[i].Score > resumeFrontier[j].Score
			}
			return resumeFrontier[i].SymbolID < resumeFrontier[j].SymbolID
		})
		resume = &Resume{Type: "cursor", Value: resumeFrontier[0].SymbolID}
	}

	return &ContextSlice{
		RepoID:       req.RepoID,
		VersionID:    req.VersionID,
		Budget:       budget,
		StartSymbols: sortedEntries,
		SymbolIndex:  symbolIndex,
		Cards:        cards,
		Edges:        wireEdges,
		Frontier:     resumeFrontier,
		Truncation: Truncation{
			Truncated:    truncated,
			DroppedCards: droppedCards,
			DroppedEdges: droppedEdges,
			HowToResume:  resume,
		},
	}, nil
}

func typeWeight(kind string) float64 {
	if w, ok := edgeTypeWeight[kind]; ok {
		return w
	}
	return 1.0
}

// deriveEntriesFromText runs spec §4.8 step 1 against the repo's current
// symbol set when the caller didn't supply explicit entry symbols.
func (b *Builder) deriveEntriesFromText(repoID, taskText string) ([]string, error) {
	if taskText == "" {
		return nil, nil
	}
	all, err := b.symbols.ListByRepo(repoID)
	if err != nil {
		return nil, sdlerrors.New(sdlerrors.DatabaseError, "loading symbols for entry derivation", err)
	}
	candidates := make([]symbolText, 0, len(all))
	for _, s := range all {
		candidates = append(candidates, symbolText{symbolID: s.SymbolID, name: s.Name, summary: s.Summary})
	}
	return deriveEntries(taskText, candidates), nil
}
