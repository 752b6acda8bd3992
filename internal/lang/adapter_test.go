//go:build cgo

package lang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_ExtractSymbols_Go(t *testing.T) {
	source := []byte(`package main

type Handler struct {
	db *Database
}

func NewHandler(db *Database) *Handler {
	return &Handler{db: db}
}

func (h *Handler) Get(id string) (*Item, error) {
	return h.db.Find(id)
}
`)

	adapter, err := newAdapter(LangGo)
	require.NoError(t, err)

	root, err := adapter.Parse(context.Background(), source)
	require.NoError(t, err)

	symbols := adapter.ExtractSymbols(root, source)

	var names []string
	for _, s := range symbols {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "Handler")
	assert.Contains(t, names, "NewHandler")
	assert.Contains(t, names, "Get")

	for _, s := range symbols {
		if s.Name == "Get" {
			assert.Equal(t, "method", s.Kind)
			assert.Equal(t, "Handler", s.ContainerName)
		}
		if s.Name == "Handler" {
			assert.Equal(t, "type", s.Kind)
		}
	}
}

func TestAdapter_ExtractCalls_Go(t *testing.T) {
	source := []byte(`package main

func main() {
	db.Connect()
	helper()
}
`)

	adapter, err := newAdapter(LangGo)
	require.NoError(t, err)

	root, err := adapter.Parse(context.Background(), source)
	require.NoError(t, err)

	calls := adapter.ExtractCalls(root, source)
	require.Len(t, calls, 2)

	var qualified, bare bool
	for _, c := range calls {
		if c.Qualifier == "db" && c.CalleeName == "Connect" {
			qualified = true
		}
		if c.Qualifier == "" && c.CalleeName == "helper" {
			bare = true
		}
	}
	assert.True(t, qualified)
	assert.True(t, bare)
}

func TestAdapter_ResolveCall_Ladder(t *testing.T) {
	adapter, err := newAdapter(LangGo)
	require.NoError(t, err)

	t.Run("qualified via namespace import", func(t *testing.T) {
		ctx := ResolutionContext{
			NamespaceImports: map[string]map[string]string{
				"db": {"Connect": "sym-connect"},
			},
			Call: ExtractedCall{Qualifier: "db", CalleeName: "Connect"},
		}
		result := adapter.ResolveCall(ctx)
		assert.True(t, result.IsResolved)
		assert.Equal(t, "exact", result.Strategy)
		assert.Equal(t, []string{"sym-connect"}, result.TargetSymbolIDs)
	})

	t.Run("bare imported unique", func(t *testing.T) {
		ctx := ResolutionContext{
			ImportedNameToSymbolIDs: map[string][]string{"helper": {"sym-helper"}},
			Call:                    ExtractedCall{CalleeName: "helper"},
		}
		result := adapter.ResolveCall(ctx)
		assert.True(t, result.IsResolved)
		assert.Equal(t, "exact", result.Strategy)
	})

	t.Run("ambiguous bare name", func(t *testing.T) {
		ctx := ResolutionContext{
			NameToSymbolIDs: map[string][]string{"foo": {"s3", "s1", "s2"}},
			Call:            ExtractedCall{CalleeName: "foo"},
		}
		result := adapter.ResolveCall(ctx)
		assert.True(t, result.IsResolved)
		assert.Equal(t, "heuristic", result.Strategy)
		assert.Equal(t, 3, result.CandidateCount)
		assert.Equal(t, []string{"s1"}, result.TargetSymbolIDs)
	})

	t.Run("unresolved", func(t *testing.T) {
		ctx := ResolutionContext{Call: ExtractedCall{CalleeName: "nope"}}
		result := adapter.ResolveCall(ctx)
		assert.False(t, result.IsResolved)
		assert.Equal(t, "unresolved", result.Strategy)
	})
}

func TestRegistry_LazyPerLanguage(t *testing.T) {
	r := NewRegistry()

	adapter1, ok, err := r.For(".go")
	require.NoError(t, err)
	require.True(t, ok)

	adapter2, ok, err := r.For(".go")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Same(t, adapter1, adapter2)

	_, ok, err = r.For(".unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}
