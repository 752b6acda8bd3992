package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbolID_Deterministic(t *testing.T) {
	fp := SymbolFingerprint{RepoID: "repo-1", RelPath: "src/widget.go", QualifiedName: "widget.New", Kind: "function"}

	first := SymbolID(fp)
	second := SymbolID(fp)

	assert.Equal(t, first, second)
	assert.True(t, len(first) > len("sym_"))
}

func TestSymbolID_DiffersByKind(t *testing.T) {
	base := SymbolFingerprint{RepoID: "repo-1", RelPath: "src/widget.go", QualifiedName: "Widget", Kind: "struct"}
	variant := base
	variant.Kind = "interface"

	assert.NotEqual(t, SymbolID(base), SymbolID(variant))
}

func TestSymbolID_StableAcrossFieldOrder(t *testing.T) {
	a := SymbolFingerprint{RepoID: "r", RelPath: "p", QualifiedName: "q", Kind: "k"}
	b := SymbolFingerprint{Kind: "k", QualifiedName: "q", RelPath: "p", RepoID: "r"}
	assert.Equal(t, SymbolID(a), SymbolID(b))
}

func TestFileID_Deterministic(t *testing.T) {
	assert.Equal(t, FileID("repo-1", "a/b.go"), FileID("repo-1", "a/b.go"))
	assert.NotEqual(t, FileID("repo-1", "a/b.go"), FileID("repo-2", "a/b.go"))
}

func TestContentHash(t *testing.T) {
	h1 := ContentHash([]byte("package main"))
	h2 := ContentHash([]byte("package main"))
	h3 := ContentHash([]byte("package other"))

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}

func TestHashCard_Agreement(t *testing.T) {
	type card struct {
		SymbolID string
		Name     string
	}

	h1, err := HashCard(card{SymbolID: "sym_1", Name: "Widget"})
	assertNoError(t, err)
	h2, err := HashCard(card{SymbolID: "sym_1", Name: "Widget"})
	assertNoError(t, err)
	h3, err := HashCard(card{SymbolID: "sym_1", Name: "Gadget"})
	assertNoError(t, err)

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewVersionID_Unique(t *testing.T) {
	assert.NotEqual(t, NewVersionID(), NewVersionID())
}
