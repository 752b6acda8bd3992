package redaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPseudonymize_DisabledIsNoOp(t *testing.T) {
	r, err := New(false, "salt")
	require.NoError(t, err)
	assert.Equal(t, "internal/widget.go", r.Pseudonymize("internal/widget.go"))
}

func TestPseudonymize_StableUnderSameSalt(t *testing.T) {
	r, err := New(true, "salt-a")
	require.NoError(t, err)
	a := r.Pseudonymize("internal/widget.go")
	b := r.Pseudonymize("internal/widget.go")
	assert.Equal(t, a, b)
	assert.NotEqual(t, "internal/widget.go", a)
}

func TestPseudonymize_DiffersAcrossSalts(t *testing.T) {
	a, err := New(true, "salt-a")
	require.NoError(t, err)
	b, err := New(true, "salt-b")
	require.NoError(t, err)
	assert.NotEqual(t, a.Pseudonymize("widget"), b.Pseudonymize("widget"))
}

func TestRedactJSONFields_OnlyRedactsNamedKeys(t *testing.T) {
	r, err := New(true, "salt")
	require.NoError(t, err)

	raw := `{"path":"internal/widget.go","operation":"getSlice","identifiers":["Widget","Run"]}`
	out := r.RedactJSONFields(raw, DefaultFreeTextFields)

	assert.Contains(t, out, `"operation":"getSlice"`)
	assert.NotContains(t, out, "internal/widget.go")
	assert.NotContains(t, out, "Widget")
}
