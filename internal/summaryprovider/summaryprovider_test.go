package summaryprovider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopProvider_ReturnsEmptyResult(t *testing.T) {
	var p NoopProvider
	res, err := p.Summarize(context.Background(), Request{SymbolID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestParseResponse_ReadsSummaryAndDivergenceLine(t *testing.T) {
	summary, divergence := parseResponse("Parses the widget config file.\ndivergence: 0.2")
	assert.Equal(t, "Parses the widget config file.", summary)
	assert.InDelta(t, 0.2, divergence, 0.0001)
}

func TestParseResponse_DefaultsDivergenceWhenLineMissing(t *testing.T) {
	summary, divergence := parseResponse("Parses the widget config file.")
	assert.Equal(t, "Parses the widget config file.", summary)
	assert.Equal(t, float64(1), divergence)
}

func TestParseResponse_ClampsOutOfRangeDivergence(t *testing.T) {
	_, divergence := parseResponse("x\ndivergence: 4.5")
	assert.Equal(t, float64(1), divergence)

	_, divergence = parseResponse("x\ndivergence: -0.5")
	assert.Equal(t, float64(0), divergence)
}

func TestPrompt_IncludesSignatureAndSnippetWhenPresent(t *testing.T) {
	p := prompt(Request{
		Name:      "Run",
		Kind:      "function",
		Signature: "func Run() error",
		Snippet:   "func Run() error { return nil }",
	})
	assert.Contains(t, p, "Run")
	assert.Contains(t, p, "func Run() error")
	assert.Contains(t, p, "return nil")
}
