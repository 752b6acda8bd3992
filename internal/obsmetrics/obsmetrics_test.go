package obsmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCardCache_IncrementsHitAndMissCounters(t *testing.T) {
	m := New()
	m.ObserveCardCache(true)
	m.ObserveCardCache(true)
	m.ObserveCardCache(false)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.CardCacheResults.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CardCacheResults.WithLabelValues("miss")))
}

func TestObserveToolCall_LabelsByToolAndOutcome(t *testing.T) {
	m := New()
	m.ObserveToolCall("getSlice", "approved")
	m.ObserveToolCall("getSlice", "denied")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ToolCalls.WithLabelValues("getSlice", "approved")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ToolCalls.WithLabelValues("getSlice", "denied")))
}

func TestObservePolicyDecision_LabelsByRuleAndEffect(t *testing.T) {
	m := New()
	m.ObservePolicyDecision("maxWindowLines", "deny")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.PolicyDecisions.WithLabelValues("maxWindowLines", "deny")))
}
