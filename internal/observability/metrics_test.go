package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics_CustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.EnforcementDecisions.WithLabelValues("transfer", "deny", "AllTransfersPaused").Inc()
	m.TokensWithdrawn.Add(42)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnforcementDecisions.WithLabelValues("transfer", "deny", "AllTransfersPaused")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.TokensWithdrawn))

	count, err := testutil.GatherAndCount(reg, "test_enforcement_decisions_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.TimelocksCanceled)
	reclaimedBefore := testutil.ToFloat64(DefaultMetrics.TokensReclaimed)

	RecordCancellation(10, 90)

	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.TimelocksCanceled))
	assert.Equal(t, reclaimedBefore+90, testutil.ToFloat64(DefaultMetrics.TokensReclaimed))

	RecordDecision("withdrawal", true, "")
	assert.GreaterOrEqual(t, testutil.ToFloat64(DefaultMetrics.EnforcementDecisions.WithLabelValues("withdrawal", "allow", "")), 1.0)
}
