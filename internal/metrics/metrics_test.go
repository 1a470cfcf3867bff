package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRenderIncrementsLabeledCounter(t *testing.T) {
	t.Parallel()
	c := New()

	c.ObserveRender(true, 1.5)
	c.ObserveRender(false, 0.5)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.renderTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.renderTotal.WithLabelValues("failure")))
}

func TestObserveReadinessReasonIgnoresEmpty(t *testing.T) {
	t.Parallel()
	c := New()

	c.ObserveReadinessReason("")
	c.ObserveReadinessReason("AppSignaled")

	assert.Equal(t, float64(1), testutil.ToFloat64(c.readinessReasonTotal.WithLabelValues("AppSignaled")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.readinessReasonTotal))
}

func TestObserveSyncLabelsBothStores(t *testing.T) {
	t.Parallel()
	c := New()

	c.ObserveSync(true, false)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.syncKVTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.syncR2Total.WithLabelValues("failure")))
}

func TestPushSkipsWhenNoPushgatewayConfigured(t *testing.T) {
	t.Parallel()
	c := New()

	// Must not panic or attempt any network I/O.
	c.Push("", "prerender-job")
}
