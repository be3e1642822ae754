package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRPCCall("getBlock", "ok", 3, 0.1)
	m.RecordFallback("getBlock")
	m.RecordRateLimitWait()
	m.RecordBatch("ok")
	m.RecordBatchRetry()
	m.RecordItemExported("block")
	m.SetLastSynced(10)
}

func TestRecorders(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordRPCCall("getBlock", "ok", 3, 0.2)
	m.RecordItemExported("block")
	m.RecordItemExported("block")
	m.RecordBatchRetry()
	m.SetLastSynced(42)

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				values[family.GetName()] += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[family.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, 3.0, values["solanaetl_rpc_calls_total"])
	assert.Equal(t, 2.0, values["solanaetl_items_exported_total"])
	assert.Equal(t, 1.0, values["solanaetl_batch_retries_total"])
	assert.Equal(t, 42.0, values["solanaetl_last_synced_block"])
}
