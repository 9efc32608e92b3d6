package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestRecordUpstreamIncrementsCounter(t *testing.T) {
	c := UpstreamRequests.WithLabelValues("channels", "success")
	before := counterValue(t, c)

	RecordUpstream("channels", "success", 0.1)

	require.Equal(t, before+1, counterValue(t, c))
}

func TestRecordRetry(t *testing.T) {
	before := counterValue(t, Retries)
	RecordRetry()
	require.Equal(t, before+1, counterValue(t, Retries))
}

func TestRecordChannels(t *testing.T) {
	RecordChannels(37)
	var m dto.Metric
	require.NoError(t, Channels.Write(&m))
	require.Equal(t, float64(37), m.GetGauge().GetValue())
}
