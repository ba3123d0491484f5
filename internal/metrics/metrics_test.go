package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAreRegistered(t *testing.T) {
	before := testutil.ToFloat64(ReportsDecodedTotal.WithLabelValues("drop"))
	ReportsDecodedTotal.WithLabelValues("drop").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ReportsDecodedTotal.WithLabelValues("drop")))

	FlowIndexSize.Set(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(FlowIndexSize))

	families, err := Registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "trpt_reports_decoded_total")
	assert.Contains(t, names, "trpt_flow_index_size")
}

func TestWriteTextfile(t *testing.T) {
	PipelinePacketsTotal.WithLabelValues(StageReceived).Add(2)
	DecodeLatencySeconds.Observe(0.000002)

	path := filepath.Join(t.TempDir(), "trpt.prom")
	require.NoError(t, WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `trpt_pipeline_packets_total{stage="received"}`)
	assert.Contains(t, string(b), "trpt_decode_latency_seconds_bucket")
	assert.NotContains(t, string(b), "go_goroutines")
}
