package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/usagewatch/pkg/metrics"
	"github.com/ogulcanaydogan/usagewatch/pkg/model"
)

func sampleReading() model.UsageReading {
	return model.NewUsageReading(map[string]model.Window{
		model.WindowFiveHour: {Utilization: 61},
		model.WindowSevenDay: {Utilization: 12.5},
	})
}

func TestRecorder_Observe(t *testing.T) {
	r := metrics.NewRecorder()
	r.ObserveReading(sampleReading())
	r.ObserveEvents([]model.Event{
		{Kind: model.EventWindowReset},
		{Kind: model.EventThresholdCrossed, Threshold: 50},
		{Kind: model.EventThresholdCrossed, Threshold: 75},
	})
	r.ObserveDeliveryError("telegram")
	r.ObserveHistorySize(2016)
	r.ObserveSuccess(time.Unix(1_700_000_000, 0), 1500*time.Millisecond)

	expected := `
# HELP usagewatch_alerts_total Notifications decided by the threshold policy
# TYPE usagewatch_alerts_total counter
usagewatch_alerts_total{kind="threshold_crossed"} 2
usagewatch_alerts_total{kind="window_reset"} 1
# HELP usagewatch_window_utilization_percent Utilization of each metering window at the last poll
# TYPE usagewatch_window_utilization_percent gauge
usagewatch_window_utilization_percent{window="five_hour"} 61
usagewatch_window_utilization_percent{window="seven_day"} 12.5
`
	err := testutil.GatherAndCompare(r.Registry(), strings.NewReader(expected),
		"usagewatch_alerts_total", "usagewatch_window_utilization_percent")
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(r.Registry(), "usagewatch_delivery_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := metrics.NewRecorder()
	r.ObserveReading(sampleReading())

	path := filepath.Join(t.TempDir(), "usagewatch.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `usagewatch_window_utilization_percent{window="five_hour"} 61`)
}

func TestRecorder_Push(t *testing.T) {
	var path, body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	r := metrics.NewRecorder()
	r.ObserveReading(sampleReading())
	require.NoError(t, r.Push(server.URL, "usagewatch"))

	assert.Equal(t, "/metrics/job/usagewatch", path)
	assert.NotEmpty(t, body)
}

func TestRecorder_PushFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := metrics.NewRecorder().Push(server.URL, "usagewatch")
	assert.Error(t, err)
}
