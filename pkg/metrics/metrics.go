package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/ogulcanaydogan/usagewatch/pkg/model"
)

const namespace = "usagewatch"

// Recorder collects the metrics of a single poll run. A batch job cannot be
// scraped, so the registry is pushed to a Pushgateway or written to a
// node_exporter textfile once the run ends.
type Recorder struct {
	registry *prometheus.Registry

	utilization    *prometheus.GaugeVec
	alerts         *prometheus.CounterVec
	deliveryErrors *prometheus.CounterVec
	lastSuccess    prometheus.Gauge
	runDuration    prometheus.Gauge
	historyEntries prometheus.Gauge
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		utilization: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "window_utilization_percent",
				Help:      "Utilization of each metering window at the last poll",
			},
			[]string{"window"},
		),
		alerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_total",
				Help:      "Notifications decided by the threshold policy",
			},
			[]string{"kind"},
		),
		deliveryErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "delivery_errors_total",
				Help:      "Notifications that failed to deliver",
			},
			[]string{"notifier"},
		),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful poll",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last poll run",
		}),
		historyEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_entries",
			Help:      "Snapshots retained in the usage history",
		}),
	}

	r.registry.MustRegister(
		r.utilization, r.alerts, r.deliveryErrors,
		r.lastSuccess, r.runDuration, r.historyEntries,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveReading records the utilization of every window.
func (r *Recorder) ObserveReading(reading model.UsageReading) {
	for id := range reading.Windows {
		r.utilization.WithLabelValues(id).Set(reading.Utilization(id))
	}
}

// ObserveEvents counts policy events by kind.
func (r *Recorder) ObserveEvents(events []model.Event) {
	for _, ev := range events {
		r.alerts.WithLabelValues(string(ev.Kind)).Inc()
	}
}

// ObserveDeliveryError counts a failed notification.
func (r *Recorder) ObserveDeliveryError(notifier string) {
	r.deliveryErrors.WithLabelValues(notifier).Inc()
}

// ObserveHistorySize records the number of retained snapshots.
func (r *Recorder) ObserveHistorySize(n int) {
	r.historyEntries.Set(float64(n))
}

// ObserveSuccess marks the run as successful.
func (r *Recorder) ObserveSuccess(finished time.Time, took time.Duration) {
	r.lastSuccess.Set(float64(finished.Unix()))
	r.runDuration.Set(took.Seconds())
}

// Push sends the registry to a Pushgateway under job.
func (r *Recorder) Push(url, job string) error {
	if err := push.New(url, job).Gatherer(r.registry).Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// WriteTextfile writes the registry in the text exposition format for the
// node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
