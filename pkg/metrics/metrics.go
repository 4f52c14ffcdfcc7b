package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Buckets in milliseconds. Processor calls sit in the low hundreds; the tail
// covers retries with backoff.
var HistogramBuckets = []float64{
	10, 25, 50, 100, 200, 300, 500,
	750, 1000, 1500, 2000, 3000,
	5000, 7500, 10000, 15000, 30000,
}

// Metric describes one collector. MetricCollector is filled in on registration.
type Metric struct {
	MetricCollector prometheus.Collector
	ID              string
	Name            string
	Description     string
	Type            string
	Args            []string
}

// NewMetric builds the prometheus.Collector matching m.Type.
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	switch m.Type {
	case "counter_vec":
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem, Name: m.Name, Help: m.Description,
		}, m.Args)
	case "counter":
		return prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem, Name: m.Name, Help: m.Description,
		})
	case "gauge":
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Subsystem: subsystem, Name: m.Name, Help: m.Description,
		})
	case "histogram_vec":
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: subsystem, Name: m.Name, Help: m.Description, Buckets: HistogramBuckets,
		}, m.Args)
	case "summary_vec":
		return prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Subsystem: subsystem, Name: m.Name, Help: m.Description,
		}, m.Args)
	}
	return nil
}

var WebhookEvents = &Metric{
	ID:          "webhookEvents",
	Name:        "webhook_events_total",
	Description: "Webhook events received, partitioned by provider, event type and result.",
	Type:        "counter_vec",
	Args:        []string{"provider", "type", "result"},
}

var ProcessorCallDur = &Metric{
	ID:          "processorCallDur",
	Name:        "processor_call_dur_ms",
	Description: "Latency of outbound processor calls in milliseconds, including retries.",
	Type:        "histogram_vec",
	Args:        []string{"processor", "call", "outcome"},
}

var Readiness = &Metric{
	ID:          "ready",
	Name:        "ready",
	Description: "1 when the process accepts traffic.",
	Type:        "gauge",
}

// BusinessMetrics are registered next to the HTTP metrics.
var BusinessMetrics = []*Metric{WebhookEvents, ProcessorCallDur, Readiness}

// IncWebhookEvent is a no-op until the collector has been registered.
func IncWebhookEvent(provider, eventType, result string) {
	if cv, ok := WebhookEvents.MetricCollector.(*prometheus.CounterVec); ok {
		cv.WithLabelValues(provider, eventType, result).Inc()
	}
}

// ObserveProcessorCall records the latency of one logical processor call.
func ObserveProcessorCall(processor, call string, start time.Time, err error) {
	hv, ok := ProcessorCallDur.MetricCollector.(*prometheus.HistogramVec)
	if !ok {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	hv.WithLabelValues(processor, call, outcome).Observe(MillisecondsSince(start))
}

// SetReady flips the readiness gauge.
func SetReady(ready bool) {
	g, ok := Readiness.MetricCollector.(prometheus.Gauge)
	if !ok {
		return
	}
	if ready {
		g.Set(1)
		return
	}
	g.Set(0)
}

// MillisecondsSince returns the elapsed time as fractional milliseconds.
func MillisecondsSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

const (
	RefererKey = "X-Referer"
)
