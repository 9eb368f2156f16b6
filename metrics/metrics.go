// Package metrics provides Prometheus metrics for the OData service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels.
const (
	ResultMatched  = "matched"
	ResultDefault  = "default"
	ResultRejected = "rejected"
	ResultInvalid  = "invalid"
)

// Metrics holds all Prometheus metrics of the service.
type Metrics struct {
	NegotiationsTotal    *prometheus.CounterVec
	LanguagesTotal       *prometheus.CounterVec
	SerializationsTotal  *prometheus.CounterVec
	SerializationErrors  *prometheus.CounterVec
	RequestsTotal        *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
	MessageBundlesCached prometheus.Gauge
	MetadataReloads      *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide metrics, registering them on first use.
func Get() *Metrics {
	once.Do(func() {
		instance = newMetrics(prometheus.DefaultRegisterer)
	})
	return instance
}

// NewWithRegistry registers a fresh set of metrics on reg. Tests use it
// with a private registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	return newMetrics(reg)
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		NegotiationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "odata",
				Subsystem: "negotiation",
				Name:      "content_types_total",
				Help:      "Total number of content type negotiations",
			},
			[]string{"content_type", "result"},
		),
		LanguagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "odata",
				Subsystem: "negotiation",
				Name:      "languages_total",
				Help:      "Total number of language negotiations by resolved locale",
			},
			[]string{"locale", "result"},
		),
		SerializationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "odata",
				Subsystem: "serializer",
				Name:      "writes_total",
				Help:      "Total number of serialized response bodies",
			},
			[]string{"payload", "content_type"},
		),
		SerializationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "odata",
				Subsystem: "serializer",
				Name:      "errors_total",
				Help:      "Total number of failed serializations by kind",
			},
			[]string{"payload", "kind"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "odata",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"endpoint", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "odata",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		MessageBundlesCached: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "odata",
				Subsystem: "i18n",
				Name:      "message_services_cached",
				Help:      "Number of locales with a cached message service",
			},
		),
		MetadataReloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "odata",
				Subsystem: "metadata",
				Name:      "reloads_total",
				Help:      "Total number of metadata reloads",
			},
			[]string{"result"},
		),
	}
}

// RecordNegotiation records a content type negotiation result.
func (m *Metrics) RecordNegotiation(contentType, result string) {
	m.NegotiationsTotal.WithLabelValues(contentType, result).Inc()
}

// RecordLanguage records the locale a request was answered in.
func (m *Metrics) RecordLanguage(locale, result string) {
	m.LanguagesTotal.WithLabelValues(locale, result).Inc()
}

// RecordSerialization records a completed body write.
func (m *Metrics) RecordSerialization(payload, contentType string) {
	m.SerializationsTotal.WithLabelValues(payload, contentType).Inc()
}

// RecordSerializationError records a failed body write.
func (m *Metrics) RecordSerializationError(payload, kind string) {
	m.SerializationErrors.WithLabelValues(payload, kind).Inc()
}

// RecordRequest records an HTTP request with its status
func (m *Metrics) RecordRequest(endpoint string, status int, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(endpoint, statusLabel(status)).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// SetCachedBundles updates the message service cache gauge.
func (m *Metrics) SetCachedBundles(n int) {
	m.MessageBundlesCached.Set(float64(n))
}

// RecordMetadataReload records the outcome of a metadata reload.
func (m *Metrics) RecordMetadataReload(result string) {
	m.MetadataReloads.WithLabelValues(result).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
