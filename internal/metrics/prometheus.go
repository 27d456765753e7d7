package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

var durationBuckets = []float64{.01, .05, .1, .5, 1, 5, 15, 60, 300, 900, 3600}

type timer struct {
	h     prometheus.Observer
	start time.Time
}

func (t *timer) ObserveDuration() {
	t.h.Observe(time.Since(t.start).Seconds())
}

// Prometheus реализация Metrics поверх собственного реестра.
type Prometheus struct {
	reg *prometheus.Registry

	duration   *prometheus.HistogramVec
	failures   *prometheus.CounterVec
	records    *prometheus.CounterVec
	bytes      *prometheus.CounterVec
	partsTotal prometheus.Counter
	partBytes  prometheus.Counter
	flushes    prometheus.Counter
}

var _ Metrics = (*Prometheus)(nil)

// NewPrometheus регистрирует метрики; labels (node, cluster, run_id) добавляются ко всем сериям.
func NewPrometheus(labels map[string]string) *Prometheus {
	reg := prometheus.NewRegistry()
	f := prometheus.WrapRegistererWith(prometheus.Labels(labels), reg)

	m := &Prometheus{
		reg: reg,
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hdfsconn_operation_duration_seconds",
			Help:    "Duration of connector operations in seconds",
			Buckets: durationBuckets,
		}, []string{"action"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hdfsconn_operation_failures_total",
			Help: "Total number of failed connector operations",
		}, []string{"action"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hdfsconn_records_emitted_total",
			Help: "Total number of records emitted by splitters",
		}, []string{"format"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hdfsconn_bytes_total",
			Help: "Total bytes read from or written to HDFS",
		}, []string{"direction"}),
		partsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hdfsconn_parts_merged_total",
			Help: "Total number of part files merged into target",
		}),
		partBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hdfsconn_part_bytes_merged_total",
			Help: "Total bytes of part files merged into target",
		}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hdfsconn_flushes_total",
			Help: "Total number of HDFS flushes",
		}),
	}
	f.MustRegister(m.duration, m.failures, m.records, m.bytes, m.partsTotal, m.partBytes, m.flushes)
	return m
}

func (m *Prometheus) OperationDuration(action string) Timer {
	return &timer{h: m.duration.WithLabelValues(action), start: time.Now()}
}

func (m *Prometheus) OperationFailed(action string) {
	m.failures.WithLabelValues(action).Inc()
}

func (m *Prometheus) RecordsEmitted(format string, n int64) {
	m.records.WithLabelValues(format).Add(float64(n))
}

func (m *Prometheus) BytesTransferred(direction string, n int64) {
	m.bytes.WithLabelValues(direction).Add(float64(n))
}

func (m *Prometheus) PartMerged(bytes int64) {
	m.partsTotal.Inc()
	m.partBytes.Add(float64(bytes))
}

func (m *Prometheus) Flushes(n int) {
	m.flushes.Add(float64(n))
}

// Gatherer реестр для тестов и push.
func (m *Prometheus) Gatherer() prometheus.Gatherer {
	return m.reg
}

// Handler отдаёт /metrics.
func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Push отправляет текущие значения в Pushgateway. Воркер живёт недолго, поэтому push делается на выходе.
func (m *Prometheus) Push(ctx context.Context, url, job string) error {
	return push.New(url, job).Gatherer(m.reg).PushContext(ctx)
}
