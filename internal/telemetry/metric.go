package telemetry

import (
	"time"

	"opsboard/config"
	"opsboard/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric 未啟用時所有欄位為 nil，Observe* 方法直接略過
type Metric struct {
	HttpRequestsTotal        *prometheus.CounterVec
	HttpRequestDuration      *prometheus.HistogramVec
	AggregationRunsTotal     *prometheus.CounterVec
	AggregationRecordsTotal  *prometheus.CounterVec
	AggregationWarningsTotal *prometheus.CounterVec
	AggregationDuration      *prometheus.HistogramVec
	IdentityDuplicatesTotal  prometheus.Counter
}

func NewMetric(config *config.Configuration) *Metric {
	if config == nil || !config.Telemetry.Metric.Enabled {
		return &Metric{}
	}
	return newMetric(promauto.With(prometheus.DefaultRegisterer), config)
}

func newMetric(factory promauto.Factory, config *config.Configuration) *Metric {
	buckets := prometheus.DefBuckets
	if len(config.Telemetry.Metric.Buckets) > 0 {
		buckets = config.Telemetry.Metric.Buckets
	}
	name := func(metric core.MetricName) string {
		return config.App.Name + "_" + string(metric)
	}
	return &Metric{
		HttpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: name(core.MetricHttpRequestsTotal),
				Help: "Total received API requests",
			},
			labelNames(core.MetricLabelEndpoint, core.MetricLabelStatus),
		),
		HttpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name(core.MetricHttpRequestDuration),
				Help:    "API request duration (seconds)",
				Buckets: buckets,
			},
			labelNames(core.MetricLabelEndpoint),
		),
		AggregationRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: name(core.MetricAggregationRunsTotal),
				Help: "Aggregation passes by kind, mode and final status",
			},
			labelNames(core.MetricLabelKind, core.MetricLabelMode, core.MetricLabelStatus),
		),
		AggregationRecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: name(core.MetricAggregationRecordsTotal),
				Help: "Aggregate rows written",
			},
			labelNames(core.MetricLabelKind),
		),
		AggregationWarningsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: name(core.MetricAggregationWarningsTotal),
				Help: "Raw records skipped or flagged during aggregation",
			},
			labelNames(core.MetricLabelKind),
		),
		AggregationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name(core.MetricAggregationDuration),
				Help:    "Aggregation pass duration (seconds)",
				Buckets: buckets,
			},
			labelNames(core.MetricLabelKind),
		),
		IdentityDuplicatesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: name(core.MetricIdentityDuplicatesTotal),
				Help: "Duplicate eitjeUserId groups found during reconciliation",
			},
		),
	}
}

// ObserveRun 記錄單次聚合 pass 的結果
func (m *Metric) ObserveRun(kind core.AggregationKind, mode core.AggregationMode, status core.RunStatus, records, warnings int, elapsed time.Duration) {
	if m == nil || m.AggregationRunsTotal == nil {
		return
	}
	m.AggregationRunsTotal.WithLabelValues(string(kind), string(mode), string(status)).Inc()
	m.AggregationRecordsTotal.WithLabelValues(string(kind)).Add(float64(records))
	m.AggregationWarningsTotal.WithLabelValues(string(kind)).Add(float64(warnings))
	m.AggregationDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

func (m *Metric) ObserveDuplicates(groups int) {
	if m == nil || m.IdentityDuplicatesTotal == nil {
		return
	}
	m.IdentityDuplicatesTotal.Add(float64(groups))
}

func (m *Metric) ObserveHttp(endpoint, status string, elapsed time.Duration) {
	if m == nil || m.HttpRequestsTotal == nil {
		return
	}
	m.HttpRequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.HttpRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func labelNames(labels ...core.MetricLabelName) []string {
	strs := make([]string, len(labels))
	for i, l := range labels {
		strs[i] = string(l)
	}
	return strs
}
