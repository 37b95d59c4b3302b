package ports

type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)
	LogCritical(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)

	SetGauge(name string, v float64)
}

type Field struct {
	Key   string
	Value any
}

// Metric names shared by the pipeline and the Prometheus adapter.
const (
	MetricPointsIngested      = "streamwindow_points_ingested_total"
	MetricDecodeErrors        = "streamwindow_decode_errors_total"
	MetricChannelDropped      = "streamwindow_channel_dropped_total"
	MetricAnomalies           = "streamwindow_monotonicity_anomalies_total"
	MetricPointsEvicted       = "streamwindow_points_evicted_total"
	MetricSnapshotsPublished  = "streamwindow_snapshots_published_total"
	MetricSnapshotsSuperseded = "streamwindow_snapshots_superseded_total"
	MetricControlSent         = "streamwindow_control_sent_total"

	GaugeWindowPoints  = "streamwindow_window_points"
	GaugeChannelLength = "streamwindow_channel_length"
	GaugeProducerUp    = "streamwindow_producer_active"

	LatencyRender = "streamwindow_render_latency_seconds"
)
