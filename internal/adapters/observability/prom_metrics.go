package observability

import (
	"fmt"
	"log"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/streamwindow/internal/ports"
)

type PromObs struct {
	logger   *log.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the pipeline metrics on the default registerer.
func NewPromObs() *PromObs {
	return NewPromObsWithRegisterer(prometheus.DefaultRegisterer, log.Default())
}

// NewPromObsWithRegisterer registers on reg and logs through logger.
func NewPromObsWithRegisterer(reg prometheus.Registerer, logger *log.Logger) *PromObs {
	if logger == nil {
		logger = log.Default()
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}

	counters := map[string]prometheus.Counter{
		ports.MetricPointsIngested:      counter(ports.MetricPointsIngested, "Points appended to the window."),
		ports.MetricDecodeErrors:        counter(ports.MetricDecodeErrors, "Notification payloads dropped because they could not be decoded."),
		ports.MetricChannelDropped:      counter(ports.MetricChannelDropped, "Unconsumed points dropped because the ingest channel was full."),
		ports.MetricAnomalies:           counter(ports.MetricAnomalies, "Points appended with a timestamp older than the window tail."),
		ports.MetricPointsEvicted:       counter(ports.MetricPointsEvicted, "Points evicted from the window."),
		ports.MetricSnapshotsPublished:  counter(ports.MetricSnapshotsPublished, "Snapshots taken by the poller."),
		ports.MetricSnapshotsSuperseded: counter(ports.MetricSnapshotsSuperseded, "Snapshots replaced before the renderer picked them up."),
		ports.MetricControlSent:         counter(ports.MetricControlSent, "Control bytes passed to the producer."),
	}
	gauges := map[string]prometheus.Gauge{
		ports.GaugeWindowPoints:  gauge(ports.GaugeWindowPoints, "Points in the most recent snapshot."),
		ports.GaugeChannelLength: gauge(ports.GaugeChannelLength, "Points waiting in the ingest channel."),
		ports.GaugeProducerUp:    gauge(ports.GaugeProducerUp, "1 when the producer is connected and delivering."),
	}
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.LatencyRender,
		Help:    "Time spent by the renderer on one snapshot.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	collectors := []prometheus.Collector{latency}
	for _, c := range counters {
		collectors = append(collectors, c)
	}
	for _, g := range gauges {
		collectors = append(collectors, g)
	}
	reg.MustRegister(collectors...)

	return &PromObs{
		logger:   logger,
		counters: counters,
		gauges:   gauges,
		histos: map[string]prometheus.Observer{
			ports.LatencyRender: latency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Printf("INFO: %s%s", msg, formatFields(fields))
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		p.logger.Printf("ERROR: %s: %v%s", msg, err, formatFields(fields))
		return
	}
	p.logger.Printf("ERROR: %s%s", msg, formatFields(fields))
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.logger.Printf("CRITICAL: %s: %v%s", msg, err, formatFields(fields))
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func formatFields(fields []ports.Field) string {
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	return b.String()
}

var _ ports.Observability = (*PromObs)(nil)
