package prometheus

import (
	"net/http"

	goIntake "github.com/MrEthical07/goIntake"
	"github.com/MrEthical07/goIntake/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsSource interface {
	MetricsSnapshot() goIntake.MetricsSnapshot
	AuditDropped() uint64
}

const auditDroppedName = "gointake_audit_dropped_total"

type counterDesc struct {
	id   goIntake.MetricID
	desc *prometheus.Desc
}

// Collector is a prometheus.Collector reading engine counters at scrape
// time. Register it on any registry.
type Collector struct {
	source       metricsSource
	counters     []counterDesc
	histograms   []counterDesc
	auditDropped *prometheus.Desc
}

// NewCollector reads from engine.
func NewCollector(engine *goIntake.Engine) *Collector {
	return NewCollectorFromSource(engine)
}

func NewCollectorFromSource(source metricsSource) *Collector {
	c := &Collector{
		source:     source,
		counters:   make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		histograms: make([]counterDesc, 0, len(internaldefs.HistogramDefs)),
		auditDropped: prometheus.NewDesc(
			auditDroppedName,
			"Audit events dropped because the dispatcher buffer was full.",
			nil, nil,
		),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, counterDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, counterDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	return c
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, cd := range c.counters {
		ch <- cd.desc
	}
	for _, hd := range c.histograms {
		ch <- hd.desc
	}
	ch <- c.auditDropped
}

// Collect emits nothing while the engine's metrics are disabled and no audit
// event was dropped.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c == nil || c.source == nil {
		return
	}

	snapshot := c.source.MetricsSnapshot()
	dropped := c.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return
	}

	for _, cd := range c.counters {
		ch <- prometheus.MustNewConstMetric(cd.desc, prometheus.CounterValue, float64(snapshot.Counters[cd.id]))
	}

	for _, hd := range c.histograms {
		raw, ok := snapshot.Histograms[hd.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, le := range internaldefs.HistogramUpperBounds {
			buckets[le] = cumulative[i]
		}
		// the engine does not track a sum
		ch <- prometheus.MustNewConstHistogram(hd.desc, cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(c.auditDropped, prometheus.CounterValue, float64(dropped))
}

// Handler serves only this collector from a private registry.
func (c *Collector) Handler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
