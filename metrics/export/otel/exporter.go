package otel

import (
	"context"
	"errors"
	"fmt"

	goIntake "github.com/MrEthical07/goIntake"
	"github.com/MrEthical07/goIntake/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goIntake.MetricsSnapshot
	AuditDropped() uint64
}

type observedCounter struct {
	id         goIntake.MetricID
	instrument metric.Int64ObservableCounter
}

// observedHistogram publishes cumulative bucket counts as gauges; the
// engine keeps buckets, not raw samples, so a synchronous OTel histogram
// cannot be fed.
type observedHistogram struct {
	id      goIntake.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// Exporter registers observable instruments for every engine metric on a
// caller-owned Meter.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	histograms   []observedHistogram
	auditDropped metric.Int64ObservableCounter
}

func New(meter metric.Meter, engine *goIntake.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewFromSource(meter, engine)
}

// NewFromSource is New for anything exposing a snapshot, such as a test fake.
func NewFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h, obs, err := newObservedHistogram(meter, def)
		if err != nil {
			return nil, err
		}
		e.histograms = append(e.histograms, h)
		observables = append(observables, obs...)
	}

	dropped, err := meter.Int64ObservableCounter(
		"gointake_audit_dropped_total",
		metric.WithDescription("Audit events dropped because the dispatcher buffer was full."),
	)
	if err != nil {
		return nil, fmt.Errorf("audit dropped counter: %w", err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func newObservedHistogram(meter metric.Meter, def internaldefs.HistogramDef) (observedHistogram, []metric.Observable, error) {
	h := observedHistogram{id: def.ID}
	obs := make([]metric.Observable, 0, len(h.buckets)+1)

	for i, suffix := range internaldefs.HistogramBoundSuffix {
		name := def.Name + "_bucket_le_" + suffix
		ins, err := meter.Int64ObservableGauge(name,
			metric.WithDescription(def.Help+" Cumulative bucket count."),
		)
		if err != nil {
			return h, nil, fmt.Errorf("bucket gauge %s: %w", name, err)
		}
		h.buckets[i] = ins
		obs = append(obs, ins)
	}

	count, err := meter.Int64ObservableGauge(def.Name+"_count",
		metric.WithDescription(def.Help+" Sample count."),
	)
	if err != nil {
		return h, nil, fmt.Errorf("count gauge %s: %w", def.Name, err)
	}
	h.count = count
	obs = append(obs, count)
	return h, obs, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		o.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
	}
	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[h.id]))
		for i := range cumulative {
			o.ObserveInt64(h.buckets[i], int64(cumulative[i]))
		}
		o.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback. The instruments stay on the meter.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
