package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	authsystem "github.com/MrEthical07/authsystem"
	"github.com/MrEthical07/authsystem/metrics/export/internaldefs"
)

var (
	// ErrNilMeter is returned when no meter is supplied.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned when no metrics source is supplied.
	ErrNilSource = errors.New("nil metrics source")
)

// OutcomeKey and BucketBoundKey are the attribute keys on exported series.
const (
	OutcomeKey     = attribute.Key("outcome")
	BucketBoundKey = attribute.Key("le")
)

type metricsSource interface {
	MetricsSnapshot() authsystem.MetricsSnapshot
	AuditDropped() uint64
}

// outcomeSeries is one counter value within a flow instrument.
type outcomeSeries struct {
	id   authsystem.MetricID
	opts metric.ObserveOption
}

type flowCounter struct {
	instrument metric.Int64ObservableCounter
	series     []outcomeSeries
}

type latencyHistogram struct {
	id      authsystem.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
	bounds  []metric.ObserveOption
}

// OTelExporter publishes engine counters as one observable counter per flow,
// named authsystem_<flow>_total with an outcome attribute. Latency histograms
// are published as cumulative bucket gauges labelled by upper bound. A single
// callback reads one snapshot per collection cycle.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	flows        []flowCounter
	histograms   []latencyHistogram
	auditDropped metric.Int64ObservableCounter
}

// NewOTelExporter registers instruments for engine on meter. Call Close to
// unregister the callback.
func NewOTelExporter(meter metric.Meter, engine *authsystem.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource is NewOTelExporter for any snapshot source.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &OTelExporter{source: source}
	var observables []metric.Observable

	byFlow := make(map[string]int)
	for _, flow := range internaldefs.Flows() {
		name := "authsystem_" + flow + "_total"
		ins, err := meter.Int64ObservableCounter(name,
			metric.WithDescription("Outcomes of the "+flow+" flow."),
			metric.WithUnit("{event}"),
		)
		if err != nil {
			return nil, fmt.Errorf("create %s counter: %w", flow, err)
		}
		byFlow[flow] = len(exporter.flows)
		exporter.flows = append(exporter.flows, flowCounter{instrument: ins})
		observables = append(observables, ins)
	}
	for _, def := range internaldefs.CounterDefs {
		fc := &exporter.flows[byFlow[def.Flow]]
		fc.series = append(fc.series, outcomeSeries{
			id:   def.ID,
			opts: metric.WithAttributes(OutcomeKey.String(def.Outcome)),
		})
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative bucket counts."),
		)
		if err != nil {
			return nil, fmt.Errorf("create %s buckets: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count",
			metric.WithDescription(def.Help+" Total samples."),
		)
		if err != nil {
			return nil, fmt.Errorf("create %s count: %w", def.Name, err)
		}

		h := latencyHistogram{id: def.ID, buckets: buckets, count: count}
		for _, bound := range internaldefs.HistogramBounds {
			h.bounds = append(h.bounds, metric.WithAttributes(BucketBoundKey.String(bound)))
		}
		exporter.histograms = append(exporter.histograms, h)
		observables = append(observables, buckets, count)
	}

	auditDropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(exporter.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	exporter.registration = registration
	return exporter, nil
}

func (e *OTelExporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()

	for _, fc := range e.flows {
		for _, s := range fc.series {
			observer.ObserveInt64(fc.instrument, int64(snapshot.Counters[s.id]), s.opts)
		}
	}

	for _, h := range e.histograms {
		raw, ok := snapshot.Histograms[h.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, opt := range h.bounds {
			observer.ObserveInt64(h.buckets, int64(cumulative[i]), opt)
		}
		observer.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}

	observer.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
