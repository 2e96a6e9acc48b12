// Package telemetry holds the OpenTelemetry instruments and the timing helper
// used by the inspection engine.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricTasksTotal    = "glint.inspect.tasks.total"
	metricTaskDuration  = "glint.inspect.task.duration.seconds"
	metricInflightTasks = "glint.inspect.inflight.tasks"
	metricMatchesTotal  = "glint.inspect.matches.total"

	attrStatus = "status"
)

// taskDurationBuckets covers sub-millisecond in-process scans up to
// multi-minute rg runs over large windows.
var taskDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300}

// Metrics holds the inspection instruments.
type Metrics struct {
	tasksTotal    metric.Int64Counter
	taskDuration  metric.Float64Histogram
	inflightTasks metric.Int64UpDownCounter
	matchesTotal  metric.Int64Counter
}

// NewMetrics creates the instruments from mt.
func NewMetrics(mt metric.Meter) (*Metrics, error) {
	b := &metricBuilder{meter: mt}

	m := &Metrics{
		tasksTotal:    b.counter(metricTasksTotal, "Inspection tasks by terminal status", "{task}"),
		taskDuration:  b.histogram(metricTaskDuration, "Inspection task duration in seconds", "s", taskDurationBuckets...),
		inflightTasks: b.upDownCounter(metricInflightTasks, "Inspection tasks currently running", "{task}"),
		matchesTotal:  b.counter(metricMatchesTotal, "Matches merged into the line map", "{match}"),
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

// RecordTask records a settled task.
func (m *Metrics) RecordTask(ctx context.Context, status string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String(attrStatus, status))
	m.tasksTotal.Add(ctx, 1, attrs)
	m.taskDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordMatches counts matches merged for one task.
func (m *Metrics) RecordMatches(ctx context.Context, n int) {
	m.matchesTotal.Add(ctx, int64(n))
}

// TrackInflight increments the in-flight gauge and returns its decrement.
func (m *Metrics) TrackInflight(ctx context.Context) func() {
	m.inflightTasks.Add(ctx, 1)
	return func() {
		m.inflightTasks.Add(ctx, -1)
	}
}

type metricBuilder struct {
	meter metric.Meter
	err   error
}

func (b *metricBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)
	return c
}

func (b *metricBuilder) histogram(name, desc, unit string, bounds ...float64) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{
		metric.WithDescription(desc),
		metric.WithUnit(unit),
	}
	if len(bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
	}
	h, err := b.meter.Float64Histogram(name, opts...)
	b.setErr(name, err)
	return h
}

func (b *metricBuilder) upDownCounter(name, desc, unit string) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)
	return c
}

func (b *metricBuilder) setErr(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}
}
