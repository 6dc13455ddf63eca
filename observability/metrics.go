package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records expression metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordParse records preparing a program.
	RecordParse(ctx context.Context, dur time.Duration, err error)

	// RecordEval records one evaluation of a program.
	RecordEval(ctx context.Context, programID string, dur time.Duration, err error)

	// RecordResolve records one namespace lookup.
	RecordResolve(ctx context.Context, name string, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	parses       metric.Int64Counter
	parseLatency metric.Float64Histogram
	parseErrors  metric.Int64Counter
	evals        metric.Int64Counter
	evalLatency  metric.Float64Histogram
	evalErrors   metric.Int64Counter
	resolves     metric.Int64Counter
	resolveErrs  metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("fastexpr")
	var m otelMetrics
	var err error

	if m.parses, err = meter.Int64Counter("fastexpr.parse.count",
		metric.WithDescription("Number of programs prepared"),
	); err != nil {
		return nil, err
	}
	if m.parseLatency, err = meter.Float64Histogram("fastexpr.parse.latency_ms",
		metric.WithDescription("Parse and fold latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.parseErrors, err = meter.Int64Counter("fastexpr.parse.errors",
		metric.WithDescription("Number of sources that failed to parse"),
	); err != nil {
		return nil, err
	}
	if m.evals, err = meter.Int64Counter("fastexpr.eval.count",
		metric.WithDescription("Number of evaluations"),
	); err != nil {
		return nil, err
	}
	if m.evalLatency, err = meter.Float64Histogram("fastexpr.eval.latency_ms",
		metric.WithDescription("Evaluation latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.evalErrors, err = meter.Int64Counter("fastexpr.eval.errors",
		metric.WithDescription("Number of failed evaluations"),
	); err != nil {
		return nil, err
	}
	if m.resolves, err = meter.Int64Counter("fastexpr.resolve.count",
		metric.WithDescription("Number of namespace lookups"),
	); err != nil {
		return nil, err
	}
	if m.resolveErrs, err = meter.Int64Counter("fastexpr.resolve.errors",
		metric.WithDescription("Number of failed namespace lookups"),
	); err != nil {
		return nil, err
	}
	return &m, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordParse(ctx context.Context, dur time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.Bool("success", err == nil))
	m.parses.Add(ctx, 1, attrs)
	m.parseLatency.Record(ctx, ms(dur), attrs)
	if err != nil {
		m.parseErrors.Add(ctx, 1)
	}
}

func (m *otelMetrics) RecordEval(ctx context.Context, programID string, dur time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("program_id", programID))
	m.evals.Add(ctx, 1, attrs)
	m.evalLatency.Record(ctx, ms(dur), attrs)
	if err != nil {
		m.evalErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordResolve(ctx context.Context, name string, err error) {
	attrs := metric.WithAttributes(attribute.String("name", name))
	m.resolves.Add(ctx, 1, attrs)
	if err != nil {
		m.resolveErrs.Add(ctx, 1, attrs)
	}
}
