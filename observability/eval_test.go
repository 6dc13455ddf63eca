package observability

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"

	"github.com/zephyrtronium/fastexpr"
)

func TestEvaluator(t *testing.T) {
	reader := setupMetricsTest(t)
	exporter := setupTracingTest(t)
	m, err := newOtelMetrics()
	require.NoError(t, err)
	h := newTestHandler()
	e := Evaluator{Metrics: m, Spans: NewSpanManager(), Logger: slog.New(h)}
	ctx := context.Background()

	p, err := e.Prepare(ctx, "sqrt(x) + y")
	require.NoError(t, err)
	r, err := e.Eval(ctx, p, fastexpr.MapNamespace{"x": 16, "y": 1})
	require.NoError(t, err)
	assert.Equal(t, 5.0, r)

	_, err = e.Eval(ctx, p, fastexpr.MapNamespace{"x": 16})
	var nerr *fastexpr.NameError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "y", nerr.Name)

	_, err = e.Prepare(ctx, "sqrt(")
	require.Error(t, err)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumFor(t, rm, "fastexpr.parse.count", "", ""))
	assert.Equal(t, int64(1), sumFor(t, rm, "fastexpr.parse.errors", "", ""))
	assert.Equal(t, int64(2), sumFor(t, rm, "fastexpr.eval.count", "program_id", p.ID))
	assert.Equal(t, int64(1), sumFor(t, rm, "fastexpr.eval.errors", "program_id", p.ID))
	// Built-ins resolve sqrt before the namespace is consulted.
	assert.Equal(t, int64(2), sumFor(t, rm, "fastexpr.resolve.count", "name", "x"))
	assert.Zero(t, sumFor(t, rm, "fastexpr.resolve.count", "name", "sqrt"))
	assert.Equal(t, int64(1), sumFor(t, rm, "fastexpr.resolve.errors", "name", "y"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Equal(t, codes.Error, spans[1].Status.Code)

	msgs := map[string]int{}
	for _, rec := range h.records(t) {
		msgs[rec["msg"].(string)]++
	}
	assert.Equal(t, map[string]int{
		"program prepared":  1,
		"program evaluated": 1,
		"evaluation failed": 1,
		"parse failed":      1,
	}, msgs)
}

func TestEvaluatorZero(t *testing.T) {
	var e Evaluator
	p, err := e.Prepare(context.Background(), "1 + 2")
	require.NoError(t, err)
	r, err := e.Eval(context.Background(), p, nil)
	require.NoError(t, err)
	assert.Equal(t, 3.0, r)
}

func TestInstrument(t *testing.T) {
	var got []string
	rec := resolveRecorder(func(name string, err error) {
		s := name
		if err != nil {
			s += "!"
		}
		got = append(got, s)
	})
	ns := Instrument(context.Background(), fastexpr.MapNamespace{"a": 1}, rec)
	_, err := fastexpr.EvalString("a + a + b", ns)
	require.Error(t, err)
	assert.Equal(t, []string{"a", "a", "b!"}, got)

	ns = Instrument(context.Background(), nil, nil)
	_, err = ns.Resolve("a", nil)
	assert.True(t, errors.As(err, new(*fastexpr.NameError)))
}

type resolveRecorder func(name string, err error)

func (resolveRecorder) RecordParse(context.Context, time.Duration, error)          {}
func (resolveRecorder) RecordEval(context.Context, string, time.Duration, error)   {}
func (f resolveRecorder) RecordResolve(_ context.Context, name string, err error) { f(name, err) }
