package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/zephyrtronium/fastexpr"
)

// Evaluator prepares and evaluates programs with logging, metrics, and
// tracing. The zero value observes nothing.
type Evaluator struct {
	Metrics MetricsRecorder
	Spans   SpanManager
	Logger  *slog.Logger
}

func (e *Evaluator) metrics() MetricsRecorder {
	if e.Metrics == nil {
		return NoopMetrics{}
	}
	return e.Metrics
}

func (e *Evaluator) spans() SpanManager {
	if e.Spans == nil {
		return NoopSpanManager{}
	}
	return e.Spans
}

// Prepare prepares a program, recording the parse.
func (e *Evaluator) Prepare(ctx context.Context, src string, opts ...fastexpr.ProgramOption) (*fastexpr.Program, error) {
	start := time.Now()
	p, err := fastexpr.Prepare(src, opts...)
	dur := time.Since(start)
	e.metrics().RecordParse(ctx, dur, err)
	var id string
	if p != nil {
		id = p.ID
	}
	LogParse(e.Logger, src, id, dur, err)
	return p, err
}

// Eval evaluates p with ns inside a span, recording the evaluation and each
// name it resolves.
func (e *Evaluator) Eval(ctx context.Context, p *fastexpr.Program, ns fastexpr.Namespace) (float64, error) {
	rec := e.metrics()
	ctx, span := e.spans().StartEvalSpan(ctx, p.ID, p.Source)
	start := time.Now()
	r, err := p.Eval(Instrument(ctx, ns, rec))
	dur := time.Since(start)
	rec.RecordEval(ctx, p.ID, dur, err)
	e.spans().EndSpanWithError(span, err)
	if err != nil {
		LogEvalError(e.Logger, p.ID, err, dur)
		return r, err
	}
	LogEval(e.Logger, p.ID, r, dur)
	return r, nil
}

// Instrument wraps ns so that every resolution through it is recorded.
// Names that built-ins resolve first never reach ns and are not recorded.
func Instrument(ctx context.Context, ns fastexpr.Namespace, rec MetricsRecorder) fastexpr.Namespace {
	if ns == nil {
		ns = fastexpr.EmptyNamespace{}
	}
	if rec == nil {
		return ns
	}
	return fastexpr.NamespaceFunc(func(name string, args []float64) (float64, error) {
		r, err := ns.Resolve(name, args)
		rec.RecordResolve(ctx, name, err)
		return r, err
	})
}
