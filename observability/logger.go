// Package observability instruments expression programs with structured
// logging, OpenTelemetry metrics, and OpenTelemetry tracing.
//
// Every feature is opt-in. A nil logger, NoopMetrics, and NoopSpanManager
// disable the corresponding feature without overhead.
package observability

import (
	"log/slog"
	"time"
)

// LogParse logs the outcome of preparing a program. A failed parse is logged
// at Warn, since it is the input's fault rather than the program's.
func LogParse(logger *slog.Logger, src string, id string, dur time.Duration, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Warn("parse failed",
			slog.String("source", src),
			slog.String("error", err.Error()),
			slog.Float64("duration_ms", ms(dur)),
		)
		return
	}
	logger.Debug("program prepared",
		slog.String("program_id", id),
		slog.String("source", src),
		slog.Float64("duration_ms", ms(dur)),
	)
}

// LogEval logs a successful evaluation.
func LogEval(logger *slog.Logger, id string, result float64, dur time.Duration) {
	if logger == nil {
		return
	}
	logger.Debug("program evaluated",
		slog.String("program_id", id),
		slog.Float64("result", result),
		slog.Float64("duration_ms", ms(dur)),
	)
}

// LogEvalError logs a failed evaluation.
func LogEvalError(logger *slog.Logger, id string, err error, dur time.Duration) {
	if logger == nil {
		return
	}
	logger.Error("evaluation failed",
		slog.String("program_id", id),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", ms(dur)),
	)
}

// ms converts a duration to fractional milliseconds. Evaluations usually
// take well under a millisecond, so whole milliseconds would read as zero.
func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
