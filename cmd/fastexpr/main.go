package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/zephyrtronium/fastexpr"
	"github.com/zephyrtronium/fastexpr/cache"
	"github.com/zephyrtronium/fastexpr/config"
	"github.com/zephyrtronium/fastexpr/observability"
	"github.com/zephyrtronium/fastexpr/sqlns"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	in, verb, conf, db, table string
	given                     [][2]string
	nl, echo, fold, repl      bool
	stats, verbose            bool
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var o options
	fs := flag.NewFlagSet("fastexpr", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.in, "in", "", "input file (default stdin if no args given)")
	fs.StringVar(&o.verb, "fmt", "%g", "result formatting string")
	fs.Func("given", "name=expr variable definition (any number of times)", func(s string) error {
		name, val, ok := assignment(s)
		if !ok {
			return fmt.Errorf(`variable definitions must be "name=value", not %q`, s)
		}
		o.given = append(o.given, [2]string{name, val})
		return nil
	})
	fs.BoolVar(&o.nl, "n", false, "evaluate separate input lines as separate expressions")
	fs.BoolVar(&o.echo, "echo", false, "print parse trees")
	fs.BoolVar(&o.fold, "fold", false, "fold constants before evaluating")
	fs.StringVar(&o.conf, "config", "", "YAML or JSON settings file")
	fs.StringVar(&o.db, "db", "", "SQLite database holding variables")
	fs.StringVar(&o.table, "table", "vars", "table of variables in -db")
	fs.BoolVar(&o.repl, "repl", false, "read expressions interactively")
	fs.BoolVar(&o.stats, "stats", false, "print metrics on exit")
	fs.BoolVar(&o.verbose, "v", false, "log debug messages")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var reader *sdkmetric.ManualReader
	if o.stats {
		reader = sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		otel.SetMeterProvider(provider)
		defer provider.Shutdown(ctx)
	}

	s, err := newSession(ctx, o, logger)
	if err != nil {
		logger.Error("setup failed", slog.String("error", err.Error()))
		return 1
	}
	defer s.close()

	code := 0
	if o.repl {
		code = s.interactive(ctx, stdout)
	} else {
		srcs, err := inputs(o.in, fs.Args(), o.nl, stdin)
		if err != nil {
			logger.Error("reading input", slog.String("error", err.Error()))
			return 1
		}
		for _, src := range srcs {
			if !s.evaluate(ctx, src, stdout) {
				code = 1
			}
		}
	}
	if reader != nil {
		printStats(ctx, stderr, reader, s.programs)
	}
	return code
}

// session holds everything needed to evaluate a sequence of expressions.
type session struct {
	o        options
	settings config.Settings
	ev       observability.Evaluator
	programs *cache.Cache
	// vars is the settings layer, then -given, then REPL assignments.
	vars  fastexpr.Layers
	store *sqlns.Store
	ns    fastexpr.Namespace
}

func newSession(ctx context.Context, o options, logger *slog.Logger) (*session, error) {
	settings := config.Default()
	if o.conf != "" {
		var err error
		settings, err = config.FromFile(o.conf)
		if err != nil {
			return nil, err
		}
	}
	settings.Fold = settings.Fold || o.fold

	s := &session{
		o:        o,
		settings: settings,
		ev: observability.Evaluator{
			Metrics: observability.NoopMetrics{},
			Spans:   observability.NewSpanManager(),
			Logger:  logger,
		},
		programs: cache.New(0),
	}
	if o.stats {
		s.ev.Metrics = observability.NewMetricsRecorder()
	}
	base := s.vars.Push()
	for k, v := range settings.Namespace() {
		base[k] = v
	}
	given := s.vars.Push()
	s.vars.Push()

	s.ns = s.vars
	if o.db != "" {
		store, err := sqlns.Open(ctx, o.db, o.table)
		if err != nil {
			return nil, err
		}
		s.store = store
		s.ns = fastexpr.Chain{s.vars, store}
	}

	for _, d := range o.given {
		r, err := s.eval(ctx, d[1])
		if err != nil {
			s.close()
			return nil, fmt.Errorf("setting %s: %w", d[0], err)
		}
		given[d[0]] = r
	}
	return s, nil
}

func (s *session) close() {
	if s.store != nil {
		s.store.Close()
	}
}

func (s *session) prepare(ctx context.Context, src string) (*fastexpr.Program, error) {
	return s.programs.GetOrPrepare(src, func() (*fastexpr.Program, error) {
		return s.ev.Prepare(ctx, src, s.settings.ProgramOptions()...)
	})
}

func (s *session) eval(ctx context.Context, src string) (float64, error) {
	p, err := s.prepare(ctx, src)
	if err != nil {
		return 0, err
	}
	return s.ev.Eval(ctx, p, s.ns)
}

// evaluate evaluates src and prints the result or error. It reports whether
// evaluation succeeded.
func (s *session) evaluate(ctx context.Context, src string, w io.Writer) bool {
	p, err := s.prepare(ctx, src)
	if err != nil {
		fmt.Fprintln(w, describe(src, err))
		return false
	}
	if s.o.echo {
		fmt.Fprintf(w, "%v : ", p)
	}
	r, err := s.ev.Eval(ctx, p, s.ns)
	if err != nil {
		fmt.Fprintln(w, err)
		return false
	}
	fmt.Fprintf(w, s.o.verb+"\n", r)
	return true
}

// assign evaluates src and stores the result as name in the innermost layer,
// so that it shadows config and -given values, and in the database if there
// is one.
func (s *session) assign(ctx context.Context, name, src string) (float64, error) {
	r, err := s.eval(ctx, src)
	if err != nil {
		return 0, err
	}
	if s.store != nil {
		if err := s.store.Set(ctx, name, r); err != nil {
			return 0, err
		}
	}
	s.vars[len(s.vars)-1][name] = r
	return r, nil
}

// describe formats an evaluation error, pointing at the column of input
// errors.
func describe(src string, err error) string {
	var ierr fastexpr.InputError
	if !errors.As(err, &ierr) || strings.ContainsRune(src, '\n') {
		return err.Error()
	}
	col := ierr.Pos()
	if col < 1 || col > utf8.RuneCountInString(src)+1 {
		return err.Error()
	}
	return src + "\n" + strings.Repeat(" ", col-1) + "^\n" + err.Error()
}

// assignment splits "name = expr". The name must be a single identifier and
// the = must not begin ==.
func assignment(s string) (name, src string, ok bool) {
	k := strings.IndexByte(s, '=')
	if k < 0 || strings.HasPrefix(s[k:], "==") {
		return "", "", false
	}
	name = strings.TrimSpace(s[:k])
	if !ident(name) {
		return "", "", false
	}
	return name, strings.TrimSpace(s[k+1:]), true
}

func ident(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && '0' <= c && c <= '9':
		default:
			return false
		}
	}
	return true
}

// inputs collects the expressions to evaluate. Each argument is one
// expression. The input file, or stdin when there are no arguments, is one
// expression, or one per non-blank line with nl.
func inputs(inname string, args []string, nl bool, stdin io.Reader) ([]string, error) {
	var r io.Reader
	switch {
	case inname != "" && inname != "-":
		f, err := os.Open(inname)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	case inname == "-", len(args) == 0:
		r = stdin
	}
	var srcs []string
	if r != nil {
		if nl {
			sc := bufio.NewScanner(r)
			for sc.Scan() {
				if strings.TrimSpace(sc.Text()) != "" {
					srcs = append(srcs, sc.Text())
				}
			}
			if err := sc.Err(); err != nil {
				return nil, err
			}
		} else {
			b, err := io.ReadAll(r)
			if err != nil {
				return nil, err
			}
			if src := strings.TrimSpace(string(b)); src != "" {
				srcs = append(srcs, src)
			}
		}
	}
	return append(srcs, args...), nil
}
