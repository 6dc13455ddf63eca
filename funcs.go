package fastexpr

import (
	"log/slog"
	"math"
	"math/big"
	"strconv"

	"github.com/zephyrtronium/bigfloat"
)

// Func is a function from reals to reals.
type Func interface {
	// Call evaluates the function. args has a length for which CanCall
	// returned true. args belongs to the evaluator; Call must not modify or
	// retain it.
	Call(args []float64) (float64, error)

	// CanCall returns whether the function can be called with n arguments.
	// Calls with other argument counts fail with an *ArityError before Call.
	CanCall(n int) bool
}

type niladic struct {
	f func() float64
}

func (n niladic) Call(args []float64) (float64, error) {
	return n.f(), nil
}

func (n niladic) CanCall(k int) bool {
	return k == 0
}

// Niladic wraps a function of zero variables, generally a function which
// computes a constant, into a Func.
func Niladic(f func() float64) Func {
	return niladic{f}
}

// Const is a Func that always returns x.
func Const(x float64) Func {
	return niladic{func() float64 { return x }}
}

type monadic struct {
	f func(float64) float64
}

func (m monadic) Call(args []float64) (float64, error) {
	return m.f(args[0]), nil
}

func (m monadic) CanCall(n int) bool {
	return n == 1
}

// Monadic wraps a function of one variable into a Func.
func Monadic(f func(float64) float64) Func {
	return monadic{f}
}

type dyadic struct {
	f func(x, y float64) float64
}

func (d dyadic) Call(args []float64) (float64, error) {
	return d.f(args[0], args[1]), nil
}

func (d dyadic) CanCall(n int) bool {
	return n == 2
}

// Dyadic wraps a function of two variables into a Func.
func Dyadic(f func(x, y float64) float64) Func {
	return dyadic{f}
}

type variadic struct {
	min, max int
	f        func([]float64) float64
}

func (v variadic) Call(args []float64) (float64, error) {
	return v.f(args), nil
}

func (v variadic) CanCall(n int) bool {
	return n >= v.min && (v.max < 0 || n <= v.max)
}

// Variadic wraps a function of between min and max variables, inclusive, into
// a Func. A negative max means there is no upper bound.
func Variadic(min, max int, f func(args []float64) float64) Func {
	return variadic{min, max, f}
}

type volatile struct {
	Func
}

// Volatile marks f as impure, e.g. because it has side effects or depends on
// state outside its arguments. Compile never folds calls to volatile
// functions.
func Volatile(f Func) Func {
	if isvolatile(f) {
		return f
	}
	return volatile{f}
}

func isvolatile(f Func) bool {
	_, ok := f.(volatile)
	return ok
}

// Print returns a volatile function that logs its arguments to logger at info
// level and returns its last argument. If logger is nil, each call logs to
// slog.Default at the time of the call.
func Print(logger *slog.Logger) Func {
	return Volatile(Variadic(1, -1, func(args []float64) float64 {
		l := logger
		if l == nil {
			l = slog.Default()
		}
		l.Info("print", slog.Any("args", append([]float64(nil), args...)))
		return args[len(args)-1]
	}))
}

// Pi and E are computed once with extended precision and rounded to the
// nearest float64.
var (
	Pi = bigconst(func(z *big.Float) *big.Float { return bigfloat.Pi(z) })
	E  = bigconst(func(z *big.Float) *big.Float {
		var one big.Float
		one.SetPrec(z.Prec()).SetFloat64(1)
		return bigfloat.Exp(z, &one)
	})
)

func bigconst(f func(z *big.Float) *big.Float) float64 {
	z := new(big.Float).SetPrec(64)
	x, _ := f(z).Float64()
	return x
}

// Builtins returns a new map of the default functions and constants. The
// caller may modify the result.
//
// The set is abs, sign, min, max, sqrt, exp, ln, log (with an optional base
// as the first argument), the circular and hyperbolic functions and their
// inverses, atan2, int (truncation), ceil, floor, round (with an optional
// modulus as the first argument), if, sum, avg, print, and the constants pi
// and e. Every built-in except print is pure.
func Builtins() Funcs {
	return Funcs{
		"abs":  Monadic(math.Abs),
		"sign": Monadic(sign),
		"min":  Variadic(1, -1, minimum),
		"max":  Variadic(1, -1, maximum),
		"sqrt": Monadic(math.Sqrt),
		"exp":  Monadic(math.Exp),
		"ln":   Monadic(math.Log),
		"log": Variadic(1, 2, func(args []float64) float64 {
			if len(args) == 1 {
				return math.Log10(args[0])
			}
			return math.Log(args[1]) / math.Log(args[0])
		}),

		"sin":   Monadic(math.Sin),
		"cos":   Monadic(math.Cos),
		"tan":   Monadic(math.Tan),
		"asin":  Monadic(math.Asin),
		"acos":  Monadic(math.Acos),
		"atan":  Monadic(math.Atan),
		"atan2": Dyadic(math.Atan2),
		"sinh":  Monadic(math.Sinh),
		"cosh":  Monadic(math.Cosh),
		"tanh":  Monadic(math.Tanh),
		"asinh": Monadic(math.Asinh),
		"acosh": Monadic(math.Acosh),
		"atanh": Monadic(math.Atanh),

		"int":   Monadic(math.Trunc),
		"ceil":  Monadic(math.Ceil),
		"floor": Monadic(math.Floor),
		"round": Variadic(1, 2, func(args []float64) float64 {
			if len(args) == 1 {
				return math.Round(args[0])
			}
			m := args[0]
			return math.Round(args[1]/m) * m
		}),

		"if": Variadic(3, 3, func(args []float64) float64 {
			if truthy(args[0]) {
				return args[1]
			}
			return args[2]
		}),
		"sum": Variadic(1, -1, sum),
		"avg": Variadic(1, -1, func(args []float64) float64 {
			return sum(args) / float64(len(args))
		}),
		"print": Print(nil),

		"pi": Const(Pi),
		"e":  Const(E),
	}
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		// 0, -0, and NaN are their own signs.
		return x
	}
}

func minimum(args []float64) float64 {
	r := args[0]
	for _, x := range args[1:] {
		r = math.Min(r, x)
	}
	return r
}

func maximum(args []float64) float64 {
	r := args[0]
	for _, x := range args[1:] {
		r = math.Max(r, x)
	}
	return r
}

func sum(args []float64) float64 {
	var r float64
	for _, x := range args {
		r += x
	}
	return r
}

// NameError is an error from resolving a name that no namespace defines.
type NameError struct {
	// Name is the name that was missing.
	Name string
	// Args is the number of arguments in the call, or 0 for a variable.
	Args int
}

func (err *NameError) Error() string {
	if err.Args == 0 {
		return "undefined name: " + strconv.Quote(err.Name)
	}
	return "undefined function: " + strconv.Quote(err.Name) + " with " + strconv.Itoa(err.Args) + " arguments"
}

// ArityError is an error from calling a function with an argument count it
// does not accept.
type ArityError struct {
	// Name is the function name.
	Name string
	// Args is the number of arguments given.
	Args int
}

func (err *ArityError) Error() string {
	return "wrong number of arguments to " + strconv.Quote(err.Name) + ": " + strconv.Itoa(err.Args)
}

// InternalError indicates a malformed slab or an index used with the wrong
// slab. It never results from parsing and evaluating an expression through
// the package API alone.
type InternalError struct {
	Msg string
}

func (err *InternalError) Error() string {
	return "fastexpr: internal error: " + err.Msg
}
