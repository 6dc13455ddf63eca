package fastexpr_test

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyrtronium/fastexpr"
)

func ExampleFunc() {
	nargin := fastexpr.Variadic(0, -1, func(args []float64) float64 {
		return float64(len(args))
	})
	ns := fastexpr.Funcs{"nargin": nargin}

	for _, src := range []string{"nargin", "nargin(100)", "nargin[3, 2, 1]"} {
		p, _ := fastexpr.Prepare(src, fastexpr.WithoutBuiltins())
		r, _ := p.Eval(ns)
		fmt.Println(r, p)
	}

	// Output:
	// 0 nargin
	// 1 nargin(100)
	// 3 nargin(3, 2, 1)
}

func TestAdapters(t *testing.T) {
	cases := []struct {
		name string
		f    fastexpr.Func
		can  []int
		cant []int
	}{
		{"niladic", fastexpr.Niladic(func() float64 { return 1 }), []int{0}, []int{1, 2}},
		{"const", fastexpr.Const(2), []int{0}, []int{1}},
		{"monadic", fastexpr.Monadic(math.Abs), []int{1}, []int{0, 2}},
		{"dyadic", fastexpr.Dyadic(math.Atan2), []int{2}, []int{0, 1, 3}},
		{"variadic", fastexpr.Variadic(1, 3, func([]float64) float64 { return 0 }), []int{1, 2, 3}, []int{0, 4}},
		{"unbounded", fastexpr.Variadic(2, -1, func([]float64) float64 { return 0 }), []int{2, 3, 100}, []int{0, 1}},
		{"volatile", fastexpr.Volatile(fastexpr.Monadic(math.Abs)), []int{1}, []int{0, 2}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			for _, n := range c.can {
				assert.True(t, c.f.CanCall(n), "should accept %d arguments", n)
			}
			for _, n := range c.cant {
				assert.False(t, c.f.CanCall(n), "should reject %d arguments", n)
			}
		})
	}
}

func TestBuiltinsSet(t *testing.T) {
	want := []string{
		"abs", "acos", "acosh", "asin", "asinh", "atan", "atan2", "atanh",
		"avg", "ceil", "cos", "cosh", "e", "exp", "floor", "if", "int", "ln",
		"log", "max", "min", "pi", "print", "round", "sign", "sin", "sinh",
		"sqrt", "sum", "tan", "tanh",
	}
	b := fastexpr.Builtins()
	got := make([]string, 0, len(b))
	for k := range b {
		got = append(got, k)
	}
	sort.Strings(got)
	assert.Equal(t, want, got)

	// Each call returns a fresh map.
	delete(b, "pi")
	_, ok := fastexpr.Builtins()["pi"]
	assert.True(t, ok)
}

func TestConstants(t *testing.T) {
	assert.Equal(t, math.Pi, fastexpr.Pi)
	assert.InDelta(t, math.E, fastexpr.E, 1e-15)
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ns := fastexpr.Funcs{"print": fastexpr.Print(logger)}
	r, err := fastexpr.EvalString("print(1, 2, 3) * 2", ns)
	require.NoError(t, err)
	assert.Equal(t, 6.0, r)
	// Built-ins resolve first, so the default print handled that.
	assert.Empty(t, buf.String())

	p, err := fastexpr.Prepare("print(1, 2, 3) * 2", fastexpr.WithoutBuiltins(), fastexpr.WithFolding(true))
	require.NoError(t, err)
	r, err = p.Eval(ns)
	require.NoError(t, err)
	assert.Equal(t, 6.0, r)
	assert.Contains(t, buf.String(), "msg=print")
	assert.Contains(t, buf.String(), "args=")

	_, err = fastexpr.Print(nil).Call([]float64{1})
	assert.NoError(t, err)
}

func TestPrintDefaultLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))

	// The built-in print uses whichever logger is the default when it runs.
	r, err := fastexpr.EvalString("print(4, 5)", nil)
	require.NoError(t, err)
	assert.Equal(t, 5.0, r)
	assert.Contains(t, buf.String(), "msg=print")
	assert.Contains(t, buf.String(), "args=")

	buf.Reset()
	_, err = fastexpr.Print(nil).Call([]float64{1})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "msg=print")
}
