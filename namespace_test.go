package fastexpr_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyrtronium/fastexpr"
)

func TestMapNamespace(t *testing.T) {
	ns := fastexpr.MapNamespace{"x": 1}
	r, err := ns.Resolve("x", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r)

	var nerr *fastexpr.NameError
	_, err = ns.Resolve("y", nil)
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "y", nerr.Name)
	assert.Zero(t, nerr.Args)

	// Variables are not functions.
	_, err = ns.Resolve("x", []float64{1})
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, 1, nerr.Args)
}

func TestFuncsNamespace(t *testing.T) {
	ns := fastexpr.Funcs{"sq": fastexpr.Monadic(func(x float64) float64 { return x * x })}
	r, err := ns.Resolve("sq", []float64{3})
	require.NoError(t, err)
	assert.Equal(t, 9.0, r)

	var aerr *fastexpr.ArityError
	_, err = ns.Resolve("sq", nil)
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "sq", aerr.Name)

	var nerr *fastexpr.NameError
	_, err = ns.Resolve("cube", []float64{3})
	assert.ErrorAs(t, err, &nerr)
}

func TestChain(t *testing.T) {
	a := fastexpr.MapNamespace{"x": 1}
	b := fastexpr.MapNamespace{"x": 2, "y": 3}

	r, err := fastexpr.EvalString("y", fastexpr.Chain{a, b})
	require.NoError(t, err)
	assert.Equal(t, 3.0, r, "missing name should fall through")

	r, err = fastexpr.EvalString("x", fastexpr.Chain{a, b})
	require.NoError(t, err)
	assert.Equal(t, 1.0, r)
	r, err = fastexpr.EvalString("x", fastexpr.Chain{b, a})
	require.NoError(t, err)
	assert.Equal(t, 2.0, r, "order should decide between definitions")

	var nerr *fastexpr.NameError
	_, err = fastexpr.Chain{}.Resolve("x", nil)
	assert.ErrorAs(t, err, &nerr, "empty chain")
	_, err = fastexpr.Chain{a, b}.Resolve("z", nil)
	assert.ErrorAs(t, err, &nerr)
}

func TestChainErrors(t *testing.T) {
	boom := errors.New("boom")
	failing := fastexpr.NamespaceFunc(func(name string, args []float64) (float64, error) {
		return 0, boom
	})
	arity := fastexpr.Funcs{"f": fastexpr.Monadic(func(x float64) float64 { return x })}

	// A missing name never hides a more specific failure.
	_, err := fastexpr.Chain{failing, fastexpr.EmptyNamespace{}}.Resolve("x", nil)
	assert.ErrorIs(t, err, boom)
	_, err = fastexpr.Chain{arity, fastexpr.MapNamespace{}}.Resolve("f", nil)
	var aerr *fastexpr.ArityError
	assert.ErrorAs(t, err, &aerr)
	// Otherwise the last failure wins.
	_, err = fastexpr.Chain{arity, failing}.Resolve("f", nil)
	assert.ErrorIs(t, err, boom)
	// And any success wins.
	r, err := fastexpr.Chain{failing, fastexpr.MapNamespace{"x": 4}}.Resolve("x", nil)
	require.NoError(t, err)
	assert.Equal(t, 4.0, r)
}

func TestLayers(t *testing.T) {
	var l fastexpr.Layers
	outer := l.Push()
	outer["x"] = 1
	outer["y"] = 2
	inner := l.Push()
	inner["x"] = 10

	r, err := fastexpr.EvalString("x + y", l)
	require.NoError(t, err)
	assert.Equal(t, 12.0, r)

	l.Pop()
	r, err = fastexpr.EvalString("x + y", l)
	require.NoError(t, err)
	assert.Equal(t, 3.0, r)

	l.Pop()
	l.Pop()
	_, err = fastexpr.EvalString("x", l)
	var nerr *fastexpr.NameError
	assert.ErrorAs(t, err, &nerr)
}

func TestCached(t *testing.T) {
	calls := map[string]int{}
	var mu sync.Mutex
	under := fastexpr.NamespaceFunc(func(name string, args []float64) (float64, error) {
		mu.Lock()
		defer mu.Unlock()
		calls[name]++
		switch name {
		case "x":
			return 5, nil
		case "f":
			return args[0] * 2, nil
		}
		return 0, &fastexpr.NameError{Name: name, Args: len(args)}
	})
	c := fastexpr.NewCached(under)

	for i := 0; i < 3; i++ {
		r, err := fastexpr.EvalString("x + f(1) + f(2) + f(1)", c)
		require.NoError(t, err)
		assert.Equal(t, 5.0+2+4+2, r)
	}
	assert.Equal(t, 1, calls["x"])
	assert.Equal(t, 2, calls["f"], "one call per distinct argument list")
	assert.Equal(t, 3, c.Len())

	// Failures are not cached.
	for i := 0; i < 2; i++ {
		_, err := c.Resolve("nope", nil)
		require.Error(t, err)
	}
	assert.Equal(t, 2, calls["nope"])

	c.Clear()
	assert.Zero(t, c.Len())
	_, err := c.Resolve("x", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls["x"])
}

func TestCachedCreateSet(t *testing.T) {
	c := fastexpr.NewCached(nil)
	require.NoError(t, c.Create("x", 1))
	assert.ErrorIs(t, c.Create("x", 2), fastexpr.ErrExists)
	r, err := c.Resolve("x", nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r)

	c.Set("x", 3)
	r, err = c.Resolve("x", nil)
	require.NoError(t, err)
	assert.Equal(t, 3.0, r)

	// Arguments distinguish calls from variables.
	var nerr *fastexpr.NameError
	_, err = c.Resolve("x", []float64{1})
	assert.ErrorAs(t, err, &nerr)
}

func TestWithBuiltins(t *testing.T) {
	user := fastexpr.Funcs{"sqrt": fastexpr.Const(-1), "pi": fastexpr.Const(3)}

	first := fastexpr.WithBuiltins(user, fastexpr.BuiltinsFirst)
	r, err := first.Resolve("sqrt", []float64{4})
	require.NoError(t, err)
	assert.Equal(t, 2.0, r)

	last := fastexpr.WithBuiltins(user, fastexpr.BuiltinsLast)
	r, err = last.Resolve("pi", nil)
	require.NoError(t, err)
	assert.Equal(t, 3.0, r)
	r, err = last.Resolve("abs", []float64{-4})
	require.NoError(t, err)
	assert.Equal(t, 4.0, r)

	r, err = fastexpr.WithBuiltins(nil, fastexpr.BuiltinsLast).Resolve("e", nil)
	require.NoError(t, err)
	assert.Equal(t, fastexpr.E, r)
}

func TestWithBuiltinsShared(t *testing.T) {
	ns := fastexpr.WithBuiltins(nil, fastexpr.BuiltinsFirst)
	_, ok := ns.(fastexpr.Funcs)
	assert.False(t, ok, "built-ins should not be exposed as a map")

	mine := fastexpr.Builtins()
	mine["sqrt"] = fastexpr.Const(-1)
	delete(mine, "abs")
	r, err := ns.Resolve("sqrt", []float64{9})
	require.NoError(t, err)
	assert.Equal(t, 3.0, r)
	r, err = fastexpr.WithBuiltins(fastexpr.EmptyNamespace{}, fastexpr.BuiltinsLast).Resolve("abs", []float64{-1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, r)

	var nerr *fastexpr.NameError
	_, err = ns.Resolve("nope", nil)
	assert.ErrorAs(t, err, &nerr)
}

func TestEvalConcurrent(t *testing.T) {
	s := fastexpr.NewSlab()
	a, err := fastexpr.Parse("x > 0 && x^2 + sqrt(y)", s)
	require.NoError(t, err)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(x float64) {
			defer wg.Done()
			ns := fastexpr.WithBuiltins(fastexpr.MapNamespace{"x": x, "y": 16}, fastexpr.BuiltinsLast)
			for k := 0; k < 100; k++ {
				r, err := s.Eval(a, ns)
				assert.NoError(t, err)
				assert.Equal(t, x*x+4, r)
			}
		}(float64(i + 1))
	}
	wg.Wait()
}
