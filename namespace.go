package fastexpr

import (
	"errors"
	"math"
	"strings"
	"sync"
)

// Namespace resolves the names in an expression. A resolution with no
// arguments is a variable lookup; otherwise it is a function call. A name
// which the namespace does not define should fail with a *NameError.
//
// args belongs to the evaluator. Resolve must not modify or retain it.
type Namespace interface {
	Resolve(name string, args []float64) (float64, error)
}

// NamespaceFunc adapts a function to a Namespace.
type NamespaceFunc func(name string, args []float64) (float64, error)

// Resolve calls f.
func (f NamespaceFunc) Resolve(name string, args []float64) (float64, error) {
	return f(name, args)
}

// EmptyNamespace resolves nothing.
type EmptyNamespace struct{}

// Resolve fails with a *NameError.
func (EmptyNamespace) Resolve(name string, args []float64) (float64, error) {
	return 0, &NameError{Name: name, Args: len(args)}
}

// MapNamespace is a fixed set of variables. It defines no functions.
type MapNamespace map[string]float64

// Resolve looks up a variable.
func (m MapNamespace) Resolve(name string, args []float64) (float64, error) {
	if len(args) != 0 {
		return 0, &NameError{Name: name, Args: len(args)}
	}
	x, ok := m[name]
	if !ok {
		return 0, &NameError{Name: name}
	}
	return x, nil
}

// Funcs is a set of named functions. Niladic functions also serve as
// variables.
type Funcs map[string]Func

// Resolve calls a function.
func (m Funcs) Resolve(name string, args []float64) (float64, error) {
	f := m[name]
	if f == nil {
		return 0, &NameError{Name: name, Args: len(args)}
	}
	if !f.CanCall(len(args)) {
		return 0, &ArityError{Name: name, Args: len(args)}
	}
	return f.Call(args)
}

// Chain resolves names through each of its namespaces in order. The first
// success wins. If every namespace fails, the error is the last failure other
// than a *NameError, or a *NameError if every namespace lacked the name.
//
// This differs from propagating the last failure outright. A later namespace
// that simply lacks the name does not replace an earlier failure such as an
// *ArityError or an error from a database, so a fallback namespace cannot
// turn a wrong call into a report of an undefined name.
type Chain []Namespace

// Resolve tries each namespace in order.
func (c Chain) Resolve(name string, args []float64) (float64, error) {
	var err error
	for _, ns := range c {
		x, e := ns.Resolve(name, args)
		if e == nil {
			return x, nil
		}
		var ne *NameError
		if err != nil && errors.As(e, &ne) {
			// A missing name never hides a more specific failure.
			continue
		}
		err = e
	}
	if err == nil {
		err = &NameError{Name: name, Args: len(args)}
	}
	return 0, err
}

// Layers is a stack of variable scopes. Later layers shadow earlier ones.
type Layers []MapNamespace

// Resolve looks up a variable from the last layer to the first.
func (l Layers) Resolve(name string, args []float64) (float64, error) {
	if len(args) == 0 {
		for i := len(l) - 1; i >= 0; i-- {
			if x, ok := l[i][name]; ok {
				return x, nil
			}
		}
	}
	return 0, &NameError{Name: name, Args: len(args)}
}

// Push adds a new innermost layer and returns it.
func (l *Layers) Push() MapNamespace {
	m := make(MapNamespace)
	*l = append(*l, m)
	return m
}

// Pop removes the innermost layer.
func (l *Layers) Pop() {
	if len(*l) == 0 {
		return
	}
	(*l)[len(*l)-1] = nil
	*l = (*l)[:len(*l)-1]
}

// ErrExists is returned by Cached.Create for a name that already has a value.
var ErrExists = errors.New("fastexpr: name already exists")

// Cached memoizes the results of another namespace. Each distinct name and
// argument list is resolved at most once until Clear. Failures are not
// cached. A Cached is safe for concurrent use if its underlying namespace is.
type Cached struct {
	ns Namespace
	mu sync.RWMutex
	m  map[string]float64
}

// NewCached creates a namespace which memoizes ns.
func NewCached(ns Namespace) *Cached {
	if ns == nil {
		ns = EmptyNamespace{}
	}
	return &Cached{ns: ns, m: make(map[string]float64)}
}

// cachekey builds the memo key for a resolution. Arguments are encoded by
// their bits so that distinct values never collide.
func cachekey(name string, args []float64) string {
	if len(args) == 0 {
		return name
	}
	var b strings.Builder
	b.Grow(len(name) + 1 + 8*len(args))
	b.WriteString(name)
	b.WriteByte('(')
	for _, x := range args {
		u := math.Float64bits(x)
		for k := 0; k < 8; k++ {
			b.WriteByte(byte(u >> (8 * k)))
		}
	}
	return b.String()
}

// Resolve returns a memoized result or resolves through the underlying
// namespace and memoizes the result.
func (c *Cached) Resolve(name string, args []float64) (float64, error) {
	k := cachekey(name, args)
	c.mu.RLock()
	x, ok := c.m[k]
	c.mu.RUnlock()
	if ok {
		return x, nil
	}
	x, err := c.ns.Resolve(name, args)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.m[k] = x
	c.mu.Unlock()
	return x, nil
}

// Create defines a variable. If the name already has a value, the result is
// ErrExists and the value is unchanged.
func (c *Cached) Create(name string, x float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.m[name]; ok {
		return ErrExists
	}
	c.m[name] = x
	return nil
}

// Set defines or replaces a variable.
func (c *Cached) Set(name string, x float64) {
	c.mu.Lock()
	c.m[name] = x
	c.mu.Unlock()
}

// Clear forgets every memoized result, including those from Create and Set.
func (c *Cached) Clear() {
	c.mu.Lock()
	clear(c.m)
	c.mu.Unlock()
}

// Len returns the number of memoized results.
func (c *Cached) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// BuiltinOrder selects where WithBuiltins places the built-in functions
// relative to another namespace.
type BuiltinOrder int8

const (
	// BuiltinsFirst resolves built-ins before the other namespace, so that
	// the built-in names cannot be redefined.
	BuiltinsFirst BuiltinOrder = iota
	// BuiltinsLast resolves built-ins after the other namespace, so that it
	// may shadow them.
	BuiltinsLast
)

// WithBuiltins composes the default functions with ns. The built-ins are
// shared by every result and cannot be modified through it; use Builtins to
// get a set to change.
func WithBuiltins(ns Namespace, order BuiltinOrder) Namespace {
	var b Namespace = builtinNamespace{}
	if ns == nil {
		return b
	}
	if order == BuiltinsLast {
		return Chain{ns, b}
	}
	return Chain{b, ns}
}

// builtins is the shared built-in set. It must not be modified.
var builtins = Builtins()

// builtinNamespace resolves names in builtins without exposing the map.
type builtinNamespace struct{}

func (builtinNamespace) Resolve(name string, args []float64) (float64, error) {
	return builtins.Resolve(name, args)
}
