package fastexpr_test

import (
	"errors"
	"math"
	"testing"

	"github.com/zephyrtronium/fastexpr"
)

func FuzzParse(f *testing.F) {
	f.Add("x")
	f.Add("y")
	f.Add("1+2*3")
	f.Add("-2^-x^2")
	f.Add("f[a, (b)] && !c || d >= 4.7k")
	f.Add("2^(-1)^2")
	f.Add("x + if(y, 1, 2) ^ (!NaN) ^ !((0.5))")
	funcs := fastexpr.Builtins()
	delete(funcs, "print")
	ns := fastexpr.Chain{funcs, fastexpr.MapNamespace{"x": 0.5, "y": -3, "z": 2, "a": 1, "b": 0, "c": 7, "d": -0.25}}
	f.Fuzz(func(t *testing.T, s string) {
		slab := fastexpr.NewSlab()
		a, err := fastexpr.Parse(s, slab)
		if err != nil {
			var ierr fastexpr.InputError
			if !errors.As(err, &ierr) {
				t.Fatalf("%q: error without position: %v", s, err)
			}
			return
		}
		// Rendering must produce something that parses again, unless the
		// extra brackets push it over a limit, and that evaluates the same.
		r := slab.String(a)
		u := fastexpr.NewSlab()
		b, err := fastexpr.Parse(r, u)
		if err != nil {
			var lerr *fastexpr.LimitError
			if !errors.As(err, &lerr) {
				t.Errorf("%q rendered as %q which fails to parse: %v", s, r, err)
			}
			return
		}
		want, err := slab.Eval(a, ns)
		if err != nil {
			return
		}
		got, err := u.Eval(b, ns)
		if err != nil {
			t.Errorf("%q rendered as %q which fails to evaluate: %v", s, r, err)
			return
		}
		if got != want && !(math.IsNaN(got) && math.IsNaN(want)) {
			t.Errorf("%q = %g but its rendering %q = %g", s, want, r, got)
		}
	})
}
