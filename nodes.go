package fastexpr

import (
	"math"
	"strconv"
	"strings"
)

// String renders the expression rooted at x. Each chain of operators is
// grouped in brackets, alternating between ( and [ with nesting so that the
// structure of the parse is visible. The result parses to an equivalent
// expression.
func (s *Slab) String(x ExprI) string {
	if !x.Valid(s) {
		return "$" + x.String() + "$"
	}
	var b strings.Builder
	s.fmtexpr(&b, x.i, false)
	return b.String()
}

func (s *Slab) fmtexpr(b *strings.Builder, i uint32, square bool) {
	if int(i) >= len(s.exprs) {
		// Invalid nodes use invalid characters.
		b.WriteString("$#" + strconv.FormatUint(uint64(i), 10) + "$")
		return
	}
	e := &s.exprs[i]
	if len(e.pairs) == 0 {
		s.fmtval(b, e.first, square)
		return
	}
	var l, r byte = '(', ')'
	if square {
		l, r = '[', ']'
	}
	b.WriteByte(l)
	s.fmtoperand(b, e.first, square, e.pairs[0].op == opPow)
	for k, p := range e.pairs {
		b.WriteByte(' ')
		b.WriteString(p.op.String())
		b.WriteByte(' ')
		// Only the last exponent may keep a bare prefix operator, since the
		// prefix takes the rest of the power chain as its operand.
		s.fmtoperand(b, p.val, square, p.op == opPow && k+1 < len(e.pairs))
	}
	b.WriteByte(r)
}

// fmtoperand writes an operand of a chain rendered with the given bracket
// style. If pow is set, a prefix operator on the operand is bracketed.
func (s *Slab) fmtoperand(b *strings.Builder, i uint32, square, pow bool) {
	if !pow || int(i) >= len(s.vals) || s.vals[i].kind != valueUnary {
		s.fmtval(b, i, !square)
		return
	}
	var l, r byte = '(', ')'
	if !square {
		l, r = '[', ']'
	}
	b.WriteByte(l)
	s.fmtval(b, i, square)
	b.WriteByte(r)
}

func (s *Slab) fmtval(b *strings.Builder, i uint32, square bool) {
	if int(i) >= len(s.vals) {
		b.WriteString("$" + strconv.FormatUint(uint64(i), 10) + "$")
		return
	}
	v := &s.vals[i]
	switch v.kind {
	case valueConst:
		fmtnum(b, v.num, square)
	case valueVar, valueUnsafeVar:
		b.WriteString(v.name)
	case valueCall:
		b.WriteString(v.name)
		var l, r byte = '(', ')'
		if square {
			l, r = '[', ']'
		}
		b.WriteByte(l)
		for k, a := range v.args {
			if k != 0 {
				b.WriteString(", ")
			}
			s.fmtexpr(b, a, !square)
		}
		b.WriteByte(r)
	case valueUnary:
		switch v.op {
		case unaryPos:
			b.WriteByte('+')
		case unaryNeg:
			b.WriteByte('-')
		case unaryNot:
			b.WriteByte('!')
		}
		s.fmtval(b, v.sub, square)
	case valueParen:
		s.fmtexpr(b, v.sub, square)
	default:
		b.WriteString("$?$")
	}
}

// fmtnum writes a number so that it lexes back to the same value. Negative
// numbers are bracketed because the sign is an operator.
func fmtnum(b *strings.Builder, x float64, square bool) {
	var t string
	switch {
	case math.IsNaN(x):
		t = "NaN"
	case math.IsInf(x, 1):
		t = "inf"
	case math.IsInf(x, -1):
		t = "-inf"
	default:
		t = strconv.FormatFloat(x, 'g', -1, 64)
	}
	if !strings.HasPrefix(t, "-") {
		b.WriteString(t)
		return
	}
	if square {
		b.WriteString("[" + t + "]")
	} else {
		b.WriteString("(" + t + ")")
	}
}

// Vars returns the sorted unique names of variables in the expression rooted
// at x, including unsafe variables.
func (s *Slab) Vars(x ExprI) []string {
	if !x.Valid(s) {
		return nil
	}
	m := make(map[string]bool)
	s.walkexpr(x.i, func(v *value) {
		if v.kind == valueVar || v.kind == valueUnsafeVar {
			m[v.name] = true
		}
	})
	return sortedkeys(m)
}

// Funcs returns the sorted unique names of functions called in the expression
// rooted at x.
func (s *Slab) Funcs(x ExprI) []string {
	if !x.Valid(s) {
		return nil
	}
	m := make(map[string]bool)
	s.walkexpr(x.i, func(v *value) {
		if v.kind == valueCall {
			m[v.name] = true
		}
	})
	return sortedkeys(m)
}

// walkexpr calls f on every value reachable from the expression at i.
func (s *Slab) walkexpr(i uint32, f func(*value)) {
	if int(i) >= len(s.exprs) {
		return
	}
	e := &s.exprs[i]
	s.walkval(e.first, f)
	for _, p := range e.pairs {
		s.walkval(p.val, f)
	}
}

func (s *Slab) walkval(i uint32, f func(*value)) {
	if int(i) >= len(s.vals) {
		return
	}
	v := &s.vals[i]
	f(v)
	switch v.kind {
	case valueCall:
		for _, a := range v.args {
			s.walkexpr(a, f)
		}
	case valueUnary:
		s.walkval(v.sub, f)
	case valueParen:
		s.walkexpr(v.sub, f)
	}
}

func sortedkeys(m map[string]bool) []string {
	r := make([]string, 0, len(m))
	for k := range m {
		r = append(r, k)
	}
	sortstrs(r)
	return r
}

// sortstrs sorts a list of strings. Variable lists are short, so insertion
// sort is fine.
func sortstrs(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
