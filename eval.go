package fastexpr

import (
	"math"
	"strconv"
)

// Eval evaluates the expression rooted at root in s, resolving names through
// ns. A nil ns resolves nothing. Evaluation does not modify s, so it is safe
// to evaluate one slab from many goroutines at once, each with its own
// namespace.
func Eval(root ExprI, s *Slab, ns Namespace) (float64, error) {
	return s.Eval(root, ns)
}

// Eval evaluates the expression rooted at root. See the Eval function.
func (s *Slab) Eval(root ExprI, ns Namespace) (float64, error) {
	if s == nil {
		return 0, &InternalError{Msg: "evaluating nil slab"}
	}
	if !root.Valid(s) {
		return 0, &InternalError{Msg: "index " + root.String() + " does not refer into slab " + strconv.FormatUint(uint64(s.id), 10)}
	}
	if ns == nil {
		ns = EmptyNamespace{}
	}
	ev := evaluator{s: s, ns: ns, limit: s.evalLimit()}
	ev.stack = ev.buf[:0]
	return ev.expr(root.i)
}

// evaluator holds the state of one evaluation.
type evaluator struct {
	s  *Slab
	ns Namespace
	// stack holds evaluated call arguments and power chain operands.
	stack []float64
	buf   [16]float64
	depth int
	limit int
}

func (ev *evaluator) enter() error {
	ev.depth++
	if ev.depth > ev.limit {
		return &LimitError{Limit: LimitDepth, Max: ev.s.depth}
	}
	return nil
}

func (ev *evaluator) expr(i uint32) (float64, error) {
	if int(i) >= len(ev.s.exprs) {
		return 0, &InternalError{Msg: "expression index " + strconv.FormatUint(uint64(i), 10) + " out of range"}
	}
	if err := ev.enter(); err != nil {
		return 0, err
	}
	x, err := ev.chain(&ev.s.exprs[i])
	ev.depth--
	return x, err
}

// chain folds an expression left to right, or right to left for powers.
func (ev *evaluator) chain(e *expr) (float64, error) {
	x, err := ev.val(e.first)
	if err != nil || len(e.pairs) == 0 {
		return x, err
	}
	if e.pairs[0].op == opPow {
		return ev.pow(x, e.pairs)
	}
	for _, p := range e.pairs {
		switch p.op {
		case opAnd:
			if !truthy(x) {
				return x, nil
			}
		case opOr:
			if truthy(x) {
				return x, nil
			}
		}
		y, err := ev.val(p.val)
		if err != nil {
			return 0, err
		}
		x = binary(p.op, x, y)
	}
	return x, nil
}

// pow evaluates a power chain. Operands are evaluated left to right, then
// combined from the right.
func (ev *evaluator) pow(x float64, pairs []pair) (float64, error) {
	base := len(ev.stack)
	ev.stack = append(ev.stack, x)
	for _, p := range pairs {
		y, err := ev.val(p.val)
		if err != nil {
			ev.stack = ev.stack[:base]
			return 0, err
		}
		ev.stack = append(ev.stack, y)
	}
	ops := ev.stack[base:]
	r := ops[len(ops)-1]
	for k := len(ops) - 2; k >= 0; k-- {
		r = math.Pow(ops[k], r)
	}
	ev.stack = ev.stack[:base]
	return r, nil
}

func (ev *evaluator) val(i uint32) (float64, error) {
	if int(i) >= len(ev.s.vals) {
		return 0, &InternalError{Msg: "value index " + strconv.FormatUint(uint64(i), 10) + " out of range"}
	}
	v := &ev.s.vals[i]
	switch v.kind {
	case valueConst:
		return v.num, nil
	case valueUnsafeVar:
		return *v.ptr, nil
	case valueVar:
		return ev.ns.Resolve(v.name, nil)
	case valueCall:
		return ev.call(v)
	case valueUnary:
		if err := ev.enter(); err != nil {
			return 0, err
		}
		x, err := ev.val(v.sub)
		ev.depth--
		if err != nil {
			return 0, err
		}
		return unary(v.op, x), nil
	case valueParen:
		return ev.expr(v.sub)
	default:
		return 0, &InternalError{Msg: "invalid value kind " + strconv.Itoa(int(v.kind))}
	}
}

// call evaluates arguments onto the stack and resolves the call.
func (ev *evaluator) call(v *value) (float64, error) {
	if len(v.args) == 0 {
		return ev.ns.Resolve(v.name, nil)
	}
	if err := ev.enter(); err != nil {
		return 0, err
	}
	base := len(ev.stack)
	for _, a := range v.args {
		x, err := ev.expr(a)
		if err != nil {
			ev.stack = ev.stack[:base]
			return 0, err
		}
		ev.stack = append(ev.stack, x)
	}
	args := ev.stack[base:len(ev.stack):len(ev.stack)]
	x, err := ev.ns.Resolve(v.name, args)
	ev.stack = ev.stack[:base]
	ev.depth--
	return x, err
}

// epsilon is the tolerance for equality and truthiness.
const epsilon = 8 * 0x1p-52

// equal reports whether x and y are within epsilon of each other. NaN is
// equal to nothing, and infinities are equal to themselves.
func equal(x, y float64) bool {
	return x == y || math.Abs(x-y) <= epsilon
}

// truthy reports whether x counts as true. Values within epsilon of zero are
// false. NaN is true.
func truthy(x float64) bool {
	return !(math.Abs(x) <= epsilon)
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func unary(op unaryOp, x float64) float64 {
	switch op {
	case unaryNeg:
		return -x
	case unaryNot:
		return b2f(!truthy(x))
	default:
		return x
	}
}

// binary applies a binary operator without short circuiting.
func binary(op binaryOp, x, y float64) float64 {
	switch op {
	case opOr:
		if truthy(x) {
			return x
		}
		return y
	case opAnd:
		if !truthy(x) {
			return x
		}
		return y
	case opEQ:
		return b2f(equal(x, y))
	case opNE:
		return b2f(!equal(x, y))
	case opLT:
		return b2f(x < y)
	case opLE:
		return b2f(x <= y)
	case opGT:
		return b2f(x > y)
	case opGE:
		return b2f(x >= y)
	case opAdd:
		return x + y
	case opSub:
		return x - y
	case opMul:
		return x * y
	case opDiv:
		return x / y
	case opMod:
		return math.Mod(x, y)
	case opPow:
		return math.Pow(x, y)
	default:
		panic("fastexpr: invalid binary operator " + op.String())
	}
}
