package fastexpr

// Compile folds the constant parts of the expression rooted at root in place
// and returns the number of nodes it rewrote. A part is constant when it
// refers to no variables and every call in it names a function in consts
// which accepts the argument count and is not Volatile. The functions in
// consts must be referentially transparent and must be the same functions
// that the namespace resolves those names to at evaluation.
//
// Compile also folds the constant prefix of a left-associative chain, so
// that 1+2+x becomes 3+x, and the constant suffix of a power chain. A chain
// of && or || folds entirely once a constant prefix decides it. A call that
// fails when evaluated is left in place so that evaluation reports the same
// error. Compiling a slab a second time rewrites nothing.
//
// Compile must not run concurrently with any evaluation of s.
func Compile(root ExprI, s *Slab, consts Funcs) int {
	if !root.Valid(s) {
		return 0
	}
	c := compiler{s: s, consts: consts}
	c.expr(root.i)
	return c.n
}

// Compile folds the expression rooted at root. See the Compile function.
func (s *Slab) Compile(root ExprI, consts Funcs) int {
	return Compile(root, s, consts)
}

type compiler struct {
	s      *Slab
	consts Funcs
	// n is the number of rewritten nodes.
	n int
}

// konst rewrites value i to the constant x.
func (c *compiler) konst(i uint32, x float64) {
	c.s.vals[i] = value{kind: valueConst, num: x}
	c.n++
}

// expr folds the chain at i and reports whether the whole chain is constant,
// along with its value if so.
func (c *compiler) expr(i uint32) (bool, float64) {
	if int(i) >= len(c.s.exprs) {
		return false, 0
	}
	e := &c.s.exprs[i]
	ok, x := c.val(e.first)
	if len(e.pairs) == 0 {
		return ok, x
	}
	// Fold every operand first so that inner constants fold even when the
	// chain as a whole does not.
	consts := make([]bool, len(e.pairs))
	vals := make([]float64, len(e.pairs))
	for k, p := range e.pairs {
		consts[k], vals[k] = c.val(p.val)
	}
	if e.pairs[0].op == opPow {
		return c.pow(e, ok, x, consts, vals)
	}
	if !ok {
		return false, 0
	}
	k := 0
	for ; k < len(e.pairs); k++ {
		op := e.pairs[k].op
		if op == opAnd && !truthy(x) || op == opOr && truthy(x) {
			// Decided regardless of the rest of the chain.
			k = len(e.pairs)
			break
		}
		if !consts[k] {
			break
		}
		x = binary(op, x, vals[k])
	}
	switch k {
	case 0:
		return false, 0
	case len(e.pairs):
		c.konst(e.first, x)
		e.pairs = nil
		return true, x
	default:
		c.konst(e.first, x)
		e.pairs = e.pairs[k:]
		return false, 0
	}
}

// pow folds a power chain. Since powers associate to the right, the foldable
// part is the constant suffix.
func (c *compiler) pow(e *expr, ok bool, x float64, consts []bool, vals []float64) (bool, float64) {
	k := len(e.pairs)
	for k > 0 && consts[k-1] {
		k--
	}
	if k == len(e.pairs) {
		return false, 0
	}
	r := vals[len(vals)-1]
	for j := len(vals) - 2; j >= k; j-- {
		r = binary(opPow, vals[j], r)
	}
	if k == 0 && ok {
		r = binary(opPow, x, r)
		c.konst(e.first, r)
		e.pairs = nil
		return true, r
	}
	if k < len(e.pairs)-1 {
		// Collapse the suffix into its first operand.
		c.konst(e.pairs[k].val, r)
		e.pairs = e.pairs[:k+1]
	}
	return false, 0
}

// val folds value i and reports whether it is constant, along with its value
// if so.
func (c *compiler) val(i uint32) (bool, float64) {
	if int(i) >= len(c.s.vals) {
		return false, 0
	}
	v := &c.s.vals[i]
	switch v.kind {
	case valueConst:
		return true, v.num
	case valueUnary:
		ok, x := c.val(v.sub)
		if !ok {
			return false, 0
		}
		x = unary(v.op, x)
		c.konst(i, x)
		return true, x
	case valueParen:
		ok, x := c.expr(v.sub)
		if !ok {
			return false, 0
		}
		c.konst(i, x)
		return true, x
	case valueCall:
		return c.call(i, v)
	default:
		return false, 0
	}
}

func (c *compiler) call(i uint32, v *value) (bool, float64) {
	all := true
	args := make([]float64, len(v.args))
	for k, a := range v.args {
		ok, x := c.expr(a)
		all = all && ok
		args[k] = x
	}
	if !all {
		return false, 0
	}
	f := c.consts[v.name]
	if f == nil || !f.CanCall(len(args)) || isvolatile(f) {
		return false, 0
	}
	x, err := f.Call(args)
	if err != nil {
		return false, 0
	}
	c.konst(i, x)
	return true, x
}
