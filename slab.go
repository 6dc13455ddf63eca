package fastexpr

import (
	"strconv"
	"sync/atomic"
)

// Slab is the arena that holds a parsed expression. Nodes reference each
// other by index into the slab's two stores, expressions and values, rather
// than by pointer. A Slab is populated by Parse, optionally rewritten by
// Compile, and afterward is read-only; it is then safe to evaluate from many
// goroutines at once.
type Slab struct {
	exprs []expr
	vals  []value
	// id tags indices so that they cannot be used with a different slab.
	id uint32
	// depth is the nesting limit the slab was parsed with.
	depth int
}

// ExprI is the index of an expression in a Slab. The zero ExprI is not valid
// in any slab.
type ExprI struct {
	slab uint32
	i    uint32
}

// Valid reports whether x was produced by a parse of s and still refers into
// it.
func (x ExprI) Valid(s *Slab) bool {
	return s != nil && x.slab != 0 && x.slab == s.id && int(x.i) < len(s.exprs)
}

func (x ExprI) String() string {
	return "expr#" + strconv.FormatUint(uint64(x.i), 10) + "@" + strconv.FormatUint(uint64(x.slab), 10)
}

var slabids uint32

// newslabid returns a process-unique nonzero slab id.
func newslabid() uint32 {
	for {
		if id := atomic.AddUint32(&slabids, 1); id != 0 {
			return id
		}
	}
}

// NewSlab creates an empty slab.
func NewSlab() *Slab {
	return &Slab{
		exprs: make([]expr, 0, 16),
		vals:  make([]value, 0, 32),
		id:    newslabid(),
		depth: DefaultMaxDepth,
	}
}

// Reset clears the slab for reuse by another parse. Every index previously
// produced for s becomes invalid.
func (s *Slab) Reset() {
	for i := range s.exprs {
		s.exprs[i] = expr{}
	}
	for i := range s.vals {
		s.vals[i] = value{}
	}
	s.exprs = s.exprs[:0]
	s.vals = s.vals[:0]
	s.id = newslabid()
}

// Len returns the number of expression and value nodes in the slab.
func (s *Slab) Len() (exprs, vals int) {
	return len(s.exprs), len(s.vals)
}

// expr is a flattened chain of values joined by operators which all belong
// to the same precedence tier.
type expr struct {
	first uint32
	pairs []pair
}

type pair struct {
	op  binaryOp
	val uint32
}

// value is an atomic operand.
type value struct {
	kind valueKind
	op   unaryOp
	// num is the value of a valueConst.
	num float64
	// name is the variable or function name.
	name string
	// ptr is the storage of a valueUnsafeVar.
	ptr *float64
	// sub is the operand of a valueUnary (a value index) or the expression
	// of a valueParen (an expression index).
	sub uint32
	// args is the argument expressions of a valueCall.
	args []uint32
}

type valueKind uint8

const (
	valueNone valueKind = iota

	valueConst     // num
	valueVar       // resolve name with no arguments
	valueUnsafeVar // load *ptr
	valueCall      // resolve name with args
	valueUnary     // apply op to value sub
	valueParen     // evaluate expr sub
)

type unaryOp uint8

const (
	unaryNone unaryOp = iota
	unaryPos
	unaryNeg
	unaryNot
)

// pushExpr appends an expression and returns its index.
func (s *Slab) pushExpr(e expr) uint32 {
	s.exprs = append(s.exprs, e)
	return uint32(len(s.exprs) - 1)
}

// pushVal appends a value and returns its index.
func (s *Slab) pushVal(v value) uint32 {
	s.vals = append(s.vals, v)
	return uint32(len(s.vals) - 1)
}

// handle tags an expression index with the slab's id.
func (s *Slab) handle(i uint32) ExprI {
	return ExprI{slab: s.id, i: i}
}

// evalLimit is the evaluation depth that corresponds to the parse depth
// limit. Each level of nesting that the parser counts can add at most one
// frame per binary tier plus one for the unary, call, or bracket that caused
// it.
func (s *Slab) evalLimit() int {
	return (s.depth + 1) * (tierCount + 1)
}
