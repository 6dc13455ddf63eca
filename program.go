package fastexpr

import (
	"github.com/google/uuid"
)

// Program is a parsed and optionally folded expression along with the
// namespace composition to evaluate it with. A Program is immutable after
// Prepare, so its Eval is safe for concurrent use.
type Program struct {
	// ID uniquely identifies the program, e.g. for correlating logs and
	// metrics across evaluations.
	ID string
	// Source is the text of the expression.
	Source string

	slab     *Slab
	root     ExprI
	order    BuiltinOrder
	builtins bool
	folded   int
}

// ProgramOption is an option for Prepare.
type ProgramOption interface {
	programOption(*progctx)
}

type progctx struct {
	parse      []ParseOption
	fold       bool
	order      BuiltinOrder
	nobuiltins bool
}

type (
	parseopts    []ParseOption
	foldopt      bool
	orderopt     BuiltinOrder
	nobuiltinopt struct{}
)

// WithParseOptions adds options for parsing the program's source.
func WithParseOptions(opts ...ParseOption) ProgramOption {
	return parseopts(opts)
}

func (o parseopts) programOption(p *progctx) {
	p.parse = append(p.parse, o...)
}

// WithFolding enables or disables constant folding. Folding is disabled by
// default. Calls to built-in functions fold only when built-ins resolve
// first, since otherwise the evaluation namespace may redefine them.
func WithFolding(fold bool) ProgramOption {
	return foldopt(fold)
}

func (o foldopt) programOption(p *progctx) {
	p.fold = bool(o)
}

// WithBuiltinOrder sets where built-in functions resolve relative to the
// evaluation namespace. The default is BuiltinsFirst.
func WithBuiltinOrder(order BuiltinOrder) ProgramOption {
	return orderopt(order)
}

func (o orderopt) programOption(p *progctx) {
	p.order = BuiltinOrder(o)
	p.nobuiltins = false
}

// WithoutBuiltins evaluates the program against the caller's namespace alone.
func WithoutBuiltins() ProgramOption {
	return nobuiltinopt{}
}

func (nobuiltinopt) programOption(p *progctx) {
	p.nobuiltins = true
}

// Prepare parses a program.
func Prepare(src string, opts ...ProgramOption) (*Program, error) {
	var ctx progctx
	for _, opt := range opts {
		opt.programOption(&ctx)
	}
	s := NewSlab()
	root, err := Parse(src, s, ctx.parse...)
	if err != nil {
		return nil, err
	}
	p := Program{
		ID:       uuid.New().String(),
		Source:   src,
		slab:     s,
		root:     root,
		order:    ctx.order,
		builtins: !ctx.nobuiltins,
	}
	if ctx.fold {
		var consts Funcs
		if p.builtins && p.order == BuiltinsFirst {
			consts = builtins
		}
		p.folded = Compile(root, s, consts)
	}
	return &p, nil
}

// Eval evaluates the program with ns, composed with the built-in functions
// unless the program was prepared WithoutBuiltins.
func (p *Program) Eval(ns Namespace) (float64, error) {
	if p.builtins {
		ns = WithBuiltins(ns, p.order)
	}
	return p.slab.Eval(p.root, ns)
}

// Vars returns the sorted names of variables the program refers to.
func (p *Program) Vars() []string {
	return p.slab.Vars(p.root)
}

// Funcs returns the sorted names of functions the program calls.
func (p *Program) Funcs() []string {
	return p.slab.Funcs(p.root)
}

// Folded returns the number of nodes that constant folding rewrote.
func (p *Program) Folded() int {
	return p.folded
}

// String renders the program's expression tree.
func (p *Program) String() string {
	return p.slab.String(p.root)
}
