package fastexpr

// Default limits applied by Parse. They bound the work and native stack that
// a hostile expression can demand.
const (
	// DefaultMaxDepth is the default maximum nesting of brackets, call
	// arguments, unary operators, and exponents.
	DefaultMaxDepth = 256
	// DefaultMaxTokens is the default maximum number of tokens in an
	// expression.
	DefaultMaxTokens = 4096
	// DefaultMaxLength is the default maximum length of an expression in
	// bytes.
	DefaultMaxLength = 65536
	// DefaultMaxArgs is the default maximum number of arguments to one call.
	DefaultMaxArgs = 64
)

// ParseOption is an option for parsing.
type ParseOption interface {
	parseOption(parsectx) parsectx
}

type (
	limitopt struct {
		kind LimitKind
		n    int
	}
	keywordsopt bool
	unsafeopt   struct {
		name string
		p    *float64
	}
	unsafesopt map[string]*float64
)

// parsectx holds general data for parsing. It is also a ParseOption.
type parsectx struct {
	maxDepth  int
	maxTokens int
	maxLength int
	maxArgs   int
	// nokeywords disables the and, or, NaN, and inf keywords.
	nokeywords bool
	// unsafe is the set of names bound directly to memory.
	unsafe map[string]*float64
	// preset indicates the context came from ParsingPreset.
	preset bool
}

func defaultParsectx() parsectx {
	return parsectx{
		maxDepth:  DefaultMaxDepth,
		maxTokens: DefaultMaxTokens,
		maxLength: DefaultMaxLength,
		maxArgs:   DefaultMaxArgs,
	}
}

// MaxDepth sets the maximum nesting depth. The same limit bounds evaluation
// of the parsed expression. Non-positive n restores the default.
func MaxDepth(n int) ParseOption {
	return limitopt{LimitDepth, n}
}

// MaxTokens sets the maximum number of tokens in an expression. Non-positive
// n restores the default.
func MaxTokens(n int) ParseOption {
	return limitopt{LimitTokens, n}
}

// MaxLength sets the maximum length of an expression in bytes. Non-positive
// n restores the default.
func MaxLength(n int) ParseOption {
	return limitopt{LimitLength, n}
}

// MaxArgs sets the maximum number of arguments in one function call.
// Non-positive n restores the default.
func MaxArgs(n int) ParseOption {
	return limitopt{LimitArgs, n}
}

func (o limitopt) parseOption(p parsectx) parsectx {
	d := defaultParsectx()
	switch o.kind {
	case LimitDepth:
		p.maxDepth = o.n
		if o.n <= 0 {
			p.maxDepth = d.maxDepth
		}
	case LimitTokens:
		p.maxTokens = o.n
		if o.n <= 0 {
			p.maxTokens = d.maxTokens
		}
	case LimitLength:
		p.maxLength = o.n
		if o.n <= 0 {
			p.maxLength = d.maxLength
		}
	case LimitArgs:
		p.maxArgs = o.n
		if o.n <= 0 {
			p.maxArgs = d.maxArgs
		}
	default:
		panic("fastexpr: unknown limit " + o.kind.String())
	}
	return p
}

// Keywords enables or disables the keyword aliases "and" for &&, "or" for ||,
// "NaN", and "inf". They are enabled by default. When disabled, they are
// parsed as ordinary names.
func Keywords(enable bool) ParseOption {
	return keywordsopt(enable)
}

func (o keywordsopt) parseOption(p parsectx) parsectx {
	p.nokeywords = !bool(o)
	return p
}

// UnsafeVar binds a variable name directly to memory. Evaluating the name
// loads *ptr without consulting the namespace, which is the fastest way to
// feed changing inputs to an expression.
//
// The caller must keep ptr valid for as long as the slab is evaluated and
// must not write *ptr while any evaluation may be reading it. Evaluating
// concurrently with writes is a data race.
func UnsafeVar(name string, ptr *float64) ParseOption {
	return unsafeopt{name, ptr}
}

// UnsafeVars binds several variable names directly to memory. See UnsafeVar
// for the caller's obligations.
func UnsafeVars(vars map[string]*float64) ParseOption {
	return unsafesopt(vars)
}

func (o unsafeopt) parseOption(p parsectx) parsectx {
	p.unsafe = cloneunsafe(p.unsafe, 1)
	if o.p == nil {
		delete(p.unsafe, o.name)
		return p
	}
	p.unsafe[o.name] = o.p
	return p
}

func (o unsafesopt) parseOption(p parsectx) parsectx {
	p.unsafe = cloneunsafe(p.unsafe, len(o))
	for k, v := range o {
		if v == nil {
			delete(p.unsafe, k)
			continue
		}
		p.unsafe[k] = v
	}
	return p
}

// cloneunsafe copies the unsafe variable set so that options never modify a
// map shared with a preset.
func cloneunsafe(m map[string]*float64, extra int) map[string]*float64 {
	r := make(map[string]*float64, len(m)+extra)
	for k, v := range m {
		r[k] = v
	}
	return r
}

// ParsingPreset creates a parsing preset that may be more efficient when using
// the same non-default parsing options for many calls to Parse. A preset
// panics when it would change any option from the default, but it is safe to
// apply other options after a preset.
func ParsingPreset(opts ...ParseOption) ParseOption {
	p := defaultParsectx()
	for _, opt := range opts {
		p = opt.parseOption(p)
	}
	p.preset = true
	return &p
}

func (o *parsectx) parseOption(p parsectx) parsectx {
	d := defaultParsectx()
	if p.maxDepth != d.maxDepth || p.maxTokens != d.maxTokens || p.maxLength != d.maxLength ||
		p.maxArgs != d.maxArgs || p.nokeywords || p.unsafe != nil || p.preset {
		panic("fastexpr: preset applied to non-default parse config")
	}
	return *o
}
