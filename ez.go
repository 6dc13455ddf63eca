package fastexpr

// EvalString is a shortcut to parse and evaluate an expression once. Names
// resolve through the built-in functions first, then through ns.
func EvalString(src string, ns Namespace, opts ...ParseOption) (float64, error) {
	s := NewSlab()
	root, err := Parse(src, s, opts...)
	if err != nil {
		return 0, err
	}
	return s.Eval(root, WithBuiltins(ns, BuiltinsFirst))
}
