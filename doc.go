// Package fastexpr parses and evaluates real-valued algebraic expressions.
//
// The syntax is the usual infix notation with C-style logical operators:
// "x^2 + 3*x - 1", "a < b && b <= c", "!(n % 2)". Brackets ( and [ group
// interchangeably, and either may enclose function arguments: "max[a, b]".
// Exponentiation associates to the right and binds tighter than a prefix
// minus, so "-2^2" is -4. Logical operators return the operand that decided
// them, while comparisons and ! return exactly 1 or 0. Numbers may carry an
// SI suffix, as in "4.7k" or "10u".
//
// Parse produces a flat tree in a Slab, which can be folded with Compile and
// evaluated any number of times against a Namespace that supplies variables
// and functions. Program bundles those steps for the common case.
//
// Parsing and evaluation are bounded by configurable limits on length, token
// count, nesting depth, and call arguments, so that untrusted input cannot
// exhaust memory or stack.
package fastexpr
