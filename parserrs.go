package fastexpr

import "strconv"

// UnexpectedTokenError is an error indicating a token where the parser
// expected something else, such as input following a complete expression or
// a separator outside a call. It implements InputError.
type UnexpectedTokenError struct {
	// Col is the position of the token.
	Col int
	// Text is the token.
	Text string
	// Want describes what the parser expected instead.
	Want string
}

func (err *UnexpectedTokenError) Error() string {
	msg := "unexpected " + strconv.Quote(err.Text)
	if err.Want != "" {
		msg += ", expected " + err.Want
	}
	return errpos(err.Col, msg)
}

func (err *UnexpectedTokenError) Pos() int {
	return err.Col
}

// BracketError is an error indicating mismatched brackets in the
// input. It implements InputError.
type BracketError struct {
	// Col is the position of the bracket or end of input.
	Col int
	// Left is the opening bracket.
	Left string
	// Right is the mismatched closing bracket.
	Right string
}

func (err *BracketError) Error() string {
	if err.Left == "" {
		return errpos(err.Col, "close bracket "+err.Right+" with no open bracket")
	}
	if err.Right == "" {
		return errpos(err.Col, "open bracket "+err.Left+" with no close bracket")
	}
	return errpos(err.Col, "mismatched bracket: "+err.Left+"expr"+err.Right)
}

func (err *BracketError) Pos() int {
	return err.Col
}

// MissingOperandError is an error indicating an empty subexpression, such as
// an operator with nothing on its right, empty brackets, or an empty call
// argument. It implements InputError.
type MissingOperandError struct {
	// Col is the position of the token that ended the subexpression.
	Col int
	// After is the operator or bracket preceding the missing operand, or the
	// empty string at the start of the input.
	After string
	// End is the token that ended the subexpression, or the empty string at
	// the end of the input.
	End string
}

func (err *MissingOperandError) Error() string {
	if err.After == "" {
		if err.End == "" {
			return errpos(err.Col, "no expression")
		}
		return errpos(err.Col, "no expression up to "+strconv.Quote(err.End))
	}
	if err.End == "" {
		return errpos(err.Col, "missing operand after "+strconv.Quote(err.After)+" at end")
	}
	return errpos(err.Col, "missing operand between "+strconv.Quote(err.After)+" and "+strconv.Quote(err.End))
}

func (err *MissingOperandError) Pos() int {
	return err.Col
}

// LimitKind identifies a resource limit.
type LimitKind int8

const (
	LimitNone LimitKind = iota
	// LimitDepth is the nesting depth limit.
	LimitDepth
	// LimitTokens is the token count limit.
	LimitTokens
	// LimitLength is the input length limit.
	LimitLength
	// LimitArgs is the per-call argument count limit.
	LimitArgs
)

func (k LimitKind) String() string {
	switch k {
	case LimitNone:
		return "none"
	case LimitDepth:
		return "depth"
	case LimitTokens:
		return "tokens"
	case LimitLength:
		return "length"
	case LimitArgs:
		return "arguments"
	default:
		return "LimitKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// LimitError is an error indicating that an expression exceeded a resource
// limit. It implements InputError.
type LimitError struct {
	// Limit is the limit that was exceeded.
	Limit LimitKind
	// Max is the configured value of the limit.
	Max int
	// Col is the position at which the limit was exceeded. It is 0 when the
	// limit was exceeded during evaluation.
	Col int
}

func (err *LimitError) Error() string {
	return errpos(err.Col, "expression exceeds "+err.Limit.String()+" limit of "+strconv.Itoa(err.Max))
}

func (err *LimitError) Pos() int {
	return err.Col
}

// errpos is a shortcut to create an error message with a position.
func errpos(pos int, msg string) string {
	return strconv.Itoa(pos) + ": " + msg
}

// InputError is an error with position information. Every error resulting from
// invalid input implements InputError.
type InputError interface {
	error
	// Pos returns the position of the error as the number of runes up to and
	// including the start of the token that caused the error.
	Pos() int
}

var (
	_ InputError = (*UnexpectedTokenError)(nil)
	_ InputError = (*BracketError)(nil)
	_ InputError = (*MissingOperandError)(nil)
	_ InputError = (*LimitError)(nil)
	_ InputError = (*LexError)(nil)
)
