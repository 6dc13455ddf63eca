package fastexpr

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Expr    = Or
// Or      = And { ( '||' | 'or' ) And }
// And     = Cmp { ( '&&' | 'and' ) Cmp }
// Cmp     = Add { ( '<' | '<=' | '>' | '>=' | '==' | '!=' ) Add }
// Add     = Mul { ( '+' | '-' ) Mul }
// Mul     = Unary { ( '*' | '/' | '%' ) Unary }
// Unary   = ( '+' | '-' | '!' ) Unary | Pow
// Pow     = Primary { '^' ( ( '+' | '-' | '!' ) Unary | Primary ) }
// Primary = num | name | name Args | '(' Expr ')' | '[' Expr ']'
// Args    = '(' [ Expr { ',' Expr } ] ')' | '[' [ Expr { ',' Expr } ] ']'

// Parse parses an expression into s, which is reset first, and returns the
// index of the root expression. The given options are applied in order.
func Parse(src string, s *Slab, opts ...ParseOption) (ExprI, error) {
	p := defaultParsectx()
	for _, opt := range opts {
		p = opt.parseOption(p)
	}
	s.Reset()
	s.depth = p.maxDepth
	if len(src) > p.maxLength {
		return ExprI{}, &LimitError{Limit: LimitLength, Max: p.maxLength, Col: 1}
	}
	ps := parser{
		scan: lex(src, !p.nokeywords, p.maxTokens),
		s:    s,
		p:    &p,
	}
	v, err := ps.parsetier(tierOr, "")
	if err != nil {
		return ExprI{}, err
	}
	tok, err := ps.scan.next()
	if err != nil {
		return ExprI{}, err
	}
	if tok.kind != tokenEOF {
		return ExprI{}, itShouldNotHaveEndedThisWay(tok, -1)
	}
	return s.handle(ps.root(v)), nil
}

// parser holds the state of one parse.
type parser struct {
	scan *lexer
	s    *Slab
	p    *parsectx
	// depth is the current nesting depth.
	depth int
	// open is the number of unclosed brackets.
	open int
}

// enter descends one nesting level on behalf of tok.
func (ps *parser) enter(tok lexToken) error {
	ps.depth++
	if ps.depth > ps.p.maxDepth {
		return &LimitError{Limit: LimitDepth, Max: ps.p.maxDepth, Col: tok.pos}
	}
	return nil
}

func (ps *parser) leave() {
	ps.depth--
}

// parsetier parses a chain of operands joined by operators of tier t. after
// is the text of the token preceding the chain, used in error messages.
func (ps *parser) parsetier(t tier, after string) (uint32, error) {
	first, err := ps.operand(t, after)
	if err != nil {
		return 0, err
	}
	var pairs []pair
	for {
		tok, err := ps.scan.next()
		if err != nil {
			return 0, err
		}
		if tok.kind != tokenOp {
			ps.scan.push(tok)
			break
		}
		o := binop(tok.text)
		if o.op == opNone || o.tier != t {
			// Either a looser operator that an outer tier handles or something
			// that is not a binary operator at all.
			ps.scan.push(tok)
			break
		}
		v, err := ps.operand(t, tok.text)
		if err != nil {
			return 0, err
		}
		if pairs == nil {
			pairs = make([]pair, 0, 4)
		}
		pairs = append(pairs, pair{op: o.op, val: v})
	}
	return ps.chain(first, pairs), nil
}

// operand parses one operand of tier t, which is a chain of the next tier.
func (ps *parser) operand(t tier, after string) (uint32, error) {
	if t == tierMul {
		return ps.parseunary(after)
	}
	return ps.parsetier(t+1, after)
}

// chain creates the value for a parsed chain. A chain of one operand is just
// that operand.
func (ps *parser) chain(first uint32, pairs []pair) uint32 {
	if len(pairs) == 0 {
		return first
	}
	e := ps.s.pushExpr(expr{first: first, pairs: pairs})
	return ps.s.pushVal(value{kind: valueParen, sub: e})
}

// root converts a parsed value into an expression index.
func (ps *parser) root(v uint32) uint32 {
	s := ps.s
	if int(v) == len(s.vals)-1 && s.vals[v].kind == valueParen {
		// The value only wraps an expression. Drop it.
		e := s.vals[v].sub
		s.vals[v] = value{}
		s.vals = s.vals[:v]
		return e
	}
	return s.pushExpr(expr{first: v})
}

func unop(text string) unaryOp {
	switch text {
	case "+":
		return unaryPos
	case "-":
		return unaryNeg
	case "!":
		return unaryNot
	default:
		return unaryNone
	}
}

// parseunary parses prefix operators followed by a power chain.
func (ps *parser) parseunary(after string) (uint32, error) {
	tok, err := ps.scan.next()
	if err != nil {
		return 0, err
	}
	if tok.kind == tokenOp {
		if op := unop(tok.text); op != unaryNone {
			return ps.parseprefix(tok, op)
		}
	}
	ps.scan.push(tok)
	return ps.parsepow(after)
}

// parseprefix parses the operand of the unary operator tok.
func (ps *parser) parseprefix(tok lexToken, op unaryOp) (uint32, error) {
	if err := ps.enter(tok); err != nil {
		return 0, err
	}
	v, err := ps.parseunary(tok.text)
	if err != nil {
		return 0, err
	}
	ps.leave()
	return ps.s.pushVal(value{kind: valueUnary, op: op, sub: v}), nil
}

// parsepow parses a right-associative chain of exponentiations.
func (ps *parser) parsepow(after string) (uint32, error) {
	first, err := ps.parseprimary(after)
	if err != nil {
		return 0, err
	}
	var pairs []pair
	for {
		tok, err := ps.scan.next()
		if err != nil {
			return 0, err
		}
		if tok.kind != tokenOp || tok.text != "^" {
			ps.scan.push(tok)
			break
		}
		// The exponent may carry its own prefix operators: 2^-x.
		nt, err := ps.scan.next()
		if err != nil {
			return 0, err
		}
		var v uint32
		if op := unop(nt.text); nt.kind == tokenOp && op != unaryNone {
			v, err = ps.parseprefix(nt, op)
		} else {
			ps.scan.push(nt)
			v, err = ps.parseprimary(tok.text)
		}
		if err != nil {
			return 0, err
		}
		pairs = append(pairs, pair{op: opPow, val: v})
	}
	return ps.chain(first, pairs), nil
}

// parseprimary parses a number, name, call, or bracketed subexpression.
func (ps *parser) parseprimary(after string) (uint32, error) {
	tok, err := ps.scan.next()
	if err != nil {
		return 0, err
	}
	switch tok.kind {
	case tokenNum:
		return ps.s.pushVal(value{kind: valueConst, num: tok.num}), nil
	case tokenIdent:
		nt, err := ps.scan.next()
		if err != nil {
			return 0, err
		}
		if nt.kind == tokenOpen {
			return ps.parsecall(tok, nt)
		}
		ps.scan.push(nt)
		if ptr := ps.p.unsafe[tok.text]; ptr != nil {
			return ps.s.pushVal(value{kind: valueUnsafeVar, name: tok.text, ptr: ptr}), nil
		}
		return ps.s.pushVal(value{kind: valueVar, name: tok.text}), nil
	case tokenOpen:
		match := rightbracket(tok.text)
		if err := ps.enter(tok); err != nil {
			return 0, err
		}
		ps.open++
		v, err := ps.parsetier(tierOr, tok.text)
		if err != nil {
			return 0, err
		}
		end, err := ps.scan.next()
		if err != nil {
			return 0, err
		}
		if end.kind != tokenClose || end.text != closebrackets[match] {
			return 0, itShouldNotHaveEndedThisWay(end, match)
		}
		ps.open--
		ps.leave()
		return v, nil
	case tokenClose:
		if ps.open == 0 {
			return 0, &BracketError{Col: tok.pos, Right: tok.text}
		}
		return 0, &MissingOperandError{Col: tok.pos, After: after, End: tok.text}
	case tokenSep:
		if ps.open == 0 {
			return 0, &UnexpectedTokenError{Col: tok.pos, Text: tok.text, Want: "operand"}
		}
		return 0, &MissingOperandError{Col: tok.pos, After: after, End: tok.text}
	case tokenOp:
		return 0, &MissingOperandError{Col: tok.pos, After: after, End: tok.text}
	case tokenEOF:
		return 0, &MissingOperandError{Col: tok.pos, After: after}
	default:
		panic("fastexpr: unknown token: " + tok.String())
	}
}

// parsecall parses the argument list of a call to name. open is the bracket
// that begins the list.
func (ps *parser) parsecall(name, open lexToken) (uint32, error) {
	match := rightbracket(open.text)
	if err := ps.enter(open); err != nil {
		return 0, err
	}
	ps.open++
	tok, err := ps.scan.next()
	if err != nil {
		return 0, err
	}
	var args []uint32
	if tok.kind == tokenClose {
		// Niladic call.
		if tok.text != closebrackets[match] {
			return 0, &BracketError{Col: tok.pos, Left: open.text, Right: tok.text}
		}
	} else {
		ps.scan.push(tok)
		after := open.text
		for {
			if len(args) >= ps.p.maxArgs {
				return 0, &LimitError{Limit: LimitArgs, Max: ps.p.maxArgs, Col: tok.pos}
			}
			v, err := ps.parsetier(tierOr, after)
			if err != nil {
				return 0, err
			}
			args = append(args, ps.root(v))
			end, err := ps.scan.next()
			if err != nil {
				return 0, err
			}
			if end.kind == tokenSep {
				after = end.text
				tok = end
				continue
			}
			if end.kind != tokenClose || end.text != closebrackets[match] {
				return 0, itShouldNotHaveEndedThisWay(end, match)
			}
			break
		}
	}
	ps.open--
	ps.leave()
	return ps.s.pushVal(value{kind: valueCall, name: name.text, args: args}), nil
}

// rightbracket gets the closing bracket index for an opening bracket.
func rightbracket(left string) int {
	r, sz := utf8.DecodeRuneInString(left)
	k := strings.IndexRune(OpenBrackets, r)
	if k < 0 || sz != len(left) {
		panic("fastexpr: invalid bracket " + strconv.Quote(left))
	}
	return k
}

// leftbracket gets the opening bracket matching right. If right is no bracket,
// then the result is the empty string.
func leftbracket(right int) string {
	if right == -1 {
		return ""
	}
	return openbrackets[right]
}

// itShouldNotHaveEndedThisWay returns an error appropriate for an unexpected
// token at the end of a subexpression. match is the bracket rune index that
// the expression should have matched, or -1 if none.
func itShouldNotHaveEndedThisWay(tok lexToken, match int) error {
	switch tok.kind {
	case tokenEOF:
		// Unexpected EOF implies an open bracket that was not closed.
		return &BracketError{Col: tok.pos, Left: leftbracket(match), Right: ""}
	case tokenClose:
		// A bracket could be the wrong bracket for the opening brace or any
		// bracket at the end of an input.
		return &BracketError{Col: tok.pos, Left: leftbracket(match), Right: tok.text}
	case tokenSep:
		// Separator outside a function call.
		return &UnexpectedTokenError{Col: tok.pos, Text: tok.text, Want: wantAt(match)}
	case tokenNum, tokenIdent, tokenOp, tokenOpen:
		return &UnexpectedTokenError{Col: tok.pos, Text: tok.text, Want: wantAt(match)}
	default:
		panic("fastexpr: it really should not have ended this way: " + tok.String())
	}
}

func wantAt(match int) string {
	if match == -1 {
		return "operator or end of input"
	}
	return "operator or " + closebrackets[match]
}

type binaryOp uint8

const (
	opNone binaryOp = iota

	opOr
	opAnd
	opEQ
	opNE
	opLT
	opLE
	opGT
	opGE
	opAdd
	opSub
	opMul
	opDiv
	opMod
	opPow
)

var opstrs = [...]string{
	opNone: "",
	opOr:   "||",
	opAnd:  "&&",
	opEQ:   "==",
	opNE:   "!=",
	opLT:   "<",
	opLE:   "<=",
	opGT:   ">",
	opGE:   ">=",
	opAdd:  "+",
	opSub:  "-",
	opMul:  "*",
	opDiv:  "/",
	opMod:  "%",
	opPow:  "^",
}

func (op binaryOp) String() string {
	if int(op) < len(opstrs) {
		return opstrs[op]
	}
	return "binaryOp(" + strconv.Itoa(int(op)) + ")"
}

// tier is a precedence level. Higher tiers bind more tightly. Unary operators
// sit between tierMul and tierPow.
type tier int8

const (
	tierOr tier = iota
	tierAnd
	tierCmp
	tierAdd
	tierMul
	tierPow

	// tierCount is the number of binary operator tiers.
	tierCount = int(tierPow) + 1
)

type operator struct {
	// tier is the precedence tier.
	tier tier
	// op is the operation to perform.
	op binaryOp
}

// binop gets a binary operator for a token string. If there is no such binary
// operator, then the result has an op of opNone.
func binop(text string) operator {
	switch text {
	case "||":
		return operator{tierOr, opOr}
	case "&&":
		return operator{tierAnd, opAnd}
	case "==":
		return operator{tierCmp, opEQ}
	case "!=":
		return operator{tierCmp, opNE}
	case "<":
		return operator{tierCmp, opLT}
	case "<=":
		return operator{tierCmp, opLE}
	case ">":
		return operator{tierCmp, opGT}
	case ">=":
		return operator{tierCmp, opGE}
	case "+":
		return operator{tierAdd, opAdd}
	case "-":
		return operator{tierAdd, opSub}
	case "*":
		return operator{tierMul, opMul}
	case "/":
		return operator{tierMul, opDiv}
	case "%":
		return operator{tierMul, opMod}
	case "^":
		return operator{tierPow, opPow}
	default:
		return operator{}
	}
}
