package fastexpr

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

type lexToken struct {
	text string
	kind tokenKind
	pos  int
	// num is the value of a tokenNum.
	num float64
}

func (t lexToken) String() string {
	return t.kind.String() + ":" + t.text + "@" + strconv.Itoa(t.pos)
}

type tokenKind int

const (
	tokenNone tokenKind = iota
	// tokenEOF indicates the end of the input.
	tokenEOF
	// tokenNum is a number literal.
	tokenNum
	// tokenIdent is a variable or function name.
	tokenIdent
	// tokenOp is an operator.
	tokenOp
	// tokenOpen is an open bracket, ( or [.
	tokenOpen
	// tokenClose is a close bracket, ) or ].
	tokenClose
	// tokenSep is the function argument separator.
	tokenSep
)

func (k tokenKind) String() string {
	switch k {
	case tokenNone:
		return "None"
	case tokenEOF:
		return "EOF"
	case tokenNum:
		return "Num"
	case tokenIdent:
		return "Ident"
	case tokenOp:
		return "Op"
	case tokenOpen:
		return "Open"
	case tokenClose:
		return "Close"
	case tokenSep:
		return "Sep"
	default:
		return "tokenKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// OpenBrackets and CloseBrackets contain the runes which group expressions.
// The parser checks that a bracket in byte position k in OpenBrackets is
// matched with the bracket in byte position k in CloseBrackets.
const (
	OpenBrackets  = "(["
	CloseBrackets = ")]"
)

func byteidcs(s string) []string {
	v := make([]string, len(s))
	for i, r := range s {
		v[i] = string(r)
	}
	return v
}

var (
	openbrackets  = byteidcs(OpenBrackets)
	closebrackets = byteidcs(CloseBrackets)
)

type lexer struct {
	src string
	off int
	// rune is the 1-based column of the next rune.
	rune int
	p    lexToken
	eof  bool
	// count is the number of tokens scanned, not counting EOF.
	count     int
	maxTokens int
	keywords  bool
}

func lex(src string, keywords bool, maxTokens int) *lexer {
	return &lexer{
		src:       src,
		rune:      1,
		keywords:  keywords,
		maxTokens: maxTokens,
	}
}

// push unreads a token so that it is the next token returned from next. Panics
// if there is already a pushed token.
func (l *lexer) push(tok lexToken) {
	if l.p.kind != tokenNone {
		panic("fastexpr: double push")
	}
	l.p = tok
}

// must scans the pushed token. Panics if there is no pushed token.
func (l *lexer) must() lexToken {
	tok := l.p
	if tok.kind == tokenNone {
		panic("fastexpr: no pushed token")
	}
	l.p = lexToken{}
	return tok
}

// peekRune returns the rune at byte offset k past the current position, or
// utf8.RuneError and 0 at the end of input.
func (l *lexer) peekRune(k int) (rune, int) {
	if l.off+k >= len(l.src) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(l.src[l.off+k:])
}

// advance consumes n bytes containing runes runes.
func (l *lexer) advance(n, runes int) {
	l.off += n
	l.rune += runes
}

// next scans the next token from the input. The first time the end of input
// is reached, the result is an EOF token with a nil error. Subsequent times,
// if the EOF token is not pushed, the result is an empty token with io.EOF.
func (l *lexer) next() (lexToken, error) {
	if l.p.kind != tokenNone {
		tok := l.p
		l.p = lexToken{}
		return tok, nil
	}
	if l.eof {
		return lexToken{}, errEOF
	}
	for {
		r, sz := l.peekRune(0)
		if sz == 0 {
			l.eof = true
			return lexToken{kind: tokenEOF, pos: l.rune}, nil
		}
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			break
		}
		l.advance(sz, 1)
	}
	if l.maxTokens > 0 && l.count >= l.maxTokens {
		return lexToken{pos: l.rune}, &LimitError{Limit: LimitTokens, Max: l.maxTokens, Col: l.rune}
	}
	l.count++
	tok := lexToken{pos: l.rune}
	r, sz := l.peekRune(0)
	switch {
	case '0' <= r && r <= '9', r == '.':
		return l.scanNum(tok)
	case r == '_', 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
		return l.scanIdent(tok)
	case r == ',':
		l.advance(sz, 1)
		tok.text, tok.kind = ",", tokenSep
		return tok, nil
	}
	if k := strings.IndexRune(OpenBrackets, r); k >= 0 {
		l.advance(sz, 1)
		tok.text, tok.kind = openbrackets[k], tokenOpen
		return tok, nil
	}
	if k := strings.IndexRune(CloseBrackets, r); k >= 0 {
		l.advance(sz, 1)
		tok.text, tok.kind = closebrackets[k], tokenClose
		return tok, nil
	}
	r2, _ := l.peekRune(sz)
	switch r {
	case '+', '-', '*', '/', '%', '^':
		l.advance(1, 1)
		tok.text, tok.kind = string(r), tokenOp
		return tok, nil
	case '<', '>', '!':
		if r2 == '=' {
			l.advance(2, 2)
			tok.text, tok.kind = string(r)+"=", tokenOp
			return tok, nil
		}
		l.advance(1, 1)
		tok.text, tok.kind = string(r), tokenOp
		return tok, nil
	case '=', '&', '|':
		if r2 == r {
			l.advance(2, 2)
			tok.text, tok.kind = string(r)+string(r), tokenOp
			return tok, nil
		}
		l.advance(1, 1)
		return tok, l.error(string(r), "operator", tok.pos)
	}
	// Consume the rune so that scanning can continue past it.
	l.advance(sz, 1)
	return tok, l.error(string(r), "", tok.pos)
}

// errEOF is returned by next after the EOF token has been consumed.
var errEOF = errors.New("fastexpr: read past end of input")

// siSuffixes maps number suffix runes to decimal exponents.
var siSuffixes = map[rune]string{
	'k': "3",
	'K': "3",
	'M': "6",
	'G': "9",
	'T': "12",
	'm': "-3",
	'u': "-6",
	'µ': "-6",
	'n': "-9",
	'p': "-12",
}

// scanNum scans a number literal starting at the current position. A number
// is digits with an optional fraction and either an exponent or an SI
// suffix.
func (l *lexer) scanNum(tok lexToken) (lexToken, error) {
	start, col := l.off, l.rune
	var dig, dot, e, le, ed bool
	n := 0
scan:
	for {
		r, sz := l.peekRune(n)
		if sz == 0 {
			break
		}
		switch {
		case '0' <= r && r <= '9':
			if e {
				ed = true
			} else {
				dig = true
			}
			le = false
		case r == '.':
			if dot || e {
				l.advance(n+sz, n+sz)
				return tok, l.error(l.src[start:l.off], "number", col)
			}
			dot = true
		case r == 'e' || r == 'E':
			if e {
				l.advance(n+sz, n+sz)
				return tok, l.error(l.src[start:l.off], "number", col)
			}
			if !dig {
				break scan
			}
			e, le = true, true
		case (r == '+' || r == '-') && le:
			// Sign of the exponent.
			le = false
		default:
			break scan
		}
		n += sz
	}
	text := l.src[start : start+n]
	l.advance(n, n)
	if (!dig && !ed) || (e && !ed) {
		return tok, l.error(text, "number", col)
	}
	lit := text
	if !e {
		r, sz := l.peekRune(0)
		if exp, ok := siSuffixes[r]; ok {
			if nr, _ := l.peekRune(sz); !isIdentRune(nr) {
				l.advance(sz, 1)
				lit = text + "e" + exp
				text = l.src[start:l.off]
			}
		}
	}
	// A letter glued to a number is an error rather than two tokens.
	if r, _ := l.peekRune(0); isIdentRune(r) {
		for {
			r, sz := l.peekRune(0)
			if sz == 0 || !isIdentRune(r) {
				break
			}
			l.advance(sz, 1)
		}
		return tok, l.error(l.src[start:l.off], "number", col)
	}
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return tok, l.error(text, "number", col)
	}
	// ParseFloat yields ±Inf or 0 along with ErrRange, which is what IEEE
	// arithmetic would produce anyway.
	tok.text, tok.kind, tok.num = text, tokenNum, v
	return tok, nil
}

func (l *lexer) scanIdent(tok lexToken) (lexToken, error) {
	start := l.off
	n := 0
	for {
		r, sz := l.peekRune(n)
		if sz == 0 || !isIdentRune(r) {
			break
		}
		n += sz
	}
	l.advance(n, n)
	tok.text = l.src[start:l.off]
	tok.kind = tokenIdent
	if !l.keywords {
		return tok, nil
	}
	// Keywords look like identifiers, so check for them here.
	switch tok.text {
	case "and":
		tok.text, tok.kind = "&&", tokenOp
	case "or":
		tok.text, tok.kind = "||", tokenOp
	case "NaN":
		tok.kind, tok.num = tokenNum, math.NaN()
	case "inf":
		tok.kind, tok.num = tokenNum, math.Inf(1)
	}
	return tok, nil
}

func isIdentRune(r rune) bool {
	return r == '_' || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9'
}

func (l *lexer) error(text, kind string, col int) error {
	return &LexError{
		Text: text,
		Kind: kind,
		Col:  col,
	}
}

// LexError indicates an invalid token. It implements InputError.
type LexError struct {
	// Text is the token the lexer was scanning when the invalid rune was
	// encountered, including the invalid rune.
	Text string
	// Kind is the type of token the lexer was scanning. This may be "number",
	// "operator", or the empty string (if a token kind hadn't been decided).
	Kind string
	// Col is the column of the first rune of the token.
	Col int
}

func (err *LexError) Error() string {
	pos := "column " + strconv.Itoa(err.Col)
	if err.Kind == "" {
		return "invalid token at " + pos + ": " + strconv.Quote(err.Text)
	}
	return "invalid " + err.Kind + " token at " + pos + ": " + strconv.Quote(err.Text)
}

func (err *LexError) Pos() int {
	return err.Col
}
