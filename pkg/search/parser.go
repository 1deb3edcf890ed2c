package search

import (
	"fmt"
	"strings"
	"unicode"
)

// Parse turns a textual predicate into an expression tree.
//
// Grammar (case-insensitive keywords, whitespace insignificant):
//
//	expr   := orExpr
//	orExpr := andExpr ( "OR" andExpr )*
//	andExpr:= unary ( "AND" unary )*
//	unary  := "NOT" unary | "(" expr ")" | term
//	term   := ("dataElement" | "category" | "obligation") "(" arg ")"
//
// Example: dataElement(income) AND (category(tax) OR NOT obligation(mandatory))
func Parse(input string) (*Expr, error) {
	p := &parser{input: input}
	p.next()

	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected %q after end of expression", p.tok.text)
	}
	return expr, nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type parser struct {
	input string
	pos   int
	tok   token
}

// next advances to the next token.
func (p *parser) next() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}

	start := p.pos
	if p.pos >= len(p.input) {
		p.tok = token{kind: tokEOF, pos: start}
		return
	}

	switch c := p.input[p.pos]; {
	case c == '(':
		p.pos++
		p.tok = token{kind: tokLParen, text: "(", pos: start}
	case c == ')':
		p.pos++
		p.tok = token{kind: tokRParen, text: ")", pos: start}
	case isIdentChar(rune(c)):
		for p.pos < len(p.input) && isIdentChar(rune(p.input[p.pos])) {
			p.pos++
		}
		p.tok = token{kind: tokIdent, text: p.input[start:p.pos], pos: start}
	default:
		p.tok = token{kind: tokIdent, text: string(c), pos: start}
		p.pos++
	}
}

func isIdentChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.'
}

func (p *parser) parseOr() (*Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	children := []*Expr{left}
	for p.tok.kind == tokIdent && strings.EqualFold(p.tok.text, "OR") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}

	if len(children) == 1 {
		return left, nil
	}
	return Or(children...), nil
}

func (p *parser) parseAnd() (*Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	children := []*Expr{left}
	for p.tok.kind == tokIdent && strings.EqualFold(p.tok.text, "AND") {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}

	if len(children) == 1 {
		return left, nil
	}
	return And(children...), nil
}

func (p *parser) parseUnary() (*Expr, error) {
	switch {
	case p.tok.kind == tokIdent && strings.EqualFold(p.tok.text, "NOT"):
		p.next()
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not(child), nil

	case p.tok.kind == tokLParen:
		p.next()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, p.errorf("expected closing parenthesis")
		}
		p.next()
		return expr, nil

	case p.tok.kind == tokIdent:
		return p.parseTerm()

	case p.tok.kind == tokEOF:
		return nil, p.errorf("unexpected end of expression")

	default:
		return nil, p.errorf("unexpected %q", p.tok.text)
	}
}

// parseTerm parses a term of the form kind(arg).
func (p *parser) parseTerm() (*Expr, error) {
	var kind TermKind
	switch {
	case strings.EqualFold(p.tok.text, string(TermElement)):
		kind = TermElement
	case strings.EqualFold(p.tok.text, string(TermCategory)):
		kind = TermCategory
	case strings.EqualFold(p.tok.text, string(TermObligation)):
		kind = TermObligation
	default:
		return nil, p.errorf("unknown predicate %q", p.tok.text)
	}
	p.next()

	if p.tok.kind != tokLParen {
		return nil, p.errorf("expected ( after %s", kind)
	}
	p.next()

	if p.tok.kind != tokIdent {
		return nil, p.errorf("expected argument for %s", kind)
	}
	arg := p.tok.text
	p.next()

	if p.tok.kind != tokRParen {
		return nil, p.errorf("expected ) after %s argument", kind)
	}
	p.next()

	return &Expr{Type: ExprTerm, Term: kind, Arg: arg}, nil
}

func (p *parser) errorf(format string, args ...interface{}) *QueryError {
	return &QueryError{
		Expression: p.input,
		Position:   p.tok.pos,
		Message:    fmt.Sprintf(format, args...),
	}
}
