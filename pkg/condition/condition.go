// Package condition evaluates the small predicate language used by form rules
// such as "status == 2" or "extras.product.subscription_required == 1".
//
// Supported syntax:
//   - truthiness: `featured`
//   - comparisons: `status == "2"`, `plan != instant`, `qty >= 1`
//   - composition: `a == 1 && b != 2`, `a || !b`, parentheses
//
// Identifiers resolve against Context.Values (dotted paths allowed) or, with
// the `extras.` prefix, against Context.Extras. Bare words on the right-hand
// side of a comparison are read as strings.
package condition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Context supplies the data an expression reads.
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// Expr is a compiled expression.
type Expr struct {
	source string
	root   node
}

// Source returns the expression text.
func (e Expr) Source() string {
	return e.source
}

// Compile parses an expression. An empty expression compiles to one that is
// always true.
func Compile(source string) (Expr, error) {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return Expr{source: source}, nil
	}
	tokens, err := tokenize(trimmed)
	if err != nil {
		return Expr{}, err
	}
	stream := &tokenStream{tokens: tokens}
	root, err := parseOr(stream)
	if err != nil {
		return Expr{}, err
	}
	if stream.pos < len(stream.tokens) {
		return Expr{}, fmt.Errorf("condition: unexpected token %q", stream.tokens[stream.pos].raw)
	}
	return Expr{source: source, root: root}, nil
}

// Eval runs the compiled expression against ctx.
func (e Expr) Eval(ctx Context) (bool, error) {
	if e.root == nil {
		return true, nil
	}
	return e.root.eval(ctx)
}

// Eval compiles and evaluates source in one step.
func Eval(source string, ctx Context) (bool, error) {
	expr, err := Compile(source)
	if err != nil {
		return false, err
	}
	return expr.Eval(ctx)
}

type node interface {
	eval(ctx Context) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) eval(ctx Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(ctx)
}

type andNode struct{ left, right node }

func (n andNode) eval(ctx Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(ctx)
}

type notNode struct{ inner node }

func (n notNode) eval(ctx Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

type truthyNode struct{ identifier string }

func (n truthyNode) eval(ctx Context) (bool, error) {
	value, ok := lookup(ctx, n.identifier)
	if !ok {
		return false, nil
	}
	return truthy(value), nil
}

type compareNode struct {
	identifier string
	op         tokenKind
	lit        token
}

func (n compareNode) eval(ctx Context) (bool, error) {
	value, _ := lookup(ctx, n.identifier)

	switch n.lit.kind {
	case tokenNull:
		switch n.op {
		case tokenEq:
			return isEmpty(value), nil
		case tokenNeq:
			return !isEmpty(value), nil
		}
	case tokenBool:
		want := n.lit.raw == "true"
		got := truthy(value)
		switch n.op {
		case tokenEq:
			return got == want, nil
		case tokenNeq:
			return got != want, nil
		}
	case tokenNumber:
		want, err := strconv.ParseFloat(n.lit.raw, 64)
		if err != nil {
			return false, fmt.Errorf("condition: invalid number %q", n.lit.raw)
		}
		got, ok := toNumber(value)
		if !ok {
			// Non-numeric values only ever satisfy inequality.
			return n.op == tokenNeq, nil
		}
		return compareNumbers(got, want, n.op), nil
	case tokenString, tokenIdentifier:
		got := toString(value)
		switch n.op {
		case tokenEq:
			return got == n.lit.raw, nil
		case tokenNeq:
			return got != n.lit.raw, nil
		}
	}
	return false, fmt.Errorf("condition: operator %q not supported for %q", n.op, n.lit.raw)
}

func compareNumbers(got, want float64, op tokenKind) bool {
	switch op {
	case tokenEq:
		return got == want
	case tokenNeq:
		return got != want
	case tokenGt:
		return got > want
	case tokenGte:
		return got >= want
	case tokenLt:
		return got < want
	case tokenLte:
		return got <= want
	default:
		return false
	}
}

type tokenStream struct {
	tokens []token
	pos    int
}

func (s *tokenStream) peek() (token, bool) {
	if s.pos >= len(s.tokens) {
		return token{}, false
	}
	return s.tokens[s.pos], true
}

func (s *tokenStream) match(kind tokenKind) bool {
	tok, ok := s.peek()
	if !ok || tok.kind != kind {
		return false
	}
	s.pos++
	return true
}

func parseOr(s *tokenStream) (node, error) {
	left, err := parseAnd(s)
	if err != nil {
		return nil, err
	}
	for s.match(tokenOr) {
		right, err := parseAnd(s)
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func parseAnd(s *tokenStream) (node, error) {
	left, err := parseUnary(s)
	if err != nil {
		return nil, err
	}
	for s.match(tokenAnd) {
		right, err := parseUnary(s)
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func parseUnary(s *tokenStream) (node, error) {
	if s.match(tokenNot) {
		inner, err := parseUnary(s)
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return parsePrimary(s)
}

func parsePrimary(s *tokenStream) (node, error) {
	if s.match(tokenLParen) {
		inner, err := parseOr(s)
		if err != nil {
			return nil, err
		}
		if !s.match(tokenRParen) {
			return nil, errors.New("condition: missing closing ')'")
		}
		return inner, nil
	}

	ident, ok := s.peek()
	if !ok {
		return nil, errors.New("condition: empty expression")
	}
	if ident.kind != tokenIdentifier {
		return nil, fmt.Errorf("condition: expected identifier, got %q", ident.raw)
	}
	s.pos++

	op, ok := s.peek()
	if !ok || !op.kind.comparison() {
		return truthyNode{identifier: ident.raw}, nil
	}
	s.pos++

	lit, ok := s.peek()
	if !ok {
		return nil, errors.New("condition: missing literal")
	}
	if !lit.kind.literal() {
		return nil, fmt.Errorf("condition: expected literal, got %q", lit.raw)
	}
	s.pos++

	if op.kind.ordering() && lit.kind != tokenNumber {
		return nil, fmt.Errorf("condition: %q needs a number, got %q", op.raw, lit.raw)
	}
	return compareNode{identifier: ident.raw, op: op.kind, lit: lit}, nil
}
