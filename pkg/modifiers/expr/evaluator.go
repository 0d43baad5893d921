package expr

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formfuzz/pkg/domain"
	"github.com/goliatone/go-formfuzz/pkg/model"
	"github.com/goliatone/go-formfuzz/pkg/modifiers"
)

// Evaluator is a small, dependency-free modifier evaluator.
//
// Supported syntax:
// - literal flags: `1`, `0`, `True`, `False`
// - boolean checks: `active`, `parent.is_company`
// - comparisons: `state == 'done'`, `amount > 10`, `count <= 3`
// - membership: `state in ('draft', 'sent')`, `state not in ['done']`
// - composition: `a and not b`, `a or b`, `a && b`, `!a`, parentheses
//
// Identifiers are read from modifiers.Context.Values, except those prefixed
// with `parent.` which are read from modifiers.Context.Parent.
type Evaluator struct{}

func New() *Evaluator { return &Evaluator{} }

func (e *Evaluator) Eval(_, rule string, ctx modifiers.Context) (bool, error) {
	trimmed := strings.TrimSpace(rule)
	if trimmed == "" {
		return false, nil
	}

	tokens, err := tokenize(trimmed)
	if err != nil {
		return false, err
	}
	if len(tokens) == 0 {
		return false, nil
	}

	expr, err := parseExpression(tokens)
	if err != nil {
		return false, err
	}
	return expr.eval(ctx)
}

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenLt
	tokenLte
	tokenGt
	tokenGte
	tokenIn
	tokenNotIn
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenComma
)

type token struct {
	kind tokenKind
	raw  string
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	peekAt := func(offset int) byte {
		if i+offset >= len(input) {
			return 0
		}
		return input[i+offset]
	}

	for i < len(input) {
		ch := input[i]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			i++
			continue
		}

		switch ch {
		case '(':
			i++
			tokens = append(tokens, token{kind: tokenLParen, raw: "("})
			continue
		case ')':
			i++
			tokens = append(tokens, token{kind: tokenRParen, raw: ")"})
			continue
		case '[':
			i++
			tokens = append(tokens, token{kind: tokenLBracket, raw: "["})
			continue
		case ']':
			i++
			tokens = append(tokens, token{kind: tokenRBracket, raw: "]"})
			continue
		case ',':
			i++
			tokens = append(tokens, token{kind: tokenComma, raw: ","})
			continue
		case '!':
			if peekAt(1) == '=' {
				i += 2
				tokens = append(tokens, token{kind: tokenNeq, raw: "!="})
				continue
			}
			i++
			tokens = append(tokens, token{kind: tokenNot, raw: "!"})
			continue
		case '=':
			if peekAt(1) != '=' {
				return nil, fmt.Errorf("modifiers/expr: unexpected '='; use '=='")
			}
			i += 2
			tokens = append(tokens, token{kind: tokenEq, raw: "=="})
			continue
		case '<':
			if peekAt(1) == '=' {
				i += 2
				tokens = append(tokens, token{kind: tokenLte, raw: "<="})
				continue
			}
			if peekAt(1) == '>' {
				i += 2
				tokens = append(tokens, token{kind: tokenNeq, raw: "<>"})
				continue
			}
			i++
			tokens = append(tokens, token{kind: tokenLt, raw: "<"})
			continue
		case '>':
			if peekAt(1) == '=' {
				i += 2
				tokens = append(tokens, token{kind: tokenGte, raw: ">="})
				continue
			}
			i++
			tokens = append(tokens, token{kind: tokenGt, raw: ">"})
			continue
		case '&':
			if peekAt(1) != '&' {
				return nil, fmt.Errorf("modifiers/expr: unexpected '&'; use '&&' or 'and'")
			}
			i += 2
			tokens = append(tokens, token{kind: tokenAnd, raw: "&&"})
			continue
		case '|':
			if peekAt(1) != '|' {
				return nil, fmt.Errorf("modifiers/expr: unexpected '|'; use '||' or 'or'")
			}
			i += 2
			tokens = append(tokens, token{kind: tokenOr, raw: "||"})
			continue
		case '"', '\'':
			quote := ch
			i++
			var sb strings.Builder
			closed := false
			for i < len(input) {
				c := input[i]
				i++
				if c == '\\' && i < len(input) {
					sb.WriteByte(input[i])
					i++
					continue
				}
				if c == quote {
					closed = true
					break
				}
				sb.WriteByte(c)
			}
			if !closed {
				return nil, errors.New("modifiers/expr: unterminated string literal")
			}
			tokens = append(tokens, token{kind: tokenString, raw: sb.String()})
			continue
		}

		// identifier / number / keyword
		start := i
		for i < len(input) && !strings.ContainsRune(" \t\n\r()[],!=<>&|'\"", rune(input[i])) {
			i++
		}
		raw := input[start:i]
		if raw == "" {
			return nil, fmt.Errorf("modifiers/expr: unexpected character %q", ch)
		}
		switch raw {
		case "True", "true":
			tokens = append(tokens, token{kind: tokenBool, raw: "true"})
		case "False", "false":
			tokens = append(tokens, token{kind: tokenBool, raw: "false"})
		case "None", "null", "nil":
			tokens = append(tokens, token{kind: tokenNull, raw: "null"})
		case "and":
			tokens = append(tokens, token{kind: tokenAnd, raw: "and"})
		case "or":
			tokens = append(tokens, token{kind: tokenOr, raw: "or"})
		case "in":
			tokens = append(tokens, token{kind: tokenIn, raw: "in"})
		case "not":
			if n := len(tokens); n > 0 && tokens[n-1].kind == tokenIdentifier && nextWordIs(input[i:], "in") {
				i += len(input[i:]) - len(strings.TrimLeft(input[i:], " \t\n\r")) + len("in")
				tokens = append(tokens, token{kind: tokenNotIn, raw: "not in"})
				continue
			}
			tokens = append(tokens, token{kind: tokenNot, raw: "not"})
		default:
			if looksLikeNumber(raw) {
				tokens = append(tokens, token{kind: tokenNumber, raw: raw})
			} else {
				tokens = append(tokens, token{kind: tokenIdentifier, raw: raw})
			}
		}
	}

	return tokens, nil
}

func nextWordIs(rest, word string) bool {
	trimmed := strings.TrimLeft(rest, " \t\n\r")
	if !strings.HasPrefix(trimmed, word) {
		return false
	}
	after := trimmed[len(word):]
	return after == "" || strings.ContainsRune(" \t\n\r([", rune(after[0]))
}

func looksLikeNumber(raw string) bool {
	if raw == "" {
		return false
	}
	ch := raw[0]
	if (ch == '-' || ch == '+') && len(raw) > 1 {
		ch = raw[1]
	}
	return ch >= '0' && ch <= '9'
}

type exprNode interface {
	eval(ctx modifiers.Context) (bool, error)
}

type exprOr struct {
	left  exprNode
	right exprNode
}

func (n exprOr) eval(ctx modifiers.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	return n.right.eval(ctx)
}

type exprAnd struct {
	left  exprNode
	right exprNode
}

func (n exprAnd) eval(ctx modifiers.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return n.right.eval(ctx)
}

type exprNot struct {
	inner exprNode
}

func (n exprNot) eval(ctx modifiers.Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

type literalKind int

const (
	litString literalKind = iota
	litNumber
	litBool
	litNull
)

type literal struct {
	kind literalKind
	raw  string
}

func (l literal) value() any {
	switch l.kind {
	case litBool:
		return l.raw == "true"
	case litNumber:
		f, err := strconv.ParseFloat(l.raw, 64)
		if err != nil {
			return l.raw
		}
		return f
	case litNull:
		return nil
	default:
		return l.raw
	}
}

type exprLiteral struct {
	literal literal
}

func (n exprLiteral) eval(modifiers.Context) (bool, error) {
	return truthy(n.literal.value()), nil
}

type exprCompare struct {
	identifier string
	op         tokenKind
	literal    literal
}

func (n exprCompare) eval(ctx modifiers.Context) (bool, error) {
	value, _ := lookup(ctx, n.identifier)
	switch n.op {
	case tokenEq:
		return literalEquals(value, n.literal), nil
	case tokenNeq:
		return !literalEquals(value, n.literal), nil
	}

	var order int
	switch n.literal.kind {
	case litNumber:
		want, err := strconv.ParseFloat(n.literal.raw, 64)
		if err != nil {
			return false, fmt.Errorf("modifiers/expr: invalid number literal %q", n.literal.raw)
		}
		got, _ := coerceNumber(value)
		order = cmp.Compare(got, want)
	case litString:
		order = strings.Compare(coerceString(value), n.literal.raw)
	default:
		return false, fmt.Errorf("modifiers/expr: cannot order %s against %s", n.identifier, n.literal.raw)
	}

	switch n.op {
	case tokenLt:
		return order < 0, nil
	case tokenLte:
		return order <= 0, nil
	case tokenGt:
		return order > 0, nil
	default:
		return order >= 0, nil
	}
}

type exprIn struct {
	identifier string
	negate     bool
	literals   []literal
}

func (n exprIn) eval(ctx modifiers.Context) (bool, error) {
	value, _ := lookup(ctx, n.identifier)
	found := false
	for _, lit := range n.literals {
		if literalEquals(value, lit) {
			found = true
			break
		}
	}
	if n.negate {
		return !found, nil
	}
	return found, nil
}

func literalEquals(value any, lit literal) bool {
	switch lit.kind {
	case litNull:
		return !truthy(value)
	case litBool:
		return coerceBool(value) == (lit.raw == "true")
	case litNumber:
		want, err := strconv.ParseFloat(lit.raw, 64)
		if err != nil {
			return false
		}
		got, _ := coerceNumber(value)
		return got == want
	default:
		return coerceString(value) == lit.raw
	}
}

type exprTruthy struct {
	identifier string
}

func (n exprTruthy) eval(ctx modifiers.Context) (bool, error) {
	value, ok := lookup(ctx, n.identifier)
	if !ok {
		return false, nil
	}
	return truthy(value), nil
}

type tokenStream struct {
	tokens []token
	pos    int
}

func parseExpression(tokens []token) (exprNode, error) {
	stream := &tokenStream{tokens: tokens}
	node, err := parseOr(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, fmt.Errorf("modifiers/expr: unexpected token %q", stream.tokens[stream.pos].raw)
	}
	return node, nil
}

func parseOr(stream *tokenStream) (exprNode, error) {
	left, err := parseAnd(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenOr) {
		right, err := parseAnd(stream)
		if err != nil {
			return nil, err
		}
		left = exprOr{left: left, right: right}
	}
	return left, nil
}

func parseAnd(stream *tokenStream) (exprNode, error) {
	left, err := parseUnary(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenAnd) {
		right, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		left = exprAnd{left: left, right: right}
	}
	return left, nil
}

func parseUnary(stream *tokenStream) (exprNode, error) {
	if stream.match(tokenNot) {
		inner, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		return exprNot{inner: inner}, nil
	}
	return parsePrimary(stream)
}

func parsePrimary(stream *tokenStream) (exprNode, error) {
	if stream.match(tokenLParen) {
		inner, err := parseOr(stream)
		if err != nil {
			return nil, err
		}
		if !stream.match(tokenRParen) {
			return nil, errors.New("modifiers/expr: missing closing ')'")
		}
		return inner, nil
	}

	if lit, ok := stream.consumeBareLiteral(); ok {
		return exprLiteral{literal: lit}, nil
	}

	ident, ok := stream.consume(tokenIdentifier)
	if !ok {
		if stream.pos >= len(stream.tokens) {
			return nil, errors.New("modifiers/expr: empty expression")
		}
		return nil, fmt.Errorf("modifiers/expr: expected identifier, got %q", stream.tokens[stream.pos].raw)
	}

	for _, op := range []tokenKind{tokenEq, tokenNeq, tokenLt, tokenLte, tokenGt, tokenGte} {
		if stream.match(op) {
			lit, err := stream.consumeLiteral()
			if err != nil {
				return nil, err
			}
			return exprCompare{identifier: ident.raw, op: op, literal: lit}, nil
		}
	}
	if stream.match(tokenIn) {
		lits, err := stream.consumeLiteralList()
		if err != nil {
			return nil, err
		}
		return exprIn{identifier: ident.raw, literals: lits}, nil
	}
	if stream.match(tokenNotIn) {
		lits, err := stream.consumeLiteralList()
		if err != nil {
			return nil, err
		}
		return exprIn{identifier: ident.raw, negate: true, literals: lits}, nil
	}

	return exprTruthy{identifier: ident.raw}, nil
}

func (s *tokenStream) match(kind tokenKind) bool {
	if s.pos >= len(s.tokens) {
		return false
	}
	if s.tokens[s.pos].kind != kind {
		return false
	}
	s.pos++
	return true
}

func (s *tokenStream) consume(kind tokenKind) (token, bool) {
	if s.pos >= len(s.tokens) {
		return token{}, false
	}
	if s.tokens[s.pos].kind != kind {
		return token{}, false
	}
	out := s.tokens[s.pos]
	s.pos++
	return out, true
}

// consumeBareLiteral accepts a literal standing on its own, such as the
// `1` in invisible="1".
func (s *tokenStream) consumeBareLiteral() (literal, bool) {
	if s.pos >= len(s.tokens) {
		return literal{}, false
	}
	tok := s.tokens[s.pos]
	var lit literal
	switch tok.kind {
	case tokenNumber:
		lit = literal{kind: litNumber, raw: tok.raw}
	case tokenBool:
		lit = literal{kind: litBool, raw: tok.raw}
	case tokenNull:
		lit = literal{kind: litNull, raw: "null"}
	case tokenString:
		lit = literal{kind: litString, raw: tok.raw}
	default:
		return literal{}, false
	}
	s.pos++
	return lit, true
}

func (s *tokenStream) consumeLiteral() (literal, error) {
	if s.pos >= len(s.tokens) {
		return literal{}, errors.New("modifiers/expr: missing literal")
	}
	tok := s.tokens[s.pos]
	s.pos++
	switch tok.kind {
	case tokenString:
		return literal{kind: litString, raw: tok.raw}, nil
	case tokenNumber:
		return literal{kind: litNumber, raw: tok.raw}, nil
	case tokenBool:
		return literal{kind: litBool, raw: tok.raw}, nil
	case tokenNull:
		return literal{kind: litNull, raw: "null"}, nil
	default:
		return literal{}, fmt.Errorf("modifiers/expr: expected literal, got %q", tok.raw)
	}
}

func (s *tokenStream) consumeLiteralList() ([]literal, error) {
	closing := tokenRBracket
	switch {
	case s.match(tokenLBracket):
	case s.match(tokenLParen):
		closing = tokenRParen
	default:
		return nil, errors.New("modifiers/expr: expected list after 'in'")
	}
	var out []literal
	for {
		if s.match(closing) {
			return out, nil
		}
		lit, err := s.consumeLiteral()
		if err != nil {
			return nil, err
		}
		out = append(out, lit)
		if s.match(tokenComma) {
			continue
		}
		if !s.match(closing) {
			return nil, errors.New("modifiers/expr: unterminated list")
		}
		return out, nil
	}
}

func lookup(ctx modifiers.Context, key string) (any, bool) {
	if rest, ok := strings.CutPrefix(strings.TrimSpace(key), "parent."); ok {
		return domain.Lookup(ctx.Parent, rest)
	}
	return domain.Lookup(ctx.Values, key)
}

func truthy(value any) bool {
	if value == nil {
		return false
	}
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case model.ID:
		return v != 0
	case []model.ID:
		return len(v) > 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

func coerceBool(value any) bool {
	if v, ok := value.(string); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return truthy(value)
}

func coerceNumber(value any) (float64, bool) {
	if value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case model.ID:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func coerceString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(value)
	}
}
