package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokenLBracket tokenKind = iota
	tokenRBracket
	tokenLParen
	tokenRParen
	tokenComma
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenIdentifier
)

type token struct {
	kind tokenKind
	raw  string
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		ch := input[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch == '[':
			tokens = append(tokens, token{kind: tokenLBracket, raw: "["})
			i++
		case ch == ']':
			tokens = append(tokens, token{kind: tokenRBracket, raw: "]"})
			i++
		case ch == '(':
			tokens = append(tokens, token{kind: tokenLParen, raw: "("})
			i++
		case ch == ')':
			tokens = append(tokens, token{kind: tokenRParen, raw: ")"})
			i++
		case ch == ',':
			tokens = append(tokens, token{kind: tokenComma, raw: ","})
			i++
		case ch == '"' || ch == '\'':
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
				return nil, errors.New("domain: unterminated string literal")
			}
			tokens = append(tokens, token{kind: tokenString, raw: sb.String()})
		default:
			start := i
			for i < len(input) && !strings.ContainsRune(" \t\n\r[](),'\"", rune(input[i])) {
				i++
			}
			raw := input[start:i]
			switch raw {
			case "True", "true":
				tokens = append(tokens, token{kind: tokenBool, raw: "true"})
			case "False", "false":
				tokens = append(tokens, token{kind: tokenBool, raw: "false"})
			case "None", "null":
				tokens = append(tokens, token{kind: tokenNull, raw: "null"})
			default:
				if looksLikeNumber(raw) {
					tokens = append(tokens, token{kind: tokenNumber, raw: raw})
				} else {
					tokens = append(tokens, token{kind: tokenIdentifier, raw: raw})
				}
			}
		}
	}
	return tokens, nil
}

func looksLikeNumber(raw string) bool {
	if raw == "" {
		return false
	}
	ch := raw[0]
	if ch == '-' || ch == '+' {
		if len(raw) == 1 {
			return false
		}
		ch = raw[1]
	}
	return ch >= '0' && ch <= '9'
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

func (s *tokenStream) expect(kind tokenKind, what string) (token, error) {
	tok, ok := s.peek()
	if !ok {
		return token{}, fmt.Errorf("domain: expected %s, got end of input", what)
	}
	if tok.kind != kind {
		return token{}, fmt.Errorf("domain: expected %s, got %q", what, tok.raw)
	}
	s.pos++
	return tok, nil
}

// Parse reads a domain literal such as
//
//	['|', ('state', '=', 'draft'), ('partner_id', '=', parent.partner_id)]
//
// An empty or blank source yields the empty domain, which matches everything.
func Parse(src string) (Domain, error) {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return Domain{}, nil
	}
	tokens, err := tokenize(trimmed)
	if err != nil {
		return Domain{}, err
	}
	stream := &tokenStream{tokens: tokens}
	closeKind := tokenRBracket
	if !stream.match(tokenLBracket) {
		if !stream.match(tokenLParen) {
			return Domain{}, errors.New("domain: expected '[' at start of domain")
		}
		closeKind = tokenRParen
	}

	var items []Item
	for {
		if stream.match(closeKind) {
			break
		}
		item, err := parseItem(stream)
		if err != nil {
			return Domain{}, err
		}
		items = append(items, item)
		if stream.match(tokenComma) {
			continue
		}
		if !stream.match(closeKind) {
			tok, ok := stream.peek()
			if !ok {
				return Domain{}, errors.New("domain: missing closing bracket")
			}
			return Domain{}, fmt.Errorf("domain: unexpected token %q", tok.raw)
		}
		break
	}
	if tok, ok := stream.peek(); ok {
		return Domain{}, fmt.Errorf("domain: unexpected trailing token %q", tok.raw)
	}

	d := Domain{Items: items}
	if err := d.validate(); err != nil {
		return Domain{}, err
	}
	return d, nil
}

// MustParse panics when src is not a valid domain. Intended for fixtures.
func MustParse(src string) Domain {
	d, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return d
}

func parseItem(stream *tokenStream) (Item, error) {
	tok, ok := stream.peek()
	if !ok {
		return Item{}, errors.New("domain: unexpected end of input")
	}
	if tok.kind == tokenString {
		stream.pos++
		switch Logic(tok.raw) {
		case And, Or, Not:
			return Item{Logic: Logic(tok.raw)}, nil
		default:
			return Item{}, fmt.Errorf("domain: unknown logical operator %q", tok.raw)
		}
	}
	if !stream.match(tokenLParen) && !stream.match(tokenLBracket) {
		return Item{}, fmt.Errorf("domain: expected term, got %q", tok.raw)
	}

	field, err := stream.expect(tokenString, "field name")
	if err != nil {
		return Item{}, err
	}
	if _, err := stream.expect(tokenComma, "','"); err != nil {
		return Item{}, err
	}
	opTok, err := stream.expect(tokenString, "operator")
	if err != nil {
		return Item{}, err
	}
	op, err := parseOperator(opTok.raw)
	if err != nil {
		return Item{}, err
	}
	if _, err := stream.expect(tokenComma, "','"); err != nil {
		return Item{}, err
	}
	value, err := parseOperand(stream)
	if err != nil {
		return Item{}, err
	}
	if !stream.match(tokenRParen) && !stream.match(tokenRBracket) {
		return Item{}, errors.New("domain: missing ')' after term")
	}
	return Item{Term: &Term{Field: field.raw, Operator: op, Value: value}}, nil
}

func parseOperand(stream *tokenStream) (Operand, error) {
	tok, ok := stream.peek()
	if !ok {
		return Operand{}, errors.New("domain: missing operand")
	}
	switch tok.kind {
	case tokenLBracket, tokenLParen:
		stream.pos++
		closeKind := tokenRBracket
		if tok.kind == tokenLParen {
			closeKind = tokenRParen
		}
		var list []Operand
		for {
			if stream.match(closeKind) {
				return Operand{List: list, IsList: true}, nil
			}
			elem, err := parseOperand(stream)
			if err != nil {
				return Operand{}, err
			}
			list = append(list, elem)
			if stream.match(tokenComma) {
				continue
			}
			if !stream.match(closeKind) {
				return Operand{}, errors.New("domain: unterminated list operand")
			}
			return Operand{List: list, IsList: true}, nil
		}
	case tokenString:
		stream.pos++
		return Operand{Value: tok.raw}, nil
	case tokenNumber:
		stream.pos++
		if n, err := strconv.ParseInt(tok.raw, 10, 64); err == nil {
			return Operand{Value: n}, nil
		}
		f, err := strconv.ParseFloat(tok.raw, 64)
		if err != nil {
			return Operand{}, fmt.Errorf("domain: invalid number literal %q", tok.raw)
		}
		return Operand{Value: f}, nil
	case tokenBool:
		stream.pos++
		return Operand{Value: tok.raw == "true"}, nil
	case tokenNull:
		stream.pos++
		return Operand{}, nil
	case tokenIdentifier:
		stream.pos++
		return Operand{Ref: tok.raw}, nil
	default:
		return Operand{}, fmt.Errorf("domain: unexpected operand %q", tok.raw)
	}
}
