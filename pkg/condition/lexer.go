package condition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenGt
	tokenGte
	tokenLt
	tokenLte
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
)

func (k tokenKind) comparison() bool {
	return k >= tokenEq && k <= tokenLte
}

func (k tokenKind) ordering() bool {
	return k >= tokenGt && k <= tokenLte
}

func (k tokenKind) literal() bool {
	switch k {
	case tokenIdentifier, tokenString, tokenNumber, tokenBool, tokenNull:
		return true
	default:
		return false
	}
}

func (k tokenKind) String() string {
	switch k {
	case tokenEq:
		return "=="
	case tokenNeq:
		return "!="
	case tokenGt:
		return ">"
	case tokenGte:
		return ">="
	case tokenLt:
		return "<"
	case tokenLte:
		return "<="
	default:
		return "?"
	}
}

type token struct {
	kind tokenKind
	raw  string
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(input); {
		ch := input[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch == '(':
			tokens = append(tokens, token{kind: tokenLParen, raw: "("})
			i++
		case ch == ')':
			tokens = append(tokens, token{kind: tokenRParen, raw: ")"})
			i++
		case strings.HasPrefix(input[i:], "=="):
			tokens = append(tokens, token{kind: tokenEq, raw: "=="})
			i += 2
		case strings.HasPrefix(input[i:], "!="):
			tokens = append(tokens, token{kind: tokenNeq, raw: "!="})
			i += 2
		case strings.HasPrefix(input[i:], ">="):
			tokens = append(tokens, token{kind: tokenGte, raw: ">="})
			i += 2
		case strings.HasPrefix(input[i:], "<="):
			tokens = append(tokens, token{kind: tokenLte, raw: "<="})
			i += 2
		case strings.HasPrefix(input[i:], "&&"):
			tokens = append(tokens, token{kind: tokenAnd, raw: "&&"})
			i += 2
		case strings.HasPrefix(input[i:], "||"):
			tokens = append(tokens, token{kind: tokenOr, raw: "||"})
			i += 2
		case ch == '>':
			tokens = append(tokens, token{kind: tokenGt, raw: ">"})
			i++
		case ch == '<':
			tokens = append(tokens, token{kind: tokenLt, raw: "<"})
			i++
		case ch == '!':
			tokens = append(tokens, token{kind: tokenNot, raw: "!"})
			i++
		case ch == '=':
			return nil, errors.New("condition: unexpected '='; use '=='")
		case ch == '&' || ch == '|':
			return nil, fmt.Errorf("condition: unexpected %q; use %q", string(ch), strings.Repeat(string(ch), 2))
		case ch == '"' || ch == '\'':
			end := closingQuote(input, i)
			if end < 0 {
				return nil, errors.New("condition: unterminated string literal")
			}
			raw := input[i : end+1]
			if ch == '\'' {
				raw = `"` + strings.ReplaceAll(input[i+1:end], `"`, `\"`) + `"`
			}
			value, err := strconv.Unquote(raw)
			if err != nil {
				return nil, fmt.Errorf("condition: invalid string literal: %w", err)
			}
			tokens = append(tokens, token{kind: tokenString, raw: value})
			i = end + 1
		default:
			start := i
			for i < len(input) && !strings.ContainsRune(" \t\n\r()!=&|<>\"'", rune(input[i])) {
				i++
			}
			tokens = append(tokens, wordToken(input[start:i]))
		}
	}
	return tokens, nil
}

func closingQuote(input string, open int) int {
	quote := input[open]
	for i := open + 1; i < len(input); i++ {
		switch input[i] {
		case '\\':
			i++
		case quote:
			return i
		}
	}
	return -1
}

func wordToken(raw string) token {
	switch strings.ToLower(raw) {
	case "true", "false":
		return token{kind: tokenBool, raw: strings.ToLower(raw)}
	case "null", "nil":
		return token{kind: tokenNull, raw: "null"}
	}
	if _, err := strconv.ParseFloat(raw, 64); err == nil {
		return token{kind: tokenNumber, raw: raw}
	}
	return token{kind: tokenIdentifier, raw: raw}
}
