package cparse

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// EvalConstExpr evaluates a C integer constant expression as found in
// enumerator values, array sizes, and simple macro definitions. env maps
// identifiers (earlier enumerators, configured defines) to values.
//
// Supported: decimal/hex/octal/binary literals with integer suffixes,
// character literals, unary + - ~, binary << >> | & ^ + - * / %, and
// parentheses. Anything else fails with an error.
func EvalConstExpr(expr string, env map[string]int64) (int64, error) {
	p := &exprParser{input: expr, env: env}
	v, err := p.parseExpr(0)
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("unexpected %q in constant expression", p.input[p.pos:])
	}
	return v, nil
}

type exprParser struct {
	input string
	pos   int
	env   map[string]int64
}

// Binary operators by precedence, low to high. C precedence order is
// preserved for the subset supported here.
var binaryOps = []struct {
	tokens []string
}{
	{tokens: []string{"|"}},
	{tokens: []string{"^"}},
	{tokens: []string{"&"}},
	{tokens: []string{"<<", ">>"}},
	{tokens: []string{"+", "-"}},
	{tokens: []string{"*", "/", "%"}},
}

func (p *exprParser) parseExpr(level int) (int64, error) {
	if level == len(binaryOps) {
		return p.parseUnary()
	}

	left, err := p.parseExpr(level + 1)
	if err != nil {
		return 0, err
	}

	for {
		op := p.peekOp(binaryOps[level].tokens)
		if op == "" {
			return left, nil
		}
		p.pos += len(op)

		right, err := p.parseExpr(level + 1)
		if err != nil {
			return 0, err
		}

		switch op {
		case "|":
			left |= right
		case "^":
			left ^= right
		case "&":
			left &= right
		case "<<":
			left <<= uint64(right)
		case ">>":
			left >>= uint64(right)
		case "+":
			left += right
		case "-":
			left -= right
		case "*":
			left *= right
		case "/":
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		case "%":
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left %= right
		}
	}
}

func (p *exprParser) parseUnary() (int64, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0, fmt.Errorf("unexpected end of constant expression")
	}

	switch p.input[p.pos] {
	case '+':
		p.pos++
		return p.parseUnary()
	case '-':
		p.pos++
		v, err := p.parseUnary()
		return -v, err
	case '~':
		p.pos++
		v, err := p.parseUnary()
		return ^v, err
	case '(':
		p.pos++
		v, err := p.parseExpr(0)
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	case '\'':
		return p.parseCharLiteral()
	}

	ch := rune(p.input[p.pos])
	if unicode.IsDigit(ch) {
		return p.parseNumber()
	}
	if unicode.IsLetter(ch) || ch == '_' {
		return p.parseIdentifier()
	}
	return 0, fmt.Errorf("unexpected %q in constant expression", p.input[p.pos:])
}

func (p *exprParser) parseNumber() (int64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if unicode.IsLetter(rune(ch)) || unicode.IsDigit(rune(ch)) {
			p.pos++
			continue
		}
		break
	}
	text := p.input[start:p.pos]
	// Strip integer suffixes (u, l, ll, in any case or combination).
	trimmed := strings.TrimRight(text, "uUlL")
	if trimmed == "" {
		return 0, fmt.Errorf("malformed number %q", text)
	}
	v, err := strconv.ParseInt(trimmed, 0, 64)
	if err != nil {
		// Large unsigned constants such as 0xFFFFFFFFFFFFFFFF.
		u, uerr := strconv.ParseUint(trimmed, 0, 64)
		if uerr != nil {
			return 0, fmt.Errorf("malformed number %q", text)
		}
		return int64(u), nil
	}
	return v, nil
}

func (p *exprParser) parseCharLiteral() (int64, error) {
	rest := p.input[p.pos:]
	unquoted, _, tail, err := strconv.UnquoteChar(rest[1:], '\'')
	if err != nil || len(tail) == 0 || tail[0] != '\'' {
		return 0, fmt.Errorf("malformed character literal")
	}
	p.pos = len(p.input) - len(tail) + 1
	return int64(unquoted), nil
}

func (p *exprParser) parseIdentifier() (int64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		ch := rune(p.input[p.pos])
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			p.pos++
			continue
		}
		break
	}
	name := p.input[start:p.pos]
	if v, ok := p.env[name]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("unknown identifier %q", name)
}

// peekOp returns the longest matching operator token at the current
// position, or "". Single-char tokens do not match when they prefix a
// longer operator (< vs <<).
func (p *exprParser) peekOp(tokens []string) string {
	p.skipSpace()
	best := ""
	for _, tok := range tokens {
		if strings.HasPrefix(p.input[p.pos:], tok) && len(tok) > len(best) {
			best = tok
		}
	}
	return best
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t' || p.input[p.pos] == '\n' || p.input[p.pos] == '\r') {
		p.pos++
	}
}
