package formula

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrEval is returned when a normalized expression cannot be evaluated —
// malformed syntax or a non-finite result such as division by zero.
var ErrEval = errors.New("formula: arithmetic evaluation failed")

// EvalArithmetic evaluates a pure arithmetic expression over + - * / ( )
// with standard precedence and unary sign. It is a closed recursive-descent
// interpreter: it can never execute anything beyond the four operators, by
// construction.
//
// Grammar:
//
//	expr   := term { ("+" | "-") term }
//	term   := factor { ("*" | "/") factor }
//	factor := number | "(" expr ")" | ("+" | "-") factor
func EvalArithmetic(expr string) (decimal.Decimal, error) {
	p := &parser{input: expr}
	v, err := p.parseExpr()
	if err != nil {
		return decimal.Zero, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return decimal.Zero, fmt.Errorf("%w: unexpected %q at offset %d", ErrEval, p.input[p.pos:], p.pos)
	}
	return v, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) parseExpr() (decimal.Decimal, error) {
	v, err := p.parseTerm()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '+':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return decimal.Zero, err
			}
			v = v.Add(rhs)
		case '-':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return decimal.Zero, err
			}
			v = v.Sub(rhs)
		default:
			return v, nil
		}
	}
}

func (p *parser) parseTerm() (decimal.Decimal, error) {
	v, err := p.parseFactor()
	if err != nil {
		return decimal.Zero, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '*':
			p.pos++
			rhs, err := p.parseFactor()
			if err != nil {
				return decimal.Zero, err
			}
			v = v.Mul(rhs)
		case '/':
			p.pos++
			rhs, err := p.parseFactor()
			if err != nil {
				return decimal.Zero, err
			}
			if rhs.IsZero() {
				return decimal.Zero, fmt.Errorf("%w: division by zero", ErrEval)
			}
			v = v.Div(rhs)
		default:
			return v, nil
		}
	}
}

func (p *parser) parseFactor() (decimal.Decimal, error) {
	p.skipSpace()
	switch p.peek() {
	case '+':
		p.pos++
		return p.parseFactor()
	case '-':
		p.pos++
		v, err := p.parseFactor()
		if err != nil {
			return decimal.Zero, err
		}
		return v.Neg(), nil
	case '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return decimal.Zero, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return decimal.Zero, fmt.Errorf("%w: missing closing parenthesis", ErrEval)
		}
		p.pos++
		return v, nil
	}
	return p.parseNumber()
}

func (p *parser) parseNumber() (decimal.Decimal, error) {
	start := p.pos
	for p.pos < len(p.input) && (isDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	if p.pos == start {
		return decimal.Zero, fmt.Errorf("%w: expected number at offset %d", ErrEval, start)
	}
	lit := p.input[start:p.pos]
	if strings.Count(lit, ".") > 1 || lit == "." {
		return decimal.Zero, fmt.Errorf("%w: malformed number %q", ErrEval, lit)
	}
	v, err := decimal.NewFromString(lit)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed number %q", ErrEval, lit)
	}
	return v, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
