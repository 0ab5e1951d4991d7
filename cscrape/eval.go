package cscrape

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/skdltmxn/cscrape-go/ast"
)

// Value is the result of evaluating a constant expression. Integer
// arithmetic stays integral; any real operand makes the result real.
type Value struct {
	i    int64
	f    float64
	real bool
}

// IntValue returns an integral Value.
func IntValue(i int64) Value { return Value{i: i} }

// RealValue returns a real Value.
func RealValue(f float64) Value { return Value{f: f, real: true} }

// IsReal reports whether the value is a real number.
func (v Value) IsReal() bool { return v.real }

// Int returns the value truncated to an integer.
func (v Value) Int() int64 {
	if v.real {
		return int64(v.f)
	}
	return v.i
}

// Float returns the value as a real number.
func (v Value) Float() float64 {
	if v.real {
		return v.f
	}
	return float64(v.i)
}

func (v Value) String() string {
	if v.real {
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	}
	return strconv.FormatInt(v.i, 10)
}

// Eval evaluates a constant expression: literals, the arithmetic, shift and
// bitwise operators, unary minus and complement, and sizeof. Identifiers and
// any other node kind fail with ErrUnsupportedExpr.
func (e *Engine) Eval(n ast.Node) (Value, error) {
	switch n := n.(type) {
	case *ast.Constant:
		return parseLiteral(n.Value)
	case *ast.BinaryOp:
		l, err := e.Eval(n.Left)
		if err != nil {
			return Value{}, err
		}
		r, err := e.Eval(n.Right)
		if err != nil {
			return Value{}, err
		}
		return binaryOp(n.Op, l, r)
	case *ast.UnaryOp:
		if n.Op == "sizeof" {
			return e.evalSizeof(n.Expr)
		}
		v, err := e.Eval(n.Expr)
		if err != nil {
			return Value{}, err
		}
		return unaryOp(n.Op, v)
	case *ast.Opaque:
		return Value{}, fmt.Errorf("%w: %s '%s'", ErrUnsupportedExpr, n.Form, n.Text)
	case nil:
		return Value{}, fmt.Errorf("%w: missing expression", ErrUnsupportedExpr)
	default:
		return Value{}, fmt.Errorf("%w: %s", ErrUnsupportedExpr, n.Kind())
	}
}

// evalSizeof returns the size of a type operand in whole bytes.
func (e *Engine) evalSizeof(n ast.Node) (Value, error) {
	tn, ok := n.(*ast.Typename)
	if !ok {
		return Value{}, fmt.Errorf("%w: sizeof of a non-type operand", ErrUnsupportedExpr)
	}
	d := classify(tn.Type)
	if d.shape == shapeOther {
		return Value{}, fmt.Errorf("%w: sizeof operand", ErrNotDeclaration)
	}
	r, err := e.resolve(d, nil)
	if err != nil {
		return Value{}, err
	}
	return IntValue((r.size + 7) / 8), nil
}

// parseLiteral converts an integer, real or character literal. Integer
// suffixes are dropped; 0x and leading-zero octal prefixes are honored.
func parseLiteral(s string) (Value, error) {
	if strings.HasPrefix(s, "'") || strings.HasPrefix(s, "L'") {
		return charLiteral(s)
	}

	lit := strings.TrimRight(s, "uUlL")
	if i, err := strconv.ParseInt(cOctal(lit), 0, 64); err == nil {
		return IntValue(i), nil
	}
	if u, err := strconv.ParseUint(cOctal(lit), 0, 64); err == nil {
		return IntValue(int64(u)), nil
	}

	if !strings.HasPrefix(lit, "0x") && !strings.HasPrefix(lit, "0X") {
		lit = strings.TrimRight(s, "fFlL")
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %s", ErrBadConstant, s)
	}
	return RealValue(f), nil
}

// charLiteral converts a single-character literal, including the octal
// escapes Go does not accept ('\0', '\12').
func charLiteral(s string) (Value, error) {
	body := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(s, "L"), "'"), "'")
	if len(body) > 1 && body[0] == '\\' && body[1] >= '0' && body[1] <= '7' {
		n, err := strconv.ParseInt(body[1:], 8, 64)
		if err != nil || len(body) > 4 {
			return Value{}, fmt.Errorf("%w: %s", ErrBadConstant, s)
		}
		return IntValue(n), nil
	}
	r, _, tail, err := strconv.UnquoteChar(body, '\'')
	if err != nil || tail != "" {
		return Value{}, fmt.Errorf("%w: %s", ErrBadConstant, s)
	}
	return IntValue(int64(r)), nil
}

// cOctal rewrites C's "017" octal form to Go's "0o17".
func cOctal(s string) string {
	if len(s) > 1 && s[0] == '0' && s[1] >= '0' && s[1] <= '7' {
		return "0o" + s[1:]
	}
	return s
}

func binaryOp(op string, l, r Value) (Value, error) {
	switch op {
	case "+", "-", "*":
		if l.real || r.real {
			a, b := l.Float(), r.Float()
			switch op {
			case "+":
				return RealValue(a + b), nil
			case "-":
				return RealValue(a - b), nil
			default:
				return RealValue(a * b), nil
			}
		}
		switch op {
		case "+":
			return IntValue(l.i + r.i), nil
		case "-":
			return IntValue(l.i - r.i), nil
		default:
			return IntValue(l.i * r.i), nil
		}

	case "/":
		if r.Float() == 0 {
			return Value{}, fmt.Errorf("%w: division by zero", ErrBadConstant)
		}
		if l.real || r.real {
			return RealValue(l.Float() / r.Float()), nil
		}
		return IntValue(floorDiv(l.i, r.i)), nil

	case "<<", ">>", "&", "|", "^":
		if l.real || r.real {
			return Value{}, fmt.Errorf("%w: operator %s on a real operand", ErrBadConstant, op)
		}
		switch op {
		case "<<", ">>":
			if r.i < 0 || r.i > 63 {
				return Value{}, fmt.Errorf("%w: shift count %d", ErrBadConstant, r.i)
			}
			if op == "<<" {
				return IntValue(l.i << uint(r.i)), nil
			}
			return IntValue(l.i >> uint(r.i)), nil
		case "&":
			return IntValue(l.i & r.i), nil
		case "|":
			return IntValue(l.i | r.i), nil
		default:
			return IntValue(l.i ^ r.i), nil
		}
	}
	return Value{}, fmt.Errorf("%w: operator %s", ErrUnsupportedExpr, op)
}

func unaryOp(op string, v Value) (Value, error) {
	switch op {
	case "+":
		return v, nil
	case "-":
		if v.real {
			return RealValue(-v.f), nil
		}
		return IntValue(-v.i), nil
	case "~":
		if v.real {
			return Value{}, fmt.Errorf("%w: operator ~ on a real operand", ErrBadConstant)
		}
		return IntValue(^v.i), nil
	}
	return Value{}, fmt.Errorf("%w: unary operator %s", ErrUnsupportedExpr, op)
}

// floorDiv rounds toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
