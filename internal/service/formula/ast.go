package formula

import (
	"math"
)

// Lookup resolves a field reference to its current numeric value.
type Lookup func(fieldID string) (float64, error)

type Expr interface {
	Eval(lookup Lookup) (float64, error)
}

type NumberLit struct {
	Value float64
}

func (n *NumberLit) Eval(Lookup) (float64, error) { return n.Value, nil }

type FieldRef struct {
	FieldID string
}

func (f *FieldRef) Eval(lookup Lookup) (float64, error) {
	return lookup(f.FieldID)
}

type UnaryExpr struct {
	Op      TokenType
	Operand Expr
}

func (u *UnaryExpr) Eval(lookup Lookup) (float64, error) {
	v, err := u.Operand.Eval(lookup)
	if err != nil {
		return 0, err
	}
	if u.Op == TokenMinus {
		return -v, nil
	}
	return v, nil
}

type BinaryExpr struct {
	Op          TokenType
	Left, Right Expr
}

func (b *BinaryExpr) Eval(lookup Lookup) (float64, error) {
	l, err := b.Left.Eval(lookup)
	if err != nil {
		return 0, err
	}
	r, err := b.Right.Eval(lookup)
	if err != nil {
		return 0, err
	}

	var v float64
	switch b.Op {
	case TokenPlus:
		v = l + r
	case TokenMinus:
		v = l - r
	case TokenStar:
		v = l * r
	case TokenSlash:
		if r == 0 {
			return 0, ErrDivisionByZero
		}
		v = l / r
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotFinite
	}
	return v, nil
}
