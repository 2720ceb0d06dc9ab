package runtime

import (
	"math"

	"github.com/tanema/lvm/src/lerrors"
)

type (
	// ArithOp is an arithmetic or bitwise operator usable with VM.Arith.
	ArithOp int
	// CompareOp is a comparison operator usable with VM.Compare.
	CompareOp int

	operator struct {
		symbol    string
		integerFn func(int64, int64) int64
		floatFn   func(float64, float64) float64
	}
)

// Arith operators in the same order as their opcodes.
const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpMod
	OpPow
	OpDiv
	OpIDiv
	OpBAnd
	OpBOr
	OpBXor
	OpShl
	OpShr
	OpUnm
	OpBNot
)

// Comparison operators.
const (
	OpEq CompareOp = iota
	OpLt
	OpLe
)

var operators = [...]operator{
	OpAdd:  {"+", func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b }},
	OpSub:  {"-", func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b }},
	OpMul:  {"*", func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b }},
	OpMod:  {"%", imod, fmod},
	OpPow:  {"^", nil, math.Pow},
	OpDiv:  {"/", nil, func(a, b float64) float64 { return a / b }},
	OpIDiv: {"//", ifloorDiv, func(a, b float64) float64 { return math.Floor(a / b) }},
	OpBAnd: {"&", func(a, b int64) int64 { return a & b }, nil},
	OpBOr:  {"|", func(a, b int64) int64 { return a | b }, nil},
	OpBXor: {"~", func(a, b int64) int64 { return a ^ b }, nil},
	OpShl:  {"<<", shiftLeft, nil},
	OpShr:  {">>", shiftRight, nil},
	OpUnm:  {"-", func(a, _ int64) int64 { return -a }, func(a, _ float64) float64 { return -a }},
	OpBNot: {"~", func(a, _ int64) int64 { return ^a }, nil},
}

func (op ArithOp) String() string {
	if op < 0 || int(op) >= len(operators) {
		return "?"
	}
	return operators[op].symbol
}

// arith applies op to a and b. Unary operators ignore b.
func arith(a, b Value, op ArithOp) (Value, error) {
	if op < 0 || int(op) >= len(operators) {
		return nil, lerrors.New(lerrors.ArithmeticErr, "unknown arithmetic operator %d", op)
	}
	oper := operators[op]
	if op == OpUnm || op == OpBNot {
		b = a
	}
	if oper.floatFn == nil {
		x, xok := toInteger(a)
		y, yok := toInteger(b)
		if xok && yok {
			return Integer(oper.integerFn(x, y)), nil
		}
		return nil, bitwiseErr(a, b)
	}
	if oper.integerFn != nil {
		if x, ok := a.(Integer); ok {
			if y, ok := b.(Integer); ok {
				if y == 0 && op == OpMod {
					return nil, lerrors.New(lerrors.ArithmeticErr, "attempt to perform 'n%%0'")
				} else if y == 0 && op == OpIDiv {
					return nil, lerrors.New(lerrors.ArithmeticErr, "attempt to perform 'n//0'")
				}
				return Integer(oper.integerFn(int64(x), int64(y))), nil
			}
		}
	}
	x, xok := toFloat(a)
	y, yok := toFloat(b)
	if xok && yok {
		return Float(oper.floatFn(x, y)), nil
	}
	culprit := b
	if !xok {
		culprit = a
	}
	return nil, lerrors.New(lerrors.ArithmeticErr, "attempt to perform arithmetic on a %v value", typeName(culprit))
}

func bitwiseErr(a, b Value) error {
	culprit := b
	if _, ok := toNumber(a); !ok {
		culprit = a
	} else if _, ok := toInteger(a); !ok {
		culprit = a
	}
	if _, isNum := toNumber(culprit); isNum {
		return lerrors.New(lerrors.ArithmeticErr, "number has no integer representation")
	}
	return lerrors.New(lerrors.TypeErr, "attempt to perform bitwise operation on a %v value", typeName(culprit))
}

func imod(a, b int64) int64 {
	m := a % b
	if m != 0 && (m^b) < 0 {
		m += b
	}
	return m
}

func fmod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m*b < 0 {
		m += b
	}
	return m
}

func ifloorDiv(a, b int64) int64 {
	if a%b != 0 && (a < 0) != (b < 0) {
		return a/b - 1
	}
	return a / b
}

// shifts are logical, a negative shift shifts the other direction.
func shiftLeft(a, n int64) int64 {
	switch {
	case n <= -64 || n >= 64:
		return 0
	case n >= 0:
		return int64(uint64(a) << uint64(n))
	default:
		return shiftRight(a, -n)
	}
}

func shiftRight(a, n int64) int64 {
	switch {
	case n <= -64 || n >= 64:
		return 0
	case n >= 0:
		return int64(uint64(a) >> uint64(n))
	default:
		return shiftLeft(a, -n)
	}
}

func eq(a, b Value) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case Integer:
		switch y := b.(type) {
		case Integer:
			return x == y
		case Float:
			return float64(x) == float64(y)
		}
		return false
	case Float:
		switch y := b.(type) {
		case Float:
			return x == y
		case Integer:
			return float64(x) == float64(y)
		}
		return false
	default:
		return a == b
	}
}

func lt(a, b Value) (bool, error) {
	switch x := a.(type) {
	case String:
		if y, ok := b.(String); ok {
			return x < y, nil
		}
	case Integer:
		switch y := b.(type) {
		case Integer:
			return x < y, nil
		case Float:
			return float64(x) < float64(y), nil
		}
	case Float:
		switch y := b.(type) {
		case Float:
			return x < y, nil
		case Integer:
			return float64(x) < float64(y), nil
		}
	}
	return false, compareErr(a, b)
}

func le(a, b Value) (bool, error) {
	switch x := a.(type) {
	case String:
		if y, ok := b.(String); ok {
			return x <= y, nil
		}
	case Integer:
		switch y := b.(type) {
		case Integer:
			return x <= y, nil
		case Float:
			return float64(x) <= float64(y), nil
		}
	case Float:
		switch y := b.(type) {
		case Float:
			return x <= y, nil
		case Integer:
			return float64(x) <= float64(y), nil
		}
	}
	return false, compareErr(a, b)
}

func compareErr(a, b Value) error {
	ta, tb := typeName(a), typeName(b)
	if ta == tb {
		return lerrors.New(lerrors.TypeErr, "attempt to compare two %v values", ta)
	}
	return lerrors.New(lerrors.TypeErr, "attempt to compare %v with %v", ta, tb)
}

func compare(a, b Value, op CompareOp) (bool, error) {
	switch op {
	case OpEq:
		return eq(a, b), nil
	case OpLt:
		return lt(a, b)
	case OpLe:
		return le(a, b)
	default:
		return false, lerrors.New(lerrors.TypeErr, "invalid compare op %d", op)
	}
}
