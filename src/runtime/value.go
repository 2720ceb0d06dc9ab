package runtime

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tanema/lvm/src/chunk"
)

type (
	// Value is any value that can live in a register or a table. A nil Value is
	// the lua nil, every other value is one of Boolean, Integer, Float, String,
	// *Table or *Closure.
	Value interface {
		Type() Type
	}
	// Type is the tag of a value.
	Type int
	// Boolean is a lua boolean.
	Boolean bool
	// Integer is the integer subkind of a lua number.
	Integer int64
	// Float is the float subkind of a lua number.
	Float float64
	// String is an immutable lua string.
	String string
	// GoFunction is a host function callable by the vm. Arguments are on the
	// stack of its frame and results are pushed back onto it, the returned count
	// tells the vm how many of the pushed values are results.
	GoFunction func(*VM) (int, error)
	// Closure is a function value, either a prototype with its captured upvalues
	// or a go function.
	Closure struct {
		proto  *chunk.Prototype
		goFn   GoFunction
		name   string
		upvals []*upvalueBroker
	}
)

// Type tags, numbered as the lua C api numbers them.
const (
	TypeNone     Type = -1
	TypeNil      Type = 0
	TypeBoolean  Type = 1
	TypeNumber   Type = 3
	TypeString   Type = 4
	TypeTable    Type = 5
	TypeFunction Type = 6
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "no value"
	case TypeNil:
		return "nil"
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeTable:
		return "table"
	case TypeFunction:
		return "function"
	default:
		return "userdata"
	}
}

// Type implements Value.
func (Boolean) Type() Type { return TypeBoolean }

// Type implements Value.
func (Integer) Type() Type { return TypeNumber }

// Type implements Value.
func (Float) Type() Type { return TypeNumber }

// Type implements Value.
func (String) Type() Type { return TypeString }

// Type implements Value.
func (*Table) Type() Type { return TypeTable }

// Type implements Value.
func (*Closure) Type() Type { return TypeFunction }

func newLuaClosure(proto *chunk.Prototype) *Closure {
	return &Closure{
		proto:  proto,
		upvals: make([]*upvalueBroker, len(proto.Upvalues)),
	}
}

func newGoClosure(name string, fn GoFunction, nUpvals int) *Closure {
	return &Closure{
		goFn:   fn,
		name:   name,
		upvals: make([]*upvalueBroker, nUpvals),
	}
}

func (c *Closure) String() string {
	if c.proto != nil {
		return fmt.Sprintf("function: %p", c)
	}
	return fmt.Sprintf("builtin: %p", c)
}

// typeOf returns the tag of any value including nil.
func typeOf(val Value) Type {
	if val == nil {
		return TypeNil
	}
	return val.Type()
}

func typeName(val Value) string { return typeOf(val).String() }

func constValue(konst any) Value {
	switch k := konst.(type) {
	case bool:
		return Boolean(k)
	case int64:
		return Integer(k)
	case float64:
		return Float(k)
	case string:
		return String(k)
	default:
		return nil
	}
}

func toBoolean(val Value) bool {
	switch tval := val.(type) {
	case nil:
		return false
	case Boolean:
		return bool(tval)
	default:
		return true
	}
}

func toFloat(val Value) (float64, bool) {
	switch tval := val.(type) {
	case Float:
		return float64(tval), true
	case Integer:
		return float64(tval), true
	case String:
		if num, ok := parseNumber(string(tval)); ok {
			return toFloat(num)
		}
	}
	return 0, false
}

func toInteger(val Value) (int64, bool) {
	switch tval := val.(type) {
	case Integer:
		return int64(tval), true
	case Float:
		return floatToInteger(float64(tval))
	case String:
		if num, ok := parseNumber(string(tval)); ok {
			return toInteger(num)
		}
	}
	return 0, false
}

// toNumber coerces a value to a number keeping integers as integers.
func toNumber(val Value) (Value, bool) {
	switch tval := val.(type) {
	case Integer, Float:
		return tval, true
	case String:
		return parseNumber(string(tval))
	default:
		return nil, false
	}
}

func floatToInteger(f float64) (int64, bool) {
	if math.Floor(f) != f || f < math.MinInt64 || f >= -math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// parseNumber parses a lua numeral, integers first then floats.
func parseNumber(str string) (Value, bool) {
	str = strings.TrimSpace(str)
	if str == "" {
		return nil, false
	}
	if i, ok := parseInteger(str); ok {
		return Integer(i), true
	}
	lower := strings.ToLower(str)
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") || strings.Contains(str, "_") {
		return nil, false
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return nil, false
	}
	return Float(f), true
}

func parseInteger(str string) (int64, bool) {
	neg := strings.HasPrefix(str, "-")
	digits := strings.TrimPrefix(strings.TrimPrefix(str, "-"), "+")
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		u, err := strconv.ParseUint(digits[2:], 16, 64)
		if err != nil {
			return 0, false
		}
		if neg {
			return -int64(u), true
		}
		return int64(u), true
	}
	if strings.ContainsAny(digits, "+-_") {
		return 0, false
	}
	i, err := strconv.ParseInt(str, 10, 64)
	return i, err == nil
}

// numberToString formats numbers the way lua's %.14g does.
func numberToString(val Value) string {
	switch tval := val.(type) {
	case Integer:
		return strconv.FormatInt(int64(tval), 10)
	case Float:
		f := float64(tval)
		switch {
		case math.IsInf(f, 1):
			return "inf"
		case math.IsInf(f, -1):
			return "-inf"
		case math.IsNaN(f):
			return "nan"
		}
		str := strconv.FormatFloat(f, 'g', 14, 64)
		if !strings.ContainsAny(str, ".en") {
			str += ".0"
		}
		return str
	default:
		return ""
	}
}

// tostring converts strings and numbers to a string. Callers that read from a
// register write the returned string back to it.
func tostring(val Value) (String, bool) {
	switch tval := val.(type) {
	case String:
		return tval, true
	case Integer, Float:
		return String(numberToString(tval)), true
	default:
		return "", false
	}
}

// ToString will format any vm value to a printable string.
func ToString(val Value) string {
	switch tval := val.(type) {
	case nil:
		return "nil"
	case Boolean:
		return strconv.FormatBool(bool(tval))
	case Integer, Float:
		return numberToString(tval)
	case String:
		return string(tval)
	case *Table:
		return fmt.Sprintf("table: %p", tval)
	case *Closure:
		return tval.String()
	default:
		return fmt.Sprintf("%v", tval)
	}
}
