package runtime

import (
	"strings"

	"github.com/tanema/lvm/src/lerrors"
)

// Arith pops the operands of op, two for binary operators and one for OpUnm and
// OpBNot, and pushes the result.
func (vm *VM) Arith(op ArithOp) error {
	var a, b Value
	if op == OpUnm || op == OpBNot {
		val, err := vm.frame.pop()
		if err != nil {
			return err
		}
		a, b = val, val
	} else {
		vals, err := vm.frame.popN(2)
		if err != nil {
			return err
		}
		a, b = vals[0], vals[1]
	}
	res, err := arith(a, b, op)
	if err != nil {
		return err
	}
	return vm.frame.push(res)
}

// Compare compares the values at idx1 and idx2. Invalid indexes compare false.
func (vm *VM) Compare(idx1, idx2 int, op CompareOp) (bool, error) {
	if !vm.frame.isValid(idx1) || !vm.frame.isValid(idx2) {
		return false, nil
	}
	return compare(vm.frame.get(idx1), vm.frame.get(idx2), op)
}

// Len pushes the length of the string or table at idx.
func (vm *VM) Len(idx int) error {
	switch val := vm.frame.get(idx).(type) {
	case String:
		return vm.frame.push(Integer(len(val)))
	case *Table:
		return vm.frame.push(Integer(val.Len()))
	default:
		return lerrors.New(lerrors.TypeErr, "attempt to get length of a %v value", typeName(val))
	}
}

// Concat pops n values, concatenates them and pushes the result. Numbers are
// converted to strings, zero values push the empty string.
func (vm *VM) Concat(n int) error {
	if n == 0 {
		return vm.frame.push(String(""))
	} else if n == 1 {
		if _, ok := vm.ToStringX(-1); !ok {
			return concatErr(vm.frame.get(-1))
		}
		return nil
	}
	vals, err := vm.frame.popN(n)
	if err != nil {
		return err
	}
	var sb strings.Builder
	for _, val := range vals {
		str, ok := tostring(val)
		if !ok {
			return concatErr(val)
		}
		sb.WriteString(string(str))
	}
	return vm.frame.push(String(sb.String()))
}

func concatErr(val Value) error {
	return lerrors.New(lerrors.TypeErr, "attempt to concatenate a %v value", typeName(val))
}
