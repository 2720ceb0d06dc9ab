package runtime

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tanema/lvm/src/conf"
	"github.com/tanema/lvm/src/lerrors"
)

// stdFunc is a host function working on argument and result slices instead of
// the stack directly.
type stdFunc func(vm *VM, args []Value) ([]Value, error)

var (
	stdNextFn   = newGoClosure("next", Fn(stdNext), 0)
	stdIPairsFn = newGoClosure("ipairs_iter", Fn(stdIPairsIter), 0)
)

// Fn adapts a function on argument and result slices to the calling
// convention of host functions. All arguments are popped from the frame of the
// call and every result is pushed back.
func Fn(fn func(vm *VM, args []Value) ([]Value, error)) GoFunction {
	return func(vm *VM) (int, error) {
		args, err := vm.frame.popN(vm.GetTop())
		if err != nil {
			return 0, err
		}
		rets, err := fn(vm, args)
		if err != nil {
			return 0, err
		}
		if err := vm.frame.pushN(rets, -1); err != nil {
			return 0, err
		}
		return len(rets), nil
	}
}

// OpenLibs installs the host library into the global table.
func (vm *VM) OpenLibs() error {
	globals := vm.Globals()
	if err := globals.Put(String("_VERSION"), String(conf.LUAVERSION)); err != nil {
		return err
	}
	stdlib := map[string]stdFunc{
		"assert":   stdAssert,
		"error":    stdError,
		"ipairs":   stdIPairs,
		"pairs":    stdPairs,
		"print":    stdPrint,
		"rawequal": stdRawEq,
		"rawget":   stdRawGet,
		"rawlen":   stdRawLen,
		"rawset":   stdRawSet,
		"select":   stdSelect,
		"tonumber": stdToNumber,
		"tostring": stdToString,
		"type":     stdType,
	}
	for name, fn := range stdlib {
		if err := vm.Register(name, Fn(fn)); err != nil {
			return err
		}
	}
	if err := globals.Put(String("next"), stdNextFn); err != nil {
		return err
	}
	libs := map[string]*Table{
		"os":     createOSLib(),
		"string": createStringLib(),
		"table":  createTableLib(),
		"utf8":   createUtf8Lib(),
	}
	for name, lib := range libs {
		if err := globals.Put(String(name), lib); err != nil {
			return err
		}
	}
	return nil
}

// SetArgs installs the global arg table for the command line where
// clargs[script] is the chunk being run, and returns the arguments after it.
func (vm *VM) SetArgs(clargs []string, script int) ([]Value, error) {
	values, tbl, err := argsToTableValues(clargs, script)
	if err != nil {
		return nil, err
	}
	return values, vm.Globals().Put(String("arg"), tbl)
}

func stdPrint(vm *VM, args []Value) ([]Value, error) {
	strParts := make([]string, len(args))
	for i, arg := range args {
		strParts[i] = ToString(arg)
	}
	_, err := fmt.Fprintln(vm.Stdout, strings.Join(strParts, "\t"))
	return nil, err
}

func stdAssert(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "assert", "value", "~value"); err != nil {
		return nil, err
	} else if toBoolean(args[0]) {
		return args, nil
	} else if len(args) > 1 {
		return nil, lerrors.New(lerrors.UserErr, "%v", ToString(args[1]))
	}
	return nil, lerrors.New(lerrors.UserErr, "assertion failed!")
}

func stdError(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "error", "~value"); err != nil {
		return nil, err
	} else if len(args) == 0 || args[0] == nil {
		return nil, lerrors.New(lerrors.UserErr, "nil")
	} else if str, ok := tostring(args[0]); ok {
		return nil, lerrors.New(lerrors.UserErr, "%v", string(str))
	}
	return nil, lerrors.New(lerrors.UserErr, "(error object is a %v value)", typeName(args[0]))
}

func stdToString(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "tostring", "value"); err != nil {
		return nil, err
	}
	return []Value{String(ToString(args[0]))}, nil
}

func stdToNumber(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "tonumber", "value", "~number"); err != nil {
		return nil, err
	}
	if len(args) < 2 || args[1] == nil {
		num, ok := toNumber(args[0])
		if !ok {
			return []Value{nil}, nil
		}
		return []Value{num}, nil
	}
	base, ok := toInteger(args[1])
	if !ok {
		return nil, argumentErr(2, "tonumber", fmt.Errorf("number has no integer representation"))
	} else if base < 2 || base > 36 {
		return nil, argumentErr(2, "tonumber", fmt.Errorf("base out of range"))
	}
	str, isStr := args[0].(String)
	if !isStr {
		return nil, argumentErr(1, "tonumber", fmt.Errorf("string expected, got %v", typeName(args[0])))
	}
	num, err := strconv.ParseInt(strings.ToLower(strings.TrimSpace(string(str))), int(base), 64)
	if err != nil {
		return []Value{nil}, nil
	}
	return []Value{Integer(num)}, nil
}

func stdType(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "type", "value"); err != nil {
		return nil, err
	}
	return []Value{String(typeName(args[0]))}, nil
}

func stdSelect(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "select", "number|string"); err != nil {
		return nil, err
	}
	rest := args[1:]
	if str, isStr := args[0].(String); isStr {
		if str != "#" {
			return nil, argumentErr(1, "select", fmt.Errorf("number expected, got string"))
		}
		return []Value{Integer(len(rest))}, nil
	}
	n, ok := toInteger(args[0])
	if !ok {
		return nil, argumentErr(1, "select", fmt.Errorf("number has no integer representation"))
	} else if n < 0 {
		n = int64(len(rest)) + n + 1
		if n < 1 {
			return nil, argumentErr(1, "select", fmt.Errorf("index out of range"))
		}
	} else if n == 0 {
		return nil, argumentErr(1, "select", fmt.Errorf("index out of range"))
	}
	if n > int64(len(rest)) {
		return []Value{}, nil
	}
	return rest[n-1:], nil
}

func stdRawLen(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "rawlen", "table|string"); err != nil {
		return nil, err
	}
	switch val := args[0].(type) {
	case String:
		return []Value{Integer(len(val))}, nil
	default:
		return []Value{Integer(val.(*Table).Len())}, nil
	}
}

func stdRawEq(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "rawequal", "value", "value"); err != nil {
		return nil, err
	}
	return []Value{Boolean(eq(args[0], args[1]))}, nil
}

func stdRawGet(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "rawget", "table", "value"); err != nil {
		return nil, err
	}
	return []Value{args[0].(*Table).Get(args[1])}, nil
}

func stdRawSet(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "rawset", "table", "value", "value"); err != nil {
		return nil, err
	}
	tbl := args[0].(*Table)
	return []Value{tbl}, tbl.Put(args[1], args[2])
}

func stdNext(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "next", "table", "~value"); err != nil {
		return nil, err
	}
	var key Value
	if len(args) > 1 {
		key = args[1]
	}
	k, v, err := args[0].(*Table).Next(key)
	if err != nil {
		return nil, err
	} else if k == nil {
		return []Value{nil}, nil
	}
	return []Value{k, v}, nil
}

func stdPairs(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "pairs", "table"); err != nil {
		return nil, err
	}
	return []Value{stdNextFn, args[0], nil}, nil
}

func stdIPairs(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "ipairs", "table"); err != nil {
		return nil, err
	}
	return []Value{stdIPairsFn, args[0], Integer(0)}, nil
}

func stdIPairsIter(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "ipairs", "table", "number"); err != nil {
		return nil, err
	}
	i, _ := toInteger(args[1])
	i++
	val := args[0].(*Table).Get(Integer(i))
	if val == nil {
		return []Value{nil}, nil
	}
	return []Value{Integer(i), val}, nil
}

func assertArguments(args []Value, methodName string, assertions ...string) error {
	for i, assertion := range assertions {
		optional := strings.HasPrefix(assertion, "~")
		expectedTypes := strings.Split(strings.TrimPrefix(assertion, "~"), "|")
		if i >= len(args) && !optional {
			return argumentErr(i+1, methodName, fmt.Errorf("%v expected", assertion))
		} else if i >= len(args) && optional {
			return nil
		} else if strings.TrimPrefix(assertion, "~") == "value" {
			continue
		} else if optional && args[i] == nil {
			continue
		}

		typeFound := false
		valType := typeName(args[i])
		for _, expected := range expectedTypes {
			if expected == valType {
				typeFound = true
				break
			}
		}
		if !typeFound {
			return argumentErr(
				i+1,
				methodName,
				fmt.Errorf(
					"%v expected but received %v",
					strings.Join(expectedTypes, ", "),
					valType,
				))
		}
	}
	return nil
}

func argumentErr(nArg int, methodName string, err error) error {
	return lerrors.Wrap(lerrors.TypeErr, fmt.Errorf("bad argument #%v to '%v' (%w)", nArg, methodName, err))
}
