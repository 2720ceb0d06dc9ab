package runtime

import (
	"fmt"
	"slices"
	"strings"
)

func createTableLib() *Table {
	lib := NewTable(0, 6)
	fns := map[string]stdFunc{
		"concat": stdTableConcat,
		"insert": stdTableInsert,
		"pack":   stdTablePack,
		"remove": stdTableRemove,
		"sort":   stdTableSort,
		"unpack": stdTableUnpack,
	}
	for name, fn := range fns {
		_ = lib.Put(String(name), newGoClosure("table."+name, Fn(fn), 0))
	}
	return lib
}

func stdTableConcat(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "table.concat", "table", "~string|number", "~number", "~number"); err != nil {
		return nil, err
	}
	tbl := args[0].(*Table)
	sep := ""
	if len(args) > 1 && args[1] != nil {
		s, _ := tostring(args[1])
		sep = string(s)
	}
	i, j := optInteger(args, 2, 1), optInteger(args, 3, tbl.Len())
	strParts := []string{}
	for idx := i; idx <= j; idx++ {
		str, ok := tostring(tbl.Get(Integer(idx)))
		if !ok {
			return nil, argumentErr(1, "table.concat", fmt.Errorf("invalid value (at index %v) in table for 'concat'", idx))
		}
		strParts = append(strParts, string(str))
	}
	return []Value{String(strings.Join(strParts, sep))}, nil
}

func stdTableInsert(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "table.insert", "table", "value", "~value"); err != nil {
		return nil, err
	}
	tbl := args[0].(*Table)
	n := tbl.Len()
	if len(args) == 2 {
		return []Value{}, tbl.Put(Integer(n+1), args[1])
	}
	pos, ok := toInteger(args[1])
	if !ok {
		return nil, argumentErr(2, "table.insert", fmt.Errorf("number expected, got %v", typeName(args[1])))
	} else if pos < 1 || pos > n+1 {
		return nil, argumentErr(2, "table.insert", fmt.Errorf("position out of bounds"))
	}
	for i := n; i >= pos; i-- {
		if err := tbl.Put(Integer(i+1), tbl.Get(Integer(i))); err != nil {
			return nil, err
		}
	}
	return []Value{}, tbl.Put(Integer(pos), args[2])
}

func stdTableRemove(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "table.remove", "table", "~number"); err != nil {
		return nil, err
	}
	tbl := args[0].(*Table)
	n := tbl.Len()
	pos := optInteger(args, 1, n)
	if n == 0 && (pos == 0 || pos == n) {
		return []Value{tbl.Get(Integer(pos))}, nil
	} else if pos < 1 || pos > n+1 {
		return nil, argumentErr(2, "table.remove", fmt.Errorf("position out of bounds"))
	}
	val := tbl.Get(Integer(pos))
	for i := pos; i < n; i++ {
		if err := tbl.Put(Integer(i), tbl.Get(Integer(i+1))); err != nil {
			return nil, err
		}
	}
	if pos <= n {
		if err := tbl.Put(Integer(n), nil); err != nil {
			return nil, err
		}
	}
	return []Value{val}, nil
}

func stdTablePack(_ *VM, args []Value) ([]Value, error) {
	tbl := NewTable(len(args), 1)
	for i, arg := range args {
		if err := tbl.Put(Integer(i+1), arg); err != nil {
			return nil, err
		}
	}
	return []Value{tbl}, tbl.Put(String("n"), Integer(len(args)))
}

func stdTableUnpack(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "table.unpack", "table", "~number", "~number"); err != nil {
		return nil, err
	}
	tbl := args[0].(*Table)
	i, j := optInteger(args, 1, 1), optInteger(args, 2, tbl.Len())
	out := []Value{}
	for idx := i; idx <= j; idx++ {
		out = append(out, tbl.Get(Integer(idx)))
	}
	return out, nil
}

func stdTableSort(vm *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "table.sort", "table", "~function"); err != nil {
		return nil, err
	}
	tbl := args[0].(*Table)
	vals := make([]Value, tbl.Len())
	for i := range vals {
		vals[i] = tbl.Get(Integer(i + 1))
	}

	var sortErr error
	less := func(l, r Value) (bool, error) { return lt(l, r) }
	if len(args) > 1 && args[1] != nil {
		less = func(l, r Value) (bool, error) {
			res, err := vm.callValue(args[1], l, r)
			if err != nil || len(res) == 0 {
				return false, err
			}
			return toBoolean(res[0]), nil
		}
	}
	slices.SortStableFunc(vals, func(l, r Value) int {
		if sortErr != nil {
			return 0
		}
		if isLess, err := less(l, r); err != nil {
			sortErr = err
		} else if isLess {
			return -1
		} else if isLess, err = less(r, l); err != nil {
			sortErr = err
		} else if isLess {
			return 1
		}
		return 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	for i, val := range vals {
		if err := tbl.Put(Integer(i+1), val); err != nil {
			return nil, err
		}
	}
	return []Value{}, nil
}

// argsToTableValues splits command line arguments at the script name into the
// values passed to the chunk and the arg table, where the script is at index 0.
func argsToTableValues(clargs []string, script int) ([]Value, *Table, error) {
	tbl := NewTable(len(clargs), 1)
	for i, a := range clargs {
		if err := tbl.Put(Integer(i-script), String(a)); err != nil {
			return nil, nil, err
		}
	}
	values := []Value{}
	for _, a := range clargs[min(script+1, len(clargs)):] {
		values = append(values, String(a))
	}
	return values, tbl, nil
}
