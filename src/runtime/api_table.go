package runtime

import (
	"github.com/tanema/lvm/src/lerrors"
)

// NewTable pushes a new empty table.
func (vm *VM) NewTable() error { return vm.CreateTable(0, 0) }

// CreateTable pushes a new table with preallocated space.
func (vm *VM) CreateTable(nArr, nRec int) error {
	return vm.frame.push(NewTable(nArr, nRec))
}

func (vm *VM) tableAt(idx int) (*Table, error) {
	val := vm.frame.get(idx)
	tbl, ok := val.(*Table)
	if !ok {
		return nil, lerrors.New(lerrors.TypeErr, "attempt to index a %v value", typeName(val))
	}
	return tbl, nil
}

func (vm *VM) getTable(idx int, key Value) (Type, error) {
	tbl, err := vm.tableAt(idx)
	if err != nil {
		return TypeNil, err
	}
	val := tbl.Get(key)
	if err := vm.frame.push(val); err != nil {
		return TypeNil, err
	}
	return typeOf(val), nil
}

func (vm *VM) setTable(idx int, key, val Value) error {
	tbl, err := vm.tableAt(idx)
	if err != nil {
		return err
	}
	return tbl.Put(key, val)
}

// GetTable pops a key and pushes the value of the table at idx for that key.
func (vm *VM) GetTable(idx int) (Type, error) {
	idx = vm.frame.absIndex(idx)
	key, err := vm.frame.pop()
	if err != nil {
		return TypeNil, err
	}
	return vm.getTable(idx, key)
}

// GetField pushes t[k] for the table at idx.
func (vm *VM) GetField(idx int, k string) (Type, error) {
	return vm.getTable(idx, String(k))
}

// GetI pushes t[i] for the table at idx.
func (vm *VM) GetI(idx int, i int64) (Type, error) {
	return vm.getTable(idx, Integer(i))
}

// SetTable pops a value and then a key and sets them on the table at idx.
func (vm *VM) SetTable(idx int) error {
	idx = vm.frame.absIndex(idx)
	vals, err := vm.frame.popN(2)
	if err != nil {
		return err
	}
	return vm.setTable(idx, vals[0], vals[1])
}

// SetField pops a value and sets t[k] for the table at idx.
func (vm *VM) SetField(idx int, k string) error {
	idx = vm.frame.absIndex(idx)
	val, err := vm.frame.pop()
	if err != nil {
		return err
	}
	return vm.setTable(idx, String(k), val)
}

// SetI pops a value and sets t[i] for the table at idx.
func (vm *VM) SetI(idx int, i int64) error {
	idx = vm.frame.absIndex(idx)
	val, err := vm.frame.pop()
	if err != nil {
		return err
	}
	return vm.setTable(idx, Integer(i), val)
}

// GetGlobal pushes the global name.
func (vm *VM) GetGlobal(name string) (Type, error) {
	val := vm.Globals().Get(String(name))
	if err := vm.frame.push(val); err != nil {
		return TypeNil, err
	}
	return typeOf(val), nil
}

// SetGlobal pops a value and assigns it to the global name.
func (vm *VM) SetGlobal(name string) error {
	val, err := vm.frame.pop()
	if err != nil {
		return err
	}
	return vm.Globals().Put(String(name), val)
}

// Register sets a host function as the global name.
func (vm *VM) Register(name string, fn GoFunction) error {
	if err := vm.pushGoClosure(name, fn, 0); err != nil {
		return err
	}
	return vm.SetGlobal(name)
}

// Next pops a key and pushes the next key and value of the table at idx. It
// returns false and pushes nothing once the traversal is complete.
func (vm *VM) Next(idx int) (bool, error) {
	idx = vm.frame.absIndex(idx)
	tbl, err := vm.tableAt(idx)
	if err != nil {
		return false, err
	}
	key, err := vm.frame.pop()
	if err != nil {
		return false, err
	}
	k, v, err := tbl.Next(key)
	if err != nil {
		return false, err
	} else if k == nil {
		return false, nil
	}
	return true, vm.frame.pushN([]Value{k, v}, 2)
}

// RawLen is the length of a string or the array length of a table.
func (vm *VM) RawLen(idx int) int64 {
	switch val := vm.frame.get(idx).(type) {
	case String:
		return int64(len(val))
	case *Table:
		return val.Len()
	default:
		return 0
	}
}

// RawEqual compares two values without coercion beyond numbers.
func (vm *VM) RawEqual(idx1, idx2 int) bool {
	if !vm.frame.isValid(idx1) || !vm.frame.isValid(idx2) {
		return false
	}
	return eq(vm.frame.get(idx1), vm.frame.get(idx2))
}
