package runtime

import (
	"fmt"

	"github.com/tanema/lvm/src/conf"
)

// PushNil pushes a nil value.
func (vm *VM) PushNil() error { return vm.frame.push(nil) }

// PushBoolean pushes a boolean value.
func (vm *VM) PushBoolean(b bool) error { return vm.frame.push(Boolean(b)) }

// PushInteger pushes an integer value.
func (vm *VM) PushInteger(n int64) error { return vm.frame.push(Integer(n)) }

// PushNumber pushes a float value.
func (vm *VM) PushNumber(n float64) error { return vm.frame.push(Float(n)) }

// PushString pushes a string value.
func (vm *VM) PushString(s string) error { return vm.frame.push(String(s)) }

// PushFString pushes a formatted string.
func (vm *VM) PushFString(format string, args ...any) error {
	return vm.frame.push(String(fmt.Sprintf(format, args...)))
}

// PushGoFunction pushes a host function.
func (vm *VM) PushGoFunction(fn GoFunction) error { return vm.PushGoClosure(fn, 0) }

// PushGoClosure pops n values and pushes a host function with them as its
// upvalues, reachable from inside the function with UpvalueIndex.
func (vm *VM) PushGoClosure(fn GoFunction, n int) error {
	return vm.pushGoClosure("?", fn, n)
}

func (vm *VM) pushGoClosure(name string, fn GoFunction, n int) error {
	c := newGoClosure(name, fn, n)
	for i := n; i > 0; i-- {
		val, err := vm.frame.pop()
		if err != nil {
			return err
		}
		c.upvals[i-1] = newClosedUpvalue(val)
	}
	return vm.frame.push(c)
}

// PushGlobalTable pushes the global environment.
func (vm *VM) PushGlobalTable() error {
	return vm.frame.push(vm.registry.Get(Integer(conf.RIDXGLOBALS)))
}

// PushAny pushes a value.
func (vm *VM) PushAny(val Value) error { return vm.frame.push(val) }

// UpvalueIndex is the pseudo index of the i'th (1 based) upvalue of the running function.
func UpvalueIndex(i int) int { return conf.REGISTRYINDEX - i }
