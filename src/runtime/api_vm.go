package runtime

import (
	"github.com/tanema/lvm/src/bytecode"
	"github.com/tanema/lvm/src/lerrors"
)

// engine side of the api, used by the instruction handlers.

func (vm *VM) fetch() uint32 {
	f := vm.frame
	i := f.closure.proto.Code[f.pc]
	f.pc++
	return i
}

func (vm *VM) addPC(n int) { vm.frame.pc += n }

func (vm *VM) getConst(idx int64) error {
	consts := vm.frame.closure.proto.Constants
	if idx < 0 || idx >= int64(len(consts)) {
		return lerrors.New(lerrors.IndexErr, "constant index %v out of range", idx)
	}
	return vm.frame.push(constValue(consts[idx]))
}

// getRK pushes the constant or the register the rk operand addresses.
func (vm *VM) getRK(rk int64) error {
	if bytecode.IsK(rk) {
		return vm.getConst(bytecode.IndexK(rk))
	}
	return vm.PushValue(int(rk) + 1)
}

func (vm *VM) registerCount() int { return int(vm.frame.closure.proto.MaxStackSize) }

// loadVararg pushes n varargs, or all of them if n is negative.
func (vm *VM) loadVararg(n int) error {
	if n < 0 {
		n = len(vm.frame.varargs)
	}
	return vm.frame.pushN(vm.frame.varargs, n)
}

// loadProto pushes a closure of the nested prototype idx, capturing its
// upvalues from the registers or the upvalues of the running closure.
func (vm *VM) loadProto(idx int) error {
	f := vm.frame
	protos := f.closure.proto.Protos
	if idx < 0 || idx >= len(protos) {
		return lerrors.New(lerrors.IndexErr, "function prototype %v out of range", idx)
	}
	c := newLuaClosure(protos[idx])
	for i, uv := range c.proto.Upvalues {
		uvIdx := int(uv.Index)
		if uv.FromStack {
			if uvIdx >= len(f.slots) {
				return lerrors.New(lerrors.IndexErr, "upvalue register %v out of range", uvIdx)
			}
			if f.openuvs == nil {
				f.openuvs = map[int]*upvalueBroker{}
			}
			broker, found := f.openuvs[uvIdx]
			if !found {
				broker = newOpenUpvalue(f, uvIdx)
				f.openuvs[uvIdx] = broker
			}
			c.upvals[i] = broker
		} else {
			if uvIdx >= len(f.closure.upvals) {
				return lerrors.New(lerrors.IndexErr, "upvalue %v out of range", uvIdx)
			}
			c.upvals[i] = f.closure.upvals[uvIdx]
		}
	}
	return f.push(c)
}

// closeUpvalues closes the open upvalues of register a-1 and above.
func (vm *VM) closeUpvalues(a int) {
	vm.frame.closeUpvalues(a - 1)
}
