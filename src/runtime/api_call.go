package runtime

import (
	"io"

	"github.com/tanema/lvm/src/chunk"
	"github.com/tanema/lvm/src/lerrors"
)

// MultRet requests every result of a call.
const MultRet = -1

// Load pushes a closure of the prototype. Its first upvalue, if it has any, is
// bound to the global table.
func (vm *VM) Load(proto *chunk.Prototype) error {
	c := newLuaClosure(proto)
	if len(c.upvals) > 0 {
		c.upvals[0] = newClosedUpvalue(vm.Globals())
	}
	return vm.frame.push(c)
}

// LoadChunk reads a binary chunk or a snapshot and pushes its main closure.
func (vm *VM) LoadChunk(src io.Reader) error {
	proto, err := chunk.Load(src)
	if err != nil {
		return err
	}
	return vm.Load(proto)
}

// Call calls the function below the top nArgs values. The function and
// arguments are popped and nResults results are pushed, padded with nil, or
// every result when nResults is MultRet.
func (vm *VM) Call(nArgs, nResults int) error {
	val := vm.frame.get(-(nArgs + 1))
	c, ok := val.(*Closure)
	if !ok {
		return lerrors.New(lerrors.TypeErr, "attempt to call a %v value", typeName(val))
	} else if c.proto != nil {
		return vm.callLuaClosure(nArgs, nResults, c)
	}
	return vm.callGoClosure(nArgs, nResults, c)
}

func (vm *VM) callLuaClosure(nArgs, nResults int, c *Closure) error {
	nRegs := int(c.proto.MaxStackSize)
	nParams := int(c.proto.NumParams)
	if nRegs < nParams {
		nRegs = nParams
	}
	f := newFrame(nRegs+vm.cfg.VM.MinStack, vm)
	f.closure = c

	funcAndArgs, err := vm.frame.popN(nArgs + 1)
	if err != nil {
		return err
	}
	if err := f.pushN(funcAndArgs[1:], nParams); err != nil {
		return err
	}
	f.top = nRegs
	if c.proto.IsVararg && nArgs > nParams {
		f.varargs = funcAndArgs[nParams+1:]
	}

	if err := vm.pushFrame(f); err != nil {
		return err
	}
	err = vm.runLuaClosure()
	vm.popFrame()
	if err != nil {
		return err
	}

	if nResults != 0 {
		results, err := f.popN(f.top - nRegs)
		if err != nil {
			return err
		}
		return vm.frame.pushN(results, nResults)
	}
	return nil
}

func (vm *VM) callGoClosure(nArgs, nResults int, c *Closure) error {
	f := newFrame(nArgs+vm.cfg.VM.MinStack, vm)
	f.closure = c

	args, err := vm.frame.popN(nArgs)
	if err != nil {
		return err
	}
	if err := f.pushN(args, nArgs); err != nil {
		return err
	}
	if _, err := vm.frame.pop(); err != nil {
		return err
	}

	if err := vm.pushFrame(f); err != nil {
		return err
	}
	n, err := c.goFn(vm)
	vm.popFrame()
	if err != nil {
		return err
	}

	if nResults != 0 {
		results, err := f.popN(n)
		if err != nil {
			return err
		}
		return vm.frame.pushN(results, nResults)
	}
	return nil
}

// callValue calls fn with args from a host function and returns every result.
func (vm *VM) callValue(fn Value, args ...Value) ([]Value, error) {
	base := vm.GetTop()
	if err := vm.frame.check(len(args) + 1); err != nil {
		return nil, err
	}
	if err := vm.frame.push(fn); err != nil {
		return nil, err
	}
	if err := vm.frame.pushN(args, -1); err != nil {
		return nil, err
	}
	if err := vm.Call(len(args), MultRet); err != nil {
		return nil, err
	}
	return vm.frame.popN(vm.GetTop() - base)
}
