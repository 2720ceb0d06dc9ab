package runtime

import (
	"github.com/tanema/lvm/src/conf"
	"github.com/tanema/lvm/src/lerrors"
)

// frame is the register window of one call. Indexes into it are 1 based and
// negative indexes count down from the top.
type frame struct {
	prev    *frame
	vm      *VM
	closure *Closure
	slots   []Value
	varargs []Value
	openuvs map[int]*upvalueBroker // keyed by 0 based slot
	top     int
	pc      int
}

func newFrame(size int, vm *VM) *frame {
	return &frame{
		slots: make([]Value, size),
		vm:    vm,
	}
}

// check ensures there are at least n free slots above top.
func (f *frame) check(n int) error {
	free := len(f.slots) - f.top
	if free >= n {
		return nil
	}
	if f.top+n > f.vm.cfg.VM.MaxStack {
		return lerrors.New(lerrors.StackOverflow, "stack overflow (%v slots)", f.top+n)
	}
	f.slots = append(f.slots, make([]Value, n-free)...)
	return nil
}

func (f *frame) push(val Value) error {
	if f.top == len(f.slots) {
		return lerrors.New(lerrors.StackOverflow, "stack overflow")
	}
	f.slots[f.top] = val
	f.top++
	return nil
}

func (f *frame) pop() (Value, error) {
	if f.top < 1 {
		return nil, lerrors.New(lerrors.StackUnderflow, "stack underflow")
	}
	f.top--
	val := f.slots[f.top]
	f.slots[f.top] = nil
	return val, nil
}

// pushN pushes n values padding with nil, a negative n pushes all vals.
func (f *frame) pushN(vals []Value, n int) error {
	if n < 0 {
		n = len(vals)
	}
	if err := f.check(n); err != nil {
		return err
	}
	for i := range n {
		var val Value
		if i < len(vals) {
			val = vals[i]
		}
		if err := f.push(val); err != nil {
			return err
		}
	}
	return nil
}

func (f *frame) popN(n int) ([]Value, error) {
	if n > f.top {
		return nil, lerrors.New(lerrors.StackUnderflow, "stack underflow, cannot pop %v values", n)
	}
	vals := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		vals[i], _ = f.pop()
	}
	return vals, nil
}

func (f *frame) absIndex(idx int) int {
	if idx >= 0 || idx <= conf.REGISTRYINDEX {
		return idx
	}
	return idx + f.top + 1
}

func (f *frame) isValid(idx int) bool {
	if idx < conf.REGISTRYINDEX {
		uvIdx := conf.REGISTRYINDEX - idx - 1
		return f.closure != nil && uvIdx < len(f.closure.upvals)
	} else if idx == conf.REGISTRYINDEX {
		return true
	}
	absIdx := f.absIndex(idx)
	return absIdx > 0 && absIdx <= f.top
}

// get returns nil for indexes that are not valid.
func (f *frame) get(idx int) Value {
	if idx < conf.REGISTRYINDEX {
		uvIdx := conf.REGISTRYINDEX - idx - 1
		if f.closure == nil || uvIdx >= len(f.closure.upvals) || f.closure.upvals[uvIdx] == nil {
			return nil
		}
		return f.closure.upvals[uvIdx].Get()
	} else if idx == conf.REGISTRYINDEX {
		return f.vm.registry
	}
	absIdx := f.absIndex(idx)
	if absIdx > 0 && absIdx <= f.top {
		return f.slots[absIdx-1]
	}
	return nil
}

func (f *frame) set(idx int, val Value) error {
	if idx < conf.REGISTRYINDEX {
		uvIdx := conf.REGISTRYINDEX - idx - 1
		if f.closure != nil && uvIdx < len(f.closure.upvals) && f.closure.upvals[uvIdx] != nil {
			f.closure.upvals[uvIdx].Set(val)
		}
		return nil
	} else if idx == conf.REGISTRYINDEX {
		tbl, ok := val.(*Table)
		if !ok {
			return lerrors.New(lerrors.TypeErr, "registry must be a table, got %v", typeName(val))
		}
		f.vm.registry = tbl
		return nil
	}
	absIdx := f.absIndex(idx)
	if absIdx > 0 && absIdx <= f.top {
		f.slots[absIdx-1] = val
		return nil
	}
	return lerrors.New(lerrors.IndexErr, "invalid index %v", idx)
}

// reverse the 0 based slots from..to inclusive.
func (f *frame) reverse(from, to int) {
	for from < to {
		f.slots[from], f.slots[to] = f.slots[to], f.slots[from]
		from++
		to--
	}
}

// closeUpvalues closes every open upvalue at or above the 0 based slot.
func (f *frame) closeUpvalues(slot int) {
	for idx, broker := range f.openuvs {
		if idx >= slot {
			broker.Close()
			delete(f.openuvs, idx)
		}
	}
}
