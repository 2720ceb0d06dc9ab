package runtime

import (
	"github.com/tanema/lvm/src/lerrors"
)

// GetTop returns the index of the top element, which is also the element count.
func (vm *VM) GetTop() int { return vm.frame.top }

// AbsIndex converts a relative index to an absolute one.
func (vm *VM) AbsIndex(idx int) int { return vm.frame.absIndex(idx) }

// CheckStack ensures there is room for n more values.
func (vm *VM) CheckStack(n int) bool { return vm.frame.check(n) == nil }

// Pop removes n values from the top of the stack.
func (vm *VM) Pop(n int) error {
	if n > vm.frame.top {
		return lerrors.New(lerrors.StackUnderflow, "stack underflow, cannot pop %v values", n)
	}
	return vm.SetTop(-n - 1)
}

// Copy copies the value at fromIdx into toIdx.
func (vm *VM) Copy(fromIdx, toIdx int) error {
	return vm.frame.set(toIdx, vm.frame.get(fromIdx))
}

// PushValue pushes a copy of the value at idx.
func (vm *VM) PushValue(idx int) error {
	return vm.frame.push(vm.frame.get(idx))
}

// Replace pops the top value and stores it at idx.
func (vm *VM) Replace(idx int) error {
	val, err := vm.frame.pop()
	if err != nil {
		return err
	}
	return vm.frame.set(idx, val)
}

// Insert moves the top value into idx shifting the values above it up.
func (vm *VM) Insert(idx int) error { return vm.Rotate(idx, 1) }

// Remove removes the value at idx shifting the values above it down.
func (vm *VM) Remove(idx int) error {
	if err := vm.Rotate(idx, -1); err != nil {
		return err
	}
	return vm.Pop(1)
}

// Rotate rotates the values between idx and the top n positions towards the top,
// or towards the bottom for a negative n.
func (vm *VM) Rotate(idx, n int) error {
	f := vm.frame
	absIdx := f.absIndex(idx)
	if absIdx < 1 || absIdx > f.top {
		return lerrors.New(lerrors.IndexErr, "invalid index %v", idx)
	}
	t := f.top - 1
	p := absIdx - 1
	if n > t-p+1 || -n > t-p+1 {
		return lerrors.New(lerrors.IndexErr, "invalid rotation %v", n)
	}
	var m int
	if n >= 0 {
		m = t - n
	} else {
		m = p - n - 1
	}
	f.reverse(p, m)
	f.reverse(m+1, t)
	f.reverse(p, t)
	return nil
}

// SetTop sets the top to idx popping values or pushing nils.
func (vm *VM) SetTop(idx int) error {
	f := vm.frame
	newTop := f.absIndex(idx)
	if newTop < 0 {
		return lerrors.New(lerrors.StackUnderflow, "stack underflow, invalid top %v", idx)
	}
	if n := f.top - newTop; n > 0 {
		for range n {
			if _, err := f.pop(); err != nil {
				return err
			}
		}
	} else if n < 0 {
		if err := f.check(-n); err != nil {
			return err
		}
		for range -n {
			if err := f.push(nil); err != nil {
				return err
			}
		}
	}
	return nil
}
