package runtime

import (
	"fmt"
)

// upvalueBroker is the cell shared by every closure that captured the same
// local. While open it reads and writes the register of the frame that owns the
// local, once closed it holds the value itself.
type upvalueBroker struct {
	val   Value
	frame *frame
	index int // 0 based slot in the frame
	open  bool
}

func newOpenUpvalue(f *frame, index int) *upvalueBroker {
	return &upvalueBroker{frame: f, index: index, open: true}
}

func newClosedUpvalue(val Value) *upvalueBroker {
	return &upvalueBroker{val: val}
}

func (b *upvalueBroker) String() string {
	return fmt.Sprintf("<-slot: %v open: %v->", b.index, b.open)
}

func (b *upvalueBroker) Get() Value {
	if b.open {
		return b.frame.slots[b.index]
	}
	return b.val
}

func (b *upvalueBroker) Set(val Value) {
	if b.open {
		b.frame.slots[b.index] = val
		return
	}
	b.val = val
}

func (b *upvalueBroker) Close() {
	if !b.open {
		return
	}
	b.val = b.frame.slots[b.index]
	b.open = false
	b.frame = nil
}
