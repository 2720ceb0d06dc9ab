package runtime

import (
	"context"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/tanema/lvm/src/bytecode"
	"github.com/tanema/lvm/src/chunk"
	"github.com/tanema/lvm/src/conf"
	"github.com/tanema/lvm/src/lerrors"
)

type (
	// VM is the interpreter runtime. It owns the registry, the global table and
	// a linked stack of call frames, and it is driven through its stack api.
	// A VM is single threaded and must not be reused after a failed call.
	VM struct {
		ctx      context.Context
		cfg      *conf.Config
		log      commonlog.Logger
		registry *Table
		frame    *frame
		hook     Hook
		stats    Stats
		depth    int
		trace    bool
		// Stdout is where the print host function writes.
		Stdout io.Writer
	}
	// Hook is called before each instruction is dispatched. Returning an error
	// stops execution with that error.
	Hook func(vm *VM, pc int, instruction uint32) error
	// Stats are counters collected while executing.
	Stats struct {
		Instructions uint64
		Calls        uint64
		MaxDepth     int
	}
)

// New will create a new vm for evaluating. A nil config uses the defaults.
func New(ctx context.Context, cfg *conf.Config) *VM {
	if cfg == nil {
		cfg = conf.Default()
	}
	vm := &VM{
		ctx:      ctx,
		cfg:      cfg,
		log:      commonlog.GetLogger("lvm.runtime"),
		registry: NewTable(0, 0),
		trace:    cfg.Log.Trace,
		Stdout:   os.Stdout,
	}
	_ = vm.registry.Put(Integer(conf.RIDXGLOBALS), NewTable(0, 0))
	vm.frame = newFrame(cfg.VM.MinStack, vm)
	return vm
}

// SetHook installs an instruction hook, nil removes it.
func (vm *VM) SetHook(hook Hook) { vm.hook = hook }

// Stats returns the execution counters.
func (vm *VM) Stats() Stats { return vm.stats }

// Globals returns the global environment table.
func (vm *VM) Globals() *Table {
	globals, _ := vm.registry.Get(Integer(conf.RIDXGLOBALS)).(*Table)
	return globals
}

// Depth is the amount of active calls.
func (vm *VM) Depth() int { return vm.depth }

// Eval loads a prototype, calls it without arguments and returns all of its
// results.
func (vm *VM) Eval(proto *chunk.Prototype) ([]Value, error) {
	base := vm.GetTop()
	if err := vm.Load(proto); err != nil {
		return nil, err
	}
	if err := vm.Call(0, MultRet); err != nil {
		return nil, err
	}
	return vm.frame.popN(vm.GetTop() - base)
}

func (vm *VM) pushFrame(f *frame) error {
	if vm.depth >= vm.cfg.VM.MaxDepth {
		return lerrors.New(lerrors.StackOverflow, "stack overflow, call depth exceeds %v", vm.cfg.VM.MaxDepth)
	}
	f.prev = vm.frame
	vm.frame = f
	vm.depth++
	vm.stats.Calls++
	if vm.depth > vm.stats.MaxDepth {
		vm.stats.MaxDepth = vm.depth
	}
	if vm.trace {
		vm.log.Debugf("call depth %v %v", vm.depth, f.closure)
	}
	return nil
}

func (vm *VM) popFrame() {
	f := vm.frame
	if len(f.openuvs) > 0 {
		if vm.trace {
			vm.log.Debugf("closing %v upvalues", len(f.openuvs))
		}
		f.closeUpvalues(0)
	}
	vm.frame = f.prev
	f.prev = nil
	vm.depth--
}

func (vm *VM) runLuaClosure() error {
	f := vm.frame
	code := f.closure.proto.Code
	for {
		if err := vm.ctx.Err(); err != nil {
			return lerrors.New(lerrors.Interrupt, "vm interrupted: %v", err)
		}
		if f.pc >= len(code) {
			return nil
		}
		pc := f.pc
		instruction := vm.fetch()
		op := bytecode.GetOp(instruction)
		vm.stats.Instructions++
		if vm.trace {
			vm.log.Debugf("%v [%03d] %v", vm.depth, pc+1, bytecode.ToString(instruction))
		}
		if vm.hook != nil {
			if err := vm.hook(vm, pc, instruction); err != nil {
				return vm.runtimeErr(pc, err)
			}
		}
		if !op.Valid() {
			return vm.runtimeErr(pc, lerrors.New(lerrors.UnsupportedOpcode, "unsupported opcode %d", op))
		}
		if err := jumpTable[op](vm, instruction); err != nil {
			return vm.runtimeErr(pc, err)
		}
		if op == bytecode.RETURN {
			return nil
		}
	}
}
