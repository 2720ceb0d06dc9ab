package runtime

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/tanema/lvm/src/bytecode"
	"github.com/tanema/lvm/src/chunk"
	"github.com/tanema/lvm/src/lerrors"
)

const debugHelp = `commands:
  s, step      execute the next instruction
  c, continue  run to completion
  r, regs      show the registers of the current frame
  stack        show the call stack
  l, list      list the current function
  q, quit      abort execution`

type debugger struct {
	out      io.Writer
	readLine func() (string, error)
	stepping bool
}

// Debug runs the prototype like Eval but stops before every instruction and
// waits for a command on an interactive prompt.
func (vm *VM) Debug(proto *chunk.Prototype) ([]Value, error) {
	rl, err := readline.New("(lvm) ")
	if err != nil {
		return nil, err
	}
	defer rl.Close()
	dbg := &debugger{out: rl.Stdout(), readLine: rl.Readline, stepping: true}
	fmt.Fprintln(dbg.out, debugHelp)
	prev := vm.hook
	vm.SetHook(dbg.hook)
	defer vm.SetHook(prev)
	return vm.Eval(proto)
}

func (dbg *debugger) hook(vm *VM, pc int, instruction uint32) error {
	if !dbg.stepping {
		return nil
	}
	fmt.Fprintf(dbg.out, "%v [%03d] %v\n", vm.depth, pc+1, bytecode.ToString(instruction))
	for {
		line, err := dbg.readLine()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return lerrors.New(lerrors.Interrupt, "debugger quit")
		} else if err != nil {
			return err
		}
		if resume, err := dbg.command(vm, strings.TrimSpace(line), pc); err != nil || resume {
			return err
		}
	}
}

// command runs one debugger command and reports if execution should resume.
func (dbg *debugger) command(vm *VM, line string, pc int) (bool, error) {
	switch line {
	case "", "s", "step":
		return true, nil
	case "c", "continue":
		dbg.stepping = false
		return true, nil
	case "q", "quit":
		return false, lerrors.New(lerrors.Interrupt, "debugger quit")
	case "r", "regs":
		f := vm.frame
		for i := range vm.registerCount() {
			fmt.Fprintf(dbg.out, "  r%-3d %v\n", i, ToString(f.slots[i]))
		}
	case "stack":
		fmt.Fprintln(dbg.out, strings.Join(vm.traceback(), "\n"))
	case "l", "list":
		fmt.Fprintf(dbg.out, "pc %v\n%v", pc+1, vm.frame.closure.proto.String())
	case "h", "help":
		fmt.Fprintln(dbg.out, debugHelp)
	default:
		fmt.Fprintf(dbg.out, "unknown command %q, try help\n", line)
	}
	return false, nil
}
