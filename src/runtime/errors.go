package runtime

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tanema/lvm/src/lerrors"
)

// runtimeErr decorates err with the position of the running instruction and a
// traceback of the call frames. Errors that were already decorated by a deeper
// frame are returned as is.
func (vm *VM) runtimeErr(pc int, err error) error {
	var lerr *lerrors.Error
	if errors.As(err, &lerr) {
		if lerr.Traceback != nil {
			return lerr
		}
	} else {
		lerr = lerrors.Wrap(lerrors.UserErr, err)
	}
	proto := vm.frame.closure.proto
	lerr.Filename = chunkName(proto.Source)
	lerr.Line = proto.Line(pc)
	lerr.Traceback = vm.traceback()
	return lerr
}

func (vm *VM) traceback() []string {
	parts := []string{}
	for f := vm.frame; f != nil; f = f.prev {
		if f.closure == nil {
			continue
		}
		if f.closure.goFn != nil {
			parts = append(parts, fmt.Sprintf("\t[go]: in function '%v'", f.closure.name))
			continue
		}
		proto := f.closure.proto
		name := chunkName(proto.Source)
		var where string
		if proto.Kind() == "main" {
			where = "main chunk"
		} else {
			where = fmt.Sprintf("function <%v:%v>", name, proto.LineDefined)
		}
		parts = append(parts, fmt.Sprintf("\t%v:%v: in %v", name, proto.Line(max(f.pc-1, 0)), where))
	}
	return parts
}

// chunkName strips the marker a compiler puts in front of a chunk source.
func chunkName(source string) string {
	if source == "" {
		return "?"
	} else if strings.HasPrefix(source, "@") || strings.HasPrefix(source, "=") {
		return source[1:]
	}
	return source
}
