package runtime

import (
	"fmt"
	"strings"

	"github.com/tanema/lvm/src/chunk"
)

func createStringLib() *Table {
	lib := NewTable(0, 10)
	fns := map[string]stdFunc{
		"byte":    stdStringByte,
		"char":    stdStringChar,
		"dump":    stdStringDump,
		"len":     stdStringLen,
		"lower":   stdStringLower,
		"rep":     stdStringRep,
		"reverse": stdStringReverse,
		"sub":     stdStringSub,
		"upper":   stdStringUpper,
	}
	for name, fn := range fns {
		_ = lib.Put(String(name), newGoClosure("string."+name, Fn(fn), 0))
	}
	return lib
}

func stdStringByte(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "string.byte", "string|number", "~number", "~number"); err != nil {
		return nil, err
	}
	str, _ := tostring(args[0])
	start := optInteger(args, 1, 1)
	end := optInteger(args, 2, start)
	out := []Value{}
	for _, b := range []byte(substring(string(str), start, end)) {
		out = append(out, Integer(b))
	}
	return out, nil
}

func stdStringChar(_ *VM, args []Value) ([]Value, error) {
	var str strings.Builder
	for i, point := range args {
		b, ok := toInteger(point)
		if !ok {
			return nil, argumentErr(i+1, "string.char", fmt.Errorf("number expected, got %v", typeName(point)))
		} else if b < 0 || b > 255 {
			return nil, argumentErr(i+1, "string.char", fmt.Errorf("value out of range"))
		}
		str.WriteByte(byte(b))
	}
	return []Value{String(str.String())}, nil
}

func stdStringDump(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "string.dump", "function", "~boolean"); err != nil {
		return nil, err
	}
	cls := args[0].(*Closure)
	if cls.proto == nil {
		return nil, argumentErr(1, "string.dump", fmt.Errorf("unable to dump given function"))
	}
	data, err := chunk.Dump(cls.proto)
	if err != nil {
		return nil, err
	}
	return []Value{String(data)}, nil
}

func stdStringLen(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "string.len", "string|number"); err != nil {
		return nil, err
	}
	str, _ := tostring(args[0])
	return []Value{Integer(len(str))}, nil
}

func stdStringLower(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "string.lower", "string|number"); err != nil {
		return nil, err
	}
	str, _ := tostring(args[0])
	return []Value{String(strings.ToLower(string(str)))}, nil
}

func stdStringUpper(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "string.upper", "string|number"); err != nil {
		return nil, err
	}
	str, _ := tostring(args[0])
	return []Value{String(strings.ToUpper(string(str)))}, nil
}

func stdStringRep(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "string.rep", "string|number", "number", "~string|number"); err != nil {
		return nil, err
	}
	str, _ := tostring(args[0])
	count := optInteger(args, 1, 0)
	if count <= 0 {
		return []Value{String("")}, nil
	}
	sep := ""
	if len(args) > 2 && args[2] != nil {
		s, _ := tostring(args[2])
		sep = string(s)
	}
	parts := make([]string, count)
	for i := range parts {
		parts[i] = string(str)
	}
	return []Value{String(strings.Join(parts, sep))}, nil
}

func stdStringReverse(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "string.reverse", "string|number"); err != nil {
		return nil, err
	}
	str, _ := tostring(args[0])
	out := []byte(str)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return []Value{String(out)}, nil
}

func stdStringSub(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "string.sub", "string|number", "number", "~number"); err != nil {
		return nil, err
	}
	str, _ := tostring(args[0])
	return []Value{String(substring(string(str), optInteger(args, 1, 1), optInteger(args, 2, -1)))}, nil
}

// substring slices str by 1 based inclusive positions where negative positions
// count from the end.
func substring(str string, start, end int64) string {
	length := int64(len(str))
	if start < 0 {
		start = max(length+start+1, 1)
	} else if start == 0 {
		start = 1
	}
	if end < 0 {
		end = length + end + 1
	} else if end > length {
		end = length
	}
	if start > end {
		return ""
	}
	return str[start-1 : end]
}

func optInteger(args []Value, idx int, def int64) int64 {
	if idx >= len(args) || args[idx] == nil {
		return def
	}
	return toIntWithDefault(args[idx], def)
}
