package runtime

import (
	"fmt"
	"unicode/utf8"
)

func createUtf8Lib() *Table {
	lib := NewTable(0, 4)
	fns := map[string]stdFunc{
		"char":      stdUtf8Char,
		"codepoint": stdUtf8Codepoint,
		"len":       stdUtf8Len,
	}
	for name, fn := range fns {
		_ = lib.Put(String(name), newGoClosure("utf8."+name, Fn(fn), 0))
	}
	_ = lib.Put(String("charpattern"), String("[\x00-\x7F\xC2-\xFD][\x80-\xBF]*"))
	return lib
}

func stdUtf8Char(_ *VM, args []Value) ([]Value, error) {
	out := []byte{}
	for i, point := range args {
		r, ok := toInteger(point)
		if !ok {
			return nil, argumentErr(i+1, "utf8.char", fmt.Errorf("number expected, got %v", typeName(point)))
		} else if r < 0 || r > utf8.MaxRune {
			return nil, argumentErr(i+1, "utf8.char", fmt.Errorf("value out of range"))
		}
		out = utf8.AppendRune(out, rune(r))
	}
	return []Value{String(out)}, nil
}

func stdUtf8Len(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "utf8.len", "string"); err != nil {
		return nil, err
	}
	str := string(args[0].(String))
	for pos := 0; pos < len(str); {
		r, size := utf8.DecodeRuneInString(str[pos:])
		if r == utf8.RuneError && size <= 1 {
			return []Value{nil, Integer(pos + 1)}, nil
		}
		pos += size
	}
	return []Value{Integer(utf8.RuneCountInString(str))}, nil
}

func stdUtf8Codepoint(_ *VM, args []Value) ([]Value, error) {
	if err := assertArguments(args, "utf8.codepoint", "string", "~number", "~number"); err != nil {
		return nil, err
	}
	str := string(args[0].(String))
	length := int64(len(str))
	start := optInteger(args, 1, 1)
	end := optInteger(args, 2, start)
	if start < 0 {
		start = max(length+start+1, 1)
	}
	if end < 0 {
		end = length + end + 1
	}
	if start < 1 || end > length {
		return nil, argumentErr(2, "utf8.codepoint", fmt.Errorf("out of range"))
	}
	out := []Value{}
	for pos := start - 1; pos < end; {
		r, size := utf8.DecodeRuneInString(str[pos:])
		if r == utf8.RuneError && size <= 1 {
			return nil, fmt.Errorf("invalid UTF-8 code")
		}
		out = append(out, Integer(r))
		pos += int64(size)
	}
	return out, nil
}
