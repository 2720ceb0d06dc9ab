package chunk

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/tanema/lvm/src/conf"
	"github.com/tanema/lvm/src/lerrors"
)

// Dump will serialize a prototype tree into a luac 5.3 binary chunk that Undump,
// and the reference lua implementation, can load.
func Dump(proto *Prototype) ([]byte, error) {
	buf := []byte{}
	if err := anyerr([]error{
		dumpHeader(&buf),
		dump(&buf, uint8(len(proto.Upvalues))),
		dumpFn(&buf, proto, ""),
	}); err != nil {
		return nil, lerrors.Wrap(lerrors.LoadErr, err)
	}
	return buf, nil
}

func dumpHeader(buf *[]byte) error {
	return anyerr([]error{
		dump(buf, []byte(conf.LUASIGNATURE)),
		dump(buf, uint8(conf.LUACVERSION)),
		dump(buf, uint8(conf.LUACFORMAT)),
		dump(buf, []byte(conf.LUACDATA)),
		dump(buf, []byte{4, 8, 4, 8, 8}),
		dump(buf, int64(conf.LUACINT)),
		dump(buf, math.Float64bits(conf.LUACNUM)),
	})
}

func dumpFn(buf *[]byte, proto *Prototype, parentSource string) error {
	source := proto.Source
	if source == parentSource {
		source = ""
	}
	vararg := uint8(0)
	if proto.IsVararg {
		vararg = 1
	}
	return anyerr([]error{
		dumpSource(buf, source),
		dump(buf, int32(proto.LineDefined)),
		dump(buf, int32(proto.LastLineDefined)),
		dump(buf, proto.NumParams),
		dump(buf, vararg),
		dump(buf, proto.MaxStackSize),
		dumpCode(buf, proto),
		dumpConstants(buf, proto),
		dumpUpvals(buf, proto),
		dumpProtos(buf, proto),
		dumpDebug(buf, proto),
	})
}

func dumpCode(buf *[]byte, proto *Prototype) error {
	if err := dump(buf, int32(len(proto.Code))); err != nil {
		return errors.Wrap(err, "dumpCode")
	}
	return dump(buf, proto.Code)
}

func dumpConstants(buf *[]byte, proto *Prototype) error {
	if err := dump(buf, int32(len(proto.Constants))); err != nil {
		return errors.Wrap(err, "dumpConstants")
	}
	for _, konst := range proto.Constants {
		var err error
		switch val := konst.(type) {
		case nil:
			err = dump(buf, uint8(tagNil))
		case bool:
			b := uint8(0)
			if val {
				b = 1
			}
			err = anyerr([]error{dump(buf, uint8(tagBoolean)), dump(buf, b)})
		case float64:
			err = anyerr([]error{dump(buf, uint8(tagFloat)), dump(buf, math.Float64bits(val))})
		case int64:
			err = anyerr([]error{dump(buf, uint8(tagInteger)), dump(buf, val)})
		case string:
			tag := uint8(tagShrStr)
			if len(val) > maxShortLen {
				tag = tagLngStr
			}
			err = anyerr([]error{dump(buf, tag), dumpString(buf, val)})
		default:
			err = errors.Errorf("cannot dump constant of type %T", konst)
		}
		if err != nil {
			return errors.Wrap(err, "dumpConstants")
		}
	}
	return nil
}

func dumpUpvals(buf *[]byte, proto *Prototype) error {
	if err := dump(buf, int32(len(proto.Upvalues))); err != nil {
		return errors.Wrap(err, "dumpUpvals")
	}
	for _, upval := range proto.Upvalues {
		instack := uint8(0)
		if upval.FromStack {
			instack = 1
		}
		if err := anyerr([]error{dump(buf, instack), dump(buf, upval.Index)}); err != nil {
			return err
		}
	}
	return nil
}

func dumpProtos(buf *[]byte, proto *Prototype) error {
	if err := dump(buf, int32(len(proto.Protos))); err != nil {
		return errors.Wrap(err, "dumpProtos")
	}
	for _, child := range proto.Protos {
		if err := dumpFn(buf, child, proto.Source); err != nil {
			return err
		}
	}
	return nil
}

func dumpDebug(buf *[]byte, proto *Prototype) error {
	lines := make([]int32, len(proto.LineInfo))
	for i, line := range proto.LineInfo {
		lines[i] = int32(line)
	}
	errs := []error{dump(buf, int32(len(lines))), dump(buf, lines), dump(buf, int32(len(proto.LocVars)))}
	for _, local := range proto.LocVars {
		errs = append(errs,
			dumpString(buf, local.Name),
			dump(buf, int32(local.StartPC)),
			dump(buf, int32(local.EndPC)),
		)
	}
	errs = append(errs, dump(buf, int32(len(proto.Upvalues))))
	for _, upval := range proto.Upvalues {
		errs = append(errs, dumpString(buf, upval.Name))
	}
	return errors.Wrap(anyerr(errs), "dumpDebug")
}

// dumpSource writes an empty source as a null string so nested functions inherit it.
func dumpSource(buf *[]byte, source string) error {
	if source == "" {
		return dump(buf, uint8(0))
	}
	return dumpString(buf, source)
}

func dumpString(buf *[]byte, str string) error {
	size := uint64(len(str)) + 1
	var err error
	if size < 0xFF {
		err = dump(buf, uint8(size))
	} else {
		err = anyerr([]error{dump(buf, uint8(0xFF)), dump(buf, size)})
	}
	return anyerr([]error{err, dump(buf, []byte(str))})
}

func dump(buf *[]byte, val any) error {
	var err error
	*buf, err = binary.Append(*buf, end, val)
	return errors.Wrap(err, "dump")
}

func anyerr(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
