package chunk

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/tanema/lvm/src/conf"
	"github.com/tanema/lvm/src/lerrors"
)

// constant tags in a luac 5.3 binary chunk.
const (
	tagNil     = 0x00
	tagBoolean = 0x01
	tagFloat   = 0x03
	tagInteger = 0x13
	tagShrStr  = 0x04
	tagLngStr  = 0x14

	maxShortLen = 40
)

var end = binary.LittleEndian

// reader keeps the first error so a whole function can be read before checking it.
type reader struct {
	src io.Reader
	err error
}

// Undump will deserialize a luac 5.3 binary chunk into a prototype tree ready
// for interpreting.
func Undump(src io.Reader) (*Prototype, error) {
	r := &reader{src: src}
	if err := r.header(); err != nil {
		return nil, lerrors.Wrap(lerrors.LoadErr, err)
	}
	r.u8() // size of upvalues of the main closure
	proto := r.function("")
	if r.err != nil {
		return nil, lerrors.Wrap(lerrors.LoadErr, r.err)
	}
	return proto, nil
}

func (r *reader) header() error {
	signature := r.bytes(len(conf.LUASIGNATURE))
	version := r.u8()
	format := r.u8()
	data := r.bytes(len(conf.LUACDATA))
	sizes := r.bytes(5)
	luacInt := r.integer()
	luacNum := r.number()
	if r.err != nil {
		return errors.Wrap(r.err, "undump header")
	}
	switch {
	case string(signature) != conf.LUASIGNATURE:
		return errors.New("not a precompiled chunk")
	case version != conf.LUACVERSION:
		return fmt.Errorf("version mismatch, expected %#x, found %#x", conf.LUACVERSION, version)
	case format != conf.LUACFORMAT:
		return fmt.Errorf("format mismatch, expected %v, found %v", conf.LUACFORMAT, format)
	case string(data) != conf.LUACDATA:
		return errors.New("corrupted chunk")
	case sizes[0] != 4 || sizes[1] != 8 || sizes[2] != 4 || sizes[3] != 8 || sizes[4] != 8:
		return fmt.Errorf("unsupported type sizes %v", sizes)
	case luacInt != conf.LUACINT:
		return errors.New("endianness mismatch")
	case luacNum != conf.LUACNUM:
		return errors.New("float format mismatch")
	}
	return nil
}

func (r *reader) function(parentSource string) *Prototype {
	proto := &Prototype{Source: r.str()}
	if proto.Source == "" {
		proto.Source = parentSource
	}
	proto.LineDefined = int64(r.cint())
	proto.LastLineDefined = int64(r.cint())
	proto.NumParams = r.u8()
	proto.IsVararg = r.u8() != 0
	proto.MaxStackSize = r.u8()
	proto.Code = r.code()
	proto.Constants = r.constants()
	proto.Upvalues = r.upvalues()
	proto.Protos = r.protos(proto.Source)
	r.debug(proto)
	return proto
}

func (r *reader) code() []uint32 {
	size := r.count()
	code := make([]uint32, size)
	for i := range code {
		code[i] = uint32(r.cint())
	}
	return code
}

func (r *reader) constants() []any {
	size := r.count()
	consts := make([]any, size)
	for i := range consts {
		switch tag := r.u8(); tag {
		case tagNil:
		case tagBoolean:
			consts[i] = r.u8() != 0
		case tagFloat:
			consts[i] = r.number()
		case tagInteger:
			consts[i] = r.integer()
		case tagShrStr, tagLngStr:
			consts[i] = r.str()
		default:
			r.fail(fmt.Errorf("unknown constant tag %#x", tag))
			return consts
		}
	}
	return consts
}

func (r *reader) upvalues() []Upvalue {
	size := r.count()
	upvals := make([]Upvalue, size)
	for i := range upvals {
		upvals[i].FromStack = r.u8() != 0
		upvals[i].Index = r.u8()
	}
	return upvals
}

func (r *reader) protos(source string) []*Prototype {
	size := r.count()
	protos := make([]*Prototype, size)
	for i := range protos {
		protos[i] = r.function(source)
	}
	return protos
}

func (r *reader) debug(proto *Prototype) {
	size := r.count()
	proto.LineInfo = make([]int64, size)
	for i := range proto.LineInfo {
		proto.LineInfo[i] = int64(r.cint())
	}
	size = r.count()
	proto.LocVars = make([]LocVar, size)
	for i := range proto.LocVars {
		proto.LocVars[i] = LocVar{Name: r.str(), StartPC: int(r.cint()), EndPC: int(r.cint())}
	}
	size = r.count()
	for i := range size {
		name := r.str()
		if i < len(proto.Upvalues) {
			proto.Upvalues[i].Name = name
		}
	}
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) read(val any) {
	if r.err != nil {
		return
	}
	if err := binary.Read(r.src, end, val); err != nil {
		r.err = errors.Wrap(err, "undump")
	}
}

func (r *reader) bytes(n int) []byte {
	buf := make([]byte, n)
	if r.err != nil {
		return buf
	}
	if _, err := io.ReadFull(r.src, buf); err != nil {
		r.err = errors.Wrap(err, "undump")
	}
	return buf
}

func (r *reader) u8() uint8 {
	var b uint8
	r.read(&b)
	return b
}

func (r *reader) cint() int32 {
	var i int32
	r.read(&i)
	return i
}

// count reads a cint used as a length and refuses anything negative.
func (r *reader) count() int {
	n := r.cint()
	if n < 0 {
		r.fail(fmt.Errorf("invalid length %v", n))
		return 0
	}
	return int(n)
}

func (r *reader) integer() int64 {
	var i int64
	r.read(&i)
	return i
}

func (r *reader) number() float64 {
	var bits uint64
	r.read(&bits)
	return math.Float64frombits(bits)
}

func (r *reader) str() string {
	size := uint64(r.u8())
	if size == 0xFF {
		r.read(&size)
	}
	if size == 0 || r.err != nil {
		return ""
	} else if size > math.MaxInt32 {
		r.fail(fmt.Errorf("string too large %v", size))
		return ""
	}
	return string(r.bytes(int(size - 1)))
}
