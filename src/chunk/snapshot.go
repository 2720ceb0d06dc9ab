package chunk

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/tanema/lvm/src/conf"
	"github.com/tanema/lvm/src/lerrors"
)

type (
	snapProto struct {
		Source          string       `cbor:"1,keyasint"`
		LineDefined     int64        `cbor:"2,keyasint"`
		LastLineDefined int64        `cbor:"3,keyasint"`
		NumParams       uint8        `cbor:"4,keyasint"`
		IsVararg        bool         `cbor:"5,keyasint"`
		MaxStackSize    uint8        `cbor:"6,keyasint"`
		Code            []uint32     `cbor:"7,keyasint"`
		Constants       []snapConst  `cbor:"8,keyasint,omitempty"`
		Upvalues        []Upvalue    `cbor:"9,keyasint,omitempty"`
		Protos          []*snapProto `cbor:"10,keyasint,omitempty"`
		LineInfo        []int64      `cbor:"11,keyasint,omitempty"`
		LocVars         []LocVar     `cbor:"12,keyasint,omitempty"`
	}
	// snapConst keeps the integer/float distinction that a plain cbor number loses.
	snapConst struct {
		Tag   uint8   `cbor:"1,keyasint"`
		Bool  bool    `cbor:"2,keyasint,omitempty"`
		Int   int64   `cbor:"3,keyasint,omitempty"`
		Float float64 `cbor:"4,keyasint,omitempty"`
		Str   string  `cbor:"5,keyasint,omitempty"`
	}
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("chunk: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalSnapshot serializes a prototype tree to signed canonical CBOR bytes.
func MarshalSnapshot(proto *Prototype) ([]byte, error) {
	snap, err := toSnap(proto)
	if err != nil {
		return nil, lerrors.Wrap(lerrors.LoadErr, err)
	}
	data, err := cborEncMode.Marshal(snap)
	if err != nil {
		return nil, lerrors.Wrap(lerrors.LoadErr, fmt.Errorf("snapshot: marshal: %w", err))
	}
	return append([]byte(conf.LVMSIGNATURE), data...), nil
}

// UnmarshalSnapshot deserializes a prototype tree from snapshot bytes.
func UnmarshalSnapshot(data []byte) (*Prototype, error) {
	if !bytes.HasPrefix(data, []byte(conf.LVMSIGNATURE)) {
		return nil, lerrors.New(lerrors.LoadErr, "snapshot: invalid signature")
	}
	var snap snapProto
	if err := cbor.Unmarshal(data[len(conf.LVMSIGNATURE):], &snap); err != nil {
		return nil, lerrors.Wrap(lerrors.LoadErr, fmt.Errorf("snapshot: unmarshal: %w", err))
	}
	return fromSnap(&snap), nil
}

func toSnap(proto *Prototype) (*snapProto, error) {
	snap := &snapProto{
		Source:          proto.Source,
		LineDefined:     proto.LineDefined,
		LastLineDefined: proto.LastLineDefined,
		NumParams:       proto.NumParams,
		IsVararg:        proto.IsVararg,
		MaxStackSize:    proto.MaxStackSize,
		Code:            proto.Code,
		Upvalues:        proto.Upvalues,
		LineInfo:        proto.LineInfo,
		LocVars:         proto.LocVars,
		Constants:       make([]snapConst, len(proto.Constants)),
		Protos:          make([]*snapProto, len(proto.Protos)),
	}
	for i, konst := range proto.Constants {
		switch val := konst.(type) {
		case nil:
			snap.Constants[i] = snapConst{Tag: tagNil}
		case bool:
			snap.Constants[i] = snapConst{Tag: tagBoolean, Bool: val}
		case int64:
			snap.Constants[i] = snapConst{Tag: tagInteger, Int: val}
		case float64:
			snap.Constants[i] = snapConst{Tag: tagFloat, Float: val}
		case string:
			snap.Constants[i] = snapConst{Tag: tagShrStr, Str: val}
		default:
			return nil, fmt.Errorf("snapshot: cannot encode constant of type %T", konst)
		}
	}
	for i, child := range proto.Protos {
		childSnap, err := toSnap(child)
		if err != nil {
			return nil, err
		}
		snap.Protos[i] = childSnap
	}
	return snap, nil
}

func fromSnap(snap *snapProto) *Prototype {
	proto := &Prototype{
		Source:          snap.Source,
		LineDefined:     snap.LineDefined,
		LastLineDefined: snap.LastLineDefined,
		NumParams:       snap.NumParams,
		IsVararg:        snap.IsVararg,
		MaxStackSize:    snap.MaxStackSize,
		Code:            snap.Code,
		Upvalues:        snap.Upvalues,
		LineInfo:        snap.LineInfo,
		LocVars:         snap.LocVars,
		Constants:       make([]any, len(snap.Constants)),
		Protos:          make([]*Prototype, len(snap.Protos)),
	}
	for i, konst := range snap.Constants {
		switch konst.Tag {
		case tagBoolean:
			proto.Constants[i] = konst.Bool
		case tagInteger:
			proto.Constants[i] = konst.Int
		case tagFloat:
			proto.Constants[i] = konst.Float
		case tagShrStr:
			proto.Constants[i] = konst.Str
		}
	}
	for i, child := range snap.Protos {
		proto.Protos[i] = fromSnap(child)
	}
	return proto
}
