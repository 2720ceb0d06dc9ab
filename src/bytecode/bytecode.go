// Package bytecode handles formatting uint32 values which have meaning for the
// vm. The layout is the one produced by a standard Lua 5.3 compiler.
package bytecode

import (
	"fmt"
)

type (
	// Op is the descriptor of which kind of instruction each bytecode is.
	Op uint8
	// Type is a descriptor of what format an instruction has.
	Type string
)

const (
	// TypeABC is an instruction with an a uint8 and b, c 9 bit params.
	TypeABC Type = "iABC"
	// TypeABx is an instruction with an a uint8 and an unsigned 18 bit b param.
	TypeABx Type = "iABx"
	// TypeAsBx is an instruction with an a uint8 and a signed 18 bit b param.
	TypeAsBx Type = "iAsBx"
	// TypeAx is a raw 26 bit argument.
	TypeAx Type = "iAx"
)

// Format values in the 32 bit opcode.
// | B: 9 | C: 9 | A: u8 | Opcode: u6 |.
const (
	sizeOp = 6
	sizeA  = 8
	sizeB  = 9
	sizeC  = 9
	sizeBx = sizeB + sizeC
	sizeAx = sizeBx + sizeA

	aShift  = sizeOp
	cShift  = aShift + sizeA
	bShift  = cShift + sizeC
	bxShift = cShift
	axShift = aShift

	mask6bits = 1<<sizeOp - 1
	maskA     = 1<<sizeA - 1
	maskB     = 1<<sizeB - 1
	maskC     = 1<<sizeC - 1
	maskBx    = 1<<sizeBx - 1
	maskAx    = 1<<sizeAx - 1

	// MaxArgA is the largest value the a param can hold.
	MaxArgA = maskA
	// MaxArgBx is the largest value an unsigned bx param can hold.
	MaxArgBx = maskBx
	// MaxArgsBx is the bias of the signed bx param.
	MaxArgsBx = MaxArgBx >> 1
	// MaxArgAx is the largest value the ax param can hold.
	MaxArgAx = maskAx
	// BITRK is set on a b or c param when it addresses a constant.
	BITRK = 1 << (sizeB - 1)
	// MaxIndexRK is the largest constant index a b or c param can address.
	MaxIndexRK = BITRK - 1
)

// IABC creates a new bytecode instruction with the format
// | B: 9 | C: 9 | A: u8 | Opcode: u6 |.
func IABC(op Op, a uint8, b, c uint16) uint32 {
	return uint32(b&maskB)<<bShift |
		uint32(c&maskC)<<cShift |
		uint32(a)<<aShift |
		uint32(op)
}

// IAB is a helper to create an IABC instruction without a c param.
func IAB(op Op, a uint8, b uint16) uint32 { return IABC(op, a, b, 0) }

// IABx creates an instruction with a register and an unsigned value usually load constant.
func IABx(op Op, a uint8, bx uint32) uint32 {
	return (bx&maskBx)<<bxShift | uint32(a)<<aShift | uint32(op)
}

// IAsBx creates an instruction with a register and a signed value often used for jumps.
func IAsBx(op Op, a uint8, sbx int32) uint32 {
	return IABx(op, a, uint32(sbx+MaxArgsBx))
}

// IAx creates an instruction that is only a large argument, EXTRAARG.
func IAx(op Op, ax uint32) uint32 { return (ax&maskAx)<<axShift | uint32(op) }

// RK marks a constant index so that it can be used as a b or c param.
func RK(idx uint16) uint16 { return idx | BITRK }

// IsK tells if a b or c param addresses a constant.
func IsK(x int64) bool { return x&BITRK != 0 }

// IndexK returns the constant index of a b or c param.
func IndexK(x int64) int64 { return x & MaxIndexRK }

// GetOp gets what type of instruction it is. Used for dispatch in the vm.
func GetOp(bc uint32) Op { return Op(bc & mask6bits) }

// GetA gets the a param in all of the instructions.
func GetA(bc uint32) int64 { return int64(bc >> aShift & maskA) }

// GetB gets the b param in IABC instructions.
func GetB(bc uint32) int64 { return int64(bc >> bShift & maskB) }

// GetC gets the c param in IABC instructions.
func GetC(bc uint32) int64 { return int64(bc >> cShift & maskC) }

// GetBx gets the b param in IABx instructions.
func GetBx(bc uint32) int64 { return int64(bc >> bxShift & maskBx) }

// GetsBx gets the b param in IAsBx instructions.
func GetsBx(bc uint32) int64 { return GetBx(bc) - MaxArgsBx }

// GetAx gets the param of IAx instructions.
func GetAx(bc uint32) int64 { return int64(bc >> axShift & maskAx) }

// Kind will return which type of bytecode it is, iABC, iABx, iAsBx, iAx.
func Kind(bc uint32) Type {
	op := GetOp(bc)
	if !op.Valid() {
		return ""
	}
	return Info[op].Mode
}

// Fb2int decodes a "floating point byte" (eeeeexxx) used for table size hints.
func Fb2int(x int64) int64 {
	if x < 8 {
		return x
	}
	return ((x & 7) + 8) << ((x >> 3) - 1)
}

// Int2fb encodes a size into a "floating point byte", rounding up.
func Int2fb(x uint32) int64 {
	e := 0
	if x < 8 {
		return int64(x)
	}
	for x >= 8<<4 {
		x = (x + 0xf) >> 4
		e += 4
	}
	for x >= 8<<1 {
		x = (x + 1) >> 1
		e++
	}
	return int64((e+1)<<3) | (int64(x) - 8)
}

// ToString will format an instruction to be understandable. Constant operands
// are written as negative numbers the same way luac -l lists them.
func ToString(bc uint32) string {
	op := GetOp(bc)
	if !op.Valid() {
		return fmt.Sprintf("%-10v %v", "UNDEFINED", bc)
	}
	info := Info[op]
	a := GetA(bc)
	switch info.Mode {
	case TypeABx:
		bx := GetBx(bc)
		switch info.B {
		case OpArgK:
			return fmt.Sprintf("%-10v %v %v", op, a, -1-bx)
		case OpArgU:
			return fmt.Sprintf("%-10v %v %v", op, a, bx)
		default:
			return fmt.Sprintf("%-10v %v", op, a)
		}
	case TypeAsBx:
		return fmt.Sprintf("%-10v %v %v", op, a, GetsBx(bc))
	case TypeAx:
		return fmt.Sprintf("%-10v %v", op, -1-GetAx(bc))
	default:
		str := fmt.Sprintf("%-10v %v", op, a)
		if info.B != OpArgN {
			str += " " + rkString(GetB(bc))
		}
		if info.C != OpArgN {
			str += " " + rkString(GetC(bc))
		}
		return str
	}
}

func rkString(x int64) string {
	if IsK(x) {
		return fmt.Sprint(-1 - IndexK(x))
	}
	return fmt.Sprint(x)
}
