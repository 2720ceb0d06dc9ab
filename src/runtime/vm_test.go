package runtime

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanema/lvm/src/bytecode"
	"github.com/tanema/lvm/src/chunk"
	"github.com/tanema/lvm/src/conf"
	"github.com/tanema/lvm/src/lerrors"
)

var envUpvalue = []chunk.Upvalue{{Name: "_ENV", FromStack: true, Index: 0}}

func testProto(consts []any, code ...uint32) *chunk.Prototype {
	return &chunk.Prototype{
		Source:       "@test.lua",
		MaxStackSize: 8,
		Constants:    consts,
		Code:         code,
		Upvalues:     envUpvalue,
	}
}

func rk(idx uint16) uint16 { return bytecode.RK(idx) }

func TestVM_Eval(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		desc      string
		constants []any
		code      []uint32
		result    []Value
		errKind   lerrors.ErrorKind
	}{
		{
			desc:      "MOVE",
			constants: []any{int64(23)},
			code: []uint32{
				bytecode.IABx(bytecode.LOADK, 0, 0), bytecode.IAB(bytecode.MOVE, 1, 0), bytecode.IAB(bytecode.RETURN, 0, 3),
			},
			result: []Value{Integer(23), Integer(23)},
		},
		{
			desc: "LOADBOOL",
			code: []uint32{
				bytecode.IABC(bytecode.LOADBOOL, 0, 1, 1), bytecode.IABC(bytecode.LOADBOOL, 0, 0, 0),
				bytecode.IABC(bytecode.LOADBOOL, 1, 0, 0), bytecode.IAB(bytecode.RETURN, 0, 3),
			},
			result: []Value{Boolean(true), Boolean(false)},
		},
		{
			desc:      "LOADNIL",
			constants: []any{int64(23)},
			code: []uint32{
				bytecode.IABx(bytecode.LOADK, 0, 0), bytecode.IABx(bytecode.LOADK, 1, 0), bytecode.IAB(bytecode.LOADNIL, 0, 1),
				bytecode.IABx(bytecode.LOADK, 2, 0), bytecode.IAB(bytecode.RETURN, 0, 4),
			},
			result: []Value{nil, nil, Integer(23)},
		},
		{
			desc:      "ADD integer and float",
			constants: []any{int64(1), float64(4)},
			code:      []uint32{bytecode.IABC(bytecode.ADD, 0, rk(0), rk(1)), bytecode.IAB(bytecode.RETURN, 0, 2)},
			result:    []Value{Float(5)},
		},
		{
			desc:      "MOD",
			constants: []any{int64(7), int64(4)},
			code:      []uint32{bytecode.IABC(bytecode.MOD, 0, rk(0), rk(1)), bytecode.IAB(bytecode.RETURN, 0, 2)},
			result:    []Value{Integer(3)},
		},
		{
			desc:      "MOD by zero",
			constants: []any{int64(7), int64(0)},
			code:      []uint32{bytecode.IABC(bytecode.MOD, 0, rk(0), rk(1)), bytecode.IAB(bytecode.RETURN, 0, 2)},
			errKind:   lerrors.ArithmeticErr,
		},
		{
			desc:      "DIV IDIV POW",
			constants: []any{int64(7), int64(2)},
			code: []uint32{
				bytecode.IABC(bytecode.DIV, 0, rk(0), rk(1)), bytecode.IABC(bytecode.IDIV, 1, rk(0), rk(1)),
				bytecode.IABC(bytecode.POW, 2, rk(1), rk(1)), bytecode.IAB(bytecode.RETURN, 0, 4),
			},
			result: []Value{Float(3.5), Integer(3), Float(4)},
		},
		{
			desc:      "BAND BOR BXOR",
			constants: []any{int64(60), int64(13)},
			code: []uint32{
				bytecode.IABC(bytecode.BAND, 0, rk(0), rk(1)), bytecode.IABC(bytecode.BOR, 1, rk(0), rk(1)),
				bytecode.IABC(bytecode.BXOR, 2, rk(0), rk(1)), bytecode.IAB(bytecode.RETURN, 0, 4),
			},
			result: []Value{Integer(12), Integer(61), Integer(49)},
		},
		{
			desc:      "SHL SHR",
			constants: []any{int64(1), int64(4), int64(-1), int64(60)},
			code: []uint32{
				bytecode.IABC(bytecode.SHL, 0, rk(0), rk(1)), bytecode.IABC(bytecode.SHR, 1, rk(2), rk(3)),
				bytecode.IAB(bytecode.RETURN, 0, 3),
			},
			result: []Value{Integer(16), Integer(15)},
		},
		{
			desc:      "BAND float without integer representation",
			constants: []any{float64(1.5), int64(1)},
			code:      []uint32{bytecode.IABC(bytecode.BAND, 0, rk(0), rk(1)), bytecode.IAB(bytecode.RETURN, 0, 2)},
			errKind:   lerrors.ArithmeticErr,
		},
		{
			desc:      "BNOT UNM",
			constants: []any{int64(4), float64(2.5)},
			code: []uint32{
				bytecode.IABx(bytecode.LOADK, 0, 0), bytecode.IAB(bytecode.BNOT, 0, 0),
				bytecode.IABx(bytecode.LOADK, 1, 1), bytecode.IAB(bytecode.UNM, 1, 1),
				bytecode.IAB(bytecode.RETURN, 0, 3),
			},
			result: []Value{Integer(-5), Float(-2.5)},
		},
		{
			desc: "NOT",
			code: []uint32{
				bytecode.IAB(bytecode.LOADNIL, 0, 0), bytecode.IAB(bytecode.NOT, 1, 0), bytecode.IAB(bytecode.RETURN, 1, 2),
			},
			result: []Value{Boolean(true)},
		},
		{
			desc:      "LEN",
			constants: []any{"hello"},
			code: []uint32{
				bytecode.IABx(bytecode.LOADK, 0, 0), bytecode.IAB(bytecode.LEN, 1, 0), bytecode.IAB(bytecode.RETURN, 1, 2),
			},
			result: []Value{Integer(5)},
		},
		{
			desc:      "LEN of a number",
			constants: []any{int64(5)},
			code: []uint32{
				bytecode.IABx(bytecode.LOADK, 0, 0), bytecode.IAB(bytecode.LEN, 1, 0), bytecode.IAB(bytecode.RETURN, 1, 2),
			},
			errKind: lerrors.TypeErr,
		},
		{
			desc:      "CONCAT",
			constants: []any{"hello ", "world", int64(2)},
			code: []uint32{
				bytecode.IABx(bytecode.LOADK, 0, 0), bytecode.IABx(bytecode.LOADK, 1, 1), bytecode.IABx(bytecode.LOADK, 2, 2),
				bytecode.IABC(bytecode.CONCAT, 3, 0, 2), bytecode.IAB(bytecode.RETURN, 3, 2),
			},
			result: []Value{String("hello world2")},
		},
		{
			desc:      "CONCAT a boolean",
			constants: []any{"hello "},
			code: []uint32{
				bytecode.IABx(bytecode.LOADK, 0, 0), bytecode.IABC(bytecode.LOADBOOL, 1, 1, 0),
				bytecode.IABC(bytecode.CONCAT, 2, 0, 1), bytecode.IAB(bytecode.RETURN, 2, 2),
			},
			errKind: lerrors.TypeErr,
		},
		{
			desc:      "EQ integer and float",
			constants: []any{int64(1), float64(1)},
			code: []uint32{
				bytecode.IABC(bytecode.LOADBOOL, 0, 0, 0), bytecode.IABC(bytecode.EQ, 0, rk(0), rk(1)),
				bytecode.IAsBx(bytecode.JMP, 0, 1), bytecode.IABC(bytecode.LOADBOOL, 0, 1, 0),
				bytecode.IAB(bytecode.RETURN, 0, 2),
			},
			result: []Value{Boolean(true)},
		},
		{
			desc:      "LT strings",
			constants: []any{"2.0", "3.0"},
			code: []uint32{
				bytecode.IABC(bytecode.LOADBOOL, 0, 0, 0), bytecode.IABC(bytecode.LT, 0, rk(0), rk(1)),
				bytecode.IAsBx(bytecode.JMP, 0, 1), bytecode.IABC(bytecode.LOADBOOL, 0, 1, 0),
				bytecode.IAB(bytecode.RETURN, 0, 2),
			},
			result: []Value{Boolean(true)},
		},
		{
			desc:      "LE not taken",
			constants: []any{int64(3), int64(2)},
			code: []uint32{
				bytecode.IABC(bytecode.LOADBOOL, 0, 0, 0), bytecode.IABC(bytecode.LE, 0, rk(0), rk(1)),
				bytecode.IAsBx(bytecode.JMP, 0, 1), bytecode.IABC(bytecode.LOADBOOL, 0, 1, 0),
				bytecode.IAB(bytecode.RETURN, 0, 2),
			},
			result: []Value{Boolean(false)},
		},
		{
			desc:      "LT string with number",
			constants: []any{"1", int64(2)},
			code:      []uint32{bytecode.IABC(bytecode.LT, 0, rk(0), rk(1)), bytecode.IAB(bytecode.RETURN, 0, 1)},
			errKind:   lerrors.TypeErr,
		},
		{
			desc:      "TEST",
			constants: []any{int64(1), int64(2)},
			code: []uint32{
				bytecode.IAB(bytecode.LOADNIL, 0, 0), bytecode.IABC(bytecode.TEST, 0, 0, 0),
				bytecode.IAsBx(bytecode.JMP, 0, 2), bytecode.IABx(bytecode.LOADK, 1, 0), bytecode.IAsBx(bytecode.JMP, 0, 1),
				bytecode.IABx(bytecode.LOADK, 1, 1), bytecode.IAB(bytecode.RETURN, 1, 2),
			},
			result: []Value{Integer(2)},
		},
		{
			desc:      "TESTSET",
			constants: []any{int64(5)},
			code: []uint32{
				bytecode.IABx(bytecode.LOADK, 1, 0), bytecode.IAB(bytecode.LOADNIL, 0, 0),
				bytecode.IABC(bytecode.TESTSET, 0, 1, 1), bytecode.IAsBx(bytecode.JMP, 0, 1),
				bytecode.IABC(bytecode.LOADBOOL, 0, 0, 0), bytecode.IAB(bytecode.RETURN, 0, 2),
			},
			result: []Value{Integer(5)},
		},
		{
			desc:      "SETTABLE GETTABLE",
			constants: []any{"key", "value"},
			code: []uint32{
				bytecode.IABC(bytecode.NEWTABLE, 0, 0, 1), bytecode.IABC(bytecode.SETTABLE, 0, rk(0), rk(1)),
				bytecode.IABC(bytecode.GETTABLE, 1, 0, rk(0)), bytecode.IAB(bytecode.RETURN, 1, 2),
			},
			result: []Value{String("value")},
		},
		{
			desc:      "GETTABLE on a number",
			constants: []any{int64(1)},
			code: []uint32{
				bytecode.IABx(bytecode.LOADK, 0, 0), bytecode.IABC(bytecode.GETTABLE, 1, 0, rk(0)),
				bytecode.IAB(bytecode.RETURN, 1, 2),
			},
			errKind: lerrors.TypeErr,
		},
		{
			desc: "SETTABLE nil key",
			code: []uint32{
				bytecode.IABC(bytecode.NEWTABLE, 0, 0, 0), bytecode.IAB(bytecode.LOADNIL, 1, 0),
				bytecode.IABC(bytecode.SETTABLE, 0, 1, 1), bytecode.IAB(bytecode.RETURN, 0, 1),
			},
			errKind: lerrors.IndexErr,
		},
		{
			desc:      "SELF",
			constants: []any{"name", "tbl"},
			code: []uint32{
				bytecode.IABC(bytecode.NEWTABLE, 0, 0, 1), bytecode.IABC(bytecode.SETTABLE, 0, rk(0), rk(1)),
				bytecode.IABC(bytecode.SELF, 1, 0, rk(0)), bytecode.IAB(bytecode.RETURN, 1, 2),
			},
			result: []Value{String("tbl")},
		},
		{
			desc:      "SETLIST",
			constants: []any{int64(10), int64(20), int64(30)},
			code: []uint32{
				bytecode.IABC(bytecode.NEWTABLE, 0, 3, 0), bytecode.IABx(bytecode.LOADK, 1, 0),
				bytecode.IABx(bytecode.LOADK, 2, 1), bytecode.IABx(bytecode.LOADK, 3, 2),
				bytecode.IABC(bytecode.SETLIST, 0, 3, 1), bytecode.IAB(bytecode.LEN, 1, 0),
				bytecode.IABC(bytecode.GETTABLE, 2, 0, rk(0)), bytecode.IAB(bytecode.RETURN, 1, 3),
			},
			result: []Value{Integer(3), nil},
		},
		{
			desc:      "SETLIST with EXTRAARG",
			constants: []any{int64(10), int64(51)},
			code: []uint32{
				bytecode.IABC(bytecode.NEWTABLE, 0, 0, 0), bytecode.IABx(bytecode.LOADK, 1, 0),
				bytecode.IABC(bytecode.SETLIST, 0, 1, 0), bytecode.IAx(bytecode.EXTRAARG, 1),
				bytecode.IABC(bytecode.GETTABLE, 1, 0, rk(1)), bytecode.IAB(bytecode.RETURN, 1, 2),
			},
			result: []Value{Integer(10)},
		},
		{
			desc:      "LOADKX",
			constants: []any{int64(1), "extra"},
			code: []uint32{
				bytecode.IABx(bytecode.LOADKX, 0, 0), bytecode.IAx(bytecode.EXTRAARG, 1), bytecode.IAB(bytecode.RETURN, 0, 2),
			},
			result: []Value{String("extra")},
		},
		{
			desc:      "SETTABUP GETTABUP",
			constants: []any{"x", int64(42)},
			code: []uint32{
				bytecode.IABC(bytecode.SETTABUP, 0, rk(0), rk(1)), bytecode.IABC(bytecode.GETTABUP, 0, 0, rk(0)),
				bytecode.IAB(bytecode.RETURN, 0, 2),
			},
			result: []Value{Integer(42)},
		},
		{
			desc:      "FORLOOP integer",
			constants: []any{int64(0), int64(100), int64(2)},
			code: []uint32{
				bytecode.IABx(bytecode.LOADK, 0, 0), bytecode.IABx(bytecode.LOADK, 1, 0),
				bytecode.IABx(bytecode.LOADK, 2, 1), bytecode.IABx(bytecode.LOADK, 3, 2),
				bytecode.IAsBx(bytecode.FORPREP, 1, 1), bytecode.IABC(bytecode.ADD, 0, 0, 4),
				bytecode.IAsBx(bytecode.FORLOOP, 1, -2), bytecode.IAB(bytecode.RETURN, 0, 2),
			},
			result: []Value{Integer(2550)},
		},
		{
			desc:      "FORLOOP descending",
			constants: []any{int64(0), int64(10), int64(1), int64(-3)},
			code: []uint32{
				bytecode.IABx(bytecode.LOADK, 0, 0), bytecode.IABx(bytecode.LOADK, 1, 1),
				bytecode.IABx(bytecode.LOADK, 2, 2), bytecode.IABx(bytecode.LOADK, 3, 3),
				bytecode.IAsBx(bytecode.FORPREP, 1, 1), bytecode.IABC(bytecode.ADD, 0, 0, 4),
				bytecode.IAsBx(bytecode.FORLOOP, 1, -2), bytecode.IAB(bytecode.RETURN, 0, 2),
			},
			result: []Value{Integer(22)},
		},
		{
			desc:      "FORLOOP float",
			constants: []any{int64(0), float64(1), int64(2), float64(0.5)},
			code: []uint32{
				bytecode.IABx(bytecode.LOADK, 0, 0), bytecode.IABx(bytecode.LOADK, 1, 1),
				bytecode.IABx(bytecode.LOADK, 2, 2), bytecode.IABx(bytecode.LOADK, 3, 3),
				bytecode.IAsBx(bytecode.FORPREP, 1, 1), bytecode.IABC(bytecode.ADD, 0, 0, 4),
				bytecode.IAsBx(bytecode.FORLOOP, 1, -2), bytecode.IAB(bytecode.RETURN, 0, 2),
			},
			result: []Value{Float(4.5)},
		},
		{
			desc:      "FORLOOP string initial value",
			constants: []any{int64(0), "1", int64(3), int64(1)},
			code: []uint32{
				bytecode.IABx(bytecode.LOADK, 0, 0), bytecode.IABx(bytecode.LOADK, 1, 1),
				bytecode.IABx(bytecode.LOADK, 2, 2), bytecode.IABx(bytecode.LOADK, 3, 3),
				bytecode.IAsBx(bytecode.FORPREP, 1, 1), bytecode.IABC(bytecode.ADD, 0, 0, 4),
				bytecode.IAsBx(bytecode.FORLOOP, 1, -2), bytecode.IAB(bytecode.RETURN, 0, 2),
			},
			result: []Value{Float(6)},
		},
		{
			desc:      "FORPREP zero step",
			constants: []any{int64(1), int64(0)},
			code: []uint32{
				bytecode.IABx(bytecode.LOADK, 0, 0), bytecode.IABx(bytecode.LOADK, 1, 0), bytecode.IABx(bytecode.LOADK, 2, 1),
				bytecode.IAsBx(bytecode.FORPREP, 0, 0), bytecode.IAsBx(bytecode.FORLOOP, 0, -1),
				bytecode.IAB(bytecode.RETURN, 0, 1),
			},
			errKind: lerrors.ArithmeticErr,
		},
		{
			desc:      "FORPREP non numeric limit",
			constants: []any{int64(1)},
			code: []uint32{
				bytecode.IABx(bytecode.LOADK, 0, 0), bytecode.IABC(bytecode.NEWTABLE, 1, 0, 0), bytecode.IABx(bytecode.LOADK, 2, 0),
				bytecode.IAsBx(bytecode.FORPREP, 0, 0), bytecode.IAsBx(bytecode.FORLOOP, 0, -1),
				bytecode.IAB(bytecode.RETURN, 0, 1),
			},
			errKind: lerrors.TypeErr,
		},
		{
			desc:    "undefined opcode",
			code:    []uint32{uint32(50), bytecode.IAB(bytecode.RETURN, 0, 1)},
			errKind: lerrors.UnsupportedOpcode,
		},
		{
			desc:    "free standing EXTRAARG",
			code:    []uint32{bytecode.IAx(bytecode.EXTRAARG, 0), bytecode.IAB(bytecode.RETURN, 0, 1)},
			errKind: lerrors.UnsupportedOpcode,
		},
		{
			desc:      "running off the end returns nothing",
			constants: []any{int64(1)},
			code:      []uint32{bytecode.IABx(bytecode.LOADK, 0, 0)},
			result:    []Value{},
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()
			vm := New(context.Background(), nil)
			res, err := vm.Eval(testProto(tc.constants, tc.code...))
			if tc.result != nil {
				require.NoError(t, err)
				assert.Equal(t, tc.result, res)
			} else {
				require.Error(t, err)
				assert.True(t, lerrors.Is(err, tc.errKind), "expected %v got %v", tc.errKind, err)
			}
		})
	}
}

func TestVM_Closures(t *testing.T) {
	t.Parallel()

	t.Run("shared upvalue cell", func(t *testing.T) {
		t.Parallel()
		xUpval := []chunk.Upvalue{{Name: "x", FromStack: true, Index: 0}}
		setter := &chunk.Prototype{
			MaxStackSize: 2,
			Constants:    []any{int64(5)},
			Upvalues:     xUpval,
			Code: []uint32{
				bytecode.IABx(bytecode.LOADK, 0, 0), bytecode.IAB(bytecode.SETUPVAL, 0, 0), bytecode.IAB(bytecode.RETURN, 0, 1),
			},
		}
		getter := &chunk.Prototype{
			MaxStackSize: 2,
			Upvalues:     xUpval,
			Code:         []uint32{bytecode.IAB(bytecode.GETUPVAL, 0, 0), bytecode.IAB(bytecode.RETURN, 0, 2)},
		}
		main := testProto([]any{int64(1)},
			bytecode.IABx(bytecode.LOADK, 0, 0),
			bytecode.IABx(bytecode.CLOSURE, 1, 0),
			bytecode.IABx(bytecode.CLOSURE, 2, 1),
			bytecode.IAB(bytecode.MOVE, 3, 1),
			bytecode.IABC(bytecode.CALL, 3, 1, 1),
			bytecode.IAB(bytecode.MOVE, 3, 2),
			bytecode.IABC(bytecode.CALL, 3, 1, 2),
			bytecode.IAB(bytecode.MOVE, 4, 0),
			bytecode.IAB(bytecode.RETURN, 3, 3),
		)
		main.Protos = []*chunk.Prototype{setter, getter}
		res, err := New(context.Background(), nil).Eval(main)
		require.NoError(t, err)
		assert.Equal(t, []Value{Integer(5), Integer(5)}, res)
	})

	t.Run("upvalue outlives its frame", func(t *testing.T) {
		t.Parallel()
		inc := &chunk.Prototype{
			MaxStackSize: 2,
			Constants:    []any{int64(1)},
			Upvalues:     []chunk.Upvalue{{Name: "n", FromStack: true, Index: 0}},
			Code: []uint32{
				bytecode.IAB(bytecode.GETUPVAL, 0, 0), bytecode.IABC(bytecode.ADD, 0, 0, rk(0)),
				bytecode.IAB(bytecode.SETUPVAL, 0, 0), bytecode.IAB(bytecode.RETURN, 0, 2),
			},
		}
		factory := &chunk.Prototype{
			MaxStackSize: 2,
			LineDefined:  1,
			Constants:    []any{int64(0)},
			Protos:       []*chunk.Prototype{inc},
			Code: []uint32{
				bytecode.IABx(bytecode.LOADK, 0, 0), bytecode.IABx(bytecode.CLOSURE, 1, 0), bytecode.IAB(bytecode.RETURN, 1, 2),
			},
		}
		main := testProto(nil,
			bytecode.IABx(bytecode.CLOSURE, 0, 0),
			bytecode.IAB(bytecode.MOVE, 1, 0),
			bytecode.IABC(bytecode.CALL, 1, 1, 2),
			bytecode.IAB(bytecode.MOVE, 2, 1),
			bytecode.IABC(bytecode.CALL, 2, 1, 1),
			bytecode.IAB(bytecode.MOVE, 2, 1),
			bytecode.IABC(bytecode.CALL, 2, 1, 2),
			bytecode.IAB(bytecode.RETURN, 2, 2),
		)
		main.Protos = []*chunk.Prototype{factory}
		res, err := New(context.Background(), nil).Eval(main)
		require.NoError(t, err)
		assert.Equal(t, []Value{Integer(2)}, res)
	})

	t.Run("jmp closes upvalues", func(t *testing.T) {
		t.Parallel()
		getter := &chunk.Prototype{
			MaxStackSize: 2,
			Upvalues:     []chunk.Upvalue{{Name: "x", FromStack: true, Index: 0}},
			Code:         []uint32{bytecode.IAB(bytecode.GETUPVAL, 0, 0), bytecode.IAB(bytecode.RETURN, 0, 2)},
		}
		main := testProto([]any{int64(1), int64(2)},
			bytecode.IABx(bytecode.LOADK, 0, 0),
			bytecode.IABx(bytecode.CLOSURE, 1, 0),
			bytecode.IAsBx(bytecode.JMP, 1, 0),
			bytecode.IABx(bytecode.LOADK, 0, 1),
			bytecode.IAB(bytecode.MOVE, 2, 1),
			bytecode.IABC(bytecode.CALL, 2, 1, 2),
			bytecode.IAB(bytecode.MOVE, 1, 0),
			bytecode.IAB(bytecode.RETURN, 1, 3),
		)
		main.Protos = []*chunk.Prototype{getter}
		res, err := New(context.Background(), nil).Eval(main)
		require.NoError(t, err)
		assert.Equal(t, []Value{Integer(2), Integer(1)}, res)
	})
}

func sumEvensProto() *chunk.Prototype {
	return &chunk.Prototype{
		Source:       "@loop.lua",
		MaxStackSize: 6,
		IsVararg:     true,
		Constants:    []any{int64(0), int64(1), int64(100), int64(2)},
		Upvalues:     envUpvalue,
		Code: []uint32{
			bytecode.IABx(bytecode.LOADK, 0, 0),
			bytecode.IABx(bytecode.LOADK, 1, 1),
			bytecode.IABx(bytecode.LOADK, 2, 2),
			bytecode.IABx(bytecode.LOADK, 3, 1),
			bytecode.IAsBx(bytecode.FORPREP, 1, 4),
			bytecode.IABC(bytecode.MOD, 5, 4, rk(3)),
			bytecode.IABC(bytecode.EQ, 0, 5, rk(0)),
			bytecode.IAsBx(bytecode.JMP, 0, 1),
			bytecode.IABC(bytecode.ADD, 0, 0, 4),
			bytecode.IAsBx(bytecode.FORLOOP, 1, -5),
			bytecode.IAB(bytecode.RETURN, 0, 2),
			bytecode.IAB(bytecode.RETURN, 0, 1),
		},
		LineInfo: []int64{1, 2, 2, 2, 2, 3, 3, 3, 4, 2, 6, 6},
	}
}

func TestVM_LoadChunk(t *testing.T) {
	t.Parallel()
	data, err := chunk.Dump(sumEvensProto())
	require.NoError(t, err)

	vm := New(context.Background(), nil)
	require.NoError(t, vm.LoadChunk(bytes.NewReader(data)))
	assert.Equal(t, 1, vm.GetTop())
	assert.True(t, vm.IsFunction(-1))
	require.NoError(t, vm.Call(0, 1))
	assert.Equal(t, 1, vm.GetTop())
	assert.Equal(t, int64(2550), vm.ToInteger(-1))
	assert.Equal(t, 0, vm.Depth())
}

func TestVM_Calls(t *testing.T) {
	t.Parallel()

	t.Run("varargs", func(t *testing.T) {
		t.Parallel()
		fn := &chunk.Prototype{
			NumParams:    1,
			IsVararg:     true,
			MaxStackSize: 4,
			Code:         []uint32{bytecode.IAB(bytecode.VARARG, 1, 0), bytecode.IAB(bytecode.RETURN, 0, 0)},
		}
		main := testProto([]any{int64(1), int64(2), int64(3)},
			bytecode.IABx(bytecode.CLOSURE, 0, 0),
			bytecode.IABx(bytecode.LOADK, 1, 0),
			bytecode.IABx(bytecode.LOADK, 2, 1),
			bytecode.IABx(bytecode.LOADK, 3, 2),
			bytecode.IABC(bytecode.CALL, 0, 4, 0),
			bytecode.IAB(bytecode.RETURN, 0, 0),
		)
		main.Protos = []*chunk.Prototype{fn}
		res, err := New(context.Background(), nil).Eval(main)
		require.NoError(t, err)
		assert.Equal(t, []Value{Integer(1), Integer(2), Integer(3)}, res)
	})

	t.Run("fixed varargs pad with nil", func(t *testing.T) {
		t.Parallel()
		fn := &chunk.Prototype{
			IsVararg:     true,
			MaxStackSize: 4,
			Code:         []uint32{bytecode.IAB(bytecode.VARARG, 0, 4), bytecode.IAB(bytecode.RETURN, 0, 4)},
		}
		main := testProto([]any{int64(7)},
			bytecode.IABx(bytecode.CLOSURE, 0, 0),
			bytecode.IABx(bytecode.LOADK, 1, 0),
			bytecode.IABC(bytecode.CALL, 0, 2, 0),
			bytecode.IAB(bytecode.RETURN, 0, 0),
		)
		main.Protos = []*chunk.Prototype{fn}
		res, err := New(context.Background(), nil).Eval(main)
		require.NoError(t, err)
		assert.Equal(t, []Value{Integer(7), nil, nil}, res)
	})

	t.Run("go function", func(t *testing.T) {
		t.Parallel()
		vm := New(context.Background(), nil)
		require.NoError(t, vm.Register("double", func(vm *VM) (int, error) {
			return 1, vm.PushInteger(vm.ToInteger(1) * 2)
		}))
		res, err := vm.Eval(testProto([]any{"double", int64(21)},
			bytecode.IABC(bytecode.GETTABUP, 0, 0, rk(0)),
			bytecode.IABx(bytecode.LOADK, 1, 1),
			bytecode.IABC(bytecode.CALL, 0, 2, 2),
			bytecode.IAB(bytecode.RETURN, 0, 2),
		))
		require.NoError(t, err)
		assert.Equal(t, []Value{Integer(42)}, res)
	})

	t.Run("go function multiple results", func(t *testing.T) {
		t.Parallel()
		vm := New(context.Background(), nil)
		require.NoError(t, vm.Register("three", func(vm *VM) (int, error) {
			for i := range 3 {
				if err := vm.PushInteger(int64(i + 1)); err != nil {
					return 0, err
				}
			}
			return 3, nil
		}))
		res, err := vm.Eval(testProto([]any{"three"},
			bytecode.IABC(bytecode.GETTABUP, 0, 0, rk(0)),
			bytecode.IABC(bytecode.CALL, 0, 1, 0),
			bytecode.IAB(bytecode.RETURN, 0, 0),
		))
		require.NoError(t, err)
		assert.Equal(t, []Value{Integer(1), Integer(2), Integer(3)}, res)
	})

	t.Run("call a nil value", func(t *testing.T) {
		t.Parallel()
		_, err := New(context.Background(), nil).Eval(testProto([]any{"missing"},
			bytecode.IABC(bytecode.GETTABUP, 0, 0, rk(0)),
			bytecode.IABC(bytecode.CALL, 0, 1, 1),
			bytecode.IAB(bytecode.RETURN, 0, 1),
		))
		require.Error(t, err)
		assert.True(t, lerrors.Is(err, lerrors.TypeErr))
		assert.Contains(t, err.Error(), "attempt to call a nil value")
	})

	t.Run("tail call", func(t *testing.T) {
		t.Parallel()
		fn := &chunk.Prototype{
			NumParams:    1,
			MaxStackSize: 2,
			Constants:    []any{int64(1)},
			Code:         []uint32{bytecode.IABC(bytecode.ADD, 0, 0, rk(0)), bytecode.IAB(bytecode.RETURN, 0, 2)},
		}
		main := testProto([]any{int64(41)},
			bytecode.IABx(bytecode.CLOSURE, 0, 0),
			bytecode.IABx(bytecode.LOADK, 1, 0),
			bytecode.IABC(bytecode.TAILCALL, 0, 2, 0),
			bytecode.IAB(bytecode.RETURN, 0, 0),
		)
		main.Protos = []*chunk.Prototype{fn}
		res, err := New(context.Background(), nil).Eval(main)
		require.NoError(t, err)
		assert.Equal(t, []Value{Integer(42)}, res)
	})

	t.Run("max depth", func(t *testing.T) {
		t.Parallel()
		cfg := conf.Default()
		cfg.VM.MaxDepth = 10
		fn := &chunk.Prototype{
			MaxStackSize: 2,
			Constants:    []any{"f"},
			Upvalues:     []chunk.Upvalue{{Name: "_ENV", Index: 0}},
			Code: []uint32{
				bytecode.IABC(bytecode.GETTABUP, 0, 0, rk(0)), bytecode.IABC(bytecode.CALL, 0, 1, 1),
				bytecode.IAB(bytecode.RETURN, 0, 1),
			},
		}
		main := testProto([]any{"f"},
			bytecode.IABx(bytecode.CLOSURE, 0, 0),
			bytecode.IABC(bytecode.SETTABUP, 0, rk(0), 0),
			bytecode.IABC(bytecode.CALL, 0, 1, 1),
			bytecode.IAB(bytecode.RETURN, 0, 1),
		)
		main.Protos = []*chunk.Prototype{fn}
		vm := New(context.Background(), cfg)
		_, err := vm.Eval(main)
		require.Error(t, err)
		assert.True(t, lerrors.Is(err, lerrors.StackOverflow))
		assert.Equal(t, 0, vm.Depth())
		assert.Equal(t, 10, vm.Stats().MaxDepth)
	})
}

func TestVM_RuntimeError(t *testing.T) {
	t.Parallel()
	proto := testProto([]any{int64(5)},
		bytecode.IABx(bytecode.LOADK, 0, 0),
		bytecode.IAB(bytecode.LEN, 1, 0),
		bytecode.IAB(bytecode.RETURN, 1, 2),
	)
	proto.LineInfo = []int64{1, 2, 3}
	_, err := New(context.Background(), nil).Eval(proto)
	require.Error(t, err)

	var lerr *lerrors.Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, lerrors.TypeErr, lerr.Kind)
	assert.Equal(t, "test.lua", lerr.Filename)
	assert.Equal(t, int64(2), lerr.Line)
	assert.Equal(t, []string{"\ttest.lua:2: in main chunk"}, lerr.Traceback)
	assert.Equal(t, "lvm:test.lua:2: type error: attempt to get length of a number value\nstack traceback:\n\ttest.lua:2: in main chunk", err.Error())
}

func TestVM_HookAndStats(t *testing.T) {
	t.Parallel()

	t.Run("counts instructions", func(t *testing.T) {
		t.Parallel()
		vm := New(context.Background(), nil)
		var seen uint64
		vm.SetHook(func(_ *VM, _ int, _ uint32) error {
			seen++
			return nil
		})
		res, err := vm.Eval(sumEvensProto())
		require.NoError(t, err)
		assert.Equal(t, []Value{Integer(2550)}, res)
		stats := vm.Stats()
		assert.Equal(t, seen, stats.Instructions)
		assert.Equal(t, uint64(1), stats.Calls)
		assert.Equal(t, 1, stats.MaxDepth)
	})

	t.Run("hook error stops execution", func(t *testing.T) {
		t.Parallel()
		vm := New(context.Background(), nil)
		vm.SetHook(func(_ *VM, pc int, _ uint32) error {
			if pc == 3 {
				return lerrors.New(lerrors.Interrupt, "stopped at %v", pc)
			}
			return nil
		})
		_, err := vm.Eval(sumEvensProto())
		require.Error(t, err)
		assert.True(t, lerrors.Is(err, lerrors.Interrupt))
		assert.Equal(t, uint64(4), vm.Stats().Instructions)
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New(ctx, nil).Eval(sumEvensProto())
		require.Error(t, err)
		assert.True(t, lerrors.Is(err, lerrors.Interrupt))
	})
}
