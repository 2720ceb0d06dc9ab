package runtime

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanema/lvm/src/chunk"
	"github.com/tanema/lvm/src/lerrors"
)

func TestSubstring(t *testing.T) {
	t.Parallel()
	testcases := []struct {
		start, end int64
		output     string
	}{
		{1, 5, "hello"},
		{2, 4, "ell"},
		{0, 2, "he"},
		{-3, -1, "llo"},
		{-10, 2, "he"},
		{4, 100, "lo"},
		{4, 2, ""},
		{6, 6, ""},
	}
	for _, tc := range testcases {
		assert.Equal(t, tc.output, substring("hello", tc.start, tc.end), "sub(%v, %v)", tc.start, tc.end)
	}
}

func TestStringLibErrors(t *testing.T) {
	t.Parallel()
	vm, _ := newStdVM(t)
	_, err := vm.callValue(libFn(vm, "string", "char"), Integer(256))
	assert.True(t, lerrors.Is(err, lerrors.TypeErr))
	_, err = vm.callValue(libFn(vm, "string", "rep"), String("a"))
	assert.True(t, lerrors.Is(err, lerrors.TypeErr))
	_, err = vm.callValue(libFn(vm, "string", "upper"), NewTable(0, 0))
	assert.True(t, lerrors.Is(err, lerrors.TypeErr))
	_, err = vm.callValue(libFn(vm, "string", "dump"), libFn(vm, "print"))
	assert.True(t, lerrors.Is(err, lerrors.TypeErr))

	res, err := vm.callValue(libFn(vm, "string", "len"), Integer(123))
	require.NoError(t, err)
	assert.Equal(t, []Value{Integer(3)}, res)
	res, err = vm.callValue(libFn(vm, "string", "rep"), String("a"), Integer(0))
	require.NoError(t, err)
	assert.Equal(t, []Value{String("")}, res)
}

func TestStringDump(t *testing.T) {
	t.Parallel()
	vm, _ := newStdVM(t)
	res, err := vm.callValue(libFn(vm, "string", "dump"), newLuaClosure(sumEvensProto()))
	require.NoError(t, err)
	require.Len(t, res, 1)

	proto, err := chunk.Load(bytes.NewReader([]byte(res[0].(String))))
	require.NoError(t, err)
	assert.Equal(t, sumEvensProto().Code, proto.Code)
}
