package lvm

import (
	"bytes"
	"context"

	"github.com/tanema/lvm/src/chunk"
	"github.com/tanema/lvm/src/runtime"
)

// Bytes will load a precompiled chunk or snapshot and run it.
func Bytes(data []byte) ([]runtime.Value, error) {
	proto, err := chunk.Load(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return run(proto)
}

// File will load and eval a precompiled chunk file.
func File(filepath string) ([]runtime.Value, error) {
	proto, err := chunk.LoadFile(filepath)
	if err != nil {
		return nil, err
	}
	return run(proto)
}

func run(proto *chunk.Prototype) ([]runtime.Value, error) {
	vm := runtime.New(context.Background(), nil)
	if err := vm.OpenLibs(); err != nil {
		return nil, err
	}
	return vm.Eval(proto)
}
