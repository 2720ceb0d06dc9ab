// Package lvm is a register based virtual machine for lua 5.3 bytecode.
// It loads chunks precompiled by `luac` 5.3 (or snapshots written by the lvm
// cli) and executes them with a small host library.
//
//	`lvm` does not include a compiler, source has to be compiled with `luac`
//	first. The runtime exposes a stack api close to the lua C api so that go
//	functions can be registered and called from bytecode.
package lvm
