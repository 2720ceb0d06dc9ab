// Package conf contains the constants that are used across packages for configuring
// versions and stack sizes, as well as the optional configuration file read by
// the cli.
package conf

import (
	"fmt"
	"time"
)

const (
	// LUASIGNATURE is the signature at the beginning of a precompiled luac chunk.
	LUASIGNATURE = "\x1bLua"
	// LVMSIGNATURE is the signature at the beginning of a cbor prototype snapshot.
	LVMSIGNATURE = "\x1bLvm"
	// LUAVERSION is the version of the lvm application.
	LUAVERSION = "Lvm 0.1.0"
	// LUACVERSION is the luac binary chunk version that can be loaded, 5.3.
	LUACVERSION = 0x53
	// LUACFORMAT is the official luac format number.
	LUACFORMAT = 0
	// LUACDATA is the conversion check data following the header.
	LUACDATA = "\x19\x93\r\n\x1a\n"
	// LUACINT is the integer used to check integer endianness and size.
	LUACINT = 0x5678
	// LUACNUM is the float used to check the float format.
	LUACNUM = 370.5
	// MINSTACK is the amount of free slots each frame is guaranteed beyond its registers.
	MINSTACK = 20
	// MAXSTACK is the max amount of slots a single frame can grow to.
	MAXSTACK = 1_000_000
	// MAXDEPTH is the default max amount of nested calls.
	MAXDEPTH = 200
	// REGISTRYINDEX is the pseudo index that addresses the registry table.
	REGISTRYINDEX = -MAXSTACK - 1000
	// RIDXGLOBALS is the registry key that holds the global environment.
	RIDXGLOBALS int64 = 2
	// FIELDSPERFLUSH is the amount of array items a SETLIST batch covers.
	FIELDSPERFLUSH = 50
	// MAXUPVALUES max allowed upvals referred in a fn scope.
	MAXUPVALUES = 255
)

// FullVersion returns the version and copyright.
func FullVersion() string {
	return fmt.Sprintf("%v Copyright (C) %v", LUAVERSION, time.Now().Year())
}

// Copyright is the copyright to be written out in the CLI.
func Copyright() string {
	return fmt.Sprintf("Copyright (C) %v", time.Now().Year())
}
