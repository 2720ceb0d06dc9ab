// Package lerrors are a unified errors package for chunk loading and runtime so
// that they can be formatted in a unified way and handled in a unified way.
package lerrors

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ErrorKind is an enum to describe which class of failure the error is.
	ErrorKind int
	// Error captures all errors in the lvm runtime. It distinguishes between the
	// failure classes of the vm so that a host can react to them, and it will format
	// them with source position and traceback once decorated by the runtime.
	Error struct {
		Line      int64
		Kind      ErrorKind
		Err       error
		Filename  string
		Traceback []string
	}
)

const (
	// StackOverflow is raised when a frame or the call stack runs out of room.
	StackOverflow ErrorKind = iota
	// StackUnderflow is raised when popping an empty frame.
	StackUnderflow
	// TypeErr is an operation applied to an incompatible value kind.
	TypeErr
	// ArithmeticErr is a failed coercion to a required numeric kind.
	ArithmeticErr
	// IndexErr is a stack or table index outside of its valid range.
	IndexErr
	// UnsupportedOpcode is an instruction that has no handler.
	UnsupportedOpcode
	// LoadErr is a malformed or unsupported chunk.
	LoadErr
	// UserErr is an error raised from user code by the user.
	UserErr
	// Interrupt is raised when execution is stopped by the host.
	Interrupt
)

var kindNames = map[ErrorKind]string{
	StackOverflow:     "stack overflow",
	StackUnderflow:    "stack underflow",
	TypeErr:           "type error",
	ArithmeticErr:     "arithmetic error",
	IndexErr:          "index error",
	UnsupportedOpcode: "unsupported opcode",
	LoadErr:           "load error",
	UserErr:           "error",
	Interrupt:         "interrupted",
}

func (kind ErrorKind) String() string {
	if name, ok := kindNames[kind]; ok {
		return name
	}
	return "unknown error"
}

// New creates an undecorated error of the given kind.
func New(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap gives a kind to an existing error. If the error already is an *Error it
// is returned as is.
func Wrap(kind ErrorKind, err error) *Error {
	if err == nil {
		return nil
	}
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr
	}
	return &Error{Kind: kind, Err: err}
}

// Is reports whether err, or any error it wraps, is an *Error of the given kind.
func Is(err error, kind ErrorKind) bool {
	var lerr *Error
	return errors.As(err, &lerr) && lerr.Kind == kind
}

func (err *Error) Unwrap() error { return err.Err }

func (err *Error) Error() string {
	switch {
	case err.Kind == LoadErr:
		return fmt.Sprintf("Load Error: %v", err.Err)
	case err.Kind == Interrupt:
		return fmt.Sprintf("%v", err.Err)
	case err.Filename != "" && len(err.Traceback) > 0:
		return fmt.Sprintf(
			"lvm:%v:%v: %v: %v\nstack traceback:\n%v",
			err.Filename,
			err.Line,
			err.Kind,
			err.Err,
			strings.Join(err.Traceback, "\n"),
		)
	case err.Filename != "":
		return fmt.Sprintf("lvm:%v:%v: %v: %v", err.Filename, err.Line, err.Kind, err.Err)
	default:
		return fmt.Sprintf("%v: %v", err.Kind, err.Err)
	}
}
