// Package errors provides errors that carry the stack of the call site which
// created them, plus helpers for wrapping and unwrapping.
//
// NOTE: The API mirrors the standard "errors" package where the names
// overlap.  Code in this module should create errors through this package.
package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"reflect"
	"runtime"
	"sync"
)

// Error is implemented by every error created by this package.
type Error interface {
	error

	// This returns the error message without the stack trace or the
	// messages of wrapped errors.
	GetMessage() string

	// This returns the wrapped error, or nil.
	GetInner() error

	// Same as GetInner.  This lets the standard errors.Is / errors.As
	// see through our errors.
	Unwrap() error

	// Returns the program counters of the creating stack as a space
	// separated hex string.  Cheaper than StackFrames.
	StackAddrs() string

	// Returns the resolved stack frames.
	StackFrames() []StackFrame

	// Returns a human readable stack trace.  Do not parse it.
	GetStack() string
}

// A single resolved stack frame.
type StackFrame struct {
	PC         uintptr
	Func       *runtime.Func // nil for inlined calls
	FuncName   string
	File       string
	LineNumber int
}

type baseError struct {
	msg   string
	inner error

	stack       []uintptr
	framesOnce  sync.Once
	stackFrames []StackFrame
}

// This returns the error string without stack trace information, but with
// the messages of all wrapped errors.
func GetMessage(err interface{}) string {
	switch e := err.(type) {
	case Error:
		return fullMessage(e, false)
	case runtime.Error:
		return e.Error()
	case error:
		return e.Error()
	default:
		return "Passed a non-error to GetMessage"
	}
}

func (e *baseError) Error() string {
	return fullMessage(e, true)
}

func (e *baseError) GetMessage() string {
	return e.msg
}

func (e *baseError) GetInner() error {
	return e.inner
}

func (e *baseError) Unwrap() error {
	return e.inner
}

func (e *baseError) StackAddrs() string {
	if len(e.stack) == 0 {
		return ""
	}
	buf := bytes.NewBuffer(make([]byte, 0, len(e.stack)*8))
	for i, pc := range e.stack {
		if i > 0 {
			buf.WriteByte(' ')
		}
		fmt.Fprintf(buf, "0x%x", pc)
	}
	return buf.String()
}

func (e *baseError) StackFrames() []StackFrame {
	e.framesOnce.Do(func() {
		if len(e.stack) == 0 {
			return
		}
		// CallersFrames expands inlined calls, which FuncForPC would
		// attribute to the enclosing function.
		frames := runtime.CallersFrames(e.stack)
		e.stackFrames = make([]StackFrame, 0, len(e.stack))
		for {
			frame, more := frames.Next()
			e.stackFrames = append(e.stackFrames, StackFrame{
				PC:         frame.PC,
				Func:       frame.Func,
				FuncName:   frame.Function,
				File:       frame.File,
				LineNumber: frame.Line,
			})
			if !more {
				break
			}
		}
	})
	return e.stackFrames
}

func (e *baseError) GetStack() string {
	buf := bytes.NewBuffer(make([]byte, 0, 256))
	for _, frame := range e.StackFrames() {
		buf.WriteString(frame.FuncName)
		buf.WriteString("\n")
		fmt.Fprintf(buf, "\t%s:%d +0x%x\n",
			frame.File, frame.LineNumber, frame.PC)
	}
	return buf.String()
}

// This returns a new error with the given message and the current stack.
func New(msg string) Error {
	return newError(nil, msg)
}

// Same as New, but with fmt.Printf-style parameters.
func Newf(format string, args ...interface{}) Error {
	return newError(nil, fmt.Sprintf(format, args...))
}

// Wraps another error in a new error.
func Wrap(err error, msg string) Error {
	return newError(err, msg)
}

// Same as Wrap, but with fmt.Printf-style parameters.
func Wrapf(err error, format string, args ...interface{}) Error {
	return newError(err, fmt.Sprintf(format, args...))
}

// Must be called directly from New/Newf/Wrap/Wrapf; the number of skipped
// frames depends on it.
func newError(err error, msg string) *baseError {
	stack := make([]uintptr, 64)
	n := runtime.Callers(3, stack)
	return &baseError{
		msg:   msg,
		inner: err,
		stack: stack[:n],
	}
}

// Walks the chain of wrapped errors, joining their messages.  The stack, if
// requested, is the one of the innermost error created by this package.
func fullMessage(e Error, includeStack bool) string {
	msg := bytes.NewBuffer(make([]byte, 0, 256))

	last := e
	for cur := e; ; {
		last = cur
		msg.WriteString(cur.GetMessage())

		inner := cur.GetInner()
		if inner == nil {
			break
		}
		next, ok := inner.(Error)
		if !ok {
			msg.WriteString(": ")
			msg.WriteString(inner.Error())
			break
		}
		msg.WriteString("\n")
		cur = next
	}

	if includeStack {
		msg.WriteString("\nORIGINAL STACK TRACE:\n")
		msg.WriteString(last.GetStack())
	}
	return msg.String()
}

// Returns the wrapped error or nil if there is none.
func unwrapError(err error) (inner error) {
	if e, ok := err.(Error); ok {
		return e.GetInner()
	}
	if inner = stderrors.Unwrap(err); inner != nil {
		return inner
	}

	// Older system errors (*os.PathError and friends) follow the "Err"
	// field convention.  Anything unexpected just stops the walk.
	defer func() {
		if x := recover(); x != nil {
			inner = nil
		}
	}()
	v := reflect.ValueOf(err).Elem().FieldByName("Err")
	return v.Interface().(error)
}

// Keeps peeling away layers of context until a primitive error is revealed.
func RootError(err error) error {
	for i := 0; i < 20; i++ {
		inner := unwrapError(err)
		if inner == nil {
			return err
		}
		err = inner
	}
	return fmt.Errorf("too many iterations: %T", err)
}

// Returns true if err is errConst, wraps it, or has a root error whose
// message equals errConst's message.
func IsError(err, errConst error) bool {
	if err == errConst {
		return true
	}
	if errConst != nil && stderrors.Is(err, errConst) {
		return true
	}

	rootErrStr := ""
	if rootErr := RootError(err); rootErr != nil {
		rootErrStr = rootErr.Error()
	}
	errConstStr := ""
	if errConst != nil {
		errConstStr = errConst.Error()
	}
	return rootErrStr == errConstStr
}

// Same as the standard errors.As.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
