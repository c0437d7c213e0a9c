// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strconv"
)

const defaultStackDepth = 32

var (
	_ error         = &Error{}
	_ fmt.Formatter = &Error{}
)

// Error attaches a stacktrace to another error.
type Error struct {
	err   error
	trace stacktrace
}

// WithStack wraps an error with the stacktrace of the caller.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	e := &Error{err: err}
	e.fillStack(1, defaultStackDepth)
	return e
}

func (e *Error) fillStack(skip, depth int) {
	e.trace = make(stacktrace, depth)
	n := runtime.Callers(2+skip, e.trace)
	e.trace = e.trace[:n]
}

// Format implements fmt.Formatter. %v and %+v append the stacktrace, %s does not.
func (e *Error) Format(st fmt.State, verb rune) {
	switch verb {
	case 'v':
		fmt.Fprintf(st, "%v", e.err)
		e.trace.Format(st, 'v')
	case 's':
		if st.Flag('+') {
			fmt.Fprintf(st, "%+s", e.err)
			e.trace.Format(st, 's')
		} else {
			fmt.Fprintf(st, "%s", e.err)
		}
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s", e)
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.err, target)
}

func (e *Error) As(target any) bool {
	return errors.As(e.err, target)
}

func (e *Error) Unwrap() error {
	return e.err
}

// stacktrace stores program counters only, frames are resolved when formatting.
type stacktrace []uintptr

func (st stacktrace) Format(s fmt.State, verb rune) {
	frames := runtime.CallersFrames(st)
	for {
		fr, more := frames.Next()
		io.WriteString(s, "\n")
		fn := fr.Function
		if fn == "" {
			fn = "unknown"
		}
		io.WriteString(s, fn)
		io.WriteString(s, "\n\t")
		io.WriteString(s, fr.File)
		if s.Flag('+') || verb == 'v' {
			io.WriteString(s, ":")
			io.WriteString(s, strconv.Itoa(fr.Line))
		}
		if !more {
			break
		}
	}
}
