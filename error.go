// seehuhn.de/go/mapscript - an interpreter for a map drawing language
// Copyright (C) 2025  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package mapscript

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies the errors raised while parsing and executing a script.
type ErrorKind int

// These are the error kinds.
const (
	ParseError ErrorKind = iota + 1
	EvaluationError
	GeometryError
	StateError
	IOError
	ThrottleError
	CancellationError
)

func (k ErrorKind) String() string {
	switch k {
	case ParseError:
		return "parse error"
	case EvaluationError:
		return "evaluation error"
	case GeometryError:
		return "geometry error"
	case StateError:
		return "state error"
	case IOError:
		return "I/O error"
	case ThrottleError:
		return "throttle error"
	case CancellationError:
		return "cancelled"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is the single error type reported by the interpreter.
// File and Line are set at most once, by the statement which
// was executing when the error occurred.
type Error struct {
	Kind ErrorKind
	File string
	Line int
	Msg  string
	Err  error
}

func (err *Error) Error() string {
	msg := err.Msg
	if err.Err != nil {
		if msg == "" {
			msg = err.Err.Error()
		} else {
			msg += ": " + err.Err.Error()
		}
	}
	if err.File != "" {
		return fmt.Sprintf("%s:%d: %s", err.File, err.Line, msg)
	}
	return msg
}

func (err *Error) Unwrap() error {
	return err.Err
}

// IsKind reports whether any error in err's chain is an [*Error] of the
// given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

func newError(kind ErrorKind, format string, a ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...)}
}

func errParse(file string, line int, format string, a ...any) *Error {
	return &Error{Kind: ParseError, File: file, Line: line, Msg: fmt.Sprintf(format, a...)}
}

func errEval(format string, a ...any) *Error {
	return newError(EvaluationError, format, a...)
}

func errGeometry(format string, a ...any) *Error {
	return newError(GeometryError, format, a...)
}

func errState(format string, a ...any) *Error {
	return newError(StateError, format, a...)
}

func errThrottle(format string, a ...any) *Error {
	return newError(ThrottleError, format, a...)
}

// errIO wraps a failure reported by a collaborator.
func errIO(err error, format string, a ...any) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: IOError, Msg: fmt.Sprintf(format, a...), Err: err}
}

func errCancelled(cause error) *Error {
	return &Error{Kind: CancellationError, Msg: "interrupted", Err: cause}
}

// annotate attaches a file name and line number to err, unless the error
// already carries a position.
func annotate(err error, file string, line int) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.File != "" {
			return err
		}
		res := *e
		res.File = file
		res.Line = line
		return &res
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: CancellationError, File: file, Line: line, Msg: "interrupted", Err: err}
	}
	return &Error{Kind: IOError, File: file, Line: line, Err: err}
}
