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

// Package mapscript implements an interpreter for a small language which
// draws maps and technical drawings.
package mapscript

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"seehuhn.de/go/geom/matrix"
)

// Interpreter executes scripts.  The state of the interpreter, including
// global variables, procedures and an open page, persists between calls
// to Execute.
type Interpreter struct {
	// MaxDepth limits the nesting of procedure calls.
	MaxDepth int

	Throttle Throttle

	// Stdout receives the output of the print statement.
	Stdout io.Writer

	// Log receives debug messages.  If nil, nothing is logged.
	Log *slog.Logger

	Collaborators

	stack *ContextStack
	procs map[string]*procedure
	funcs map[string]*procedure

	ctx     context.Context
	started time.Time
}

// NewInterpreter returns a new interpreter with no collaborators.
func NewInterpreter() *Interpreter {
	return &Interpreter{
		MaxDepth: DefaultMaxDepth,
		Stdout:   os.Stdout,
		procs:    make(map[string]*procedure),
		funcs:    make(map[string]*procedure),
	}
}

func (intp *Interpreter) logger() *slog.Logger {
	if intp.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return intp.Log
}

func (intp *Interpreter) contextStack() *ContextStack {
	if intp.stack == nil {
		intp.stack = NewContextStack(intp.MaxDepth)
	}
	return intp.stack
}

// ExecuteString executes a script given as a string.
func (intp *Interpreter) ExecuteString(ctx context.Context, code string) error {
	return intp.Execute(ctx, strings.NewReader(code), "-")
}

// Execute reads and executes a script.  Statements are executed as soon
// as they have been parsed.  The file name is used in error messages.
func (intp *Interpreter) Execute(ctx context.Context, r io.Reader, filename string) error {
	cs := intp.contextStack()
	prevFile := cs.filename
	cs.filename = filename
	defer func() { cs.filename = prevFile }()

	if intp.ctx == nil {
		intp.ctx = ctx
		intp.started = time.Now()
		defer func() { intp.ctx = nil }()
	}

	p := newParser(NewScanner(r, filename), intp.funcs)
	for {
		list, err := p.parseNext()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		for _, s := range list {
			_, returned, err := intp.execStmt(s)
			if err != nil {
				return err
			}
			if returned {
				// return at the top level ends the script
				return nil
			}
		}
	}
}

// Close pops all frames and closes any open page and dataset.
func (intp *Interpreter) Close() error {
	if intp.stack == nil {
		return nil
	}
	return intp.stack.Close()
}

// Define sets a global variable.
func (intp *Interpreter) Define(name string, v Value) {
	intp.contextStack().frames[0].setVar(name, v)
}

// Lookup returns the value of a variable, as seen from the current frame.
func (intp *Interpreter) Lookup(name string) Value {
	return intp.contextStack().Lookup(name)
}

// Current returns the innermost frame.
func (intp *Interpreter) Current() *Context {
	return intp.contextStack().Current()
}

func (c *Context) setVar(name string, v Value) {
	if c.vars == nil {
		c.vars = make(map[string]Value)
	}
	c.vars[name] = copyValue(v)
}

// execList executes a list of statements.  If a return statement is
// executed, the returned value is passed up and returned is true.
func (intp *Interpreter) execList(list []stmt) (ret Value, returned bool, err error) {
	for _, s := range list {
		ret, returned, err = intp.execStmt(s)
		if err != nil || returned {
			return ret, returned, err
		}
	}
	return nil, false, nil
}

// execStmt executes a single statement.  Errors are tagged with the file
// name and line number of the innermost statement where they occur.
func (intp *Interpreter) execStmt(s stmt) (Value, bool, error) {
	at := s.pos()
	if err := intp.poll(); err != nil {
		return nil, false, annotate(err, at.file, at.line)
	}
	ret, returned, err := intp.exec(s)
	if err != nil {
		return nil, false, annotate(err, at.file, at.line)
	}
	return ret, returned, nil
}

func (intp *Interpreter) exec(s stmt) (Value, bool, error) {
	cs := intp.stack

	switch s := s.(type) {
	case *commandStmt:
		args, err := intp.evalArgs(s.args)
		if err != nil {
			return nil, false, err
		}
		err = s.cmd.fn(intp, args)
		if err != nil {
			return nil, false, prefixError(s.cmd.name, err)
		}

	case *callStmt:
		err := intp.callProcedure(s.name, s.args)
		if err != nil {
			return nil, false, err
		}

	case *assignStmt:
		v, err := intp.eval(s.value)
		if err != nil {
			return nil, false, err
		}
		if s.index == nil {
			cs.Define(s.name, v)
			break
		}
		key, err := intp.eval(s.index)
		if err != nil {
			return nil, false, err
		}
		cs.DefineEntry(s.name, key.String(), v)

	case *localStmt:
		for _, name := range s.names {
			cs.SetLocal(string(name))
		}

	case *returnStmt:
		if s.value == nil {
			return NewString(""), true, nil
		}
		v, err := intp.eval(s.value)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil

	case *ifStmt:
		test, err := intp.evalTest(s.cond, "if")
		if err != nil {
			return nil, false, err
		}
		if test {
			return intp.execList(s.then)
		}
		return intp.execList(s.elseList)

	case *whileStmt:
		for {
			if err := intp.poll(); err != nil {
				return nil, false, err
			}
			test, err := intp.evalTest(s.cond, "while")
			if err != nil {
				return nil, false, err
			}
			if !test {
				break
			}
			ret, returned, err := intp.execList(s.body)
			if err != nil || returned {
				return ret, returned, err
			}
		}

	case *repeatStmt:
		count, err := intp.evalNumeric(s.count)
		if err != nil {
			return nil, false, err
		}
		n := repeatCount(count)
		for i := 0; i < n; i++ {
			if err := intp.poll(); err != nil {
				return nil, false, err
			}
			ret, returned, err := intp.execList(s.body)
			if err != nil || returned {
				return ret, returned, err
			}
		}

	case *forStmt:
		v, err := intp.eval(s.m)
		if err != nil {
			return nil, false, err
		}
		m, ok := v.(*Map)
		if !ok {
			return nil, false, errEval("for loop over a %s value, expected a map", v.Kind())
		}
		keys := m.Keys()
		for _, key := range keys {
			if err := intp.poll(); err != nil {
				return nil, false, err
			}
			cs.Define(s.name, NewString(key))
			ret, returned, err := intp.execList(s.body)
			if err != nil || returned {
				return ret, returned, err
			}
		}

	case *defineStmt:
		if !s.proc.isFunc {
			intp.procs[s.proc.name] = s.proc
		}
		intp.logger().Debug("procedure defined",
			slog.String("name", s.proc.name),
			slog.Int("params", len(s.proc.params)),
			slog.Bool("function", s.proc.isFunc))

	default:
		return nil, false, errEval("invalid statement %T", s)
	}
	return nil, false, nil
}

// repeatCount converts the count of a repeat loop to an integer.  Counts
// very close to an integer are rounded, all others are truncated.
func repeatCount(x float64) int {
	if math.IsNaN(x) || x <= 0 {
		return 0
	}
	r := math.Round(x)
	if math.Abs(x-r) < 1e-9*math.Max(1, math.Abs(x)) {
		return int(r)
	}
	return int(x)
}

// inFrame runs fn in a new frame.  The frame is always removed again, even
// if fn fails.
func (intp *Interpreter) inFrame(fn func(c *Context) error) (err error) {
	cs := intp.stack
	if err := cs.Push(); err != nil {
		return err
	}
	defer func() {
		popErr := cs.Pop()
		if err == nil {
			err = popErr
		}
	}()
	return fn(cs.Current())
}

func (intp *Interpreter) bindParams(proc *procedure, args []Value) {
	cs := intp.stack
	for i, name := range proc.params {
		cs.SetLocal(string(name))
		cs.Define(string(name), args[i])
	}
}

// callProcedure executes a procedure.  If the path of the caller consists
// only of move points, the procedure is executed once for each point, with
// the origin moved to the point and the axes rotated to the heading stored
// with the point.
func (intp *Interpreter) callProcedure(name string, argExprs []expr) error {
	proc, ok := intp.procs[name]
	if !ok {
		names := make([]string, 0, len(intp.procs))
		for n := range intp.procs {
			names = append(names, n)
		}
		return errEval("undefined procedure %q%s", name, suggest(name, names))
	}
	if len(argExprs) != len(proc.params) {
		return errState("procedure %s expects %d arguments, got %d",
			name, len(proc.params), len(argExprs))
	}
	args, err := intp.evalArgs(argExprs)
	if err != nil {
		return err
	}

	caller := intp.stack.Current()
	p := caller.Path()
	if p.MoveCount() == 0 || p.LineCount() > 0 {
		return intp.inFrame(func(c *Context) error {
			intp.bindParams(proc, args)
			_, _, err := intp.execList(proc.body)
			return err
		})
	}

	inv, ok := invert(caller.ctm)
	if !ok {
		return errState("current transformation cannot be inverted")
	}
	pts, headings := p.MovePoints()
	pts = slices.Clone(pts)
	for i, pt := range pts {
		if err := intp.poll(); err != nil {
			return err
		}
		local := apply(inv, pt)
		err := intp.inFrame(func(c *Context) error {
			c.ctm = rotation(headings[i] - caller.rotation).
				Mul(matrix.Translate(local.X, local.Y)).
				Mul(caller.ctm)
			c.rotation = headings[i]
			c.ClearPath()
			intp.bindParams(proc, args)
			_, _, err := intp.execList(proc.body)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// callFunction executes a user-defined function and returns its value.
func (intp *Interpreter) callFunction(proc *procedure, args []Value) (Value, error) {
	var res Value
	err := intp.inFrame(func(c *Context) error {
		intp.bindParams(proc, args)
		ret, returned, err := intp.execList(proc.body)
		if err != nil {
			return err
		}
		if returned {
			res = ret
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = NewString("")
	}
	return res, nil
}
