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
	"math"
	"strconv"
	"strings"
)

// expr is a node of an expression tree.
type expr interface {
	isExpr()
}

type literal struct {
	val Value
}

type variable struct {
	name string
}

type unaryExpr struct {
	op string
	x  expr
}

type binaryExpr struct {
	op   string
	x, y expr
}

type condExpr struct {
	cond, a, b expr
}

type indexExpr struct {
	x, index expr
}

// callExpr is a call of a builtin function.
type callExpr struct {
	fn   *function
	args []expr
}

// userCallExpr is a call of a user-defined function.  The function is
// looked up by name when the call executes, so that a function body may
// call the function being defined.
type userCallExpr struct {
	name string
	args []expr
}

func (*literal) isExpr()      {}
func (*variable) isExpr()     {}
func (*unaryExpr) isExpr()    {}
func (*binaryExpr) isExpr()   {}
func (*condExpr) isExpr()     {}
func (*indexExpr) isExpr()    {}
func (*callExpr) isExpr()     {}
func (*userCallExpr) isExpr() {}

// binaryPrec gives the precedence of the binary operators.
// Higher numbers bind more tightly.
var binaryPrec = map[string]int{
	"or":  1,
	"and": 2,
	"==":  4, "!=": 4, "<": 4, "<=": 4, ">": 4, ">=": 4,
	"eq": 4, "ne": 4, "lt": 4, "le": 4, "gt": 4, "ge": 4,
	"+": 5, "-": 5, ".": 5,
	"*": 6, "/": 6, "%": 6,
}

const notPrec = 3

// reserved lists the words which cannot be used as names.
var reserved = map[string]bool{
	"begin": true, "function": true, "end": true,
	"if": true, "then": true, "elif": true, "elsif": true, "else": true, "endif": true,
	"while": true, "repeat": true, "do": true, "done": true, "for": true, "in": true,
	"let": true, "local": true, "return": true,
	"and": true, "or": true, "not": true,
	"eq": true, "ne": true, "lt": true, "le": true, "gt": true, "ge": true,
}

func (p *parser) parseExpr() (expr, error) {
	c, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if !p.isOp("?") {
		return c, nil
	}
	p.next()
	a, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(":"); err != nil {
		return nil, err
	}
	b, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &condExpr{cond: c, a: a, b: b}, nil
}

func (p *parser) binaryOp() (string, int) {
	tok := p.peek(0)
	if tok.Kind != TokOp && tok.Kind != TokWord {
		return "", 0
	}
	prec, ok := binaryPrec[tok.Text]
	if !ok {
		return "", 0
	}
	return tok.Text, prec
}

func (p *parser) parseBinary(minPrec int) (expr, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, prec := p.binaryOp()
		if prec < minPrec || prec == 0 {
			return x, nil
		}
		p.next()
		y, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		x = &binaryExpr{op: op, x: x, y: y}
	}
}

func (p *parser) parseUnary() (expr, error) {
	tok := p.peek(0)
	switch {
	case tok.Kind == TokWord && tok.Text == "not":
		p.next()
		x, err := p.parseBinary(notPrec + 1)
		if err != nil {
			return nil, err
		}
		return &unaryExpr{op: "not", x: x}, nil
	case tok.Kind == TokOp && (tok.Text == "-" || tok.Text == "+"):
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if lit, ok := x.(*literal); ok {
			if n, ok := lit.val.(*Numeric); ok {
				if tok.Text == "-" {
					return &literal{NewNumeric(-n.val)}, nil
				}
				return lit, nil
			}
		}
		return &unaryExpr{op: tok.Text, x: x}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.isOp("[") {
		p.next()
		index, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectOp("]"); err != nil {
			return nil, err
		}
		x = &indexExpr{x: x, index: index}
	}
	return x, nil
}

func (p *parser) parsePrimary() (expr, error) {
	tok := p.next()
	switch tok.Kind {
	case TokNumber:
		return &literal{NewNumeric(tok.Num)}, nil
	case TokString:
		return &literal{NewString(tok.Text)}, nil
	case TokOp:
		if tok.Text == "(" {
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp(")"); err != nil {
				return nil, err
			}
			return x, nil
		}
	case TokWord:
		if reserved[tok.Text] {
			return nil, p.errorf(tok.Line, "unexpected keyword %q in expression", tok.Text)
		}
		if !p.isOp("(") {
			return &variable{name: tok.Text}, nil
		}
		return p.parseCall(tok)
	}
	return nil, p.errorf(tok.Line, "unexpected %s in expression", tok)
}

func (p *parser) parseCall(name Token) (expr, error) {
	p.next() // "("
	var args []expr
	if p.isOp(")") {
		p.next()
	} else {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.isOp(",") {
				p.next()
				continue
			}
			if err := p.expectOp(")"); err != nil {
				return nil, err
			}
			break
		}
	}

	if proc, ok := p.funcs[name.Text]; ok {
		if len(args) != len(proc.params) {
			return nil, p.errorf(name.Line, "function %s expects %d arguments, got %d",
				name.Text, len(proc.params), len(args))
		}
		return &userCallExpr{name: name.Text, args: args}, nil
	}
	fn, ok := functions[name.Text]
	if !ok {
		return nil, p.errorf(name.Line, "undefined function %q%s", name.Text,
			suggest(name.Text, functionNames(p.funcs)))
	}
	if len(args) < fn.minArgs || fn.maxArgs >= 0 && len(args) > fn.maxArgs {
		return nil, p.errorf(name.Line, "%s: %s", name.Text, arityMessage(fn.minArgs, fn.maxArgs, len(args)))
	}
	return &callExpr{fn: fn, args: args}, nil
}

func arityMessage(minArgs, maxArgs, got int) string {
	switch {
	case minArgs == maxArgs:
		return "expected " + strconv.Itoa(minArgs) + " arguments, got " + strconv.Itoa(got)
	case maxArgs < 0:
		return "expected at least " + strconv.Itoa(minArgs) + " arguments, got " + strconv.Itoa(got)
	default:
		return "expected " + strconv.Itoa(minArgs) + " to " + strconv.Itoa(maxArgs) +
			" arguments, got " + strconv.Itoa(got)
	}
}

// eval evaluates an expression in the current frame.
func (intp *Interpreter) eval(e expr) (Value, error) {
	switch e := e.(type) {
	case *literal:
		return e.val, nil

	case *variable:
		return intp.stack.Lookup(e.name), nil

	case *unaryExpr:
		x, err := intp.eval(e.x)
		if err != nil {
			return nil, err
		}
		v, err := NumericValue(x)
		if err != nil {
			return nil, err
		}
		switch e.op {
		case "-":
			return NewNumeric(-v), nil
		case "not":
			return boolValue(v == 0), nil
		default:
			return NewNumeric(v), nil
		}

	case *binaryExpr:
		return intp.evalBinary(e)

	case *condExpr:
		c, err := intp.evalNumeric(e.cond)
		if err != nil {
			return nil, err
		}
		if c != 0 {
			return intp.eval(e.a)
		}
		return intp.eval(e.b)

	case *indexExpr:
		x, err := intp.eval(e.x)
		if err != nil {
			return nil, err
		}
		index, err := intp.eval(e.index)
		if err != nil {
			return nil, err
		}
		return indexValue(x, index)

	case *callExpr:
		args, err := intp.evalArgs(e.args)
		if err != nil {
			return nil, err
		}
		res, err := e.fn.call(intp, args)
		if err != nil {
			return nil, prefixError(e.fn.name, err)
		}
		return res, nil

	case *userCallExpr:
		proc, ok := intp.funcs[e.name]
		if !ok {
			return nil, errEval("undefined function %q", e.name)
		}
		args, err := intp.evalArgs(e.args)
		if err != nil {
			return nil, err
		}
		return intp.callFunction(proc, args)

	default:
		return nil, errEval("invalid expression %T", e)
	}
}

func (intp *Interpreter) evalArgs(args []expr) ([]Value, error) {
	res := make([]Value, len(args))
	for i, arg := range args {
		v, err := intp.eval(arg)
		if err != nil {
			return nil, err
		}
		res[i] = v
	}
	return res, nil
}

func (intp *Interpreter) evalNumeric(e expr) (float64, error) {
	v, err := intp.eval(e)
	if err != nil {
		return 0, err
	}
	return NumericValue(v)
}

// evalTest evaluates the condition of an if or while statement.
// The condition must give a number.
func (intp *Interpreter) evalTest(e expr, keyword string) (bool, error) {
	v, err := intp.eval(e)
	if err != nil {
		return false, err
	}
	n, ok := v.(*Numeric)
	if !ok {
		return false, errEval("%s condition is a %s value, expected a number", keyword, v.Kind())
	}
	return n.val != 0, nil
}

func (intp *Interpreter) evalBinary(e *binaryExpr) (Value, error) {
	switch e.op {
	case "and", "or":
		a, err := intp.evalNumeric(e.x)
		if err != nil {
			return nil, err
		}
		if e.op == "and" && a == 0 {
			return boolValue(false), nil
		}
		if e.op == "or" && a != 0 {
			return boolValue(true), nil
		}
		b, err := intp.evalNumeric(e.y)
		if err != nil {
			return nil, err
		}
		return boolValue(b != 0), nil
	}

	x, err := intp.eval(e.x)
	if err != nil {
		return nil, err
	}
	y, err := intp.eval(e.y)
	if err != nil {
		return nil, err
	}

	switch e.op {
	case ".":
		return NewString(x.String() + y.String()), nil
	case "eq", "ne", "lt", "le", "gt", "ge":
		c := strings.Compare(x.String(), y.String())
		return boolValue(compareResult(e.op, c)), nil
	}

	a, err := NumericValue(x)
	if err != nil {
		return nil, err
	}
	b, err := NumericValue(y)
	if err != nil {
		return nil, err
	}
	switch e.op {
	case "+":
		return NewNumeric(a + b), nil
	case "-":
		return NewNumeric(a - b), nil
	case "*":
		return NewNumeric(a * b), nil
	case "/":
		if b == 0 {
			return nil, errEval("division by zero")
		}
		return NewNumeric(a / b), nil
	case "%":
		if b == 0 {
			return nil, errEval("division by zero")
		}
		return NewNumeric(math.Mod(a, b)), nil
	case "==", "!=", "<", "<=", ">", ">=":
		c := 0
		if a < b {
			c = -1
		} else if a > b {
			c = 1
		}
		return boolValue(compareResult(e.op, c)), nil
	}
	return nil, errEval("invalid operator %q", e.op)
}

func compareResult(op string, c int) bool {
	switch op {
	case "==", "eq":
		return c == 0
	case "!=", "ne":
		return c != 0
	case "<", "lt":
		return c < 0
	case "<=", "le":
		return c <= 0
	case ">", "gt":
		return c > 0
	default:
		return c >= 0
	}
}

// indexValue implements the postfix index operator.
func indexValue(x, index Value) (Value, error) {
	switch x := x.(type) {
	case *Map:
		return x.Get(index.String()), nil
	case Geometry:
		if isNumber(index) {
			i, _ := NumericValue(index)
			member, ok := x.Member(int(math.Round(i)))
			if !ok {
				return NewString(""), nil
			}
			return member, nil
		}
		switch index.String() {
		case "type":
			return NewString(x.TypeName()), nil
		case "count":
			return NewNumeric(float64(x.Count())), nil
		case "x", "y":
			px, py, ok := x.firstCoord()
			if !ok {
				return NewString(""), nil
			}
			if index.String() == "x" {
				return NewNumeric(px), nil
			}
			return NewNumeric(py), nil
		}
		return NewString(""), nil
	default:
		return nil, errEval("cannot index a %s value", x.Kind())
	}
}
