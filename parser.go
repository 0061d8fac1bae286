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
	"io"
	"strings"
)

// stmt is a node of the statement tree.
type stmt interface {
	pos() position
}

type position struct {
	file string
	line int
}

func (p position) pos() position { return p }

// commandStmt is a builtin statement such as "move" or "stroke".
type commandStmt struct {
	position
	cmd  *command
	args []expr
}

// callStmt calls a procedure defined with begin ... end.
type callStmt struct {
	position
	name string
	args []expr
}

type assignStmt struct {
	position
	name  string
	index expr // nil for plain assignment
	value expr
}

type localStmt struct {
	position
	names []VarRef
}

type returnStmt struct {
	position
	value expr // may be nil
}

type ifStmt struct {
	position
	cond     expr
	then     []stmt
	elseList []stmt
}

type whileStmt struct {
	position
	cond expr
	body []stmt
}

type repeatStmt struct {
	position
	count expr
	body  []stmt
}

type forStmt struct {
	position
	name string
	m    expr
	body []stmt
}

// defineStmt registers a procedure when it executes.
type defineStmt struct {
	position
	proc *procedure
}

// procedure is a block of statements with formal parameters,
// defined with begin ... end or function ... end.
type procedure struct {
	name   string
	params []VarRef
	body   []stmt
	isFunc bool
	file   string
	line   int
}

// parser turns the tokens from a [Scanner] into a statement list.
type parser struct {
	s     *Scanner
	queue []Token
	err   error

	// funcs holds the user-defined functions.  A function is added before
	// its body is parsed.
	funcs map[string]*procedure
}

func newParser(s *Scanner, funcs map[string]*procedure) *parser {
	return &parser{s: s, funcs: funcs}
}

// peek returns the token n positions ahead without consuming it.
// Read errors are reported by the next call to next.
func (p *parser) peek(n int) Token {
	for len(p.queue) <= n {
		if k := len(p.queue); k > 0 && p.queue[k-1].Kind == TokEOF {
			break
		}
		if p.err != nil {
			return Token{Kind: TokEOF, Line: p.s.Line}
		}
		tok, err := p.s.ScanToken()
		if err != nil {
			p.err = err
			return Token{Kind: TokEOF, Line: p.s.Line}
		}
		p.queue = append(p.queue, tok)
		if tok.Kind == TokEOF {
			break
		}
	}
	if n >= len(p.queue) {
		return p.queue[len(p.queue)-1]
	}
	return p.queue[n]
}

func (p *parser) next() Token {
	tok := p.peek(0)
	if len(p.queue) > 0 && tok.Kind != TokEOF {
		p.queue = p.queue[1:]
	}
	return tok
}

func (p *parser) errorf(line int, format string, a ...any) error {
	if p.err != nil {
		return p.err
	}
	return errParse(p.s.File, line, format, a...)
}

func (p *parser) isOp(op string) bool {
	tok := p.peek(0)
	return tok.Kind == TokOp && tok.Text == op
}

func (p *parser) isWord(word string) bool {
	tok := p.peek(0)
	return tok.Kind == TokWord && tok.Text == word
}

func (p *parser) expectOp(op string) error {
	tok := p.next()
	if tok.Kind != TokOp || tok.Text != op {
		return p.errorf(tok.Line, "expected %q, found %s", op, tok)
	}
	return nil
}

func (p *parser) expectWord(word string) error {
	tok := p.next()
	if tok.Kind != TokWord || tok.Text != word {
		return p.errorf(tok.Line, "expected %q, found %s", word, tok)
	}
	return nil
}

func (p *parser) expectName() (Token, error) {
	tok := p.next()
	if tok.Kind != TokWord {
		return tok, p.errorf(tok.Line, "expected a name, found %s", tok)
	}
	if reserved[tok.Text] {
		return tok, p.errorf(tok.Line, "keyword %q cannot be used as a name", tok.Text)
	}
	return tok, nil
}

// endStatement consumes the terminator of a statement.
func (p *parser) endStatement() error {
	tok := p.peek(0)
	switch tok.Kind {
	case TokEOL:
		p.next()
		return nil
	case TokEOF:
		return p.err
	}
	return p.errorf(tok.Line, "unexpected %s at end of statement", tok)
}

func (p *parser) skipEOL() {
	for p.peek(0).Kind == TokEOL {
		p.next()
	}
}

// parseNext parses the next top-level statement.  Some statements, like
// "let a = 1, b = 2", expand to more than one executable statement.
// At the end of the input, io.EOF is returned.
func (p *parser) parseNext() ([]stmt, error) {
	p.skipEOL()
	tok := p.peek(0)
	if tok.Kind == TokEOF {
		if p.err != nil {
			return nil, p.err
		}
		return nil, io.EOF
	}
	if tok.Kind == TokWord {
		switch tok.Text {
		case "end", "endif", "done", "else", "elif", "elsif":
			return nil, p.errorf(tok.Line, "unexpected %q", tok.Text)
		}
	}
	return p.parseStatement()
}

// parseList parses statements up to one of the given terminating keywords,
// which is left in the input.
func (p *parser) parseList(opener Token, terminators ...string) ([]stmt, error) {
	var list []stmt
	for {
		p.skipEOL()
		tok := p.peek(0)
		if tok.Kind == TokEOF {
			return nil, p.errorf(tok.Line, "unexpected end of file in %q block started on line %d",
				opener.Text, opener.Line)
		}
		if tok.Kind == TokWord {
			for _, t := range terminators {
				if tok.Text == t {
					return list, nil
				}
			}
			switch tok.Text {
			case "end", "endif", "done", "else", "elif", "elsif":
				return nil, p.errorf(tok.Line, "unexpected %q in %q block started on line %d",
					tok.Text, opener.Text, opener.Line)
			}
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		list = append(list, s...)
	}
}

// parseStatement parses one statement.  A "let" statement with several
// assignments gives more than one statement.
func (p *parser) parseStatement() ([]stmt, error) {
	tok := p.peek(0)
	at := position{file: p.s.File, line: tok.Line}

	if tok.Kind != TokWord {
		p.next()
		return nil, p.errorf(tok.Line, "unexpected %s at start of statement", tok)
	}

	switch tok.Text {
	case "begin", "function":
		s, err := p.parseDefinition()
		if err != nil {
			return nil, err
		}
		return []stmt{s}, nil
	case "if":
		p.next()
		s, err := p.parseIf(tok)
		if err != nil {
			return nil, err
		}
		return []stmt{s}, nil
	case "while", "repeat":
		s, err := p.parseLoop()
		if err != nil {
			return nil, err
		}
		return []stmt{s}, nil
	case "for":
		s, err := p.parseFor()
		if err != nil {
			return nil, err
		}
		return []stmt{s}, nil
	case "let":
		p.next()
		var list []stmt
		for {
			s, err := p.parseAssignment()
			if err != nil {
				return nil, err
			}
			list = append(list, s)
			if !p.isOp(",") {
				break
			}
			p.next()
		}
		return list, p.endStatement()
	case "local":
		p.next()
		s := &localStmt{position: at}
		for {
			name, err := p.expectName()
			if err != nil {
				return nil, err
			}
			s.names = append(s.names, VarRef(name.Text))
			if !p.isOp(",") {
				break
			}
			p.next()
		}
		return []stmt{s}, p.endStatement()
	case "return":
		p.next()
		s := &returnStmt{position: at}
		if k := p.peek(0).Kind; k != TokEOL && k != TokEOF {
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			s.value = value
		}
		return []stmt{s}, p.endStatement()
	}

	if reserved[tok.Text] {
		p.next()
		return nil, p.errorf(tok.Line, "unexpected %q", tok.Text)
	}

	next := p.peek(1)
	if next.Kind == TokOp && (next.Text == "=" || next.Text == "[") {
		s, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		return []stmt{s}, p.endStatement()
	}

	p.next()
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	if cmd, ok := commands[tok.Text]; ok {
		if len(args) < cmd.minArgs || cmd.maxArgs >= 0 && len(args) > cmd.maxArgs {
			return nil, p.errorf(tok.Line, "%s: %s", tok.Text, arityMessage(cmd.minArgs, cmd.maxArgs, len(args)))
		}
		return []stmt{&commandStmt{position: at, cmd: cmd, args: args}}, p.endStatement()
	}
	return []stmt{&callStmt{position: at, name: tok.Text, args: args}}, p.endStatement()
}

// parseArgs parses a comma separated list of expressions, up to the end of
// the statement.
func (p *parser) parseArgs() ([]expr, error) {
	var args []expr
	if k := p.peek(0).Kind; k == TokEOL || k == TokEOF {
		return nil, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.isOp(",") {
			return args, nil
		}
		p.next()
	}
}

func (p *parser) parseAssignment() (stmt, error) {
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	s := &assignStmt{position: position{file: p.s.File, line: name.Line}, name: name.Text}
	if p.isOp("[") {
		p.next()
		s.index, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectOp("]"); err != nil {
			return nil, err
		}
	}
	if err := p.expectOp("="); err != nil {
		return nil, err
	}
	s.value, err = p.parseExpr()
	if err != nil {
		return nil, err
	}
	return s, nil
}

// parseDefinition parses a procedure or function definition.
// Functions are made known to the parser before the body is parsed,
// so that they can call themselves.  If the body cannot be parsed, the
// previous definition is restored.
func (p *parser) parseDefinition() (stmt, error) {
	opener := p.next()
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	proc := &procedure{
		name:   name.Text,
		isFunc: opener.Text == "function",
		file:   p.s.File,
		line:   opener.Line,
	}

	seen := make(map[string]bool)
	if k := p.peek(0).Kind; k != TokEOL && k != TokEOF {
		for {
			param, err := p.expectName()
			if err != nil {
				return nil, err
			}
			if seen[param.Text] {
				return nil, p.errorf(param.Line, "duplicate parameter %q", param.Text)
			}
			seen[param.Text] = true
			proc.params = append(proc.params, VarRef(param.Text))
			if !p.isOp(",") {
				break
			}
			p.next()
		}
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}

	if proc.isFunc {
		if _, isBuiltin := functions[proc.name]; isBuiltin {
			return nil, p.errorf(name.Line, "cannot redefine builtin function %q", proc.name)
		}
	} else if _, isBuiltin := commands[proc.name]; isBuiltin {
		return nil, p.errorf(name.Line, "cannot redefine builtin statement %q", proc.name)
	}

	var prev *procedure
	if proc.isFunc {
		prev = p.funcs[proc.name]
		p.funcs[proc.name] = proc
	}
	body, err := p.parseList(opener, "end")
	if err == nil {
		p.next() // "end"
		err = p.endStatement()
	}
	if err != nil {
		if proc.isFunc {
			if prev != nil {
				p.funcs[proc.name] = prev
			} else {
				delete(p.funcs, proc.name)
			}
		}
		return nil, err
	}
	proc.body = body

	return &defineStmt{position: position{file: p.s.File, line: opener.Line}, proc: proc}, nil
}

// parseIf parses the remainder of an if statement, after the "if" or
// "elif" keyword.  An elif branch becomes a nested if statement in the
// else branch.
func (p *parser) parseIf(opener Token) (stmt, error) {
	s := &ifStmt{position: position{file: p.s.File, line: opener.Line}}
	var err error
	s.cond, err = p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.isWord("then") {
		p.next()
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}

	s.then, err = p.parseList(opener, "elif", "elsif", "else", "endif")
	if err != nil {
		return nil, err
	}

	tok := p.next()
	switch tok.Text {
	case "elif", "elsif":
		nested, err := p.parseIf(tok)
		if err != nil {
			return nil, err
		}
		s.elseList = []stmt{nested}
		return s, nil // the nested statement consumed "endif"
	case "else":
		if err := p.endStatement(); err != nil {
			return nil, err
		}
		s.elseList, err = p.parseList(opener, "endif")
		if err != nil {
			return nil, err
		}
		p.next()
	}
	return s, p.endStatement()
}

func (p *parser) parseLoop() (stmt, error) {
	opener := p.next()
	at := position{file: p.s.File, line: opener.Line}
	test, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseLoopBody(opener)
	if err != nil {
		return nil, err
	}
	if opener.Text == "repeat" {
		return &repeatStmt{position: at, count: test, body: body}, nil
	}
	return &whileStmt{position: at, cond: test, body: body}, nil
}

func (p *parser) parseFor() (stmt, error) {
	opener := p.next()
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if err := p.expectWord("in"); err != nil {
		return nil, err
	}
	m, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseLoopBody(opener)
	if err != nil {
		return nil, err
	}
	return &forStmt{
		position: position{file: p.s.File, line: opener.Line},
		name:     name.Text,
		m:        m,
		body:     body,
	}, nil
}

// parseLoopBody parses "do" ... "done".
func (p *parser) parseLoopBody(opener Token) ([]stmt, error) {
	p.skipEOL()
	if err := p.expectWord("do"); err != nil {
		return nil, err
	}
	body, err := p.parseList(opener, "done")
	if err != nil {
		return nil, err
	}
	p.next()
	return body, p.endStatement()
}

// ParseCheck parses a complete script without executing it and reports
// the first syntax error.
func ParseCheck(r io.Reader, file string) error {
	p := newParser(NewScanner(r, file), make(map[string]*procedure))
	for {
		_, err := p.parseNext()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
	}
}

func functionNames(funcs map[string]*procedure) []string {
	names := make([]string, 0, len(functions)+len(funcs))
	for name := range functions {
		names = append(names, name)
	}
	for name := range funcs {
		names = append(names, name)
	}
	return names
}

// prefixError adds the name of a builtin to an error message.
func prefixError(name string, err error) error {
	if e, ok := err.(*Error); ok && e.File == "" && !strings.HasPrefix(e.Msg, name+":") {
		res := *e
		res.Msg = name + ": " + e.Msg
		return &res
	}
	return err
}
