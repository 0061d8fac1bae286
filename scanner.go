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
	"fmt"
	"io"
	"math"
	"strconv"
)

// TokenKind classifies the tokens returned by the [Scanner].
type TokenKind int

// These are the token kinds.
const (
	TokEOF TokenKind = iota
	TokEOL           // newline or ';'
	TokWord
	TokNumber
	TokString
	TokOp
)

func (k TokenKind) String() string {
	switch k {
	case TokEOF:
		return "end of file"
	case TokEOL:
		return "end of line"
	case TokWord:
		return "word"
	case TokNumber:
		return "number"
	case TokString:
		return "string"
	case TokOp:
		return "operator"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// Token is a lexical element of a script.
type Token struct {
	Kind TokenKind
	Text string
	Num  float64
	Line int // 1-based line where the token starts
}

func (t Token) String() string {
	switch t.Kind {
	case TokEOF, TokEOL:
		return t.Kind.String()
	case TokString:
		return strconv.Quote(t.Text)
	default:
		return fmt.Sprintf("%q", t.Text)
	}
}

// Scanner splits a script into tokens.  Comments and line continuations
// are removed before tokens are formed.
type Scanner struct {
	File string
	Line int // 1-based

	r         io.Reader
	buf       []byte
	pos, used int
	peek      []byte
	crSeen    bool

	// err is the first error returned by r.Read().
	// Once an error has been returned, all subsequent calls to .refill() will
	// return err.
	err error
}

// NewScanner returns a scanner which reads from r.  The file name is used
// in error messages.
func NewScanner(r io.Reader, file string) *Scanner {
	return &Scanner{
		File: file,
		Line: 1,
		r:    r,
		buf:  make([]byte, 512),
	}
}

// ScanToken returns the next token.  At the end of input, a token of kind
// TokEOF is returned.
func (s *Scanner) ScanToken() (Token, error) {
	err := s.skipBlanks()
	if err == io.EOF {
		return Token{Kind: TokEOF, Line: s.Line}, nil
	} else if err != nil {
		return Token{}, err
	}

	line := s.Line
	b, _ := s.Peek()
	switch {
	case b == '\n' || b == '\r' || b == ';':
		s.Next()
		return Token{Kind: TokEOL, Text: string(b), Line: line}, nil
	case b == '"' || b == '\'':
		text, err := s.readString()
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: TokString, Text: text, Line: line}, nil
	case isDigit(b) || b == '.' && s.peekDigitAfterDot():
		return s.readNumber()
	case isLetter(b) || b == '$':
		var word []byte
		for {
			b, err := s.Peek()
			if err == io.EOF {
				break
			} else if err != nil {
				return Token{}, err
			}
			if !isWordByte(b) && !(len(word) == 0 && b == '$') {
				break
			}
			s.Next()
			word = append(word, b)
		}
		return Token{Kind: TokWord, Text: string(word), Line: line}, nil
	default:
		s.Next()
		op := string(b)
		switch b {
		case '=', '!', '<', '>':
			if next, err := s.Peek(); err == nil && next == '=' {
				s.Next()
				op += "="
			}
		}
		switch op {
		case "(", ")", "[", "]", ",", "=", "==", "!=", "<", "<=", ">", ">=",
			"+", "-", "*", "/", "%", ".", "?", ":":
			return Token{Kind: TokOp, Text: op, Line: line}, nil
		}
		return Token{}, s.errorf(line, "unexpected character %q", b)
	}
}

func (s *Scanner) errorf(line int, format string, a ...any) *Error {
	return errParse(s.File, line, format, a...)
}

// skipBlanks skips spaces, comments and line continuations.
// Line breaks are not skipped.
func (s *Scanner) skipBlanks() error {
	for {
		b, err := s.Peek()
		if err != nil {
			return err
		}
		switch b {
		case ' ', '\t', '\f', '\v':
			s.Next()
		case '#':
			err = s.skipToEOL()
			if err != nil {
				return err
			}
		case '\\':
			bb := s.PeekN(2)
			if len(bb) == 2 && (bb[1] == '\n' || bb[1] == '\r') {
				s.Next()
				nl, _ := s.Next()
				if nl == '\r' {
					s.skipOptionalByte('\n')
				}
				continue
			}
			return nil
		default:
			return nil
		}
	}
}

// skipToEOL skips a comment, leaving the line break in the input.
func (s *Scanner) skipToEOL() error {
	for {
		b, err := s.Peek()
		if err != nil {
			return err
		}
		if b == '\n' || b == '\r' {
			return nil
		}
		s.Next()
	}
}

func (s *Scanner) readString() (string, error) {
	line := s.Line
	quote, _ := s.Next()
	var res []byte
	for {
		b, err := s.Next()
		if err == io.EOF {
			return "", s.errorf(line, "unterminated string")
		} else if err != nil {
			return "", err
		}
		switch b {
		case quote:
			return string(res), nil
		case '\n', '\r':
			return "", s.errorf(line, "unterminated string")
		case '\\':
			b, err = s.Next()
			if err == io.EOF {
				return "", s.errorf(line, "unterminated string")
			} else if err != nil {
				return "", err
			}
			switch b {
			case 'n':
				res = append(res, '\n')
			case 't':
				res = append(res, '\t')
			case 'r':
				res = append(res, '\r')
			default: // \\, \", \' and everything else
				res = append(res, b)
			}
		default:
			res = append(res, b)
		}
	}
}

func (s *Scanner) readNumber() (Token, error) {
	line := s.Line
	var num []byte
	seenDot := false
	for {
		b, err := s.Peek()
		if err == io.EOF {
			break
		} else if err != nil {
			return Token{}, err
		}
		if isDigit(b) {
			num = append(num, b)
		} else if b == '.' && !seenDot {
			seenDot = true
			num = append(num, b)
		} else if b == 'e' || b == 'E' {
			bb := s.PeekN(3)
			k := 1
			if len(bb) > 1 && (bb[1] == '+' || bb[1] == '-') {
				k = 2
			}
			if len(bb) <= k || !isDigit(bb[k]) {
				break
			}
			for range k {
				c, _ := s.Next()
				num = append(num, c)
			}
			for {
				c, err := s.Peek()
				if err != nil || !isDigit(c) {
					break
				}
				s.Next()
				num = append(num, c)
			}
			break
		} else {
			break
		}
		s.Next()
	}

	x, err := strconv.ParseFloat(string(num), 64)
	if err != nil || math.IsInf(x, 0) {
		return Token{}, s.errorf(line, "invalid number %q", num)
	}
	return Token{Kind: TokNumber, Text: string(num), Num: x, Line: line}, nil
}

func (s *Scanner) peekDigitAfterDot() bool {
	bb := s.PeekN(2)
	return len(bb) == 2 && isDigit(bb[1])
}

func (s *Scanner) skipOptionalByte(b byte) {
	next, err := s.Peek()
	if err == nil && next == b {
		s.Next()
	}
}

// Peek returns the next byte of input without consuming it.
func (s *Scanner) Peek() (byte, error) {
	for len(s.peek) == 0 {
		b, err := s.readByte()
		if err != nil {
			return 0, err
		}
		s.peek = append(s.peek, b)
	}
	return s.peek[0], nil
}

// PeekN returns up to n bytes of input without consuming them.
// Fewer bytes are returned only at the end of input.
func (s *Scanner) PeekN(n int) []byte {
	for len(s.peek) < n {
		b, err := s.readByte()
		if err != nil {
			return s.peek
		}
		s.peek = append(s.peek, b)
	}
	return s.peek[:n]
}

// Next consumes and returns the next byte of input.
func (s *Scanner) Next() (byte, error) {
	var b byte

	if len(s.peek) > 0 {
		b = s.peek[0]
		copy(s.peek, s.peek[1:])
		s.peek = s.peek[:len(s.peek)-1]
	} else {
		var err error
		b, err = s.readByte()
		if err != nil {
			return 0, err
		}
	}

	if s.crSeen && b == '\n' {
		// ignore LF after CR
	} else if b == '\n' || b == '\r' {
		s.Line++
	}
	s.crSeen = (b == '\r')

	return b, nil
}

func (s *Scanner) readByte() (byte, error) {
	for s.pos >= s.used {
		err := s.refill()
		if err != nil {
			return 0, err
		}
	}

	b := s.buf[s.pos]
	s.pos++

	return b, nil
}

func (s *Scanner) refill() error {
	if s.err != nil {
		return s.err
	}
	s.used = copy(s.buf, s.buf[s.pos:s.used])
	s.pos = 0

	n, err := s.r.Read(s.buf[s.used:])
	s.used += n
	if err != nil {
		s.err = err
	}
	if n > 0 {
		err = nil
	}
	return err
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= 0x80
}

func isWordByte(b byte) bool {
	return isLetter(b) || isDigit(b) || b == '.' || b == '_'
}
