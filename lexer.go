// Copyright 2011 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package trimja

import (
	"fmt"
	"strings"
)

// Token is a lexical token of the Ninja manifest grammar.
type Token int

const (
	ERROR Token = iota
	BUILD
	COLON
	DEFAULT
	EQUALS
	IDENT
	INCLUDE
	INDENT
	NEWLINE
	PIPE
	PIPE2
	PIPEAT
	POOL
	RULE
	SUBNINJA
	TEOF
)

// Lexer tokenizes a Ninja manifest. Unlike the upstream re2c-generated
// scanner this is a small hand-written character scanner; it recognizes the
// same token set plus PIPEAT ("|@") for validation edges.
type Lexer struct {
	filename_ string
	input_    string
	// ofs_ and last_token_ are byte offsets into input_. In the C++ original
	// these are raw pointers; Go has no pointer arithmetic so they are plain
	// indexes. last_token_ is -1 until the first token is read.
	ofs_        int
	last_token_ int
}

func NewLexer(input string) Lexer {
	l := Lexer{}
	l.Start("input", input)
	return l
}

// Start begins parsing some input.
func (l *Lexer) Start(filename, input string) {
	l.filename_ = filename
	l.input_ = input
	l.ofs_ = 0
	l.last_token_ = -1
}

func (l *Lexer) byteAt(p int) byte {
	if p >= len(l.input_) {
		return 0
	}
	return l.input_[p]
}

// ReadPath reads a path (complete with $escapes). Returns false only on
// error; the returned path may be empty if a delimiter is hit immediately.
func (l *Lexer) ReadPath(path *EvalString, err *string) bool {
	return l.ReadEvalString(path, true, err)
}

// ReadVarValue reads the value side of a "var = value" line.
func (l *Lexer) ReadVarValue(value *EvalString, err *string) bool {
	return l.ReadEvalString(value, false, err)
}

// Error constructs an error message with file:line context and a caret
// pointing at the offending column, storing it in *err. Always returns
// false so callers can `return l.Error(...)`.
func (l *Lexer) Error(message string, err *string) bool {
	line := 1
	lineStart := 0
	for p := 0; p < l.last_token_ && p < len(l.input_); p++ {
		if l.input_[p] == '\n' {
			line++
			lineStart = p + 1
		}
	}
	col := 0
	if l.last_token_ != -1 {
		col = l.last_token_ - lineStart
	}

	*err = fmt.Sprintf("%s:%d: ", l.filename_, line)
	*err += message + "\n"

	const truncateColumn = 72
	if col > 0 && col < truncateColumn && lineStart <= len(l.input_) {
		truncated := true
		length := 0
		for ; length < truncateColumn && lineStart+length < len(l.input_); length++ {
			if l.input_[lineStart+length] == '\n' {
				truncated = false
				break
			}
		}
		if lineStart+length >= len(l.input_) {
			truncated = false
		}
		*err += l.input_[lineStart : lineStart+length]
		if truncated {
			*err += "..."
		}
		*err += "\n"
		*err += strings.Repeat(" ", col)
		*err += "^ near here"
	}
	return false
}

// TokenName returns a human-readable form of a token, used in error messages.
func TokenName(t Token) string {
	switch t {
	case ERROR:
		return "lexing error"
	case BUILD:
		return "'build'"
	case COLON:
		return "':'"
	case DEFAULT:
		return "'default'"
	case EQUALS:
		return "'='"
	case IDENT:
		return "identifier"
	case INCLUDE:
		return "'include'"
	case INDENT:
		return "indent"
	case NEWLINE:
		return "newline"
	case PIPE2:
		return "'||'"
	case PIPE:
		return "'|'"
	case PIPEAT:
		return "'|@'"
	case POOL:
		return "'pool'"
	case RULE:
		return "'rule'"
	case SUBNINJA:
		return "'subninja'"
	case TEOF:
		return "eof"
	}
	return ""
}

// TokenErrorHint returns a human-readable token hint, used in error messages.
func TokenErrorHint(expected Token) string {
	switch expected {
	case COLON:
		return " ($ also escapes ':')"
	default:
		return ""
	}
}

// DescribeLastError returns extra context when the last token read was an
// ERROR token.
func (l *Lexer) DescribeLastError() string {
	if l.last_token_ != -1 && l.last_token_ < len(l.input_) {
		if l.input_[l.last_token_] == '\t' {
			return "tabs are not allowed, use spaces"
		}
	}
	return "lexing error"
}

// UnreadToken rewinds to the last read token.
func (l *Lexer) UnreadToken() {
	l.ofs_ = l.last_token_
}

// skipComment scans a "#"-to-end-of-line comment starting at p (which must
// point at '#'). If the comment is newline-terminated it reports the offset
// just past that newline and true, so the caller can swallow the comment
// (and its newline) entirely and keep scanning. If EOF is reached first it
// reports false: an unterminated comment line is a lexing error.
func skipComment(l *Lexer, p int) (bool, int) {
	for {
		c := l.byteAt(p)
		if p >= len(l.input_) {
			return false, p
		}
		if c == '\n' {
			return true, p + 1
		}
		p++
	}
}

func isIdentByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') || c == '_' || c == '.' || c == '-'
}

func isSimpleVarByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') || c == '_' || c == '-'
}

// ReadToken scans and returns the next token, skipping comment lines before
// it and consuming trailing spaces and "$\n" continuations after it,
// matching Ninja's lexer.
func (l *Lexer) ReadToken() Token {
	var token Token
	for {
		start := l.ofs_
		c := l.byteAt(start)
		switch {
		case start >= len(l.input_):
			l.ofs_ = start
			token = TEOF
		case c == '\n':
			l.ofs_ = start + 1
			token = NEWLINE
		case c == '\r':
			if l.byteAt(start+1) == '\n' {
				l.ofs_ = start + 2
				token = NEWLINE
			} else {
				l.ofs_ = start + 1
				l.last_token_ = start
				token = ERROR
			}
		case c == ' ':
			// Leading indentation, or inter-token whitespace already consumed
			// below; at start-of-line this is INDENT.
			p := start
			for l.byteAt(p) == ' ' {
				p++
			}
			if l.byteAt(p) == '#' {
				if ok, next := skipComment(l, p); ok {
					l.ofs_ = next
					continue
				}
				l.ofs_ = p
				l.last_token_ = start
				token = INDENT
				break
			}
			l.ofs_ = p
			l.last_token_ = start
			token = INDENT
		case c == '#':
			if ok, next := skipComment(l, start); ok {
				l.ofs_ = next
				continue
			}
			l.ofs_ = len(l.input_)
			l.last_token_ = start
			token = ERROR
		case c == ':':
			l.ofs_ = start + 1
			token = COLON
		case c == '=':
			l.ofs_ = start + 1
			token = EQUALS
		case c == '|':
			if l.byteAt(start+1) == '|' {
				l.ofs_ = start + 2
				token = PIPE2
			} else if l.byteAt(start+1) == '@' {
				l.ofs_ = start + 2
				token = PIPEAT
			} else {
				l.ofs_ = start + 1
				token = PIPE
			}
		case isIdentByte(c):
			p := start
			for isIdentByte(l.byteAt(p)) {
				p++
			}
			l.ofs_ = p
			ident := l.input_[start:p]
			switch ident {
			case "build":
				token = BUILD
			case "default":
				token = DEFAULT
			case "include":
				token = INCLUDE
			case "pool":
				token = POOL
			case "rule":
				token = RULE
			case "subninja":
				token = SUBNINJA
			default:
				token = IDENT
			}
		default:
			l.ofs_ = start + 1
			l.last_token_ = start
			token = ERROR
		}

		l.last_token_ = start
		break
	}

	if token != NEWLINE && token != TEOF {
		l.EatWhitespace()
	}
	return token
}

// PeekToken reads the next token; if it matches token, consumes it and
// returns true, otherwise rewinds and returns false.
func (l *Lexer) PeekToken(token Token) bool {
	t := l.ReadToken()
	if t == token {
		return true
	}
	l.UnreadToken()
	return false
}

// EatWhitespace skips spaces and "$\n" line continuations after a token.
func (l *Lexer) EatWhitespace() {
	for {
		p := l.ofs_
		c := l.byteAt(p)
		switch {
		case c == ' ':
			for l.byteAt(p) == ' ' {
				p++
			}
			l.ofs_ = p
			continue
		case c == '$' && l.byteAt(p+1) == '\n':
			l.ofs_ = p + 2
			continue
		case c == '$' && l.byteAt(p+1) == '\r' && l.byteAt(p+2) == '\n':
			l.ofs_ = p + 3
			continue
		default:
			return
		}
	}
}

// ReadIdent reads a simple identifier (a rule or variable name). Returns
// false if a name can't be read.
func (l *Lexer) ReadIdent(out *string) bool {
	start := l.ofs_
	p := start
	for isIdentByte(l.byteAt(p)) {
		p++
	}
	if p == start {
		l.last_token_ = start
		return false
	}
	*out = l.input_[start:p]
	l.last_token_ = start
	l.ofs_ = p
	l.EatWhitespace()
	return true
}

// ReadEvalString reads a $-escaped string, stopping at an unescaped
// newline, or (when path is true) at unescaped whitespace, ':' or '|'.
func (l *Lexer) ReadEvalString(eval *EvalString, path bool, err *string) bool {
	textStart := l.ofs_
	flushText := func(end int) {
		if end > textStart {
			eval.AddText(l.input_[textStart:end])
		}
	}
	for {
		// Each pass begins a new "unit": a run of plain text ends here, or a
		// single $-escape begins here. start marks where that unit began, so
		// an error reported for this unit points at the right column.
		start := l.ofs_
		c := l.byteAt(start)
		switch {
		case start >= len(l.input_):
			l.last_token_ = start
			return l.Error("unexpected EOF", err)
		case c == '\n':
			flushText(start)
			l.last_token_ = start
			l.ofs_ = start
			if !path {
				l.ofs_ = start + 1
			}
			if path {
				l.EatWhitespace()
			}
			return true
		case c == '\r':
			if l.byteAt(start+1) == '\n' {
				flushText(start)
				l.last_token_ = start
				l.ofs_ = start
				if !path {
					l.ofs_ = start + 2
				}
				if path {
					l.EatWhitespace()
				}
				return true
			}
			l.last_token_ = start
			return l.Error(l.DescribeLastError(), err)
		case path && (c == ' ' || c == ':' || c == '|'):
			flushText(start)
			l.last_token_ = start
			l.ofs_ = start
			l.EatWhitespace()
			return true
		case c == '$':
			flushText(start)
			p := start + 1
			nc := l.byteAt(p)
			switch {
			case nc == '\n' || (nc == '\r' && l.byteAt(p+1) == '\n'):
				p++
				if l.input_[p-1] == '\r' {
					p++
				}
				for l.byteAt(p) == ' ' {
					p++
				}
			case nc == ' ':
				eval.AddText(" ")
				p++
			case nc == '$':
				eval.AddText("$")
				p++
			case nc == ':':
				eval.AddText(":")
				p++
			case nc == '{':
				p++
				varStart := p
				for l.byteAt(p) != '}' && l.byteAt(p) != '\n' && p < len(l.input_) {
					p++
				}
				if p == varStart || l.byteAt(p) != '}' {
					l.last_token_ = start
					return l.Error("bad $-escape (literal $ must be written as $$)", err)
				}
				eval.AddSpecial(l.input_[varStart:p])
				p++
			case isSimpleVarByte(nc):
				varStart := p
				for isSimpleVarByte(l.byteAt(p)) {
					p++
				}
				eval.AddSpecial(l.input_[varStart:p])
			default:
				l.last_token_ = start
				return l.Error("bad $-escape (literal $ must be written as $$)", err)
			}
			l.ofs_ = p
			textStart = p
		default:
			l.ofs_ = start + 1
		}
	}
}
