package expr

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/Shift-AC/spreadsheet-plotter/sheet"
)

const (
	TkNumber = iota
	TkColumn
	TkAdd
	TkSub
	TkMul
	TkDiv
	TkMod
	TkPow
	TkLPar
	TkRPar
	TkError
	TkEof
)

func tokenName(tk int, lexeme Lexeme) string {
	switch tk {
	case TkNumber:
		return fmt.Sprintf("number '%g'", lexeme.Num)
	case TkColumn:
		return fmt.Sprintf("column reference '#%d'", lexeme.Col)
	case TkAdd:
		return "+"
	case TkSub:
		return "-"
	case TkMul:
		return "*"
	case TkDiv:
		return "/"
	case TkMod:
		return "%"
	case TkPow:
		return "^"
	case TkLPar:
		return "("
	case TkRPar:
		return ")"
	case TkEof:
		return "end of input"
	default:
		return "error"
	}
}

type Lexeme struct {
	Num float64
	Col int // 1 based column index
}

// Lexer tokenizes one arithmetic expression. Column titles are resolved
// against the raw input table at lexing time, so the parser only ever sees
// numeric column indices.
type Lexer struct {
	Source string
	Cursor int
	Token  int
	Lexeme Lexeme
	tab    *sheet.Table
	perr   *ParseError
}

func newLexer(source string, tab *sheet.Table) *Lexer {
	return &Lexer{
		Source: source,
		Cursor: 0,
		Token:  TkError,
		tab:    tab,
	}
}

func (self *Lexer) nextChar() (byte, bool) {
	if self.Cursor >= len(self.Source) {
		return 0, false
	}
	return self.Source[self.Cursor], true
}

func (self *Lexer) yield(tk int) int {
	self.Token = tk
	self.Cursor++
	return tk
}

// caret generates the diagnostic rendering of the source, pointing at the
// character the lexer stopped on.
func (self *Lexer) caret() string {
	at := self.Cursor
	if at > 0 {
		at--
	}
	return fmt.Sprintf("%s\n%s^", self.Source, strings.Repeat(" ", at))
}

func (self *Lexer) err(kind int, format string, args ...interface{}) int {
	self.perr = &ParseError{
		Kind:    kind,
		Msg:     fmt.Sprintf(format, args...),
		Context: self.caret(),
	}
	self.Token = TkError
	return TkError
}

func (self *Lexer) Err() *ParseError {
	return self.perr
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isOperatorChar(c byte) bool {
	switch c {
	case '+', '-', '*', '/', '%', '^', '(', ')':
		return true
	default:
		return false
	}
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	default:
		return false
	}
}

// excelColumnIndex turns a spreadsheet style letter index into a 1 based
// column number, ie a=1, z=26, aa=27. Case insensitive.
func excelColumnIndex(s string) (int, bool) {
	sum := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isAlpha(c) {
			return 0, false
		}
		if c >= 'a' {
			c -= 'a' - 'A'
		}
		sum = sum*26 + int(c-'A') + 1
	}
	return sum, true
}

func (self *Lexer) lexColumnRef() int {
	start := self.Cursor
	buf := &bytes.Buffer{}
	for {
		c, ok := self.nextChar()
		if !ok || (!isDigit(c) && !isAlpha(c)) {
			break
		}
		buf.WriteByte(c)
		self.Cursor++
	}
	ref := buf.String()
	if ref == "" {
		return self.err(ErrInvalidColumnReference, "empty column reference")
	}

	if isAlpha(ref[0]) {
		idx, ok := excelColumnIndex(ref)
		if !ok {
			self.Cursor = start
			return self.err(
				ErrInvalidColumnReference,
				"invalid column index: %s",
				ref,
			)
		}
		self.Lexeme.Col = idx
	} else {
		idx, err := strconv.Atoi(ref)
		if err != nil || idx <= 0 {
			self.Cursor = start
			return self.err(
				ErrInvalidColumnReference,
				"invalid column index: %s",
				ref,
			)
		}
		self.Lexeme.Col = idx
	}
	self.Token = TkColumn
	return TkColumn
}

func (self *Lexer) lexColumnTitle() int {
	buf := &bytes.Buffer{}
	closed := false
	for {
		c, ok := self.nextChar()
		if !ok {
			break
		}
		if c == '\\' {
			self.Cursor++
			cc, ok := self.nextChar()
			if !ok {
				return self.err(
					ErrInvalidColumnReference,
					"dangling escape in column name",
				)
			}
			buf.WriteByte(cc)
			self.Cursor++
			continue
		}
		if c == '@' {
			self.Cursor++
			closed = true
			break
		}
		buf.WriteByte(c)
		self.Cursor++
	}

	name := buf.String()
	if !closed || name == "" {
		return self.err(ErrInvalidColumnReference, "empty column name")
	}
	if self.tab == nil {
		return self.err(
			ErrInvalidColumnReference,
			"column name %q cannot be resolved without input header",
			name,
		)
	}
	idx, ok := self.tab.ColumnIndex(name)
	if !ok {
		return self.err(
			ErrInvalidColumnReference,
			"unknown column name %q (did you specify the header flag?)",
			name,
		)
	}
	self.Lexeme.Col = idx + 1
	self.Token = TkColumn
	return TkColumn
}

func (self *Lexer) lexNumber(c byte) int {
	buf := &bytes.Buffer{}
	buf.WriteByte(c)
	hasDot := c == '.'
	hasDigit := isDigit(c)
	self.Cursor++

	for {
		d, ok := self.nextChar()
		if !ok {
			break
		}
		if isDigit(d) {
			buf.WriteByte(d)
			self.Cursor++
			hasDigit = true
		} else if d == '.' && !hasDot {
			buf.WriteByte(d)
			self.Cursor++
			hasDot = true
		} else if isSpace(d) || isOperatorChar(d) {
			break
		} else {
			return self.err(ErrInvalidNumber, "invalid number format")
		}
	}

	if !hasDigit {
		// a lone "." is not a number
		return self.err(ErrInvalidNumber, "invalid number format")
	}

	v, err := strconv.ParseFloat(buf.String(), 64)
	if err != nil {
		return self.err(ErrInvalidNumber, "invalid number format")
	}
	self.Lexeme.Num = v
	self.Token = TkNumber
	return TkNumber
}

func (self *Lexer) Next() int {
	if self.Token == TkEof {
		return TkEof
	}

	for {
		c, ok := self.nextChar()
		if !ok {
			self.Token = TkEof
			return TkEof
		}

		switch c {
		case '+':
			return self.yield(TkAdd)
		case '-':
			return self.yield(TkSub)
		case '*':
			return self.yield(TkMul)
		case '/':
			return self.yield(TkDiv)
		case '%':
			return self.yield(TkMod)
		case '^':
			return self.yield(TkPow)
		case '(':
			return self.yield(TkLPar)
		case ')':
			return self.yield(TkRPar)

		case '#':
			self.Cursor++
			return self.lexColumnRef()

		case '@':
			self.Cursor++
			return self.lexColumnTitle()

		default:
			if isSpace(c) {
				self.Cursor++
				break
			}
			if isDigit(c) || c == '.' {
				return self.lexNumber(c)
			}
			self.Cursor++
			return self.err(ErrInvalidCharacter, "invalid character %q", c)
		}
	}
}
