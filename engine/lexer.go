package engine

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Token kinds produced by the lexer. Keywords are delivered as tokIdent
// and recognized by the parser.
type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokNumber
	tokString
	tokPunct
)

type token struct {
	kind  tokKind
	text  string  // ident name, punct spelling, or decoded string body
	num   float64 // tokNumber value
	isInt bool    // tokNumber fits int32 exactly
	line  int
	col   int
}

type lexer struct {
	src      string
	pos      int
	line     int
	col      int
	filename string
	stripCol bool
}

func newLexer(src, filename string, stripCol bool) *lexer {
	return &lexer{src: src, line: 1, col: 1, filename: filename, stripCol: stripCol}
}

type syntaxError struct {
	msg  string
	file string
	line int
	col  int
}

func (e *syntaxError) Error() string {
	if e.col > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.file, e.line, e.col, e.msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.file, e.line, e.msg)
}

func (l *lexer) errf(line, col int, format string, args ...any) error {
	if l.stripCol {
		col = 0
	}
	return &syntaxError{msg: fmt.Sprintf(format, args...), file: l.filename, line: line, col: col}
}

func (l *lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) peek2() byte {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

func (l *lexer) skipSpace() error {
	for l.pos < len(l.src) {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.peek2() == '/':
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
		case c == '/' && l.peek2() == '*':
			line, col := l.line, l.col
			l.advance()
			l.advance()
			for {
				if l.pos >= len(l.src) {
					return l.errf(line, col, "unterminated comment")
				}
				if l.peek() == '*' && l.peek2() == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

// puncts is ordered longest-first so multi-byte operators win.
var puncts = []string{
	"===", "!==",
	"==", "!=", "<=", ">=", "&&", "||", "+=", "-=", "*=", "/=", "%=", "++", "--",
	"(", ")", "[", "]", "{", "}", ",", ";", ":", ".", "?",
	"+", "-", "*", "/", "%", "!", "<", ">", "=",
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (l *lexer) next() (token, error) {
	if err := l.skipSpace(); err != nil {
		return token{}, err
	}
	line, col := l.line, l.col
	if l.stripCol {
		col = 0
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: line, col: col}, nil
	}

	c := l.peek()
	switch {
	case isIdentStart(c):
		start := l.pos
		for l.pos < len(l.src) && isIdentPart(l.peek()) {
			l.advance()
		}
		return token{kind: tokIdent, text: l.src[start:l.pos], line: line, col: col}, nil

	case isDigit(c) || (c == '.' && isDigit(l.peek2())):
		return l.lexNumber(line, col)

	case c == '"' || c == '\'':
		return l.lexString(line, col)
	}

	for _, p := range puncts {
		if strings.HasPrefix(l.src[l.pos:], p) {
			for range p {
				l.advance()
			}
			return token{kind: tokPunct, text: p, line: line, col: col}, nil
		}
	}
	return token{}, l.errf(l.line, l.col, "unexpected character %q", string(rune(c)))
}

func (l *lexer) lexNumber(line, col int) (token, error) {
	start := l.pos
	if l.peek() == '0' && (l.peek2() == 'x' || l.peek2() == 'X') {
		l.advance()
		l.advance()
		for l.pos < len(l.src) && isHexDigit(l.peek()) {
			l.advance()
		}
		u, err := strconv.ParseUint(l.src[start+2:l.pos], 16, 64)
		if err != nil {
			return token{}, l.errf(line, col, "bad hex literal")
		}
		f := float64(u)
		return token{kind: tokNumber, num: f, isInt: fitsInt32(f), line: line, col: col}, nil
	}

	for l.pos < len(l.src) && isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' {
		l.advance()
		for l.pos < len(l.src) && isDigit(l.peek()) {
			l.advance()
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		for l.pos < len(l.src) && isDigit(l.peek()) {
			l.advance()
		}
	}
	f, err := strconv.ParseFloat(l.src[start:l.pos], 64)
	if err != nil {
		return token{}, l.errf(line, col, "bad number literal %q", l.src[start:l.pos])
	}
	return token{kind: tokNumber, num: f, isInt: fitsInt32(f), line: line, col: col}, nil
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func fitsInt32(f float64) bool {
	return f == float64(int32(f)) && f >= -2147483648 && f <= 2147483647
}

func (l *lexer) lexString(line, col int) (token, error) {
	quote := l.advance()
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, l.errf(line, col, "unterminated string")
		}
		c := l.advance()
		if c == quote {
			break
		}
		if c == '\n' {
			return token{}, l.errf(line, col, "newline in string")
		}
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if l.pos >= len(l.src) {
			return token{}, l.errf(line, col, "unterminated string")
		}
		e := l.advance()
		switch e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case '0':
			b.WriteByte(0)
		case '\\', '"', '\'', '/':
			b.WriteByte(e)
		case 'u':
			if l.pos+4 > len(l.src) {
				return token{}, l.errf(line, col, "bad unicode escape")
			}
			h := l.src[l.pos : l.pos+4]
			u, err := strconv.ParseUint(h, 16, 32)
			if err != nil {
				return token{}, l.errf(line, col, "bad unicode escape \\u%s", h)
			}
			for i := 0; i < 4; i++ {
				l.advance()
			}
			b.WriteRune(rune(u))
		case 'x':
			if l.pos+2 > len(l.src) {
				return token{}, l.errf(line, col, "bad hex escape")
			}
			h := l.src[l.pos : l.pos+2]
			u, err := strconv.ParseUint(h, 16, 32)
			if err != nil {
				return token{}, l.errf(line, col, "bad hex escape \\x%s", h)
			}
			l.advance()
			l.advance()
			b.WriteRune(rune(u))
		default:
			b.WriteByte(e)
		}
	}
	s := b.String()
	if !utf8.ValidString(s) {
		// Tolerate: the evaluation boundary accepts arbitrary bytes.
		s = strings.ToValidUTF8(s, "�")
	}
	return token{kind: tokString, text: s, line: line, col: col}, nil
}
