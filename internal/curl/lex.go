package curl

import (
	"errors"
	"strings"
)

type quoteMode uint8

const (
	quoteNone quoteMode = iota
	quoteSingle
	quoteDouble
	quoteANSI
)

// lexer splits POSIX shell text into words. It understands single,
// double and $'...' quoting plus backslash escapes and line continuations.
// It never fails half way; callers inspect quote and dangling afterwards.
type lexer struct {
	src      []rune
	pos      int
	quote    quoteMode
	dangling bool // input ended right after an unquoted backslash
	inWord   bool
	word     strings.Builder
	words    []string
}

func lex(input string) *lexer {
	lx := &lexer{src: []rune(input)}
	for lx.pos < len(lx.src) {
		r := lx.src[lx.pos]
		lx.pos++
		switch lx.quote {
		case quoteSingle:
			if r == '\'' {
				lx.quote = quoteNone
			} else {
				lx.emit(r)
			}
		case quoteDouble:
			lx.double(r)
		case quoteANSI:
			lx.ansi(r)
		default:
			lx.bare(r)
		}
	}
	lx.endWord()
	return lx
}

// splitTokens returns the words of one shell command.
func splitTokens(input string) ([]string, error) {
	lx := lex(input)
	switch {
	case lx.quote != quoteNone:
		return nil, errors.New("unterminated quoted string")
	case lx.dangling:
		return nil, errors.New("unterminated escape sequence")
	}
	return lx.words, nil
}

func (lx *lexer) emit(r rune) {
	lx.inWord = true
	lx.word.WriteRune(r)
}

func (lx *lexer) endWord() {
	if !lx.inWord {
		return
	}
	lx.words = append(lx.words, lx.word.String())
	lx.word.Reset()
	lx.inWord = false
}

func (lx *lexer) peek() (rune, bool) {
	if lx.pos >= len(lx.src) {
		return 0, false
	}
	return lx.src[lx.pos], true
}

// continuation consumes a newline (or CRLF) following a backslash.
func (lx *lexer) continuation() bool {
	r, ok := lx.peek()
	switch {
	case !ok:
		return false
	case r == '\n':
		lx.pos++
		return true
	case r == '\r':
		lx.pos++
		if next, ok := lx.peek(); ok && next == '\n' {
			lx.pos++
		}
		return true
	}
	return false
}

func (lx *lexer) bare(r rune) {
	switch r {
	case ' ', '\t', '\n', '\r':
		lx.endWord()
	case '\'':
		lx.inWord = true
		lx.quote = quoteSingle
	case '"':
		lx.inWord = true
		lx.quote = quoteDouble
	case '\\':
		if lx.continuation() {
			return
		}
		next, ok := lx.peek()
		if !ok {
			lx.dangling = true
			return
		}
		lx.pos++
		lx.emit(next)
	case '$':
		if next, ok := lx.peek(); ok && next == '\'' {
			lx.pos++
			lx.inWord = true
			lx.quote = quoteANSI
			return
		}
		lx.emit(r)
	default:
		lx.emit(r)
	}
}

// double follows bash: a backslash only escapes $ ` " \ and newline.
func (lx *lexer) double(r rune) {
	switch r {
	case '"':
		lx.quote = quoteNone
	case '\\':
		if lx.continuation() {
			return
		}
		next, ok := lx.peek()
		if ok && strings.ContainsRune("$`\"\\", next) {
			lx.pos++
			lx.emit(next)
			return
		}
		lx.emit(r)
	default:
		lx.emit(r)
	}
}

var ansiEscapes = map[rune]rune{
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'a':  '\a',
	'b':  '\b',
	'e':  0x1b,
	'E':  0x1b,
	'f':  '\f',
	'v':  '\v',
	'\\': '\\',
	'\'': '\'',
	'"':  '"',
	'?':  '?',
}

func (lx *lexer) ansi(r rune) {
	if r == '\'' {
		lx.quote = quoteNone
		return
	}
	if r != '\\' {
		lx.emit(r)
		return
	}
	next, ok := lx.peek()
	if !ok {
		lx.emit(r)
		return
	}
	lx.pos++
	if v, ok := ansiEscapes[next]; ok {
		lx.emit(v)
		return
	}
	digits := 0
	switch next {
	case 'x':
		digits = 2
	case 'u':
		digits = 4
	case 'U':
		digits = 8
	}
	if digits > 0 {
		if v, ok := lx.hex(digits); ok {
			lx.emit(v)
			return
		}
	}
	lx.emit('\\')
	lx.emit(next)
}

// hex reads up to max hex digits, bash style.
func (lx *lexer) hex(max int) (rune, bool) {
	var v rune
	n := 0
	for n < max {
		r, ok := lx.peek()
		if !ok {
			break
		}
		d := hexDigit(r)
		if d < 0 {
			break
		}
		v = v*16 + d
		lx.pos++
		n++
	}
	return v, n > 0
}

func hexDigit(r rune) rune {
	switch {
	case r >= '0' && r <= '9':
		return r - '0'
	case r >= 'a' && r <= 'f':
		return r - 'a' + 10
	case r >= 'A' && r <= 'F':
		return r - 'A' + 10
	}
	return -1
}
