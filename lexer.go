package cstruct

import (
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokPunct
)

type token struct {
	kind       tokenKind
	text       string
	line       int
	start, end int // rune offsets into the source, for raw-substring capture (expressions)
}

// lexer turns DSL source into a flat token stream: identifiers, numeric
// literals (left unparsed — the parser hands them to parseNumberToken),
// quoted strings, and single-character punctuation. `//` line comments
// and `/* */` block comments are stripped; newlines are tracked so
// ParserError can report an accurate line number.
type lexer struct {
	runes []rune
	pos   int
	line  int
}

func newLexer(source string) *lexer {
	return &lexer{runes: []rune(source), pos: 0, line: 1}
}

func (l *lexer) eol() bool { return l.pos >= len(l.runes) }

func (l *lexer) peek() rune {
	if l.eol() {
		return 0
	}
	return l.runes[l.pos]
}

func (l *lexer) peekAt(off int) rune {
	if l.pos+off >= len(l.runes) {
		return 0
	}
	return l.runes[l.pos+off]
}

func (l *lexer) advance() rune {
	r := l.runes[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
	}
	return r
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func (l *lexer) skipTrivia() {
	for !l.eol() {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.peekAt(1) == '/':
			for !l.eol() && l.peek() != '\n' {
				l.advance()
			}
		case c == '/' && l.peekAt(1) == '*':
			l.advance()
			l.advance()
			for !l.eol() && !(l.peek() == '*' && l.peekAt(1) == '/') {
				l.advance()
			}
			if !l.eol() {
				l.advance()
				l.advance()
			}
		default:
			return
		}
	}
}

// next returns the next token, or a tokEOF token once the source is
// exhausted.
func (l *lexer) next() (token, error) {
	l.skipTrivia()
	if l.eol() {
		return token{kind: tokEOF, line: l.line, start: l.pos, end: l.pos}, nil
	}

	line := l.line
	c := l.peek()
	tokStart := l.pos

	switch {
	case isIdentStart(c):
		start := l.pos
		for !l.eol() && isIdentPart(l.peek()) {
			l.advance()
		}
		return token{kind: tokIdent, text: string(l.runes[start:l.pos]), line: line, start: tokStart, end: l.pos}, nil

	case isDigit(c):
		start := l.pos
		l.advance()
		if !l.eol() && (l.peek() == 'x' || l.peek() == 'X' || l.peek() == 'b' || l.peek() == 'B') {
			l.advance()
		}
		for !l.eol() && (isIdentPart(l.peek())) {
			l.advance()
		}
		return token{kind: tokNumber, text: string(l.runes[start:l.pos]), line: line, start: tokStart, end: l.pos}, nil

	case c == '"':
		l.advance()
		var sb strings.Builder
		for !l.eol() && l.peek() != '"' {
			r := l.advance()
			if r == '\\' && !l.eol() {
				esc := l.advance()
				switch esc {
				case 'n':
					sb.WriteRune('\n')
				case 't':
					sb.WriteRune('\t')
				default:
					sb.WriteRune(esc)
				}
				continue
			}
			sb.WriteRune(r)
		}
		if l.eol() {
			return token{}, &ParserError{Line: line, Msg: "unterminated string literal"}
		}
		l.advance()
		return token{kind: tokString, text: sb.String(), line: line, start: tokStart, end: l.pos}, nil

	default:
		l.advance()
		return token{kind: tokPunct, text: string(c), line: line, start: tokStart, end: l.pos}, nil
	}
}

// tokenize runs the lexer to completion, returning every token including
// the trailing tokEOF sentinel.
func tokenize(source string) ([]token, error) {
	l := newLexer(source)
	var toks []token
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.kind == tokEOF {
			return toks, nil
		}
	}
}
