// Package scanner implements the lexical analyzer (tokenizer) for
// Clockwork.
//
// The scanner turns source text into a stream of token.Token values,
// one at a time, on demand — the compiler calls Next() exactly when it
// needs the next token, so there is never a materialized token slice
// for a whole program. This mirrors the teacher's lexer.Lexer: a
// (start, current, line) cursor over the input with single-character
// lookahead (peek) and a second lookahead (peekNext) only where the
// grammar needs it (distinguishing a number's fractional part from a
// trailing '.', and a '//' comment from a '/' operator).
//
// Scanning is single-pass and allocation-light: a token's Lexeme from
// Next is a slice of the original input, never a copy; only ERROR
// tokens carry a static message instead.
package scanner

import (
	"strings"

	"github.com/kristofer/clockwork/pkg/token"
)

// Scanner holds the cursor state over one source string.
type Scanner struct {
	input   string
	start   int // start of the token currently being scanned
	current int // position of the next unread byte
	line    int
}

// New creates a Scanner over src, ready to produce tokens from the
// beginning of the input.
func New(src string) *Scanner {
	return &Scanner{input: src, line: 1}
}

// Next scans and returns the next token. At end of input it returns an
// EOF token forever; on a lexical error it returns an ERROR token whose
// Lexeme is a static diagnostic message rather than source text.
func (s *Scanner) Next() token.Token {
	s.skipWhitespaceAndComments()
	s.start = s.current

	if s.atEnd() {
		return s.make(token.EOF)
	}

	c := s.advance()

	if isAlpha(c) {
		return s.identifier()
	}
	if isDigit(c) {
		return s.number()
	}

	switch c {
	case '(':
		return s.make(token.LEFT_PAREN)
	case ')':
		return s.make(token.RIGHT_PAREN)
	case '{':
		return s.make(token.LEFT_BRACE)
	case '}':
		return s.make(token.RIGHT_BRACE)
	case ';':
		return s.make(token.SEMICOLON)
	case ',':
		return s.make(token.COMMA)
	case '.':
		return s.make(token.DOT)
	case '-':
		return s.make(token.MINUS)
	case '+':
		return s.make(token.PLUS)
	case '/':
		return s.make(token.SLASH)
	case '*':
		return s.make(token.STAR)
	case '!':
		return s.makeTwo('=', token.BANG_EQUAL, token.BANG)
	case '=':
		return s.makeTwo('=', token.EQUAL_EQUAL, token.EQUAL)
	case '<':
		return s.makeTwo('=', token.LESS_EQUAL, token.LESS)
	case '>':
		return s.makeTwo('=', token.GREATER_EQUAL, token.GREATER)
	case '"':
		return s.string()
	}

	return s.errorToken("Unexpected character.")
}

func (s *Scanner) atEnd() bool { return s.current >= len(s.input) }

func (s *Scanner) advance() byte {
	c := s.input[s.current]
	s.current++
	return c
}

func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.input[s.current]
}

func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.input) {
		return 0
	}
	return s.input[s.current+1]
}

func (s *Scanner) matchAdvance(expected byte) bool {
	if s.atEnd() || s.input[s.current] != expected {
		return false
	}
	s.current++
	return true
}

func (s *Scanner) skipWhitespaceAndComments() {
	for {
		switch s.peek() {
		case ' ', '\t', '\r':
			s.advance()
		case '\n':
			s.line++
			s.advance()
		case '/':
			if s.peekNext() == '/' {
				for s.peek() != '\n' && !s.atEnd() {
					s.advance()
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func (s *Scanner) string() token.Token {
	for s.peek() != '"' && !s.atEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		s.advance()
	}
	if s.atEnd() {
		return s.errorToken("Unterminated string.")
	}
	s.advance() // closing quote
	return s.make(token.STRING)
}

func (s *Scanner) number() token.Token {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance() // consume the '.'
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	return s.make(token.NUMBER)
}

func (s *Scanner) identifier() token.Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.advance()
	}
	lexeme := s.input[s.start:s.current]
	if kind, ok := token.Keywords[lexeme]; ok {
		return s.make(kind)
	}
	return s.make(token.IDENTIFIER)
}

func (s *Scanner) make(kind token.Kind) token.Token {
	return token.Token{Kind: kind, Lexeme: s.input[s.start:s.current], Line: s.line}
}

// makeTwo emits twoKind if the next byte matches second (consuming it),
// otherwise oneKind without consuming anything extra.
func (s *Scanner) makeTwo(second byte, twoKind, oneKind token.Kind) token.Token {
	if s.matchAdvance(second) {
		return s.make(twoKind)
	}
	return s.make(oneKind)
}

func (s *Scanner) errorToken(msg string) token.Token {
	return token.Token{Kind: token.ERROR, Lexeme: msg, Line: s.line}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// Tokenize drains the scanner into a slice, stopping after (and
// including) the first EOF. It exists for tests that want to assert on
// a whole token stream at once; the compiler itself never calls it,
// consuming tokens one at a time via Next instead.
func Tokenize(src string) []token.Token {
	sc := New(src)
	var toks []token.Token
	for {
		t := sc.Next()
		toks = append(toks, t)
		if t.Kind == token.EOF {
			break
		}
	}
	return toks
}

// Reassemble concatenates token lexemes, used by the scanner round-trip
// test (spec.md §8) to check that every byte of non-whitespace,
// non-comment source is accounted for in some token.
func Reassemble(toks []token.Token) string {
	var b strings.Builder
	for _, t := range toks {
		if t.Kind == token.EOF || t.Kind == token.ERROR {
			continue
		}
		b.WriteString(t.Lexeme)
	}
	return b.String()
}
