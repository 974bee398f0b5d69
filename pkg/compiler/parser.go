// Package compiler implements Clockwork's single-pass compiler: a
// Pratt expression parser fused with the statement grammar, emitting
// bytecode directly into a chunk as it parses. There is no
// intermediate AST (spec.md §1 Non-goals) — the teacher's own
// lexer/parser/compiler triad is a two-pass design (parser builds
// ast.Program, compiler walks it) that can't survive that
// requirement, so this package merges both concerns the way
// original_source/clockwork.h does it: one token-consuming pass that
// both parses and codegens.
//
// The teacher keeps its Parser state as explicit fields threaded
// through method receivers rather than module-level globals — that
// shape survives unchanged here (spec.md §9 calls out the original C
// sources' module-level scanner/parser singletons as exactly the
// anti-pattern a reimplementation should avoid).
package compiler

import (
	"fmt"

	"github.com/kristofer/clockwork/pkg/scanner"
	"github.com/kristofer/clockwork/pkg/token"
)

// parser holds the two-token lookahead and panic-mode error state for
// one compilation (§4.5: "a parser state (current, previous, had_error,
// panic_mode)"). It is shared by every nested function compilation
// started while compiling one top-level source string.
type parser struct {
	sc *scanner.Scanner

	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool

	errors []string // accumulated "[line L] Error ...:" diagnostics
}

func newParser(src string) *parser {
	p := &parser{sc: scanner.New(src)}
	return p
}

// advance discards the previous lookahead token and scans forward
// until it finds a non-ERROR token (reporting each ERROR token it
// skips as a compile error along the way).
func (p *parser) advance() {
	p.previous = p.current
	for {
		p.current = p.sc.Next()
		if p.current.Kind != token.ERROR {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

// check reports whether the current token has kind k without
// consuming it.
func (p *parser) check(k token.Kind) bool { return p.current.Kind == k }

// match consumes and returns true if the current token has kind k;
// otherwise leaves it in place and returns false.
func (p *parser) match(k token.Kind) bool {
	if !p.check(k) {
		return false
	}
	p.advance()
	return true
}

// consume requires the current token to have kind k, advancing past
// it; otherwise it reports msg as a compile error at the current
// token.
func (p *parser) consume(k token.Kind, msg string) {
	if p.current.Kind == k {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }
func (p *parser) error(msg string)          { p.errorAt(p.previous, msg) }

// errorAt records a compile error at tok, entering panic mode on the
// first one so cascading errors from the same bad parse don't all
// surface (§4.5 "Error recovery").
func (p *parser) errorAt(tok token.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true

	where := fmt.Sprintf("'%s'", tok.Lexeme)
	if tok.Kind == token.EOF {
		where = "end"
	}
	p.errors = append(p.errors, fmt.Sprintf("[line %d] Error at %s: %s", tok.Line, where, msg))
}

// synchronize exits panic mode at the next statement boundary: a
// consumed semicolon, or a token that begins a fresh statement
// (§4.5 "On any statement boundary ... exit panic mode and resume").
func (p *parser) synchronize() {
	p.panicMode = false
	for p.current.Kind != token.EOF {
		if p.previous.Kind == token.SEMICOLON {
			return
		}
		switch p.current.Kind {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF,
			token.WHILE, token.PRINT, token.RETURN:
			return
		}
		p.advance()
	}
}
