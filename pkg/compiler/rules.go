package compiler

import "github.com/kristofer/clockwork/pkg/token"

// precedence is the Pratt ladder of §4.5, lowest to highest.
type precedence int

const (
	precNone precedence = iota
	precAssignment       // =
	precOr               // or
	precAnd              // and
	precEquality         // == !=
	precComparison       // < > <= >=
	precTerm             // + -
	precFactor           // * /
	precUnary            // ! -
	precCall             // ()
	precPrimary
)

// parseFn is a prefix or infix parsing function. canAssign tells an
// infix/prefix rule whether `=` may legally follow it — only true at
// or below precAssignment, used to reject e.g. `a + b = c`.
type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

// rules is the per-token (prefix, infix, precedence) table spec.md §9
// calls out as "readily expressed as a constant array indexed by token
// kind" — kept flat exactly as suggested, mirroring
// original_source/clockwork.h's _cw_parse_rules table one-for-one.
var rules = map[token.Kind]parseRule{
	token.LEFT_PAREN:    {(*Compiler).grouping, (*Compiler).call, precCall},
	token.RIGHT_PAREN:   {},
	token.LEFT_BRACE:    {},
	token.RIGHT_BRACE:   {},
	token.COMMA:         {},
	token.DOT:           {},
	token.MINUS:         {(*Compiler).unary, (*Compiler).binary, precTerm},
	token.PLUS:          {nil, (*Compiler).binary, precTerm},
	token.SEMICOLON:     {},
	token.SLASH:         {nil, (*Compiler).binary, precFactor},
	token.STAR:          {nil, (*Compiler).binary, precFactor},
	token.BANG:          {(*Compiler).unary, nil, precNone},
	token.BANG_EQUAL:    {nil, (*Compiler).binary, precEquality},
	token.EQUAL:         {},
	token.EQUAL_EQUAL:   {nil, (*Compiler).binary, precEquality},
	token.GREATER:       {nil, (*Compiler).binary, precComparison},
	token.GREATER_EQUAL: {nil, (*Compiler).binary, precComparison},
	token.LESS:          {nil, (*Compiler).binary, precComparison},
	token.LESS_EQUAL:    {nil, (*Compiler).binary, precComparison},
	token.IDENTIFIER:    {(*Compiler).variable, nil, precNone},
	token.STRING:        {(*Compiler).stringLit, nil, precNone},
	token.NUMBER:        {(*Compiler).number, nil, precNone},
	token.AND:           {nil, (*Compiler).and_, precAnd},
	token.CLASS:         {},
	token.ELSE:          {},
	token.FALSE:         {(*Compiler).literal, nil, precNone},
	token.FOR:           {},
	token.FUN:           {},
	token.IF:            {},
	token.NIL:           {(*Compiler).literal, nil, precNone},
	token.OR:            {nil, (*Compiler).or_, precOr},
	token.PRINT:         {},
	token.RETURN:        {},
	token.SUPER:         {},
	token.THIS:          {},
	token.TRUE:          {(*Compiler).literal, nil, precNone},
	token.VAR:           {},
	token.WHILE:         {},
}

func getRule(k token.Kind) parseRule {
	if r, ok := rules[k]; ok {
		return r
	}
	return parseRule{}
}
