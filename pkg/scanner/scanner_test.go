package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/clockwork/pkg/token"
)

func TestNext_BasicTokens(t *testing.T) {
	input := `( ) { } , . - + ; / *`

	tests := []struct {
		kind   token.Kind
		lexeme string
	}{
		{token.LEFT_PAREN, "("},
		{token.RIGHT_PAREN, ")"},
		{token.LEFT_BRACE, "{"},
		{token.RIGHT_BRACE, "}"},
		{token.COMMA, ","},
		{token.DOT, "."},
		{token.MINUS, "-"},
		{token.PLUS, "+"},
		{token.SEMICOLON, ";"},
		{token.SLASH, "/"},
		{token.STAR, "*"},
		{token.EOF, ""},
	}

	sc := New(input)
	for i, tt := range tests {
		tok := sc.Next()
		assert.Equalf(t, tt.kind, tok.Kind, "tests[%d] kind", i)
		assert.Equalf(t, tt.lexeme, tok.Lexeme, "tests[%d] lexeme", i)
	}
}

func TestNext_Operators(t *testing.T) {
	input := `! != = == < <= > >=`

	tests := []struct {
		kind   token.Kind
		lexeme string
	}{
		{token.BANG, "!"},
		{token.BANG_EQUAL, "!="},
		{token.EQUAL, "="},
		{token.EQUAL_EQUAL, "=="},
		{token.LESS, "<"},
		{token.LESS_EQUAL, "<="},
		{token.GREATER, ">"},
		{token.GREATER_EQUAL, ">="},
		{token.EOF, ""},
	}

	sc := New(input)
	for i, tt := range tests {
		tok := sc.Next()
		assert.Equalf(t, tt.kind, tok.Kind, "tests[%d] kind", i)
		assert.Equalf(t, tt.lexeme, tok.Lexeme, "tests[%d] lexeme", i)
	}
}

func TestNext_Numbers(t *testing.T) {
	input := `42 3.14 0 0.5`
	want := []string{"42", "3.14", "0", "0.5"}

	sc := New(input)
	for i, w := range want {
		tok := sc.Next()
		require.Equal(t, token.NUMBER, tok.Kind, "token %d", i)
		assert.Equal(t, w, tok.Lexeme)
	}
}

func TestNext_KeywordsAndIdentifiers(t *testing.T) {
	input := `and class else false for fun if nil or print return super this true var while count _x2`

	want := []token.Kind{
		token.AND, token.CLASS, token.ELSE, token.FALSE, token.FOR, token.FUN,
		token.IF, token.NIL, token.OR, token.PRINT, token.RETURN, token.SUPER,
		token.THIS, token.TRUE, token.VAR, token.WHILE,
		token.IDENTIFIER, token.IDENTIFIER,
	}

	sc := New(input)
	for i, k := range want {
		tok := sc.Next()
		assert.Equalf(t, k, tok.Kind, "token %d (%q)", i, tok.Lexeme)
	}
}

func TestNext_StringLiteral(t *testing.T) {
	sc := New(`"hello world"`)
	tok := sc.Next()
	require.Equal(t, token.STRING, tok.Kind)
	assert.Equal(t, `"hello world"`, tok.Lexeme)
}

func TestNext_UnterminatedString(t *testing.T) {
	sc := New(`"unterminated`)
	tok := sc.Next()
	require.Equal(t, token.ERROR, tok.Kind)
	assert.Equal(t, "Unterminated string.", tok.Lexeme)
	assert.Equal(t, 1, tok.Line)
}

func TestNext_LineCountingAcrossNewlinesInString(t *testing.T) {
	sc := New("\"a\nb\" 1")
	str := sc.Next()
	require.Equal(t, token.STRING, str.Kind)
	num := sc.Next()
	assert.Equal(t, 2, num.Line)
}

func TestNext_CommentsSkippedToEOLOrEOF(t *testing.T) {
	sc := New("1 // a comment\n2 // trailing, no newline")
	first := sc.Next()
	assert.Equal(t, "1", first.Lexeme)
	second := sc.Next()
	assert.Equal(t, 2, second.Line)
	assert.Equal(t, "2", second.Lexeme)
	eof := sc.Next()
	assert.Equal(t, token.EOF, eof.Kind)
}

func TestNext_UnexpectedCharacterIsError(t *testing.T) {
	sc := New("@")
	tok := sc.Next()
	require.Equal(t, token.ERROR, tok.Kind)
	assert.Equal(t, "Unexpected character.", tok.Lexeme)
}

// Scanner round-trip: concatenating lexemes (minus whitespace/comments,
// which the scanner discards rather than emitting) reconstructs the
// meaningful source, and every token's line equals the line its first
// byte appears on (spec.md §8).
func TestRoundTrip_LexemesAndLines(t *testing.T) {
	src := "var a = 1;\nvar b = 2;\nprint a + b;"
	toks := Tokenize(src)

	require.NotEmpty(t, toks)
	assert.Equal(t, token.EOF, toks[len(toks)-1].Kind)

	reconstructed := Reassemble(toks)
	assert.Equal(t, "vara=1;varb=2;printa+b;", reconstructed)
	assert.Equal(t, joinNoSpace(toks), reconstructed)

	// line 1 tokens
	for _, tok := range toks[:5] {
		assert.Equal(t, 1, tok.Line, "token %+v", tok)
	}
}

func joinNoSpace(toks []token.Token) string {
	out := ""
	for _, t := range toks {
		if t.Kind == token.EOF || t.Kind == token.ERROR {
			continue
		}
		out += t.Lexeme
	}
	return out
}
