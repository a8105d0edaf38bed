package lexer

import (
	"testing"

	"github.com/mna/wisp/lang/token"
	"github.com/stretchr/testify/require"
)

func allTokens(src string) []Token {
	l := New(src)
	var out []Token
	for {
		tok := l.Next()
		out = append(out, tok)
		if tok.Type == token.EOF {
			return out
		}
	}
}

func TestSimpleProgram(t *testing.T) {
	toks := allTokens(`print 1 + 2 * 3;`)
	want := []token.Token{
		token.PRINT, token.NUMBER, token.PLUS, token.NUMBER, token.STAR,
		token.NUMBER, token.SEMICOLON, token.EOF,
	}
	require.Len(t, toks, len(want))
	for i, w := range want {
		require.Equalf(t, w, toks[i].Type, "token %d", i)
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	toks := allTokens(`class A < B { init(n) { this.n = n; } }`)
	require.Equal(t, token.CLASS, toks[0].Type)
	require.Equal(t, token.IDENT, toks[1].Type)
	require.Equal(t, "A", toks[1].Lexeme)
	require.Equal(t, token.THIS, toks[10].Type)
}

func TestStringLiteral(t *testing.T) {
	toks := allTokens(`"hi there"`)
	require.Equal(t, token.STRING, toks[0].Type)
	require.Equal(t, `"hi there"`, toks[0].Lexeme)
}

func TestUnterminatedString(t *testing.T) {
	toks := allTokens(`"hi`)
	require.Equal(t, token.ILLEGAL, toks[0].Type)
}

func TestNumberWithFraction(t *testing.T) {
	toks := allTokens(`3.14 .5 5.`)
	require.Equal(t, token.NUMBER, toks[0].Type)
	require.Equal(t, "3.14", toks[0].Lexeme)
	// a leading dot is not part of a number literal
	require.Equal(t, token.DOT, toks[1].Type)
	require.Equal(t, token.NUMBER, toks[3].Type)
	require.Equal(t, "5", toks[3].Lexeme)
}

func TestLineComment(t *testing.T) {
	toks := allTokens("1; // a comment\n2;")
	require.Equal(t, token.NUMBER, toks[0].Type)
	require.Equal(t, 1, toks[0].Line)
	require.Equal(t, token.NUMBER, toks[2].Type)
	require.Equal(t, 2, toks[2].Line)
}

func TestTwoCharOperators(t *testing.T) {
	toks := allTokens(`!= == <= >= ! = < >`)
	want := []token.Token{token.BANG_EQ, token.EQ_EQ, token.LT_EQ, token.GT_EQ, token.BANG, token.EQ, token.LT, token.GT}
	for i, w := range want {
		require.Equalf(t, w, toks[i].Type, "token %d", i)
	}
}

func TestUnexpectedCharacter(t *testing.T) {
	toks := allTokens(`@`)
	require.Equal(t, token.ILLEGAL, toks[0].Type)
}
