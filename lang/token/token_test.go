package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		require.NotEmpty(t, tok.String(), "token %d has no string form", tok)
	}
}

func TestLookupIdent(t *testing.T) {
	for lit, tok := range keywords {
		require.Equal(t, tok, LookupIdent(lit))
	}
	require.Equal(t, IDENT, LookupIdent("notAKeyword"))
	require.Equal(t, IDENT, LookupIdent("classy"))
}
