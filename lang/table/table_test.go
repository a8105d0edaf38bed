package table

import (
	"fmt"
	"testing"

	"github.com/mna/wisp/lang/value"
	"github.com/stretchr/testify/require"
)

func key(s string) *value.String { return value.NewString(s) }

func TestSetGetDelete(t *testing.T) {
	tb := New()
	k := key("x")

	isNew := tb.Set(k, value.Number(1))
	require.True(t, isNew)
	require.Equal(t, 1, tb.Len())

	v, ok := tb.Get(k)
	require.True(t, ok)
	require.Equal(t, value.Number(1), v)

	isNew = tb.Set(k, value.Number(2))
	require.False(t, isNew)
	v, _ = tb.Get(k)
	require.Equal(t, value.Number(2), v)

	require.True(t, tb.Delete(k))
	_, ok = tb.Get(k)
	require.False(t, ok)
	require.Equal(t, 0, tb.Len())
}

func TestDeleteThenReinsertPreservesProbeChain(t *testing.T) {
	tb := New()
	a, b, c := key("a"), key("b"), key("c")
	tb.Set(a, value.Number(1))
	tb.Set(b, value.Number(2))
	tb.Set(c, value.Number(3))

	require.True(t, tb.Delete(b))

	// a and c must still be reachable even though b's slot is now a
	// tombstone sitting on their probe chain (assuming collisions placed
	// them in a shared chain; this exercises the general case regardless).
	va, ok := tb.Get(a)
	require.True(t, ok)
	require.Equal(t, value.Number(1), va)

	vc, ok := tb.Get(c)
	require.True(t, ok)
	require.Equal(t, value.Number(3), vc)

	// the deleted key reuses the tombstone slot without growing count twice
	tb.Set(b, value.Number(4))
	vb, ok := tb.Get(b)
	require.True(t, ok)
	require.Equal(t, value.Number(4), vb)
}

func TestGrowthAndManyEntries(t *testing.T) {
	tb := New()
	const n = 200
	keys := make([]*value.String, n)
	for i := 0; i < n; i++ {
		keys[i] = key(fmt.Sprintf("k%d", i))
		tb.Set(keys[i], value.Number(float64(i)))
	}
	require.Equal(t, n, tb.Len())
	for i := 0; i < n; i++ {
		v, ok := tb.Get(keys[i])
		require.True(t, ok)
		require.Equal(t, value.Number(float64(i)), v)
	}
}

func TestFindStringContentProbe(t *testing.T) {
	tb := New()
	s := key("hello")
	tb.Set(s, value.Bool(true))

	found := tb.FindString("hello", value.HashString("hello"))
	require.Same(t, s, found)

	require.Nil(t, tb.FindString("nope", value.HashString("nope")))
}

func TestAddAllCopiesLiveEntriesOnly(t *testing.T) {
	src := New()
	m1, m2 := key("m1"), key("m2")
	src.Set(m1, value.Number(1))
	src.Set(m2, value.Number(2))
	src.Delete(m2)

	dst := New()
	dst.AddAll(src)
	require.Equal(t, 1, dst.Len())
	v, ok := dst.Get(m1)
	require.True(t, ok)
	require.Equal(t, value.Number(1), v)
}

func TestRemoveWhiteDropsUnmarkedKeys(t *testing.T) {
	tb := New()
	marked := key("kept")
	unmarked := key("dropped")
	tb.Set(marked, value.Bool(true))
	tb.Set(unmarked, value.Bool(true))

	tb.RemoveWhite(func(s *value.String) bool { return s == marked })

	require.Equal(t, 1, tb.Len())
	_, ok := tb.Get(marked)
	require.True(t, ok)
	_, ok = tb.Get(unmarked)
	require.False(t, ok)
}
