package value_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/wisp/lang/value"
)

func TestTruthy(t *testing.T) {
	require.False(t, value.Truthy(value.None))
	require.False(t, value.Truthy(value.Bool(false)))
	require.True(t, value.Truthy(value.Bool(true)))
	require.True(t, value.Truthy(value.Number(0)))
	require.True(t, value.Truthy(value.NewString("")))
}

func TestEqualPrimitives(t *testing.T) {
	require.True(t, value.Equal(value.None, value.None))
	require.True(t, value.Equal(value.Number(1), value.Number(1)))
	require.False(t, value.Equal(value.Number(1), value.Number(2)))
	require.True(t, value.Equal(value.Bool(true), value.Bool(true)))
	require.False(t, value.Equal(value.Number(1), value.Bool(true)))
	require.False(t, value.Equal(value.None, value.Bool(false)))
}

func TestEqualObjectsAreReferenceIdentity(t *testing.T) {
	a := value.NewString("hi")
	b := value.NewString("hi")
	require.False(t, value.Equal(a, b), "distinct allocations with equal content are not equal without interning")
	require.True(t, value.Equal(a, a))
}

func TestStringHashIsContentStable(t *testing.T) {
	require.Equal(t, value.HashString("hello"), value.HashString("hello"))
	require.NotEqual(t, value.HashString("hello"), value.HashString("world"))
}

func TestHeaderMarkAndLink(t *testing.T) {
	a := value.NewString("a")
	b := value.NewString("b")

	require.False(t, value.Marked(a))
	value.SetMarked(a, true)
	require.True(t, value.Marked(a))

	require.Nil(t, value.Next(a))
	value.SetNext(a, b)
	require.Same(t, b, value.Next(a))
}

func TestClosureUpvalueCountMatchesFunction(t *testing.T) {
	fn := &value.Function{UpvalueCount: 2}
	closure := value.NewClosure(fn)
	require.Len(t, closure.Upvalues, 2)
}

func TestUpvalueOpenAndClose(t *testing.T) {
	slot := value.Number(42)
	uv := value.NewOpenUpvalue(&slot)
	require.True(t, uv.IsOpen())

	slot = value.Number(43)
	uv.Close()
	require.False(t, uv.IsOpen())
	require.Equal(t, value.Number(43), uv.Closed)
}

func TestChunkAddConstantReturnsIndex(t *testing.T) {
	var c value.Chunk
	idx := c.AddConstant(value.Number(1))
	require.Equal(t, 0, idx)
	idx = c.AddConstant(value.Number(2))
	require.Equal(t, 1, idx)
	require.Len(t, c.Constants, 2)
}
