package gc

import (
	"testing"

	"github.com/mna/wisp/lang/table"
	"github.com/mna/wisp/lang/value"
	"github.com/stretchr/testify/require"
)

// rootSet is a trivial RootProvider used to drive collection in isolation
// from the VM: it just replays a fixed slice of Values as roots.
type rootSet []value.Value

func (r rootSet) GCRoots(mark func(value.Value)) {
	for _, v := range r {
		mark(v)
	}
}

func TestCollectFreesUnreachableObjects(t *testing.T) {
	h := NewHeap()
	strings := table.New()

	reachable := value.NewString("kept")
	strings.Set(reachable, value.Bool(true))
	h.Track(reachable)

	unreachable := value.NewString("dropped")
	strings.Set(unreachable, value.Bool(true))
	h.Track(unreachable)

	before := h.BytesAllocated()
	require.Greater(t, before, int64(0))

	h.Collect(rootSet{reachable}, strings)

	_, ok := strings.Get(reachable)
	require.True(t, ok)
	_, ok = strings.Get(unreachable)
	require.False(t, ok, "unreachable string must be pruned from the intern table")

	require.Less(t, h.BytesAllocated(), before)
}

func TestCollectWithNoRootsFreesEverything(t *testing.T) {
	h := NewHeap()
	strings := table.New()

	a := value.NewString("a")
	b := value.NewString("b")
	strings.Set(a, value.Bool(true))
	strings.Set(b, value.Bool(true))
	h.Track(a)
	h.Track(b)

	h.Collect(rootSet(nil), strings)

	require.Equal(t, int64(0), h.BytesAllocated())
	require.Equal(t, 0, strings.Len())
}

func TestCollectTracesThroughClosureGraph(t *testing.T) {
	h := NewHeap()
	strings := table.New()

	name := value.NewString("f")
	h.Track(name)
	fn := &value.Function{Name: name}
	h.Track(fn)
	cl := value.NewClosure(fn)
	h.Track(cl)

	constStr := value.NewString("constant")
	h.Track(constStr)
	fn.Chunk.Constants = append(fn.Chunk.Constants, constStr)

	h.Collect(rootSet{cl}, strings)

	require.False(t, value.Marked(cl), "marks must be cleared after sweep")
	require.False(t, value.Marked(fn))
	require.False(t, value.Marked(name))
	require.False(t, value.Marked(constStr))

	// None of the reachable chain was swept: fn, name and constStr still
	// contribute their bytes.
	require.Greater(t, h.BytesAllocated(), int64(0))
}

func TestCollectTracesInstanceFields(t *testing.T) {
	h := NewHeap()
	strings := table.New()

	className := value.NewString("Point")
	h.Track(className)
	class := &value.Class{Name: className, Methods: table.New()}
	h.Track(class)

	inst := &value.Instance{Class: class, Fields: table.New()}
	h.Track(inst)

	fieldName := value.NewString("x")
	h.Track(fieldName)
	fieldVal := value.NewString("held-by-field")
	h.Track(fieldVal)
	inst.Fields.Set(fieldName, fieldVal)

	orphan := value.NewString("orphan")
	h.Track(orphan)

	h.Collect(rootSet{inst}, strings)

	_, ok := inst.Fields.Get(fieldName)
	require.True(t, ok, "field table survives since the instance is reachable")

	// orphan was never rooted and nothing references it, so it must be gone;
	// we can't query it directly (it was never interned), so assert via the
	// byte count: class+inst+className+fieldName+fieldVal survive, orphan
	// does not contribute.
	require.Equal(t, objectSize(className)+objectSize(class)+objectSize(inst)+objectSize(fieldName)+objectSize(fieldVal), h.BytesAllocated())
}

func TestShouldCollectRespectsThresholdAndStress(t *testing.T) {
	h := NewHeap()
	require.False(t, h.ShouldCollect())

	h.SetStressMode(true)
	require.True(t, h.ShouldCollect())
	h.SetStressMode(false)

	h.bytesAllocated = h.nextGC + 1
	require.True(t, h.ShouldCollect())
}
