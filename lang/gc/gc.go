// Package gc implements the tri-color mark-and-sweep collector that
// reclaims heap objects. It knows nothing about the VM or compiler beyond
// the RootProvider interface: callers register roots, the collector marks,
// traces, prunes the string intern table, and sweeps.
package gc

import (
	"github.com/mna/wisp/lang/table"
	"github.com/mna/wisp/lang/value"
)

// RootProvider supplies every GC root a collection pass must not reclaim.
// The VM implements it for the value stack, call frames and open-upvalue
// list; the compiler implements it for the chain of in-progress functions
// being compiled. mark is called once per live Value reachable from the
// root set; Values that are not Objects are ignored.
type RootProvider interface {
	GCRoots(mark func(value.Value))
}

const minNextGC = 1 << 20 // 1 MiB; avoids pointless collections on tiny heaps

// Heap owns the list of every heap object the interpreter has allocated
// and drives collection. There is no global heap: each interpreter
// instance (lang/vm.VM) owns one, so multiple interpreters can run
// concurrently without sharing GC state.
type Heap struct {
	head           value.Object
	bytesAllocated int64
	nextGC         int64
	gray           []value.Object
	stress         bool
}

// NewHeap returns an empty heap with collection disabled until enough has
// been allocated to cross the initial threshold (or stress mode is set).
func NewHeap() *Heap {
	return &Heap{nextGC: minNextGC}
}

// SetStressMode, when true, makes ShouldCollect always report true: every
// allocation triggers a full collection. This is the stress-GC test mode
// the spec requires the full corpus to survive under.
func (h *Heap) SetStressMode(on bool) { h.stress = on }

// SetInitialThreshold overrides the byte threshold that triggers the
// first collection. Values <= 0 are ignored, leaving the built-in
// default in place.
func (h *Heap) SetInitialThreshold(n int64) {
	if n > 0 {
		h.nextGC = n
	}
}

// Track registers a freshly allocated object in the heap's object list and
// accounts for its size. Every allocator in lang/vm and lang/compiler that
// creates a value.Object must call Track before the object escapes to
// anywhere the collector cannot yet see it (see the GC-safety notes on
// individual allocation sites).
func (h *Heap) Track(obj value.Object) {
	value.SetNext(obj, h.head)
	h.head = obj
	h.bytesAllocated += objectSize(obj)
}

// BytesAllocated reports the net bytes currently attributed to live
// objects.
func (h *Heap) BytesAllocated() int64 { return h.bytesAllocated }

// ShouldCollect reports whether the next allocation should be preceded by
// a collection.
func (h *Heap) ShouldCollect() bool {
	return h.stress || h.bytesAllocated > h.nextGC
}

// Collect runs one full mark-sweep cycle: mark roots, trace to fixpoint,
// prune the string intern table of now-unreachable keys, then sweep and
// free every object that was not reached.
func (h *Heap) Collect(roots RootProvider, strings *table.Table) {
	h.gray = h.gray[:0]
	roots.GCRoots(h.markValue)
	h.trace()
	strings.RemoveWhite(func(s *value.String) bool { return value.Marked(s) })
	h.sweep()

	h.nextGC = h.bytesAllocated * 2
	if h.nextGC < minNextGC {
		h.nextGC = minNextGC
	}
}

// markValue marks v reachable if it is an object. Marking is idempotent: an
// already-marked object is not re-added to the gray worklist.
func (h *Heap) markValue(v value.Value) {
	obj, ok := v.(value.Object)
	if !ok || obj == nil || value.Marked(obj) {
		return
	}
	value.SetMarked(obj, true)
	h.gray = append(h.gray, obj)
}

// trace pops objects off the gray worklist and blackens them by marking
// every value they reference, until the worklist is empty.
func (h *Heap) trace() {
	for len(h.gray) > 0 {
		obj := h.gray[len(h.gray)-1]
		h.gray = h.gray[:len(h.gray)-1]
		h.blacken(obj)
	}
}

func (h *Heap) blacken(obj value.Object) {
	switch o := obj.(type) {
	case *value.String, *value.Native:
		// no outgoing references

	case *value.Function:
		h.markValue(nilIfNoString(o.Name))
		for _, c := range o.Chunk.Constants {
			h.markValue(c)
		}

	case *value.Closure:
		h.markValue(o.Function)
		for _, uv := range o.Upvalues {
			h.markValue(uv)
		}

	case *value.Upvalue:
		h.markValue(o.Closed)

	case *value.Class:
		h.markValue(o.Name)
		if o.Methods != nil {
			o.Methods.ForEach(func(key *value.String, v value.Value) bool {
				h.markValue(key)
				h.markValue(v)
				return true
			})
		}

	case *value.Instance:
		h.markValue(o.Class)
		if o.Fields != nil {
			o.Fields.ForEach(func(key *value.String, v value.Value) bool {
				h.markValue(key)
				h.markValue(v)
				return true
			})
		}

	case *value.BoundMethod:
		h.markValue(o.Receiver)
		h.markValue(o.Method)
	}
}

func nilIfNoString(s *value.String) value.Value {
	if s == nil {
		return nil
	}
	return s
}

// sweep walks the object list, unmarking survivors (ready for the next
// cycle) and unlinking+freeing every object that was never marked.
func (h *Heap) sweep() {
	var prev value.Object
	cur := h.head
	for cur != nil {
		if value.Marked(cur) {
			value.SetMarked(cur, false)
			prev = cur
			cur = value.Next(cur)
			continue
		}

		unreached := cur
		cur = value.Next(cur)
		if prev == nil {
			h.head = cur
		} else {
			value.SetNext(prev, cur)
		}
		h.bytesAllocated -= objectSize(unreached)
	}
}

// objectSize approximates the heap footprint of obj. Go's GC, not this
// collector, owns the actual memory, so this is bookkeeping only: it keeps
// bytes_allocated meaningful enough to drive the next_gc threshold and the
// "returns to zero" testable property.
func objectSize(obj value.Object) int64 {
	switch o := obj.(type) {
	case *value.String:
		return 32 + int64(len(o.Chars))
	case *value.Function:
		return 64 + int64(len(o.Chunk.Code)) + int64(len(o.Chunk.Constants))*16
	case *value.Native:
		return 32
	case *value.Closure:
		return 32 + int64(len(o.Upvalues))*8
	case *value.Upvalue:
		return 32
	case *value.Class:
		return 32
	case *value.Instance:
		return 32
	case *value.BoundMethod:
		return 32
	default:
		return 16
	}
}
