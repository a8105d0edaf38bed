// Package table implements the open-addressed hash table used throughout
// the interpreter: globals, class method tables, instance field tables, and
// the string intern pool all share this one implementation. Keys are
// always interned *value.String pointers, so identity comparison suffices
// once a key has been found.
package table

import "github.com/mna/wisp/lang/value"

const (
	initialCapacity = 8
	maxLoad         = 0.75
)

type entry struct {
	key *value.String // nil key + nil val = never used; nil key + non-nil val = tombstone
	val value.Value
}

func (e *entry) isEmpty() bool     { return e.key == nil && e.val == nil }
func (e *entry) isTombstone() bool { return e.key == nil && e.val != nil }

// Table is an open-addressed hash table with linear probing and
// power-of-two capacity growth, as specified: load factor above 0.75
// triggers a doubling (minimum capacity 8); deleted entries become
// tombstones (so probe sequences stay intact) and still count toward the
// load factor.
type Table struct {
	count   int // live entries plus tombstones
	entries []entry
}

// New returns an empty table. Its backing array is not allocated until the
// first insertion.
func New() *Table { return &Table{} }

// Len reports the number of live (non-tombstone) entries.
func (t *Table) Len() int {
	if len(t.entries) == 0 {
		return 0
	}
	n := 0
	for i := range t.entries {
		if !t.entries[i].isEmpty() && !t.entries[i].isTombstone() {
			n++
		}
	}
	return n
}

// Get returns the value associated with key, if any.
func (t *Table) Get(key *value.String) (value.Value, bool) {
	if len(t.entries) == 0 {
		return nil, false
	}
	e := findEntry(t.entries, key)
	if e.key == nil {
		return nil, false
	}
	return e.val, true
}

// Set inserts or updates key's value, growing the table first if needed. It
// reports whether key was not already present.
func (t *Table) Set(key *value.String, v value.Value) bool {
	if len(t.entries) == 0 || float64(t.count+1) > float64(len(t.entries))*maxLoad {
		t.grow()
	}
	e := findEntry(t.entries, key)
	isNew := e.key == nil
	if isNew && e.val == nil { // not a tombstone being reused
		t.count++
	}
	e.key = key
	e.val = v
	return isNew
}

// Delete removes key, leaving a tombstone behind so later probe sequences
// remain unbroken.
func (t *Table) Delete(key *value.String) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := findEntry(t.entries, key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.val = value.Bool(true) // tombstone marker
	return true
}

// ForEach calls fn for every live entry, in storage order. Iteration stops
// early if fn returns false.
func (t *Table) ForEach(fn func(key *value.String, v value.Value) bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.isEmpty() || e.isTombstone() {
			continue
		}
		if !fn(e.key, e.val) {
			return
		}
	}
}

// AddAll copies every live entry of src into t (used by OP_INHERIT to copy
// a superclass's method table into a subclass's).
func (t *Table) AddAll(src *Table) {
	src.ForEach(func(key *value.String, v value.Value) bool {
		t.Set(key, v)
		return true
	})
}

// FindString performs a content probe for string interning: it looks for an
// existing key whose length, hash and bytes match, without requiring the
// caller to already have a *value.String to compare by identity.
func (t *Table) FindString(chars string, hash uint32) *value.String {
	if len(t.entries) == 0 {
		return nil
	}
	mask := uint32(len(t.entries) - 1)
	idx := hash & mask
	for {
		e := &t.entries[idx]
		if e.isEmpty() {
			return nil
		}
		if !e.isTombstone() && e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		idx = (idx + 1) & mask
	}
}

// RemoveWhite is the GC hook: it deletes every entry whose key is not
// currently marked, so that dead interned strings do not keep a dangling
// (and now incorrect) key alive in the table. isMarked reports whether a
// string object survived the current mark phase.
func (t *Table) RemoveWhite(isMarked func(*value.String) bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.isEmpty() || e.isTombstone() {
			continue
		}
		if !isMarked(e.key) {
			e.key = nil
			e.val = value.Bool(true)
		}
	}
}

func (t *Table) grow() {
	newCap := initialCapacity
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	newEntries := make([]entry, newCap)

	liveCount := 0
	for i := range t.entries {
		e := &t.entries[i]
		if e.isEmpty() || e.isTombstone() {
			continue
		}
		dst := findEntry(newEntries, e.key)
		dst.key = e.key
		dst.val = e.val
		liveCount++
	}

	t.entries = newEntries
	t.count = liveCount
}

// findEntry returns the slot key should occupy: the matching entry if
// present, the first tombstone seen otherwise (for reuse on insert), or the
// first empty non-tombstone slot (which terminates the probe sequence).
func findEntry(entries []entry, key *value.String) *entry {
	mask := uint32(len(entries) - 1)
	idx := key.Hash & mask
	var tombstone *entry
	for {
		e := &entries[idx]
		switch {
		case e.isEmpty():
			if tombstone != nil {
				return tombstone
			}
			return e
		case e.isTombstone():
			if tombstone == nil {
				tombstone = e
			}
		case e.key == key:
			return e
		}
		idx = (idx + 1) & mask
	}
}
