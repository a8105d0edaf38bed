package value

// Kind discriminates the heap object variants (the spec's Obj type_tag).
type Kind uint8

//nolint:revive
const (
	KindString Kind = iota
	KindFunction
	KindNative
	KindClosure
	KindUpvalue
	KindClass
	KindInstance
	KindBoundMethod
)

// Header is embedded in every heap object. It carries the fields the garbage
// collector needs regardless of the object's concrete kind: whether it is
// currently marked reachable, and the intrusive link that threads every
// live object into the VM's single allocation list.
//
// Header is not itself a Value; it is embedded by value so each concrete
// object type owns its own copy, and object() returns a pointer into that
// copy so the collector can flip Marked and relink Next in place.
type Header struct {
	Marked bool
	Next   Object
}

// Object is any heap-allocated value: the "Obj(ref)" variant of Value.
type Object interface {
	Value
	Kind() Kind
	object() *Header
}

// Marked reports whether obj is currently marked reachable.
func Marked(obj Object) bool { return obj.object().Marked }

// SetMarked sets obj's mark bit.
func SetMarked(obj Object, marked bool) { obj.object().Marked = marked }

// Next returns the next object in the VM's allocation list.
func Next(obj Object) Object { return obj.object().Next }

// SetNext sets the next object in the VM's allocation list.
func SetNext(obj Object, next Object) { obj.object().Next = next }
