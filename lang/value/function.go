package value

import "fmt"

// Function is the compiled form of a function body: its arity, how many
// upvalues it captures, the bytecode chunk compiled from its body, and an
// optional name (nil for the implicit top-level script function).
type Function struct {
	Header
	Arity        int
	UpvalueCount int
	Chunk        Chunk
	Name         *String
}

var _ Object = (*Function)(nil)

func (f *Function) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}
func (f *Function) Type() string    { return "function" }
func (f *Function) Kind() Kind      { return KindFunction }
func (f *Function) object() *Header { return &f.Header }

// NativeFn is the signature of a built-in function implemented in Go.
type NativeFn func(args []Value) (Value, error)

// Native wraps a NativeFn so it can be called like any other Callable.
type Native struct {
	Header
	Name string
	Fn   NativeFn
}

var _ Object = (*Native)(nil)

func (n *Native) String() string    { return fmt.Sprintf("<native fn %s>", n.Name) }
func (n *Native) Type() string      { return "native" }
func (n *Native) Kind() Kind        { return KindNative }
func (n *Native) object() *Header   { return &n.Header }

// Upvalue is an indirection to a captured variable: while "open" its
// Location points into a live VM stack slot; once "closed" (the owning
// frame has returned, or the block that declared the local has ended),
// Location points at the upvalue's own Closed field instead, and the stack
// slot is no longer consulted.
//
// NextOpen threads this upvalue into the VM's open-upvalue list, which is
// kept sorted by descending stack address; it is distinct from Header.Next,
// which threads this object into the VM's general allocation list.
type Upvalue struct {
	Header
	Location *Value
	Closed   Value
	NextOpen *Upvalue
}

var _ Object = (*Upvalue)(nil)

// NewOpenUpvalue returns an Upvalue observing the given stack slot.
func NewOpenUpvalue(slot *Value) *Upvalue {
	u := &Upvalue{Location: slot}
	return u
}

// IsOpen reports whether the upvalue still observes a live stack slot.
func (u *Upvalue) IsOpen() bool { return u.Location != &u.Closed }

// Close copies the current value out of the stack slot into the upvalue's
// own storage and retargets Location to point at it.
func (u *Upvalue) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}

func (u *Upvalue) String() string    { return "upvalue" }
func (u *Upvalue) Type() string      { return "upvalue" }
func (u *Upvalue) Kind() Kind        { return KindUpvalue }
func (u *Upvalue) object() *Header   { return &u.Header }

// Closure is the runtime wrapper of a Function with its captured upvalues.
type Closure struct {
	Header
	Function *Function
	Upvalues []*Upvalue
}

var _ Object = (*Closure)(nil)

// NewClosure allocates a Closure over fn with an upvalue slice sized for
// fn's declared upvalue count.
func NewClosure(fn *Function) *Closure {
	return &Closure{Function: fn, Upvalues: make([]*Upvalue, fn.UpvalueCount)}
}

func (c *Closure) String() string    { return c.Function.String() }
func (c *Closure) Type() string      { return "closure" }
func (c *Closure) Kind() Kind        { return KindClosure }
func (c *Closure) object() *Header   { return &c.Header }
