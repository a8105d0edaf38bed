package value

import "fmt"

// Table is the narrow interface Class and Instance need from a hash table
// keyed by interned strings. The concrete open-addressed implementation
// lives in lang/table; it is not imported here to avoid a cycle (that
// package's Table needs to name *String and Value directly), so callers in
// lang/table, lang/compiler and lang/vm construct a table.Table and assign
// it to these fields, relying on Go's structural typing to satisfy this
// interface.
type Table interface {
	Get(key *String) (Value, bool)
	Set(key *String, v Value) bool
	Delete(key *String) bool
	Len() int
	ForEach(fn func(key *String, v Value) bool)
}

// Class is a class object: a name and a method table mapping method name to
// the Closure implementing it. Single inheritance is implemented by copying
// the superclass's method table into the subclass's at OP_INHERIT time.
type Class struct {
	Header
	Name    *String
	Methods Table
}

var _ Object = (*Class)(nil)

func (c *Class) String() string    { return c.Name.Chars }
func (c *Class) Type() string      { return "class" }
func (c *Class) Kind() Kind        { return KindClass }
func (c *Class) object() *Header   { return &c.Header }

// Instance is an instance of a Class: a reference to its class plus a field
// table.
type Instance struct {
	Header
	Class  *Class
	Fields Table
}

var _ Object = (*Instance)(nil)

func (i *Instance) String() string  { return fmt.Sprintf("%s instance", i.Class.Name.Chars) }
func (i *Instance) Type() string    { return "instance" }
func (i *Instance) Kind() Kind      { return KindInstance }
func (i *Instance) object() *Header { return &i.Header }

// BoundMethod pairs a receiver instance with one of its class's closures,
// produced by OP_GET_PROPERTY/OP_GET_SUPER when the looked-up name is a
// method rather than a field.
type BoundMethod struct {
	Header
	Receiver Value
	Method   *Closure
}

var _ Object = (*BoundMethod)(nil)

func (b *BoundMethod) String() string  { return b.Method.String() }
func (b *BoundMethod) Type() string    { return "bound method" }
func (b *BoundMethod) Kind() Kind      { return KindBoundMethod }
func (b *BoundMethod) object() *Header { return &b.Header }
