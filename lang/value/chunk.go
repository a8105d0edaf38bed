package value

import "github.com/mna/wisp/lang/bytecode"

// Chunk is a growable sequence of bytecode with a parallel line-number
// table (one entry per byte, for simplicity over compactness) and a
// constant pool. A Function owns exactly one Chunk.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []Value
}

// WriteByte appends a raw byte to the chunk, recording the source line it
// came from.
func (c *Chunk) WriteByte(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode byte.
func (c *Chunk) WriteOp(op bytecode.Op, line int) {
	c.WriteByte(byte(op), line)
}

// AddConstant appends v to the constant pool and returns its index. It does
// not enforce the one-byte OP_CONSTANT operand limit: the compiler checks
// the returned index afterwards and reports a compile error once it reaches
// 256.
func (c *Chunk) AddConstant(v Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}
