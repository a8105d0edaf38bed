// Package compiler implements the single-pass Pratt compiler: it consumes
// tokens from lang/lexer and emits bytecode directly into a lang/value.Chunk,
// with no intermediate syntax tree. One funcCompiler exists per function
// currently being compiled, linked to its enclosing funcCompiler so nested
// function and class bodies can resolve locals and upvalues in outer scopes.
package compiler

import (
	"fmt"
	"strconv"

	"github.com/mna/wisp/lang/bytecode"
	"github.com/mna/wisp/lang/gc"
	"github.com/mna/wisp/lang/lexer"
	"github.com/mna/wisp/lang/table"
	"github.com/mna/wisp/lang/token"
	"github.com/mna/wisp/lang/value"
)

// FunctionType distinguishes the four contexts a funcCompiler can compile,
// since each has different rules for slot 0 and for "return".
type FunctionType int

const (
	TypeScript FunctionType = iota
	TypeFunction
	TypeMethod
	TypeInitializer
)

const (
	maxLocals     = 256
	maxUpvalues   = 256
	maxConstants  = 256
	maxParams     = 255
	maxArgs       = 255
	maxJumpOffset = 1<<16 - 1
)

type localVar struct {
	name       string
	depth      int // -1 means "declared but not yet initialized"
	isCaptured bool
}

type upvalueDesc struct {
	index   byte
	isLocal bool
}

// funcCompiler tracks the state needed to compile one function body: the
// Function under construction, its locals and upvalues, and the lexical
// scope depth. The chain of enclosing funcCompilers mirrors the nesting of
// function declarations in the source.
type funcCompiler struct {
	enclosing  *funcCompiler
	fnType     FunctionType
	function   *value.Function
	locals     []localVar
	upvalues   []upvalueDesc
	scopeDepth int
}

// classCompiler is the cross-cutting chain (separate from funcCompiler
// nesting) that tracks whether the class currently being compiled has a
// superclass, so "super" can be validated and a synthetic local bound.
type classCompiler struct {
	enclosing     *classCompiler
	hasSuperclass bool
}

// Parser drives compilation: it holds the token stream, the current
// funcCompiler/classCompiler chains, error state, and the shared string
// intern table and heap that every allocation during compilation goes
// through (so the GC can run mid-compile and trace live constants via the
// funcCompiler chain).
type Parser struct {
	lex  *lexer.Lexer
	prev lexer.Token
	cur  lexer.Token

	hadError  bool
	panicMode bool
	errs      []string

	current *funcCompiler
	class   *classCompiler

	strings *table.Table
	heap    *gc.Heap
}

// GCRoots implements gc.RootProvider: it marks the Function under
// construction at every level of the funcCompiler chain, since those
// Functions' constant pools are the only reachability path to
// compile-time-allocated strings and nested function constants before the
// top-level script closure exists.
func (p *Parser) GCRoots(mark func(value.Value)) {
	for c := p.current; c != nil; c = c.enclosing {
		if c.function != nil {
			mark(c.function)
		}
	}
}

// Result is the outcome of a compile: either a usable top-level script
// Function, or a non-empty list of formatted compile errors.
type Result struct {
	Function *value.Function
	Errors   []string
}

// Ok reports whether compilation produced a usable Function.
func (r Result) Ok() bool { return r.Function != nil && len(r.Errors) == 0 }

// Compile compiles src into a top-level script Function. strings is the
// shared intern table (callers pass the same table the VM uses for
// globals lookups and runtime string creation); heap is the shared
// allocation/GC bookkeeping the VM will keep using after compilation
// completes.
func Compile(src string, strings *table.Table, heap *gc.Heap) Result {
	p := &Parser{
		lex:     lexer.New(src),
		strings: strings,
		heap:    heap,
	}
	p.current = &funcCompiler{fnType: TypeScript, function: &value.Function{}}
	p.current.locals = append(p.current.locals, localVar{name: "", depth: 0})
	if heap != nil {
		heap.Track(p.current.function)
	}

	p.advance()
	for !p.match(token.EOF) {
		p.declaration()
	}

	fn, _ := p.endCompiler()
	if p.hadError {
		return Result{Errors: p.errs}
	}
	return Result{Function: fn}
}

func (p *Parser) currentChunk() *value.Chunk { return &p.current.function.Chunk }

// internString returns the canonical interned *value.String for s, creating
// and tracking one if this is the first time s has been seen.
func (p *Parser) internString(s string) *value.String {
	hash := value.HashString(s)
	if found := p.strings.FindString(s, hash); found != nil {
		return found
	}
	str := value.NewString(s)
	if p.heap != nil {
		p.heap.Track(str)
	}
	p.strings.Set(str, value.Bool(true))
	return str
}

func (p *Parser) maybeCollect() {
	if p.heap != nil && p.heap.ShouldCollect() {
		p.heap.Collect(p, p.strings)
	}
}

// --- token stream -----------------------------------------------------

func (p *Parser) advance() {
	p.prev = p.cur
	for {
		p.cur = p.lex.Next()
		if p.cur.Type != token.ILLEGAL {
			return
		}
		p.errorAtCurrent(p.cur.Lexeme)
	}
}

func (p *Parser) check(t token.Token) bool { return p.cur.Type == t }

func (p *Parser) match(t token.Token) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(t token.Token, msg string) {
	if p.cur.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

// --- error reporting ----------------------------------------------------

func (p *Parser) errorAtCurrent(msg string) { p.errorAt(p.cur, msg) }
func (p *Parser) error(msg string)          { p.errorAt(p.prev, msg) }

func (p *Parser) errorAt(tok lexer.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true

	var where string
	switch {
	case tok.Type == token.EOF:
		where = " at end"
	case tok.Type == token.ILLEGAL:
		where = ""
	default:
		where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	p.errs = append(p.errs, fmt.Sprintf("[line %d] Error%s: %s", tok.Line, where, msg))
}

// synchronize discards tokens until it reaches a likely statement boundary,
// so one error does not cascade into dozens of spurious follow-on errors.
func (p *Parser) synchronize() {
	p.panicMode = false
	for p.cur.Type != token.EOF {
		if p.prev.Type == token.SEMICOLON {
			return
		}
		switch p.cur.Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		p.advance()
	}
}

// --- emission -----------------------------------------------------------

func (p *Parser) emitByte(b byte)         { p.currentChunk().WriteByte(b, p.prev.Line) }
func (p *Parser) emitOp(op bytecode.Op)   { p.currentChunk().WriteOp(op, p.prev.Line) }
func (p *Parser) emitBytes(op byte, b byte) {
	p.emitByte(op)
	p.emitByte(b)
}

func (p *Parser) emitConstant(v value.Value) {
	idx := p.currentChunk().AddConstant(v)
	if idx >= maxConstants {
		p.error("Too many constants in one chunk.")
		return
	}
	p.emitBytes(byte(bytecode.OpConstant), byte(idx))
}

// emitJump emits op followed by a two-byte placeholder offset and returns
// the offset of the placeholder's first byte, to be filled in by patchJump.
func (p *Parser) emitJump(op bytecode.Op) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.currentChunk().Code) - 2
}

func (p *Parser) patchJump(offset int) {
	jump := len(p.currentChunk().Code) - offset - 2
	if jump > maxJumpOffset {
		p.error("Too much code to jump over.")
		return
	}
	p.currentChunk().Code[offset] = byte(jump >> 8)
	p.currentChunk().Code[offset+1] = byte(jump)
}

func (p *Parser) emitLoop(loopStart int) {
	p.emitOp(bytecode.OpLoop)
	offset := len(p.currentChunk().Code) - loopStart + 2
	if offset > maxJumpOffset {
		p.error("Loop body too large.")
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset))
}

func (p *Parser) emitReturn() {
	if p.current.fnType == TypeInitializer {
		p.emitBytes(byte(bytecode.OpGetLocal), 0)
	} else {
		p.emitOp(bytecode.OpNil)
	}
	p.emitOp(bytecode.OpReturn)
}

// endCompiler finishes the current funcCompiler, emitting the implicit
// trailing return, and pops back to the enclosing funcCompiler (nil at the
// top level, once the script function itself is finished).
func (p *Parser) endCompiler() (*value.Function, []upvalueDesc) {
	p.emitReturn()
	fn := p.current.function
	upvals := p.current.upvalues
	p.current = p.current.enclosing
	return fn, upvals
}

// --- identifiers & constants ---------------------------------------------

func (p *Parser) identifierConstant(name string) byte {
	str := p.internString(name)
	idx := p.currentChunk().AddConstant(str)
	if idx >= maxConstants {
		p.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (p *Parser) parseNumber() float64 {
	v, err := strconv.ParseFloat(p.prev.Lexeme, 64)
	if err != nil {
		p.error("Invalid number literal.")
		return 0
	}
	return v
}

func syntheticToken(text string, line int) lexer.Token {
	return lexer.Token{Type: token.IDENT, Lexeme: text, Line: line}
}
