package compiler

import (
	"github.com/mna/wisp/lang/bytecode"
	"github.com/mna/wisp/lang/token"
	"github.com/mna/wisp/lang/value"
)

// function compiles a function's parameter list and body into a new
// funcCompiler, then emits OP_CLOSURE (plus its upvalue descriptor bytes)
// into the enclosing function's chunk so the runtime closure is built the
// moment control reaches this declaration/expression.
func (p *Parser) function(fnType FunctionType) {
	fc := &funcCompiler{
		enclosing: p.current,
		fnType:    fnType,
		function:  &value.Function{},
	}
	if fnType != TypeScript {
		fc.function.Name = p.internString(p.prev.Lexeme)
	}

	slot0 := ""
	if fnType == TypeMethod || fnType == TypeInitializer {
		slot0 = "this"
	}
	fc.locals = append(fc.locals, localVar{name: slot0, depth: 0})
	if p.heap != nil {
		p.heap.Track(fc.function)
	}
	p.current = fc

	p.beginScope()
	p.consume(token.LPAREN, "Expect '(' after function name.")
	if !p.check(token.RPAREN) {
		for {
			fc.function.Arity++
			if fc.function.Arity > maxParams {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := p.parseVariable("Expect parameter name.")
			p.defineVariable(constant)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "Expect ')' after parameters.")
	p.consume(token.LBRACE, "Expect '{' before function body.")
	p.block()

	fn, upvals := p.endCompiler()

	idx := p.currentChunk().AddConstant(fn)
	if idx >= maxConstants {
		p.error("Too many constants in one chunk.")
		return
	}
	p.emitBytes(byte(bytecode.OpClosure), byte(idx))
	for _, uv := range upvals {
		isLocal := byte(0)
		if uv.isLocal {
			isLocal = 1
		}
		p.emitByte(isLocal)
		p.emitByte(uv.index)
	}
}
