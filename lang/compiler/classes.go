package compiler

import (
	"github.com/mna/wisp/lang/bytecode"
	"github.com/mna/wisp/lang/token"
)

func (p *Parser) classDeclaration() {
	p.consume(token.IDENT, "Expect class name.")
	className := p.prev.Lexeme
	line := p.prev.Line
	nameConstant := p.identifierConstant(className)
	p.declareVariable(className)

	p.emitBytes(byte(bytecode.OpClass), nameConstant)
	p.defineVariable(nameConstant)

	cc := &classCompiler{enclosing: p.class}
	p.class = cc

	if p.match(token.LT) {
		p.consume(token.IDENT, "Expect superclass name.")
		if p.prev.Lexeme == className {
			p.error("A class can't inherit from itself.")
		}
		p.namedVariable(p.prev, false)

		p.beginScope()
		p.addLocal("super")
		p.markInitialized()

		p.namedVariable(syntheticToken(className, line), false)
		p.emitOp(bytecode.OpInherit)
		cc.hasSuperclass = true
	}

	p.namedVariable(syntheticToken(className, line), false)
	p.consume(token.LBRACE, "Expect '{' before class body.")
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.method()
	}
	p.consume(token.RBRACE, "Expect '}' after class body.")
	p.emitOp(bytecode.OpPop)

	if cc.hasSuperclass {
		p.endScope()
	}
	p.class = cc.enclosing
}

func (p *Parser) method() {
	p.consume(token.IDENT, "Expect method name.")
	name := p.prev.Lexeme
	constant := p.identifierConstant(name)

	fnType := TypeMethod
	if name == "init" {
		fnType = TypeInitializer
	}
	p.function(fnType)
	p.emitBytes(byte(bytecode.OpMethod), constant)
}
