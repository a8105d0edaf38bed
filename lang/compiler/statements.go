package compiler

import (
	"github.com/mna/wisp/lang/bytecode"
	"github.com/mna/wisp/lang/token"
)

func (p *Parser) declaration() {
	switch {
	case p.match(token.CLASS):
		p.classDeclaration()
	case p.match(token.FUN):
		p.funDeclaration()
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.statement()
	}

	if p.panicMode {
		p.synchronize()
	}
	p.maybeCollect()
}

func (p *Parser) funDeclaration() {
	global := p.parseVariable("Expect function name.")
	p.markInitialized()
	p.function(TypeFunction)
	p.defineVariable(global)
}

func (p *Parser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")
	if p.match(token.EQ) {
		p.expression()
	} else {
		p.emitOp(bytecode.OpNil)
	}
	p.consume(token.SEMICOLON, "Expect ';' after variable declaration.")
	p.defineVariable(global)
}

// parseVariable consumes the variable's name token, declares it as a local
// if in a local scope, and returns the constant-pool index to use with
// OP_DEFINE_GLOBAL/OP_GET_GLOBAL (0 when the variable is local, since
// locals need no name constant at runtime).
func (p *Parser) parseVariable(msg string) byte {
	p.consume(token.IDENT, msg)
	p.declareVariable(p.prev.Lexeme)
	if p.current.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.prev.Lexeme)
}

func (p *Parser) defineVariable(global byte) {
	if p.current.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitBytes(byte(bytecode.OpDefineGlobal), global)
}

func (p *Parser) statement() {
	switch {
	case p.match(token.PRINT):
		p.printStatement()
	case p.match(token.FOR):
		p.forStatement()
	case p.match(token.IF):
		p.ifStatement()
	case p.match(token.RETURN):
		p.returnStatement()
	case p.match(token.WHILE):
		p.whileStatement()
	case p.match(token.LBRACE):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *Parser) block() {
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RBRACE, "Expect '}' after block.")
}

func (p *Parser) printStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after value.")
	p.emitOp(bytecode.OpPrint)
}

func (p *Parser) expressionStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after expression.")
	p.emitOp(bytecode.OpPop)
}

func (p *Parser) returnStatement() {
	if p.current.fnType == TypeScript {
		p.error("Can't return from top-level code.")
	}
	switch {
	case p.match(token.SEMICOLON):
		p.emitReturn()
	default:
		if p.current.fnType == TypeInitializer {
			p.error("Can't return a value from an initializer.")
		}
		p.expression()
		p.consume(token.SEMICOLON, "Expect ';' after return value.")
		p.emitOp(bytecode.OpReturn)
	}
}

func (p *Parser) ifStatement() {
	p.consume(token.LPAREN, "Expect '(' after 'if'.")
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after condition.")

	thenJump := p.emitJump(bytecode.OpJumpIfFalse)
	p.emitOp(bytecode.OpPop)
	p.statement()

	elseJump := p.emitJump(bytecode.OpJump)
	p.patchJump(thenJump)
	p.emitOp(bytecode.OpPop)

	if p.match(token.ELSE) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *Parser) whileStatement() {
	loopStart := len(p.currentChunk().Code)
	p.consume(token.LPAREN, "Expect '(' after 'while'.")
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after condition.")

	exitJump := p.emitJump(bytecode.OpJumpIfFalse)
	p.emitOp(bytecode.OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(bytecode.OpPop)
}

func (p *Parser) forStatement() {
	p.beginScope()
	p.consume(token.LPAREN, "Expect '(' after 'for'.")

	switch {
	case p.match(token.SEMICOLON):
		// no initializer clause
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.currentChunk().Code)
	exitJump := -1
	if !p.match(token.SEMICOLON) {
		p.expression()
		p.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = p.emitJump(bytecode.OpJumpIfFalse)
		p.emitOp(bytecode.OpPop)
	}

	if !p.check(token.RPAREN) {
		bodyJump := p.emitJump(bytecode.OpJump)
		incrementStart := len(p.currentChunk().Code)
		p.expression()
		p.emitOp(bytecode.OpPop)
		p.consume(token.RPAREN, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	} else {
		p.consume(token.RPAREN, "Expect ')' after for clauses.")
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(bytecode.OpPop)
	}
	p.endScope()
}
